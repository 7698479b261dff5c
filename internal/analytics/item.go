package analytics

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownItemType is returned for an item name outside the ranked set.
	ErrUnknownItemType = errors.New("unknown item type")

	// ErrInvalidRange is returned when a range starts after it ends.
	ErrInvalidRange = errors.New("invalid date range")
)

// ItemType names a rankable category of the daily summary.
type ItemType int

const (
	Editors ItemType = iota
	Languages
	Projects
)

// ParseItemType maps a path segment to an ItemType.
func ParseItemType(s string) (ItemType, error) {
	switch strings.ToLower(s) {
	case "editors":
		return Editors, nil
	case "langs", "languages":
		return Languages, nil
	case "projects":
		return Projects, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownItemType, s)
}

func (t ItemType) String() string {
	switch t {
	case Editors:
		return "editors"
	case Languages:
		return "langs"
	case Projects:
		return "projects"
	}
	return fmt.Sprintf("ItemType(%d)", int(t))
}

// column is the wakatime_summary column holding this category. The mapping is
// closed so column names never come from user input.
func (t ItemType) column() (string, error) {
	switch t {
	case Editors:
		return "editors", nil
	case Languages:
		return "langs", nil
	case Projects:
		return "projects", nil
	}
	return "", fmt.Errorf("%w: %d", ErrUnknownItemType, int(t))
}
