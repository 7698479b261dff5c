package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ConfabulousDev/wakalog/internal/db"
	"github.com/ConfabulousDev/wakalog/internal/logger"
	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

// ErrUnrecognizedArchive means a file is neither a composite record nor a
// bare summary envelope.
var ErrUnrecognizedArchive = errors.New("unrecognized archive format")

var archiveFileName = regexp.MustCompile(`_(\d{8})\.json$`)

// ImportReport lists what an Import pass did with each candidate file.
type ImportReport struct {
	Imported []string
	Skipped  []string
}

// Import upserts every *_YYYYMMDD.json archive in dir, in name order. The
// date comes from the file name. A file that cannot be parsed or stored is
// logged and skipped.
func Import(ctx context.Context, store SummaryStore, dir string) (*ImportReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read import dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !archiveFileName.MatchString(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	report := &ImportReport{}
	log := logger.Ctx(ctx)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		path := filepath.Join(dir, name)
		if err := importFile(ctx, store, path); err != nil {
			log.Warn("skipping archive", "file", path, "error", err)
			report.Skipped = append(report.Skipped, path)
			continue
		}
		log.Info("imported archive", "file", path)
		report.Imported = append(report.Imported, path)
	}
	return report, nil
}

func importFile(ctx context.Context, store SummaryStore, path string) error {
	date, err := archiveDate(filepath.Base(path))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}

	composite, err := DecodeArchive(data)
	if err != nil {
		return err
	}

	row, err := db.NewSummaryRow(date, composite)
	if err != nil {
		return err
	}
	_, err = store.UpsertSummary(ctx, row)
	return err
}

func archiveDate(name string) (time.Time, error) {
	m := archiveFileName.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: no date in %q", wakatime.ErrInvalidDate, name)
	}
	date, err := time.Parse("20060102", m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", wakatime.ErrInvalidDate, m[1])
	}
	return date, nil
}

// DecodeArchive accepts either a composite record (as written by the
// archivers) or a bare summaries response (as written by `wakalog fetch
// --save`) and returns a composite.
func DecodeArchive(data []byte) (*wakatime.Composite, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", wakatime.ErrDecode)
	}

	switch {
	case gjson.GetBytes(data, "summaries").IsObject():
		var c wakatime.Composite
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("%w: %w", wakatime.ErrDecode, err)
		}
		return wakatime.NewComposite(c.Summaries, c.Projects), nil
	case gjson.GetBytes(data, "data").IsArray():
		var s wakatime.Summary
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("%w: %w", wakatime.ErrDecode, err)
		}
		return wakatime.NewComposite(s, nil), nil
	}
	return nil, ErrUnrecognizedArchive
}
