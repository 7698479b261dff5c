package wakatime

import (
	"encoding/json"
)

// SummaryDetail is one leaf statistic of a summary (an editor, a language,
// a project...). TotalSeconds is authoritative; Hours/Minutes/Seconds and
// Digital/Text are display renderings of it and are never aggregated.
type SummaryDetail struct {
	Name          string  `json:"name,omitempty"`
	TotalSeconds  float64 `json:"total_seconds"`
	Percent       float64 `json:"percent"`
	Digital       string  `json:"digital"`
	Text          string  `json:"text"`
	Hours         int     `json:"hours"`
	Minutes       int     `json:"minutes"`
	Seconds       int     `json:"seconds"`
	MachineNameID *string `json:"machine_name_id,omitempty"`
}

// Range describes the calendar day a SummaryData covers.
type Range struct {
	Date     string `json:"date"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Text     string `json:"text"`
	Timezone string `json:"timezone,omitempty"`
}

// SummaryData is one dated bucket of a summary response.
//
// Every category list is guaranteed non-nil after decoding: a category the
// API omitted (or sent as null) decodes to an empty slice, so callers never
// have to distinguish "absent" from "no activity".
type SummaryData struct {
	Categories       []SummaryDetail `json:"categories"`
	Dependencies     []SummaryDetail `json:"dependencies"`
	Editors          []SummaryDetail `json:"editors"`
	Languages        []SummaryDetail `json:"languages"`
	Machines         []SummaryDetail `json:"machines"`
	OperatingSystems []SummaryDetail `json:"operating_systems"`
	Projects         []SummaryDetail `json:"projects"`
	Branches         []SummaryDetail `json:"branches"`
	Entities         []SummaryDetail `json:"entities"`
	GrandTotal       SummaryDetail   `json:"grand_total"`
	Range            Range           `json:"range"`
}

// UnmarshalJSON decodes a SummaryData and fills absent categories with
// empty slices.
func (d *SummaryData) UnmarshalJSON(data []byte) error {
	type plain SummaryData
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = SummaryData(p)
	d.fillDefaults()
	return nil
}

func (d *SummaryData) fillDefaults() {
	for _, list := range []*[]SummaryDetail{
		&d.Categories,
		&d.Dependencies,
		&d.Editors,
		&d.Languages,
		&d.Machines,
		&d.OperatingSystems,
		&d.Projects,
		&d.Branches,
		&d.Entities,
	} {
		if *list == nil {
			*list = []SummaryDetail{}
		}
	}
}

// ProjectNames returns the distinct project names in first-seen order.
// Entries without a name are skipped.
func (d SummaryData) ProjectNames() []string {
	seen := make(map[string]bool, len(d.Projects))
	names := make([]string, 0, len(d.Projects))
	for _, p := range d.Projects {
		if p.Name == "" || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		names = append(names, p.Name)
	}
	return names
}

// Summary is the envelope returned by GET /users/current/summaries.
type Summary struct {
	Data  []SummaryData `json:"data"`
	Start string        `json:"start"`
	End   string        `json:"end"`
}

// First returns the single dated bucket this system consumes. Multi-day
// responses are not supported: anything after the first bucket is ignored.
// A summary with no buckets yields an empty, fully-defaulted SummaryData.
func (s *Summary) First() SummaryData {
	if s == nil || len(s.Data) == 0 {
		var empty SummaryData
		empty.fillDefaults()
		return empty
	}
	return s.Data[0]
}

// Composite bundles the account-wide summary with one summary per project
// for the same range. It is built once per ingestion and not mutated after.
type Composite struct {
	Summaries Summary            `json:"summaries"`
	Projects  map[string]Summary `json:"projects"`
}

// NewComposite assembles a Composite. A nil project map is stored as empty.
func NewComposite(aggregate Summary, projects map[string]Summary) *Composite {
	if projects == nil {
		projects = map[string]Summary{}
	}
	return &Composite{Summaries: aggregate, Projects: projects}
}
