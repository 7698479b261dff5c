package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/ConfabulousDev/wakalog/internal/db"
	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

type fetchCall struct {
	day     string
	project string
}

// fakeFetcher serves canned summaries. Unknown projects get an empty summary.
type fakeFetcher struct {
	mu        sync.Mutex
	aggregate map[string]*wakatime.Summary // by day
	failDays  map[string]error             // aggregate fetch failures
	failProj  map[string]error             // project fetch failures
	calls     []fetchCall
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		aggregate: map[string]*wakatime.Summary{},
		failDays:  map[string]error{},
		failProj:  map[string]error{},
	}
}

func (f *fakeFetcher) FetchSummary(_ context.Context, start, _ string, project string) (*wakatime.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{day: start, project: project})

	if project == "" {
		if err := f.failDays[start]; err != nil {
			return nil, err
		}
		if s, ok := f.aggregate[start]; ok {
			return s, nil
		}
		return &wakatime.Summary{}, nil
	}
	if err := f.failProj[project]; err != nil {
		return nil, err
	}
	return &wakatime.Summary{Data: []wakatime.SummaryData{{
		Languages: []wakatime.SummaryDetail{{Name: "Go", TotalSeconds: 60}},
	}}}, nil
}

func (f *fakeFetcher) projectCalls() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for _, c := range f.calls {
		if c.project != "" {
			out[c.project]++
		}
	}
	return out
}

// fakeStore keeps rows in memory keyed by date.
type fakeStore struct {
	mu       sync.Mutex
	rows     map[string]*db.SummaryRow
	failDays map[string]bool
	writes   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]*db.SummaryRow{}, failDays: map[string]bool{}}
}

func (s *fakeStore) UpsertSummary(_ context.Context, row *db.SummaryRow) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := wakatime.FormatDate(row.Date)
	if s.failDays[day] {
		return false, errors.New("connection reset")
	}
	s.writes++
	_, existed := s.rows[day]
	s.rows[day] = row
	return !existed, nil
}

func summaryWithProjects(names ...string) *wakatime.Summary {
	var projects []wakatime.SummaryDetail
	for _, n := range names {
		projects = append(projects, wakatime.SummaryDetail{Name: n, TotalSeconds: 600})
	}
	return &wakatime.Summary{Data: []wakatime.SummaryData{{
		Editors:    []wakatime.SummaryDetail{{Name: "VSCode", TotalSeconds: 3600}},
		Projects:   projects,
		GrandTotal: wakatime.SummaryDetail{TotalSeconds: 3600},
	}}}
}
