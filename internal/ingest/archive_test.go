package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveName(t *testing.T) {
	tests := []struct {
		from, to string
		want     string
	}{
		{"2024-03-01", "2024-03-01", "res_20240301.json"},
		{"2024-03-01", "2024-03-07", "res_20240301-20240307.json"},
	}
	for _, tt := range tests {
		if got := ArchiveName(day(tt.from), day(tt.to)); got != tt.want {
			t.Errorf("ArchiveName(%s, %s) = %q, want %q", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIngest_WritesFileArchive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	fetcher := newFakeFetcher()
	fetcher.aggregate["2024-03-01"] = summaryWithProjects("wakalog")

	p := NewPipeline(fetcher, newFakeStore(), WithArchivers(FileArchiver{Dir: dir}))
	res, err := p.Ingest(context.Background(), day("2024-03-01"))
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(dir, "res_20240301.json")
	if len(res.Archived) != 1 || res.Archived[0] != want {
		t.Fatalf("Archived = %v, want [%s]", res.Archived, want)
	}

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	composite, err := DecodeArchive(data)
	if err != nil {
		t.Fatalf("archive does not decode: %v", err)
	}
	if _, ok := composite.Projects["wakalog"]; !ok {
		t.Error("archived composite lost the project summary")
	}
}

func TestIngest_ArchiveFailureDoesNotFailIngest(t *testing.T) {
	// A regular file where the directory should be makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	store := newFakeStore()
	p := NewPipeline(newFakeFetcher(), store, WithArchivers(FileArchiver{Dir: filepath.Join(blocker, "sub")}))
	res, err := p.Ingest(context.Background(), day("2024-03-01"))
	if err != nil {
		t.Fatalf("archive failure should not fail ingest: %v", err)
	}
	if len(res.Archived) != 0 {
		t.Errorf("expected no archive locations, got %v", res.Archived)
	}
	if store.writes != 1 {
		t.Errorf("expected the row to be written, got %d writes", store.writes)
	}
}
