package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

const compositeArchive = `{
  "summaries": {"data": [{"editors": [{"name": "VSCode", "total_seconds": 3600}], "grand_total": {"total_seconds": 3600}}], "start": "s", "end": "e"},
  "projects": {"wakalog": {"data": []}}
}`

const bareArchive = `{"data": [{"languages": [{"name": "Go", "total_seconds": 120}]}], "start": "s", "end": "e"}`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeArchive(t *testing.T) {
	t.Run("composite", func(t *testing.T) {
		c, err := DecodeArchive([]byte(compositeArchive))
		if err != nil {
			t.Fatal(err)
		}
		if c.Summaries.First().Editors[0].Name != "VSCode" {
			t.Errorf("unexpected editors: %+v", c.Summaries.First().Editors)
		}
		if _, ok := c.Projects["wakalog"]; !ok {
			t.Error("expected project summary to survive")
		}
	})

	t.Run("bare summary", func(t *testing.T) {
		c, err := DecodeArchive([]byte(bareArchive))
		if err != nil {
			t.Fatal(err)
		}
		if c.Summaries.First().Languages[0].Name != "Go" {
			t.Errorf("unexpected languages: %+v", c.Summaries.First().Languages)
		}
		if c.Projects == nil {
			t.Error("expected empty project map")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := DecodeArchive([]byte(`{"data": [`)); !errors.Is(err, wakatime.ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
	})

	t.Run("unknown shape", func(t *testing.T) {
		if _, err := DecodeArchive([]byte(`{"hello": "world"}`)); !errors.Is(err, ErrUnrecognizedArchive) {
			t.Errorf("expected ErrUnrecognizedArchive, got %v", err)
		}
	})
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "res_20240301.json", compositeArchive)
	writeFile(t, dir, "res_20240302.json", bareArchive)
	writeFile(t, dir, "res_20240303.json", `not json`)
	writeFile(t, dir, "res_20240301-20240307.json", compositeArchive) // range file, ignored
	writeFile(t, dir, "notes.txt", "ignored")

	store := newFakeStore()
	report, err := Import(context.Background(), store, dir)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if len(report.Imported) != 2 {
		t.Errorf("imported %v, want 2 files", report.Imported)
	}
	if len(report.Skipped) != 1 || filepath.Base(report.Skipped[0]) != "res_20240303.json" {
		t.Errorf("skipped %v, want the malformed file", report.Skipped)
	}
	for _, d := range []string{"2024-03-01", "2024-03-02"} {
		if _, ok := store.rows[d]; !ok {
			t.Errorf("expected row for %s", d)
		}
	}
	if got := store.rows["2024-03-01"].GrandTotalSec.String(); got != "3600" {
		t.Errorf("grand total = %s, want 3600", got)
	}
}

func TestImport_MissingDir(t *testing.T) {
	if _, err := Import(context.Background(), newFakeStore(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestArchiveDate(t *testing.T) {
	d, err := archiveDate("res_20240229.json")
	if err != nil {
		t.Fatal(err)
	}
	if wakatime.FormatDate(d) != "2024-02-29" {
		t.Errorf("got %s", wakatime.FormatDate(d))
	}
	if _, err := archiveDate("res_20241399.json"); !errors.Is(err, wakatime.ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}
