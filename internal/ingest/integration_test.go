package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ConfabulousDev/wakalog/internal/ingest"
	"github.com/ConfabulousDev/wakalog/internal/storage"
	"github.com/ConfabulousDev/wakalog/internal/testutil"
	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

// fakeWakaTime answers the summaries endpoint with a grand total that the
// test can change between runs.
func fakeWakaTime(t *testing.T, total *float64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := wakatime.SummaryData{
			Editors:    []wakatime.SummaryDetail{{Name: "VSCode", TotalSeconds: *total}},
			GrandTotal: wakatime.SummaryDetail{TotalSeconds: *total},
		}
		if r.URL.Query().Get("project") == "" {
			data.Projects = []wakatime.SummaryDetail{{Name: "wakalog", TotalSeconds: *total}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(wakatime.Summary{Data: []wakatime.SummaryData{data}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIngest_ReingestConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)
	ctx := context.Background()

	total := 100.0
	srv := fakeWakaTime(t, &total)
	client := wakatime.NewClient("test-key", wakatime.WithBaseURL(srv.URL))
	pipeline := ingest.NewPipeline(client, env.DB)
	date := testutil.MustDate(t, "2024-03-01")

	if _, err := pipeline.Ingest(ctx, date); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	total = 200
	res, err := pipeline.Ingest(ctx, date)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if res.Inserted {
		t.Error("second ingest should update the existing row")
	}

	count, err := env.DB.CountSummaries(ctx, date)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected one row, got %d", count)
	}
	row, err := env.DB.GetSummary(ctx, date)
	if err != nil {
		t.Fatal(err)
	}
	if !row.GrandTotalSec.Equal(decimal.NewFromInt(200)) {
		t.Errorf("grand_total_sec = %s, want 200", row.GrandTotalSec)
	}
}

func TestIngest_S3Archive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)
	store := env.WithStorage(t, "wakatime")
	ctx := context.Background()

	total := 3600.0
	srv := fakeWakaTime(t, &total)
	client := wakatime.NewClient("test-key", wakatime.WithBaseURL(srv.URL))
	pipeline := ingest.NewPipeline(client, env.DB,
		ingest.WithArchivers(ingest.S3Archiver{Storage: store}))

	res, err := pipeline.Ingest(ctx, testutil.MustDate(t, "2024-03-01"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Archived) != 1 || res.Archived[0] != "s3://wakatime/res_20240301.json" {
		t.Fatalf("Archived = %v", res.Archived)
	}

	data, err := store.Get(ctx, "res_20240301.json")
	if err != nil {
		t.Fatalf("archive not found in bucket: %v", err)
	}
	composite, err := ingest.DecodeArchive(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := composite.Projects["wakalog"]; !ok {
		t.Error("archived composite lost the project summary")
	}

	names, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "res_20240301.json" {
		t.Errorf("List() = %v", names)
	}

	if err := store.Delete(ctx, "res_20240301.json"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "res_20240301.json"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound after delete, got %v", err)
	}
	names, err = store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("List() after delete = %v, want empty", names)
	}
}
