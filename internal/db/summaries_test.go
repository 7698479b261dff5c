package db_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ConfabulousDev/wakalog/internal/db"
	"github.com/ConfabulousDev/wakalog/internal/testutil"
	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

func decodeNames(t *testing.T, raw json.RawMessage) map[string]float64 {
	t.Helper()
	var details []wakatime.SummaryDetail
	if err := json.Unmarshal(raw, &details); err != nil {
		t.Fatalf("stored column is not a summary list: %v (%s)", err, raw)
	}
	out := make(map[string]float64, len(details))
	for _, d := range details {
		out[d.Name] = d.TotalSeconds
	}
	return out
}

func TestUpsertSummary_InsertThenOverwrite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)
	ctx := context.Background()
	day := testutil.MustDate(t, "2024-03-01")

	first, err := db.NewSummaryRow(day, testutil.Composite("2024-03-01", wakatime.SummaryData{
		Editors:    []wakatime.SummaryDetail{testutil.Detail("VSCode", 100)},
		GrandTotal: testutil.Detail("", 100),
	}))
	if err != nil {
		t.Fatal(err)
	}
	inserted, err := env.DB.UpsertSummary(ctx, first)
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if !inserted {
		t.Error("expected first upsert to insert")
	}

	second, err := db.NewSummaryRow(day, testutil.Composite("2024-03-01", wakatime.SummaryData{
		Editors:    []wakatime.SummaryDetail{testutil.Detail("VSCode", 200)},
		GrandTotal: testutil.Detail("", 200),
	}))
	if err != nil {
		t.Fatal(err)
	}
	inserted, err = env.DB.UpsertSummary(ctx, second)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if inserted {
		t.Error("expected second upsert to update")
	}

	count, err := env.DB.CountSummaries(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one row for the date, got %d", count)
	}

	row, err := env.DB.GetSummary(ctx, day)
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if got := decodeNames(t, row.Editors)["VSCode"]; got != 200 {
		t.Errorf("VSCode seconds = %v, want 200", got)
	}
	if !row.GrandTotalSec.Equal(decimal.NewFromInt(200)) {
		t.Errorf("grand_total_sec = %s, want 200", row.GrandTotalSec)
	}
	if row.UpdatedAt.Before(row.CreatedAt) {
		t.Errorf("updated_at %v before created_at %v", row.UpdatedAt, row.CreatedAt)
	}
}

func TestUpsertSummary_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)
	ctx := context.Background()
	day := testutil.MustDate(t, "2024-03-02")

	row, err := db.NewSummaryRow(day, testutil.Composite("2024-03-02", wakatime.SummaryData{
		Languages: []wakatime.SummaryDetail{testutil.Detail("Go", 42.5)},
	}))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := env.DB.UpsertSummary(ctx, row); err != nil {
			t.Fatalf("upsert %d failed: %v", i, err)
		}
	}

	count, err := env.DB.CountSummaries(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after repeated upserts, got %d", count)
	}

	stored, err := env.DB.GetSummary(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeNames(t, stored.Languages)["Go"]; got != 42.5 {
		t.Errorf("Go seconds = %v, want 42.5", got)
	}
	if string(stored.Projects) != "[]" {
		t.Errorf("projects = %s, want []", stored.Projects)
	}
}

func TestGetSummary_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)

	_, err := env.DB.GetSummary(context.Background(), testutil.MustDate(t, "1999-01-01"))
	if !errors.Is(err, db.ErrSummaryNotFound) {
		t.Errorf("expected ErrSummaryNotFound, got %v", err)
	}
}

func TestListSummaryDates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)

	for _, d := range []string{"2024-03-03", "2024-03-01", "2024-03-10"} {
		testutil.SeedSummary(t, env, d, wakatime.SummaryData{})
	}

	dates, err := env.DB.ListSummaryDates(context.Background(),
		testutil.MustDate(t, "2024-03-01"), testutil.MustDate(t, "2024-03-05"))
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %d", len(dates))
	}
	if wakatime.FormatDate(dates[0]) != "2024-03-01" || wakatime.FormatDate(dates[1]) != "2024-03-03" {
		t.Errorf("unexpected order: %v", dates)
	}
}

func TestSchemaVersion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)

	version, dirty, err := db.SchemaVersion(env.DB.Conn())
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 || dirty {
		t.Errorf("version=%d dirty=%v, want 1 clean", version, dirty)
	}

	// Re-applying is a no-op.
	if err := db.Migrate(env.DB.Conn(), db.MigrateUp); err != nil {
		t.Errorf("second migrate up failed: %v", err)
	}
}
