package db

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

func TestNewSummaryRow(t *testing.T) {
	day := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)

	t.Run("absent categories become empty arrays", func(t *testing.T) {
		c := wakatime.NewComposite(wakatime.Summary{Data: []wakatime.SummaryData{{
			Editors: []wakatime.SummaryDetail{{Name: "VSCode", TotalSeconds: 100}},
		}}}, nil)

		row, err := NewSummaryRow(day, c)
		if err != nil {
			t.Fatalf("NewSummaryRow failed: %v", err)
		}
		for name, col := range map[string]string{
			"languages":    string(row.Languages),
			"machines":     string(row.Machines),
			"projects":     string(row.Projects),
			"dependencies": string(row.Dependencies),
		} {
			if col != "[]" {
				t.Errorf("%s = %s, want []", name, col)
			}
		}
		if string(row.Editors) == "[]" {
			t.Error("editors should carry the fetched entry")
		}
		if !row.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Date = %v, want midnight UTC", row.Date)
		}
	})

	t.Run("nil composite", func(t *testing.T) {
		row, err := NewSummaryRow(day, nil)
		if err != nil {
			t.Fatalf("NewSummaryRow failed: %v", err)
		}
		if !row.GrandTotalSec.IsZero() {
			t.Errorf("GrandTotalSec = %s, want 0", row.GrandTotalSec)
		}
		if string(row.Editors) != "[]" {
			t.Errorf("editors = %s, want []", row.Editors)
		}
	})
}

func TestGrandTotal(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{"zero", 0, "0"},
		{"rounded to three places", 3600.12345, "3600.123"},
		{"NaN becomes zero", math.NaN(), "0"},
		{"infinity becomes zero", math.Inf(1), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := grandTotal(tt.seconds)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("grandTotal(%v) = %s, want %s", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestJSONOrEmpty(t *testing.T) {
	for _, in := range []string{"", "null"} {
		if got := string(jsonOrEmpty([]byte(in))); got != "[]" {
			t.Errorf("jsonOrEmpty(%q) = %s, want []", in, got)
		}
	}
	if got := string(jsonOrEmpty([]byte(`[{"name":"Go"}]`))); got != `[{"name":"Go"}]` {
		t.Errorf("jsonOrEmpty changed a populated value: %s", got)
	}
}
