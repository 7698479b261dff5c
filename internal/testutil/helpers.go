package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ConfabulousDev/wakalog/internal/db"
	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

// Detail builds a summary entry with only the fields the ranking reads.
func Detail(name string, seconds float64) wakatime.SummaryDetail {
	return wakatime.SummaryDetail{Name: name, TotalSeconds: seconds}
}

// Composite wraps a single aggregate bucket into a composite record.
func Composite(date string, data wakatime.SummaryData) *wakatime.Composite {
	data.Range.Date = date
	return wakatime.NewComposite(wakatime.Summary{
		Data:  []wakatime.SummaryData{data},
		Start: date,
		End:   date,
	}, nil)
}

// SeedSummary upserts a row for date built from data.
func SeedSummary(t *testing.T, env *TestEnvironment, date string, data wakatime.SummaryData) {
	t.Helper()

	day, err := wakatime.ParseDate(date)
	if err != nil {
		t.Fatalf("bad seed date %q: %v", date, err)
	}
	row, err := db.NewSummaryRow(day, Composite(date, data))
	if err != nil {
		t.Fatalf("failed to build summary row: %v", err)
	}
	if _, err := env.DB.UpsertSummary(env.Ctx, row); err != nil {
		t.Fatalf("failed to seed summary for %s: %v", date, err)
	}
}

// MustDate parses a YYYY-MM-DD date or fails the test.
func MustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := wakatime.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

// ParseJSONResponse decodes JSON response body into v
func ParseJSONResponse(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v. Body: %s", err, w.Body.String())
	}
}

// AssertStatus checks HTTP status code matches expected
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()

	if w.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertErrorResponse checks error response format and message
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedMessage string) {
	t.Helper()

	AssertStatus(t, w, expectedStatus)

	var resp map[string]string
	ParseJSONResponse(t, w, &resp)

	if resp["error"] != expectedMessage {
		t.Errorf("expected error message %q, got %q", expectedMessage, resp["error"])
	}
}

// GetJSON performs a GET against a live test server and decodes the body.
func GetJSON(t *testing.T, url string, v any) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("failed to decode response from %s: %v", url, err)
		}
	}
	return resp.StatusCode
}
