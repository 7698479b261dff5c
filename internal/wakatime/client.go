// Package wakatime provides a client for the WakaTime summaries API and the
// typed shape of its responses.
package wakatime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://wakatime.com/api/v1"

// maxResponseBytes bounds how much of a response body is read into memory.
const maxResponseBytes = 32 << 20

// DateLayout is the calendar-date format used on the wire and in storage.
const DateLayout = "2006-01-02"

var tracer = otel.Tracer("wakalog/wakatime")

// Client is an HTTP client for the WakaTime summaries API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxBody    int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets a custom HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero disables the cap.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new WakaTime API client authenticated with apiKey.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxBody: maxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSummary requests the summary for [start, end] (YYYY-MM-DD, inclusive),
// optionally scoped to one project. Any non-200 status, transport error or
// decode failure is returned as an error; nothing is retried.
func (c *Client) FetchSummary(ctx context.Context, start, end, project string) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "wakatime.fetch_summary",
		trace.WithAttributes(
			attribute.String("range.start", start),
			attribute.String("range.end", end),
			attribute.String("project", project),
		))
	defer span.End()

	summary, err := c.fetchSummary(ctx, start, end, project)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("summary.buckets", len(summary.Data)))
	return summary, nil
}

func (c *Client) fetchSummary(ctx context.Context, start, end, project string) (*Summary, error) {
	if _, err := time.Parse(DateLayout, start); err != nil {
		return nil, fmt.Errorf("%w: start %q", ErrInvalidDate, start)
	}
	if _, err := time.Parse(DateLayout, end); err != nil {
		return nil, fmt.Errorf("%w: end %q", ErrInvalidDate, end)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrTransport, err)
		}
	}

	body, err := c.get(ctx, c.summariesURL(start, end, project))
	if err != nil {
		return nil, err
	}

	var summary Summary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &summary, nil
}

// FetchRaw returns the undecoded summaries response body, for callers that
// print or archive the payload verbatim.
func (c *Client) FetchRaw(ctx context.Context, start, end string) ([]byte, error) {
	if _, err := time.Parse(DateLayout, start); err != nil {
		return nil, fmt.Errorf("%w: start %q", ErrInvalidDate, start)
	}
	if _, err := time.Parse(DateLayout, end); err != nil {
		return nil, fmt.Errorf("%w: end %q", ErrInvalidDate, end)
	}
	return c.get(ctx, c.summariesURL(start, end, ""))
}

func (c *Client) summariesURL(start, end, project string) string {
	q := url.Values{}
	q.Set("start", start)
	q.Set("end", end)
	if project != "" {
		q.Set("project", project)
	}
	return c.baseURL + "/users/current/summaries?" + q.Encode()
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.apiKey)))
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrTransport, err)
	}
	if int64(len(respBody)) > c.maxBody {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrTransport, c.maxBody)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// ParseDate accepts YYYY-MM-DD or YYYY/MM/DD and returns midnight UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{DateLayout, "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
