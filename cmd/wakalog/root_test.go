package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

func TestDateArgs(t *testing.T) {
	def := time.Date(2024, 3, 10, 23, 30, 0, 0, time.Local)

	tests := []struct {
		name     string
		args     []string
		wantFrom string
		wantTo   string
		wantErr  string
	}{
		{"default", nil, "2024-03-10", "2024-03-10", ""},
		{"single dash date", []string{"2024-03-01"}, "2024-03-01", "2024-03-01", ""},
		{"slash range", []string{"2024/03/01", "2024/03/05"}, "2024-03-01", "2024-03-05", ""},
		{"bad start", []string{"03-01-2024"}, "", "", "invalid date"},
		{"bad end", []string{"2024-03-01", "soon"}, "", "", "invalid date"},
		{"reversed", []string{"2024-03-05", "2024-03-01"}, "", "", "after end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := dateArgs(tt.args, def)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := wakatime.FormatDate(from); got != tt.wantFrom {
				t.Errorf("from = %s, want %s", got, tt.wantFrom)
			}
			if got := wakatime.FormatDate(to); got != tt.wantTo {
				t.Errorf("to = %s, want %s", got, tt.wantTo)
			}
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"ingest", "fetch", "import", "auth", "migrate", "serve"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered (got %v, %v)", name, cmd, err)
		}
	}
}

type countingCloser struct{ closed int }

func (c *countingCloser) Close() error {
	c.closed++
	return nil
}

func TestRun_ClosesLogFileOnFailure(t *testing.T) {
	closer := &countingCloser{}
	failing := &cobra.Command{
		Use:           "failing",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logCloser = closer
			return errors.New("boom")
		},
	}
	failing.SetArgs([]string{})

	if err := run(context.Background(), failing); err == nil || err.Error() != "boom" {
		t.Fatalf("expected command error, got %v", err)
	}
	if closer.closed != 1 {
		t.Errorf("log file closed %d times, want 1", closer.closed)
	}
	if logCloser != nil {
		t.Error("expected logCloser to be reset after run")
	}
}
