package helpers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"price-scout/src/logger"
	"price-scout/src/models"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want models.ErrorKind
	}{
		{"nil", nil, models.ErrorKindNone},
		{"config", NewConfigurationError("bad selector", nil), models.ErrorKindFatalConfig},
		{"wrapped config", fmt.Errorf("vendor x: %w", NewConfigurationError("bad url", nil)), models.ErrorKindFatalConfig},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), models.ErrorKindTimeout},
		{"network", NewNetworkError("connection reset", nil), models.ErrorKindTransient},
		{"plain", errors.New("boom"), models.ErrorKindTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyError(tc.err); got != tc.want {
				t.Errorf("ClassifyError() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRetryWithBackoffRetriesTransient(t *testing.T) {
	calls := 0
	got, err := RetryWithBackoff(context.Background(), "fetch", 3, time.Millisecond, logger.NewNopLogger(),
		func(attempt int) (string, error) {
			calls++
			if attempt < 2 {
				return "", NewNetworkError("flaky", nil)
			}
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got = %q, want ok", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoffStopsOnNotFound(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), "fetch", 5, time.Millisecond, nil,
		func(int) (int, error) {
			calls++
			return 0, ErrNotFound
		})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoffStopsOnConfigurationError(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), "fetch", 5, time.Millisecond, nil,
		func(int) (int, error) {
			calls++
			return 0, NewConfigurationError("missing url", nil)
		})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoffHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := RetryWithBackoff(ctx, "fetch", 5, time.Hour, nil,
		func(int) (int, error) {
			calls++
			cancel()
			return 0, NewNetworkError("down", nil)
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
