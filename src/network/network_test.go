package network

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"price-scout/src/helpers"
	"price-scout/src/logger"
	"price-scout/src/models"
)

func newTestManager(retries int) *AsyncNetworkManager {
	cfg := &models.MConfig{Network: models.MNetworkConfig{RequestTimeout: 5, MaxRetries: retries}}
	log := logger.NewNopLogger()
	return NewAsyncNetworkManager(cfg, helpers.NewProxyManager(nil, "price-scout-test", log), log)
}

func TestGetSendsParamsAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "ABC-123" {
			t.Errorf("q = %q, want ABC-123", r.URL.Query().Get("q"))
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("X-Api-Key = %q, want secret", r.Header.Get("X-Api-Key"))
		}
		if r.Header.Get("User-Agent") != "price-scout-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := newTestManager(0).Get(context.Background(), srv.URL, map[string]string{"q": "ABC-123"}, map[string]string{"X-Api-Key": "secret"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}
}

func TestGetNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestManager(3).Get(context.Background(), srv.URL, nil, nil)
	if !errors.Is(err, helpers.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestManager(1).Get(context.Background(), srv.URL, nil, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != "ok" || calls.Load() != 2 {
		t.Errorf("body = %q calls = %d, want ok after 2 calls", body, calls.Load())
	}
}

func TestGetUnauthorizedIsConfigurationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestManager(2).Get(context.Background(), srv.URL, nil, nil)
	if kind := helpers.ClassifyError(err); kind != models.ErrorKindFatalConfig {
		t.Errorf("ClassifyError() = %q, want fatal_config", kind)
	}
}
