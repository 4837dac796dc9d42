package httpx

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetDecompressesAndStripsBOM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing user agent")
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("\xEF\xBB\xBFseason,home_team\n2024,KC\n"))
		gz.Close()
	}))
	defer srv.Close()

	body, err := New("test", time.Second, 10).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(body); got != "season,home_team\n2024,KC\n" {
		t.Errorf("body = %q", got)
	}
}

func TestGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New("test", time.Second, 10).Get(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if se.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d", se.Status)
	}
}

func TestGetTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	if _, err := New("test", 50*time.Millisecond, 10).Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("timeout not enforced: took %s", time.Since(start))
	}
}

func TestGetJSONDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	var out map[string]any
	if err := New("test", time.Second, 10).GetJSON(context.Background(), srv.URL, &out); err == nil {
		t.Fatal("expected decode error")
	}
}
