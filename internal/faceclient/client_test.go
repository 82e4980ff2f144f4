package faceclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake-jpeg-bytes"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func TestVerify_ParsesServiceResponse(t *testing.T) {
	dir := t.TempDir()
	probe := writeImage(t, dir, "probe.jpg")
	ref := writeImage(t, dir, "ref.jpg")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		for _, field := range []string{"probe", "reference"} {
			if _, _, err := r.FormFile(field); err != nil {
				t.Errorf("missing %s file: %v", field, err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"verified": true, "distance": 0.31, "threshold": 0.5}`))
	}))
	defer srv.Close()

	c := New(srv.URL, false, 5*time.Second)
	res, err := c.Verify(context.Background(), probe, ref)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Verified {
		t.Error("expected verified result")
	}
	if res.Distance != 0.31 {
		t.Errorf("expected distance 0.31, got %f", res.Distance)
	}
}

func TestVerify_ServiceErrorSurfaces(t *testing.T) {
	dir := t.TempDir()
	probe := writeImage(t, dir, "probe.jpg")
	ref := writeImage(t, dir, "ref.jpg")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, false, 5*time.Second)
	if _, err := c.Verify(context.Background(), probe, ref); err == nil {
		t.Error("expected error from failing service")
	}
}

func TestVerify_SkipModeShortCircuits(t *testing.T) {
	c := New("http://unreachable.invalid", true, time.Second)

	res, err := c.Verify(context.Background(), "nonexistent.jpg", "also-nonexistent.jpg")
	if err != nil {
		t.Fatalf("Verify in skip mode: %v", err)
	}
	if !res.Verified {
		t.Error("expected skip mode to report a match")
	}
}

func TestMatcher_DegradesErrorToWorstDistance(t *testing.T) {
	dir := t.TempDir()
	probe := writeImage(t, dir, "probe.jpg")
	ref := writeImage(t, dir, "ref.jpg")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	m := NewMatcher(New(srv.URL, false, 5*time.Second))
	match := m.TryVerify(context.Background(), probe, ref)

	if match.Matched {
		t.Error("expected no match on verifier error")
	}
	if match.Distance != WorstDistance {
		t.Errorf("expected sentinel distance %v, got %v", WorstDistance, match.Distance)
	}
	if match.Err == nil {
		t.Error("expected the verifier error to be carried on the match")
	}
}

func TestMatcher_MissingProbeDegrades(t *testing.T) {
	m := NewMatcher(New("http://unreachable.invalid", false, time.Second))
	match := m.TryVerify(context.Background(), "does-not-exist.jpg", "ref.jpg")

	if match.Matched || match.Distance != WorstDistance || match.Err == nil {
		t.Errorf("expected degraded no-match, got %+v", match)
	}
}

func TestMatcher_PassesThroughResult(t *testing.T) {
	dir := t.TempDir()
	probe := writeImage(t, dir, "probe.jpg")
	ref := writeImage(t, dir, "ref.jpg")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"verified": false, "distance": 0.72, "threshold": 0.5}`))
	}))
	defer srv.Close()

	m := NewMatcher(New(srv.URL, false, 5*time.Second))
	match := m.TryVerify(context.Background(), probe, ref)

	if match.Matched {
		t.Error("expected unmatched result")
	}
	if match.Distance != 0.72 {
		t.Errorf("expected distance 0.72, got %v", match.Distance)
	}
	if match.Err != nil {
		t.Errorf("expected no error, got %v", match.Err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, false, time.Second)
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}

	bad := New("http://127.0.0.1:1", false, time.Second)
	if err := bad.Health(context.Background()); err == nil {
		t.Error("expected health check failure for unreachable service")
	}
}
