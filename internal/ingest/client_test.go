package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AngelCh415/adbrain/internal/models"
)

// helper: hace la petición y devuelve código HTTP + error de red (si hubo)
func fetchURL(c HTTPClient, url string) (int, error) {
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	resp, err := c.Do(req)
	if err != nil {
		return 0, err // error de transporte (timeout, conexión, etc.)
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func TestHTTPClientHandles500(t *testing.T) {
	// servidor fake que devuelve 500
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	code, err := fetchURL(NewHTTPClient(2*time.Second), srv.URL)
	if err != nil {
		t.Fatalf("unexpected network error: %v", err)
	}
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
}

func TestHTTPClientHandlesTimeout(t *testing.T) {
	// servidor fake que se tarda más del timeout
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := fetchURL(NewHTTPClient(100*time.Millisecond), srv.URL) // timeout corto
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

const snapshotJSON = `{
  "channels": [{"id": " meta ", "name": "Meta Ads", "platform": "META"}],
  "daily_metrics": [
    {"channel_id": "meta", "date": "2025-08-01", "spend": 100, "revenue": 365},
    {"channel_id": "meta", "date": "01/08/2025", "spend": 1, "revenue": 1}
  ],
  "cohorts": [{"month": "2025-04", "customers": 400, "ltv_90": 112}]
}`

func TestRemoteReaderFetch(t *testing.T) {
	seen := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.URL.Path
		seen <- r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(snapshotJSON))
	}))
	defer srv.Close()

	rr := NewRemoteReader(NewHTTPClient(2*time.Second), srv.URL+"/")
	from := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	snap, err := rr.FetchOrgMetrics(context.Background(), "org 1", models.Window{From: from, To: from.AddDate(0, 0, 20)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gotPath, gotQuery := <-seen, <-seen
	if gotPath != "/orgs/org 1/snapshot" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery != "from=2025-08-01&to=2025-08-21" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if snap.OrgID != "org 1" {
		t.Fatalf("org id not set: %q", snap.OrgID)
	}
	if len(snap.Channels) != 1 || snap.Channels[0].ID != "meta" || snap.Channels[0].Platform != models.PlatformMeta {
		t.Fatalf("channel not normalized: %+v", snap.Channels)
	}
	// la fila con fecha inválida se descarta
	if len(snap.DailyMetrics) != 1 {
		t.Fatalf("expected 1 daily metric, got %d", len(snap.DailyMetrics))
	}
	// pero queda contada para el engine
	if snap.Dropped["daily_metric"] != 1 {
		t.Fatalf("expected 1 dropped daily metric, got %v", snap.Dropped)
	}
	if len(snap.Cohorts) != 1 || snap.Cohorts[0].Month.Month() != time.April {
		t.Fatalf("cohort not parsed: %+v", snap.Cohorts)
	}
}

func TestRemoteReaderNon2xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewRemoteReader(NewHTTPClient(2*time.Second), srv.URL).FetchOrgMetrics(context.Background(), "org-1", models.Window{})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected non-2xx error, got %v", err)
	}
	// sin reintentos internos
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one request, got %d", n)
	}
}

func TestRemoteReaderHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewRemoteReader(NewHTTPClient(5*time.Second), srv.URL).FetchOrgMetrics(ctx, "org-1", models.Window{})
	if err == nil {
		t.Fatal("expected context error, got nil")
	}
}
