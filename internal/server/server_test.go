package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/curbz/skyscope/internal/history"
	"github.com/curbz/skyscope/internal/ingest"
	"github.com/curbz/skyscope/internal/model"
	"github.com/curbz/skyscope/internal/watch"
)

type stubStatus struct{ st ingest.Status }

func (s stubStatus) Status() ingest.Status { return s.st }

func newTestServer(t *testing.T, hist *history.Buffer, bc *watch.Broadcaster, stat StatusSource) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(Config{}, hist, bc, stat).Routes())
	t.Cleanup(ts.Close)
	return ts
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, strings.TrimSpace(string(body))
}

func TestPointsHistory(t *testing.T) {
	hist := history.New(10)
	hist.Append(model.TrackPoint{Ident: "AA0001", Lat: 51.5, Lon: -0.12})
	ts := newTestServer(t, hist, watch.New(), nil)

	code, body := getBody(t, ts.URL+"/points_history")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if want := `[["AA0001",[51.5,-0.12]]]`; body != want {
		t.Fatalf("body\nwant: %s\ngot:  %s", want, body)
	}
}

func TestPointsHistoryEmpty(t *testing.T) {
	ts := newTestServer(t, history.New(10), watch.New(), nil)

	code, body := getBody(t, ts.URL+"/points_history")
	if code != http.StatusOK || body != "[]" {
		t.Fatalf("empty store: status %d body %q, want 200 []", code, body)
	}
}

func TestPointsHistoryNearFilter(t *testing.T) {
	hist := history.New(10)
	hist.Append(model.TrackPoint{Ident: "LON", Lat: 51.5, Lon: -0.12})
	hist.Append(model.TrackPoint{Ident: "SYD", Lat: -33.8, Lon: 151.2})
	ts := newTestServer(t, hist, watch.New(), nil)

	code, body := getBody(t, ts.URL+"/points_history?near=51.5,-0.12&radius=50")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if want := `[["LON",[51.5,-0.12]]]`; body != want {
		t.Fatalf("filtered body\nwant: %s\ngot:  %s", want, body)
	}

	for _, q := range []string{"?near=garbage", "?near=51.5,-0.12&radius=-1", "?near=51.5,-0.12&radius=abc"} {
		if code, _ := getBody(t, ts.URL+"/points_history"+q); code != http.StatusBadRequest {
			t.Fatalf("query %q: status = %d, want 400", q, code)
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	stat := stubStatus{st: ingest.Status{State: ingest.StateStreaming, Points: 42}}
	ts := newTestServer(t, history.New(10), watch.New(), stat)

	code, body := getBody(t, ts.URL+"/api/status")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var got ingest.Status
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.State != ingest.StateStreaming || got.Points != 42 {
		t.Fatalf("status body = %+v", got)
	}
}

func TestStatusEndpointWithoutSource(t *testing.T) {
	ts := newTestServer(t, history.New(10), watch.New(), nil)
	if code, _ := getBody(t, ts.URL+"/api/status"); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, history.New(10), watch.New(), nil)
	code, body := getBody(t, ts.URL+"/api/health")
	if code != http.StatusOK || body != "ok" {
		t.Fatalf("health: status %d body %q", code, body)
	}
}
