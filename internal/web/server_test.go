package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Xevi8X/central-heating-controller/internal/heating"
	"github.com/Xevi8X/central-heating-controller/internal/metrics"
	"github.com/Xevi8X/central-heating-controller/internal/radiator"
	"github.com/Xevi8X/central-heating-controller/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.History, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := start
	history := status.NewHistory(10, func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})
	tracker := status.NewTracker(start, status.Config{
		Broker:     "tcp://192.168.1.200:1883",
		Namespace:  "zigbee2mqtt",
		SwitchName: "boiler",
	})
	srv := New(":0", history, tracker, metrics.New())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, history, tracker
}

func get(t *testing.T, url string) (*http.Response, string) {
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
	return resp, string(body)
}

func TestReportEndpoint(t *testing.T) {
	ts, history, _ := newTestServer(t)
	history.Record("older")
	history.Record("newer")

	for _, path := range []string{"/", "/status"} {
		resp, body := get(t, ts.URL+path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status: got %d, want 200", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("%s Content-Type: got %q", path, ct)
		}
		want := "2026-01-01 00:02:00\nnewer\n\n2026-01-01 00:01:00\nolder\n"
		if body != want {
			t.Errorf("%s body:\ngot:  %q\nwant: %q", path, body, want)
		}
	}
}

func TestReportEndpointEmpty(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, body := get(t, ts.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if body != "" {
		t.Errorf("expected empty body, got %q", body)
	}
}

func TestJSONEndpoint(t *testing.T) {
	ts, _, tracker := newTestServer(t)
	tracker.Update(time.Now(),
		[]radiator.Reading{{Name: "hall", Temperature: 19, Setpoint: 21, Position: 50, LastUpdated: time.Now()}},
		heating.Demand{TotalPower: 500, PowerRequired: 400, On: true})
	tracker.SetMQTTConnected(true)

	resp, body := get(t, ts.URL+"/index.json")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(body), &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Demand != "ON" {
		t.Errorf("Demand: got %q, want ON", sj.Status.Demand)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if len(sj.Status.Radiators) != 1 || sj.Status.Radiators[0].Name != "hall" {
		t.Errorf("Radiators: got %+v", sj.Status.Radiators)
	}
	if sj.Status.Config.SwitchName != "boiler" {
		t.Errorf("Config.SwitchName: got %q", sj.Status.Config.SwitchName)
	}
}

func TestJSONEndpointWithoutTracker(t *testing.T) {
	srv := New(":0", status.NewHistory(1, nil), nil, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, _ := get(t, ts.URL+"/index.json")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
	resp, _ = get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("/metrics without metrics: got %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "heating_demand") {
		t.Errorf("metrics body missing heating_demand:\n%s", body)
	}
}

func TestHealthz(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok\n" {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}
}

func TestUnknownPathAndMethod(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, _ := get(t, ts.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path: got %d, want 404", resp.StatusCode)
	}

	post, err := http.Post(ts.URL+"/status", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /status: got %d, want 405", post.StatusCode)
	}
}
