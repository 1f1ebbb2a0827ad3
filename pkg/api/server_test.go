package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newtron-network/newtsim/internal/testutil"
	"github.com/newtron-network/newtsim/pkg/audit"
	"github.com/newtron-network/newtsim/pkg/health"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/router"
)

func newServer(t *testing.T) (*Server, *router.Router) {
	t.Helper()
	hub := NewHub()
	now, _ := testutil.Clock()
	r := router.New(testutil.Lab(), router.WithClock(now), router.WithObserver(hub))
	t.Cleanup(r.Close)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("newtsim_devices 3\n"))
	})
	return New(r, WithHub(hub), WithMetrics(metrics)), r
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func TestDevices(t *testing.T) {
	s, _ := newServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/devices", "")
	var list []DeviceSummary
	decode(t, rec, &list)
	if len(list) != 3 || list[0].ID != "r1" || list[0].Prompt != "<R1>" || list[0].View != model.ViewUser {
		t.Errorf("GET /devices = %+v", list)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/devices/sw1", "")
	var d model.Device
	decode(t, rec, &d)
	if rec.Code != http.StatusOK || d.Hostname != "SW1" || len(d.Ports) != 3 {
		t.Errorf("GET /devices/sw1 = %d %+v", rec.Code, d)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/devices/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET /devices/nope = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/topology", "")
	var topo struct {
		Name   string        `json:"name"`
		Cables []model.Cable `json:"cables"`
	}
	decode(t, rec, &topo)
	if topo.Name != "lab" || len(topo.Cables) != 2 {
		t.Errorf("GET /topology = %+v", topo)
	}
}

func TestExecute(t *testing.T) {
	s, r := newServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/devices/r1/commands", `{"command":"system-view"}`)
	var out router.Outcome
	decode(t, rec, &out)
	if rec.Code != http.StatusOK || !out.Accepted || out.Prompt != "[R1]" || out.View != model.ViewSystem {
		t.Errorf("POST commands = %d %+v", rec.Code, out)
	}

	if rec := do(t, s, http.MethodPost, "/api/v1/devices/nope/commands", `{"command":"system-view"}`); rec.Code != http.StatusNotFound {
		t.Errorf("POST to unknown device = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/devices/r1/commands", `{"command":`); rec.Code != http.StatusBadRequest {
		t.Errorf("POST malformed body = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/devices/r1/history", "")
	var history []string
	decode(t, rec, &history)
	if len(history) != 1 || history[0] != "system-view" {
		t.Errorf("GET history = %q", history)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/devices/r1/console", "")
	var console struct {
		Prompt string   `json:"prompt"`
		Lines  []string `json:"lines"`
	}
	decode(t, rec, &console)
	if console.Prompt != "[R1]" || len(console.Lines) != 2 {
		t.Errorf("GET console = %+v", console)
	}

	if rec := do(t, s, http.MethodDelete, "/api/v1/devices/r1/console", ""); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE console = %d", rec.Code)
	}
	if len(r.Device("r1").Console) != 0 {
		t.Error("console not cleared")
	}
	if rec := do(t, s, http.MethodDelete, "/api/v1/devices/nope/console", ""); rec.Code != http.StatusNotFound {
		t.Errorf("DELETE unknown console = %d", rec.Code)
	}
}

func TestRoutesAndExport(t *testing.T) {
	s, _ := newServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/devices/r1/routes", "")
	var routes []model.Route
	decode(t, rec, &routes)
	if len(routes) != 1 || routes[0].Destination != "192.168.1.0/24" {
		t.Errorf("GET routes = %+v", routes)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/export", "")
	if !strings.HasPrefix(rec.Body.String(), "# Device R1 (AR2220)\nvendor Huawei\n") {
		t.Errorf("GET export = %q", rec.Body.String())
	}
}

func TestProfile(t *testing.T) {
	s, _ := newServer(t)

	rec := do(t, s, http.MethodPut, "/api/v1/profile", `{"profile":"cisco"}`)
	var p ProfileResponse
	decode(t, rec, &p)
	if p.Profile != "cisco" || p.Strategy != "cisco" || !strings.Contains(p.Description, "active") || len(p.Available) != 3 {
		t.Errorf("PUT profile = %+v", p)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/devices", "")
	var list []DeviceSummary
	decode(t, rec, &list)
	if list[0].Prompt != "R1>" {
		t.Errorf("prompt under cisco = %q", list[0].Prompt)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"topology":"lab"`) {
		t.Errorf("GET /healthz = %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodGet, "/metrics", "")
	if rec.Body.String() != "newtsim_devices 3\n" {
		t.Errorf("GET /metrics = %q", rec.Body.String())
	}
	rec = do(t, s, http.MethodPost, "/api/v1/reconverge", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"devices":3`) {
		t.Errorf("POST /reconverge = %d %s", rec.Code, rec.Body.String())
	}
}

func TestEventStream(t *testing.T) {
	s, r := newServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := r.ExecuteCommand(context.Background(), "r1", "system-view"); err != nil {
		t.Fatal(err)
	}

	sc := bufio.NewScanner(resp.Body)
	var name, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
		if name != "" && data != "" {
			break
		}
	}
	if name != EventCommit || !strings.Contains(data, `"command":"system-view"`) {
		t.Errorf("event = %q %q", name, data)
	}
}

func TestAccessDenied(t *testing.T) {
	topo := testutil.Lab()
	topo.Access = &model.AccessPolicy{Permissions: map[string][]string{
		"console.view": {"eve"},
		"all":          {"alice"},
	}}
	r := router.New(topo)
	t.Cleanup(r.Close)
	s := New(r)

	as := func(user, method, path, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderUser, user)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	tests := []struct {
		user, method, path, body string
		want                     int
	}{
		{"eve", http.MethodPost, "/api/v1/devices/r1/commands", `{"command":"display clock"}`, http.StatusOK},
		{"eve", http.MethodPost, "/api/v1/devices/r1/commands", `{"command":"system-view"}`, http.StatusForbidden},
		{"eve", http.MethodPut, "/api/v1/profile", `{"profile":"cisco"}`, http.StatusForbidden},
		{"eve", http.MethodPost, "/api/v1/reconverge", "", http.StatusForbidden},
		{"eve", http.MethodDelete, "/api/v1/devices/r1/console", "", http.StatusForbidden},
		{"alice", http.MethodPost, "/api/v1/devices/r1/commands", `{"command":"system-view"}`, http.StatusOK},
		{"alice", http.MethodPost, "/api/v1/reconverge", "", http.StatusOK},
		{"alice", http.MethodDelete, "/api/v1/devices/r1/console", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		if got := as(tt.user, tt.method, tt.path, tt.body); got != tt.want {
			t.Errorf("%s %s %s as %s = %d, want %d", tt.method, tt.path, tt.body, tt.user, got, tt.want)
		}
	}
}

func TestAuditLog(t *testing.T) {
	logger, err := audit.NewFileLogger(filepath.Join(t.TempDir(), "audit.log"), audit.RotationConfig{})
	if err != nil {
		t.Fatal(err)
	}
	audit.SetDefaultLogger(logger)
	t.Cleanup(func() {
		audit.SetDefaultLogger(nil)
		logger.Close()
	})

	s, _ := newServer(t)
	do(t, s, http.MethodPost, "/api/v1/devices/r1/commands", `{"command":"system-view"}`)
	do(t, s, http.MethodPost, "/api/v1/devices/sw1/commands", `{"command":"system-view"}`)
	do(t, s, http.MethodPost, "/api/v1/devices/r1/commands", `{"command":"sysname EDGE"}`)

	rec := do(t, s, http.MethodGet, "/api/v1/audit?device=r1&limit=1", "")
	var events []audit.Event
	decode(t, rec, &events)
	if len(events) != 1 || events[0].Command != "sysname EDGE" || events[0].Source != audit.SourceHTTP {
		t.Errorf("GET /audit = %+v", events)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/audit?limit=0", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("GET /audit?limit=0 = %d", rec.Code)
	}
}

func TestDeviceHealth(t *testing.T) {
	s, _ := newServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/devices/sw1/health", "")
	var report health.Report
	decode(t, rec, &report)
	if rec.Code != http.StatusOK || report.Device != "sw1" || report.Overall != health.StatusOK || len(report.Results) != 1 {
		t.Errorf("GET /devices/sw1/health = %d %+v", rec.Code, report)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/devices/r1/health?check=dhcp", "")
	decode(t, rec, &report)
	if len(report.Results) != 1 || report.Results[0].Check != "dhcp" {
		t.Errorf("GET /devices/r1/health?check=dhcp = %+v", report)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/devices/nope/health", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown device = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/devices/r1/health?check=vxlan", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown check = %d", rec.Code)
	}
}

func TestWhoami(t *testing.T) {
	topo := testutil.Lab()
	topo.Access = &model.AccessPolicy{
		UserGroups:  map[string][]string{"noc": {"eve"}},
		Permissions: map[string][]string{"console.view": {"noc"}},
	}
	r := router.New(topo)
	t.Cleanup(r.Close)
	s := New(r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set(HeaderUser, "eve")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /whoami = %d", rec.Code)
	}
	var id router.Identity
	decode(t, rec, &id)
	if id.User != "eve" || id.Open || len(id.Groups) != 1 || id.Groups[0] != "noc" ||
		len(id.Permissions) != 1 || id.Permissions[0] != "console.view" {
		t.Errorf("GET /whoami = %+v", id)
	}
}
