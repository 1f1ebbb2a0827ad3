package router

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/newtron-network/newtsim/internal/testutil"
	"github.com/newtron-network/newtsim/pkg/audit"
	"github.com/newtron-network/newtsim/pkg/auth"
	"github.com/newtron-network/newtsim/pkg/dhcp"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/strategy"
	"github.com/newtron-network/newtsim/pkg/util"
)

func newLab(t *testing.T, opts ...Option) *Router {
	t.Helper()
	now, _ := testutil.Clock()
	r := New(testutil.Lab(), append([]Option{WithClock(now)}, opts...)...)
	t.Cleanup(r.Close)
	return r
}

func exec(t *testing.T, r *Router, device, line string) *Outcome {
	t.Helper()
	out, err := r.ExecuteCommand(context.Background(), device, line)
	if err != nil {
		t.Fatalf("ExecuteCommand(%s, %q) error = %v", device, line, err)
	}
	if out == nil {
		t.Fatalf("ExecuteCommand(%s, %q) = nil", device, line)
	}
	return out
}

func TestExecuteUnknownDevice(t *testing.T) {
	r := newLab(t)
	out, err := r.ExecuteCommand(context.Background(), "nope", "system-view")
	if out != nil || err != nil {
		t.Errorf("ExecuteCommand() = %+v, %v; want nil, nil", out, err)
	}
}

func TestExecuteAcceptedAndRejected(t *testing.T) {
	r := newLab(t)

	out := exec(t, r, "r1", "system-view")
	if !out.Accepted || !out.Converged || out.Backend != BackendInterp {
		t.Errorf("system-view outcome = %+v", out)
	}
	if out.View != model.ViewSystem || out.Prompt != "[R1]" {
		t.Errorf("View, Prompt = %v, %q", out.View, out.Prompt)
	}

	out = exec(t, r, "r1", "frobnicate")
	if out.Accepted || out.Converged {
		t.Errorf("frobnicate outcome = %+v", out)
	}
	if out.View != model.ViewSystem {
		t.Errorf("View after rejection = %v", out.View)
	}

	if got := r.History("r1"); !reflect.DeepEqual(got, []string{"system-view"}) {
		t.Errorf("History() = %v", got)
	}
	console := r.Device("r1").Console
	if len(console) < 3 || console[0] != "<R1>system-view" || console[2] != "[R1]frobnicate" {
		t.Errorf("Console = %q", console)
	}
}

func TestHistoryLimit(t *testing.T) {
	r := newLab(t)
	exec(t, r, "r1", "system-view")
	for i := 1; i < 60; i++ {
		exec(t, r, "r1", fmt.Sprintf("sysname R%d", i))
	}

	h := r.History("r1")
	if len(h) != HistoryLimit {
		t.Fatalf("len(History()) = %d, want %d", len(h), HistoryLimit)
	}
	if h[0] != "sysname R10" || h[len(h)-1] != "sysname R59" {
		t.Errorf("History() = %q ... %q", h[0], h[len(h)-1])
	}
	if r.Device("r1").Hostname != "R59" {
		t.Errorf("Hostname = %q", r.Device("r1").Hostname)
	}
}

func TestLeaseGrantAndExpiry(t *testing.T) {
	now, advance := testutil.Clock()
	var (
		mu      sync.Mutex
		commits []Commit
	)
	r := New(testutil.Lab(), WithClock(now), WithObserver(ObserverFunc(func(c Commit) {
		mu.Lock()
		commits = append(commits, c)
		mu.Unlock()
	})))
	defer r.Close()

	out := exec(t, r, "pc1", "ip dhcp")
	if !out.Accepted {
		t.Fatalf("ip dhcp rejected: %q", out.Output)
	}
	if got := dhcp.Bindings(r.Device("r1"), now()); len(got) != 1 || got[0].Lease.Address != "192.168.1.2" {
		t.Fatalf("Bindings() = %+v", got)
	}
	if r.Device("pc1").Ports[0].CIDR() != "192.168.1.2/24" {
		t.Errorf("pc1 address = %q", r.Device("pc1").Ports[0].CIDR())
	}

	advance(49 * time.Hour)
	sum, err := r.Reconverge(context.Background())
	if err != nil {
		t.Fatalf("Reconverge() error = %v", err)
	}
	if sum.LeasesExpired != 1 {
		t.Errorf("LeasesExpired = %d, want 1", sum.LeasesExpired)
	}
	if r.Device("pc1").Ports[0].HasAddress() {
		t.Error("pc1 kept its address after expiry")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(commits) != 2 {
		t.Fatalf("commits = %d, want 2", len(commits))
	}
	if commits[0].Outcome == nil || commits[0].Outcome.Command != "ip dhcp" || commits[0].Topology != "lab" {
		t.Errorf("first commit = %+v", commits[0])
	}
	if commits[1].Outcome != nil || commits[1].Summary.LeasesExpired != 1 {
		t.Errorf("sweep commit = %+v", commits[1])
	}
}

func TestTrafficHighlight(t *testing.T) {
	r := newLab(t)
	exec(t, r, "pc1", "ip dhcp")
	out := exec(t, r, "pc1", "ping 192.168.1.1")
	if out.Traffic == nil {
		t.Fatalf("ping produced no traffic: %q", out.Output)
	}
	hl := r.Highlighter().Current()
	if !reflect.DeepEqual(hl.Path, []string{"pc1", "sw1", "r1"}) {
		t.Errorf("highlight Path = %v", hl.Path)
	}
}

func TestUpdateCLIStrategy(t *testing.T) {
	r := newLab(t)
	tests := []struct {
		input  string
		wantID string
		prefix string
	}{
		{"cisco", strategy.ProfileCisco, "Vendor profile 'cisco' active"},
		{"nokia", strategy.ProfileGeneric, "Unknown vendor profile 'nokia'"},
		{"", strategy.ProfileGeneric, "No vendor profile selected"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, desc := r.UpdateCLIStrategy(tt.input)
			if id != tt.wantID || !strings.HasPrefix(desc, tt.prefix) {
				t.Errorf("UpdateCLIStrategy(%q) = %q, %q", tt.input, id, desc)
			}
			if r.ActiveVendorProfile() != tt.input || r.ActiveStrategy().ID() != tt.wantID {
				t.Errorf("active = %q/%q", r.ActiveVendorProfile(), r.ActiveStrategy().ID())
			}
		})
	}

	r.SetActiveVendorProfile("cisco")
	if p := r.Prompt("r1"); p != "R1>" {
		t.Errorf("Prompt() under cisco = %q", p)
	}
}

func TestClearConsoleLogs(t *testing.T) {
	r := newLab(t)
	exec(t, r, "r1", "display clock")
	if len(r.Device("r1").Console) == 0 {
		t.Fatal("console empty after command")
	}
	if !r.ClearConsoleLogs("r1") {
		t.Fatal("ClearConsoleLogs(r1) = false")
	}
	if c := r.Device("r1").Console; len(c) != 0 {
		t.Errorf("Console = %q", c)
	}
	if r.ClearConsoleLogs("nope") {
		t.Error("ClearConsoleLogs(nope) = true")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	r := newLab(t)
	d := r.Device("r1")
	d.Hostname = "changed"
	r.Devices()[0].Hostname = "changed"
	r.Cables()[0].A.Device = "changed"

	if r.Device("r1").Hostname != "R1" || r.Cables()[0].A.Device != "pc1" {
		t.Error("accessor results alias router state")
	}
	if r.Device("nope") != nil || r.Prompt("nope") != "" {
		t.Error("unknown device should yield nil and empty prompt")
	}
	if r.TopologyName() != "lab" {
		t.Errorf("TopologyName() = %q", r.TopologyName())
	}
}

func TestAuditEvents(t *testing.T) {
	logger, err := audit.NewFileLogger(filepath.Join(t.TempDir(), "audit.log"), audit.RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	audit.SetDefaultLogger(logger)
	t.Cleanup(func() {
		audit.SetDefaultLogger(nil)
		logger.Close()
	})

	r := newLab(t)
	ctx := WithSource(context.Background(), Source{Kind: audit.SourceSSH, User: "alice", Session: "s1"})
	if _, err := r.ExecuteCommand(ctx, "r1", "system-view"); err != nil {
		t.Fatal(err)
	}
	exec(t, r, "r1", "bogus")

	events, err := logger.Query(audit.Filter{Device: "r1"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	var ssh, console *audit.Event
	for _, e := range events {
		switch e.Source {
		case audit.SourceSSH:
			ssh = e
		case audit.SourceConsole:
			console = e
		}
	}
	if ssh == nil || ssh.User != "alice" || ssh.SessionID != "s1" || !ssh.Accepted || ssh.View != "user-view" || ssh.Topology != "lab" {
		t.Errorf("ssh event = %+v", ssh)
	}
	if console == nil || console.Accepted || console.Command != "bogus" {
		t.Errorf("console event = %+v", console)
	}
}

// fakeBackend answers from a table keyed by command.
type fakeBackend struct {
	mu       sync.Mutex
	results  map[string]BackendResult
	err      error
	block    bool
	synced   int
	strategy *strategy.Strategy
	tokens   []string
}

func (f *fakeBackend) TryExecute(ctx context.Context, _, command, token string) (BackendResult, error) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	block, err, res := f.block, f.err, f.results[command]
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return BackendResult{}, ctx.Err()
	}
	return res, err
}

func (f *fakeBackend) Sync([]*model.Device, []*model.Cable) {
	f.mu.Lock()
	f.synced++
	f.mu.Unlock()
}

func (f *fakeBackend) SetStrategy(s *strategy.Strategy) {
	f.mu.Lock()
	f.strategy = s
	f.mu.Unlock()
}

func TestBackendDispatch(t *testing.T) {
	fb := &fakeBackend{results: map[string]BackendResult{
		"system-view":   {Handled: true, Success: true, Output: []string{"native"}, NewView: "systemView"},
		"sysname EDGE":  {Handled: true, Success: true, NewHostname: "EDGE"},
		"sysname bad!":  {Handled: true, Success: false},
		"display clock": {Handled: false},
	}}
	r := newLab(t, WithBackend(fb), WithProfile("huawei"))

	if fb.strategy == nil || fb.strategy.ID() != strategy.ProfileHuawei {
		t.Errorf("backend strategy = %v", fb.strategy)
	}
	syncs := fb.synced

	out := exec(t, r, "r1", "system-view")
	if out.Backend != BackendNative || !out.Accepted || out.View != model.ViewSystem {
		t.Errorf("system-view outcome = %+v", out)
	}
	if !reflect.DeepEqual(out.Output, []string{"native"}) {
		t.Errorf("Output = %q", out.Output)
	}
	out = exec(t, r, "r1", "sysname EDGE")
	if out.Backend != BackendNative || out.Prompt != "[EDGE]" {
		t.Errorf("sysname outcome = %+v", out)
	}
	if fb.synced != syncs+2 {
		t.Errorf("synced = %d, want %d", fb.synced, syncs+2)
	}

	// Rejections and unhandled commands run in the interpreter
	out = exec(t, r, "r1", "sysname bad!")
	if out.Backend != BackendInterp || out.Accepted {
		t.Errorf("sysname bad! outcome = %+v", out)
	}
	out = exec(t, r, "r1", "display clock")
	if out.Backend != BackendInterp || !out.Accepted {
		t.Errorf("display clock outcome = %+v", out)
	}

	if got := fb.tokens[:2]; !reflect.DeepEqual(got, []string{"userView", "systemView"}) {
		t.Errorf("view tokens = %v", got)
	}
	if got := r.History("r1"); !reflect.DeepEqual(got, []string{"system-view", "sysname EDGE", "display clock"}) {
		t.Errorf("History() = %v", got)
	}
	console := r.Device("r1").Console
	if console[0] != "<R1>system-view" || console[1] != "native" || console[2] != "[R1]sysname EDGE" {
		t.Errorf("Console = %q", console)
	}
}

func TestBackendFallback(t *testing.T) {
	tests := []struct {
		name string
		fb   *fakeBackend
	}{
		{"error", &fakeBackend{err: errors.New("connection refused")}},
		{"timeout", &fakeBackend{block: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newLab(t, WithBackend(tt.fb), WithBackendTimeout(10*time.Millisecond))
			out := exec(t, r, "r1", "system-view")
			if out.Backend != BackendInterp || !out.Accepted || out.View != model.ViewSystem {
				t.Errorf("outcome = %+v", out)
			}
		})
	}
}

func TestTryBackendReasons(t *testing.T) {
	tests := []struct {
		name        string
		fb          *fakeBackend
		unavailable bool
	}{
		{"error", &fakeBackend{err: errors.New("connection refused")}, true},
		{"timeout", &fakeBackend{block: true}, true},
		{"not handled", &fakeBackend{}, false},
		{"rejected", &fakeBackend{results: map[string]BackendResult{"system-view": {Handled: true}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newLab(t, WithBackend(tt.fb), WithBackendTimeout(10*time.Millisecond))
			_, err := r.tryBackend(context.Background(), r.Device("r1"), "system-view")
			if err == nil {
				t.Fatal("tryBackend() error = nil")
			}
			if got := errors.Is(err, util.ErrBackendUnavailable); got != tt.unavailable {
				t.Errorf("errors.Is(%v, ErrBackendUnavailable) = %v, want %v", err, got, tt.unavailable)
			}
		})
	}
}

func TestStartLeaseSweep(t *testing.T) {
	r := newLab(t)
	if _, err := r.StartLeaseSweep(0); err == nil {
		t.Error("StartLeaseSweep(0) error = nil")
	}
	stop, err := r.StartLeaseSweep(time.Hour)
	if err != nil {
		t.Fatalf("StartLeaseSweep() error = %v", err)
	}
	stop()
}

func TestObserve(t *testing.T) {
	r := newLab(t)
	var got []Commit
	r.Observe(ObserverFunc(func(c Commit) { got = append(got, c) }))

	exec(t, r, "r1", "system-view")
	if _, err := r.Reconverge(context.Background()); err != nil {
		t.Fatalf("Reconverge() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("commits = %d, want 2", len(got))
	}
	if got[0].Outcome == nil || got[0].Outcome.Command != "system-view" {
		t.Errorf("first commit outcome = %+v", got[0].Outcome)
	}
	if got[1].Outcome != nil {
		t.Errorf("re-convergence commit outcome = %+v, want nil", got[1].Outcome)
	}
	if got[0].Topology != "lab" {
		t.Errorf("Topology = %q, want lab", got[0].Topology)
	}
}

func TestAccessPolicy(t *testing.T) {
	topo := testutil.Lab()
	topo.Access = &model.AccessPolicy{
		UserGroups:  map[string][]string{"ops": {"alice"}},
		Permissions: map[string][]string{"all": {"ops"}, "console.view": {"eve"}},
	}
	now, _ := testutil.Clock()
	r := New(topo, WithClock(now))
	t.Cleanup(r.Close)

	as := func(user string) context.Context {
		return WithSource(context.Background(), Source{Kind: audit.SourceHTTP, User: user})
	}

	if _, err := r.ExecuteCommand(as("eve"), "r1", "display clock"); err != nil {
		t.Errorf("viewer display error = %v", err)
	}
	out, err := r.ExecuteCommand(as("eve"), "r1", "system-view")
	if !errors.Is(err, util.ErrPermissionDenied) || out != nil {
		t.Fatalf("viewer system-view = %+v, %v; want permission denied", out, err)
	}
	if v := r.Device("r1").CLI.View; v != model.ViewUser {
		t.Errorf("view after denial = %v, want user view", v)
	}
	if _, err := r.ExecuteCommand(as("mallory"), "r1", "display clock"); !errors.Is(err, util.ErrPermissionDenied) {
		t.Errorf("stranger display error = %v, want permission denied", err)
	}

	out, err = r.ExecuteCommand(as("alice"), "r1", "system-view")
	if err != nil || !out.Accepted {
		t.Fatalf("operator system-view = %+v, %v", out, err)
	}
	if err := r.Authorize(as("alice"), auth.PermProfileSet, ""); err != nil {
		t.Errorf("Authorize(alice) = %v", err)
	}
	if err := r.Authorize(as("eve"), auth.PermProfileSet, ""); !errors.Is(err, util.ErrPermissionDenied) {
		t.Errorf("Authorize(eve) = %v, want permission denied", err)
	}
}

func TestIdentity(t *testing.T) {
	topo := testutil.Lab()
	topo.Access = &model.AccessPolicy{
		UserGroups:  map[string][]string{"ops": {"alice"}, "viewers": {"alice", "eve"}},
		Permissions: map[string][]string{"console.view": {"viewers"}, "topology.reconverge": {"ops"}},
	}
	now, _ := testutil.Clock()
	r := New(topo, WithClock(now))
	t.Cleanup(r.Close)

	id := r.Identity(WithSource(context.Background(), Source{Kind: audit.SourceHTTP, User: "alice"}))
	want := Identity{
		User:        "alice",
		Groups:      []string{"ops", "viewers"},
		Permissions: []auth.Permission{auth.PermConsoleView, auth.PermReconverge},
	}
	if !reflect.DeepEqual(id, want) {
		t.Errorf("Identity(alice) = %+v, want %+v", id, want)
	}

	open := newLab(t).Identity(WithSource(context.Background(), Source{User: "anyone"}))
	if !open.Open || !reflect.DeepEqual(open.Permissions, []auth.Permission{auth.PermAll}) || open.Groups != nil {
		t.Errorf("open Identity = %+v", open)
	}
}
