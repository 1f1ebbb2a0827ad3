// Package router executes console commands against a topology. It dispatches
// each command to the primary backend or the interpreter, merges the resulting
// device by id, re-converges the whole network and commits the new state.
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/newtron-network/newtsim/pkg/audit"
	"github.com/newtron-network/newtsim/pkg/auth"
	"github.com/newtron-network/newtsim/pkg/converge"
	"github.com/newtron-network/newtsim/pkg/dhcp"
	"github.com/newtron-network/newtsim/pkg/interp"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/strategy"
	"github.com/newtron-network/newtsim/pkg/util"
)

// HistoryLimit is the number of commands kept per device.
const HistoryLimit = 50

// Outcome describes one executed command.
type Outcome struct {
	DeviceID  string           `json:"device_id"`
	Command   string           `json:"command"`
	Output    []string         `json:"output"`
	Prompt    string           `json:"prompt"` // prompt after the command
	View      model.View       `json:"view"`
	Accepted  bool             `json:"accepted"`
	Backend   string           `json:"backend"`
	Traffic   *model.Traffic   `json:"traffic,omitempty"`
	Summary   converge.Summary `json:"summary"`
	Converged bool             `json:"converged"`
	Duration  time.Duration    `json:"duration"`
}

// Commit is delivered to observers after every state change.
type Commit struct {
	Topology string
	Outcome  *Outcome       // nil for re-convergence without a command
	Devices  []*model.Device // committed state, must not be modified
	Summary  converge.Summary
}

// Observer receives commits. Observers run under the router lock and must not
// call back into the router.
type Observer interface {
	Committed(c Commit)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(c Commit)

func (f ObserverFunc) Committed(c Commit) { f(c) }

// Source identifies who sent a command, for the audit log.
type Source struct {
	Kind    audit.Source
	User    string
	Session string
}

type sourceKey struct{}

// WithSource attaches the command source to ctx.
func WithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

func sourceFrom(ctx context.Context) Source {
	if src, ok := ctx.Value(sourceKey{}).(Source); ok {
		return src
	}
	return Source{Kind: audit.SourceConsole}
}

// Router owns a topology and serializes every command against it.
type Router struct {
	mu        sync.Mutex
	topo      *model.Topology
	history   map[string][]string
	profile   string
	strategy  *strategy.Strategy
	backend   Backend
	timeout   time.Duration
	clock     func() time.Time
	observers []Observer
	highlight *Highlighter
	sweeps    []func()
	access    *auth.Checker
}

// Option configures a Router.
type Option func(*Router)

// WithBackend sets the primary execution backend.
func WithBackend(b Backend) Option {
	return func(r *Router) { r.backend = b }
}

// WithClock replaces time.Now for lease and clock handling.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.clock = now }
}

// WithObserver adds a commit observer.
func WithObserver(o Observer) Option {
	return func(r *Router) { r.observers = append(r.observers, o) }
}

// WithHighlighter sets the traffic highlight scheduler.
func WithHighlighter(h *Highlighter) Option {
	return func(r *Router) { r.highlight = h }
}

// WithProfile selects the initial vendor profile.
func WithProfile(id string) Option {
	return func(r *Router) { r.profile = id }
}

// WithBackendTimeout bounds each primary backend call.
func WithBackendTimeout(d time.Duration) Option {
	return func(r *Router) { r.timeout = d }
}

// New creates a router over a copy of topo and converges it once.
func New(topo *model.Topology, opts ...Option) *Router {
	r := &Router{
		topo:    topo.Clone(),
		history: make(map[string][]string),
		timeout: DefaultBackendTimeout,
		clock:   time.Now,
		access:  auth.NewChecker(topo.Access),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.highlight == nil {
		r.highlight = NewHighlighter(0, 0)
	}
	r.strategy = strategy.Resolve(r.profile)
	if s, ok := r.backend.(StrategySetter); ok {
		s.SetStrategy(r.strategy)
	}

	if devices, sum, err := converge.Converge(r.topo.Devices, r.topo.Cables, r.clock()); err != nil {
		util.WithTopology(r.topo.Name).WithError(err).Warn("initial convergence failed")
	} else {
		r.topo.Devices = devices
		util.WithTopology(r.topo.Name).Debugf("converged: %d devices, %d routes", sum.Devices, sum.Routes)
	}
	r.syncBackend()
	return r
}

// ExecuteCommand runs one console line on a device. A missing device is a
// silent no-op returning nil, nil. Rejected commands only append to the
// console; accepted ones are recorded, converged and committed. A convergence
// error commits nothing. Commands the source user may not run fail with an
// error wrapping util.ErrPermissionDenied.
func (r *Router) ExecuteCommand(ctx context.Context, deviceID, command string) (*Outcome, error) {
	start := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.topo.Device(deviceID)
	if cur == nil {
		util.WithDevice(deviceID).Debug("command for unknown device ignored")
		return nil, nil
	}
	line := strings.TrimSpace(command)
	if err := r.authorizeCommand(ctx, cur, line); err != nil {
		return nil, err
	}
	now := r.clock()
	out := &Outcome{DeviceID: deviceID, Command: line}
	fromView := cur.CLI.View

	var (
		dev   *model.Device
		grant *dhcp.Grant
	)
	res, err := r.tryBackend(ctx, cur, line)
	if err == nil {
		dev = r.applyNative(cur, line, res)
		out.Backend, out.Output, out.Accepted = BackendNative, res.Output, true
	} else {
		if r.backend != nil && line != "" {
			util.WithCommand(deviceID, line).WithError(err).Debug("falling back to the interpreter")
		}
		res := interp.Execute(interp.Input{
			Command:  line,
			Device:   cur,
			Devices:  r.topo.Devices,
			Cables:   r.topo.Cables,
			History:  r.history[deviceID],
			Strategy: r.strategy,
			Now:      now,
		})
		dev, grant = res.Device, res.Lease
		out.Backend, out.Output, out.Accepted, out.Traffic = BackendInterp, res.Output, res.Accepted, res.Traffic
	}

	devices := model.ReplaceDevice(r.topo.Devices, dev)
	if out.Accepted {
		var err error
		if grant != nil {
			if devices, err = applyGrant(devices, grant); err != nil {
				return nil, fmt.Errorf("apply lease from %s: %w", grant.Server, err)
			}
		}
		devices, out.Summary, err = converge.Converge(devices, r.topo.Cables, now)
		if err != nil {
			return nil, fmt.Errorf("converge after %q on %s: %w", line, deviceID, err)
		}
		out.Converged = true
		r.recordHistory(deviceID, line)
	}

	r.topo.Devices = devices
	committed := r.topo.Device(deviceID)
	out.View = committed.CLI.View
	out.Prompt = r.strategy.Prompt(committed)
	out.Duration = time.Since(start)

	r.afterCommit(ctx, out, fromView)
	return out, nil
}

// authorizeCommand checks the source user against the topology access
// policy. Lines that do not parse need only view permission; the interpreter
// rejects them anyway.
func (r *Router) authorizeCommand(ctx context.Context, d *model.Device, line string) error {
	if r.access.Open() {
		return nil
	}
	perm := auth.PermConsoleView
	if cmd, err := r.strategy.Parse(line, d.CLI.View); err == nil {
		perm = auth.CommandPermission(cmd.Op)
	}
	src := sourceFrom(ctx)
	err := r.access.CheckUser(src.User, perm, auth.NewContext().WithDevice(d.ID).WithCommand(line))
	if err != nil {
		util.WithCommand(d.ID, line).WithField("user", src.User).Warn("command denied")
		ev := audit.NewEvent(src.User, d.ID, line).
			WithTopology(r.topo.Name).
			WithView(d.CLI.View.String()).
			WithSource(src.Kind, src.Session).
			WithError(err)
		if lerr := audit.Log(ev); lerr != nil {
			util.WithDevice(d.ID).WithError(lerr).Warn("audit log write failed")
		}
	}
	return err
}

// Authorize checks a lab-wide permission for the source user of ctx.
func (r *Router) Authorize(ctx context.Context, perm auth.Permission, deviceID string) error {
	return r.access.CheckUser(sourceFrom(ctx).User, perm, auth.NewContext().WithDevice(deviceID))
}

// Identity is what the access policy grants one user.
type Identity struct {
	User        string            `json:"user"`
	Groups      []string          `json:"groups,omitempty"`
	Permissions []auth.Permission `json:"permissions"`
	Open        bool              `json:"open"` // no access policy in the topology
}

// Identity reports the groups and permissions of the source user of ctx.
func (r *Router) Identity(ctx context.Context) Identity {
	user := sourceFrom(ctx).User
	return Identity{
		User:        user,
		Groups:      r.access.GetUserGroups(user),
		Permissions: r.access.ListPermissionsForUser(user),
		Open:        r.access.Open(),
	}
}

// applyGrant hands a DHCP lease grant (or release) to its server device.
func applyGrant(devices []*model.Device, g *dhcp.Grant) ([]*model.Device, error) {
	srv := model.FindDevice(devices, g.Server)
	if srv == nil {
		return nil, fmt.Errorf("server %s: %w", g.Server, util.ErrNotFound)
	}
	srv = srv.Clone()
	if err := dhcp.Apply(srv, g); err != nil {
		return nil, err
	}
	return model.ReplaceDevice(devices, srv), nil
}

func (r *Router) recordHistory(deviceID, line string) {
	h := append(r.history[deviceID], line)
	if len(h) > HistoryLimit {
		h = append([]string(nil), h[len(h)-HistoryLimit:]...)
	}
	r.history[deviceID] = h
}

func (r *Router) afterCommit(ctx context.Context, out *Outcome, fromView model.View) {
	r.syncBackend()
	r.notify(out, out.Summary)
	if out.Traffic != nil {
		r.highlight.Start(out.Traffic)
	}

	src := sourceFrom(ctx)
	ev := audit.NewEvent(src.User, out.DeviceID, out.Command).
		WithTopology(r.topo.Name).
		WithView(fromView.String()).
		WithBackend(out.Backend).
		WithOutput(out.Output).
		WithAccepted(out.Accepted).
		WithDuration(out.Duration).
		WithSource(src.Kind, src.Session)
	if err := audit.Log(ev); err != nil {
		util.WithDevice(out.DeviceID).WithError(err).Warn("audit log write failed")
	}

	util.WithCommand(out.DeviceID, out.Command).WithFields(map[string]interface{}{
		"backend":  out.Backend,
		"accepted": out.Accepted,
		"routes":   out.Summary.Routes,
	}).Debug("command committed")
}

func (r *Router) notify(out *Outcome, sum converge.Summary) {
	c := Commit{Topology: r.topo.Name, Outcome: out, Devices: r.topo.Devices, Summary: sum}
	for _, o := range r.observers {
		o.Committed(c)
	}
}

// Observe registers o for every later commit. Observers run with the router
// locked and must not call back into it.
func (r *Router) Observe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Reconverge re-runs convergence over the current state, expiring leases
// against the router clock.
func (r *Router) Reconverge(ctx context.Context) (converge.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return converge.Summary{}, err
	}
	devices, sum, err := converge.Converge(r.topo.Devices, r.topo.Cables, r.clock())
	if err != nil {
		return sum, err
	}
	r.topo.Devices = devices
	r.syncBackend()
	r.notify(nil, sum)
	return sum, nil
}

// SetActiveVendorProfile selects the vendor profile; "" clears the selection.
func (r *Router) SetActiveVendorProfile(id string) {
	r.UpdateCLIStrategy(id)
}

// UpdateCLIStrategy resolves id, makes it the session strategy and returns the
// resolved strategy id and its description.
func (r *Router) UpdateCLIStrategy(id string) (string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profile = id
	r.strategy = strategy.Resolve(id)
	if s, ok := r.backend.(StrategySetter); ok {
		s.SetStrategy(r.strategy)
	}
	return r.strategy.ID(), r.strategy.Describe(id)
}

// ActiveStrategy returns the session strategy.
func (r *Router) ActiveStrategy() *strategy.Strategy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.strategy
}

// ActiveVendorProfile returns the selected profile id, "" when none.
func (r *Router) ActiveVendorProfile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profile
}

// ClearConsoleLogs empties the console of a device. It reports false for an
// unknown device.
func (r *Router) ClearConsoleLogs(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.topo.Device(deviceID)
	if d == nil {
		return false
	}
	d = d.Clone()
	d.ClearConsole()
	r.topo.Devices = model.ReplaceDevice(r.topo.Devices, d)
	r.syncBackend()
	return true
}

// History returns the accepted commands of a device, oldest first.
func (r *Router) History(deviceID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history[deviceID]...)
}

// Devices returns a copy of every device.
func (r *Router) Devices() []*model.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return model.CloneDevices(r.topo.Devices)
}

// Device returns a copy of one device, or nil.
func (r *Router) Device(id string) *model.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.topo.Device(id)
	if d == nil {
		return nil
	}
	return d.Clone()
}

// Cables returns the cabling.
func (r *Router) Cables() []*model.Cable {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.topo.Clone().Cables
}

// TopologyName returns the name of the topology.
func (r *Router) TopologyName() string {
	return r.topo.Name
}

// Prompt renders the console prompt of a device, "" when unknown.
func (r *Router) Prompt(deviceID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.topo.Device(deviceID)
	if d == nil {
		return ""
	}
	return r.strategy.Prompt(d)
}

// Highlighter returns the traffic highlight scheduler.
func (r *Router) Highlighter() *Highlighter {
	return r.highlight
}

// Close stops lease sweeps and pending highlight expiries.
func (r *Router) Close() {
	r.mu.Lock()
	sweeps := r.sweeps
	r.sweeps = nil
	r.mu.Unlock()
	for _, stop := range sweeps {
		stop()
	}
	r.highlight.Stop()
}
