// Package engine is the native execution backend. It keeps its own snapshot
// of the topology, exchanges views as backend tokens and answers the
// navigation and system commands itself. Every other command is reported as
// not handled so the router falls back to the interpreter.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/router"
	"github.com/newtron-network/newtsim/pkg/strategy"
	"github.com/newtron-network/newtsim/pkg/util"
)

// Backend view tokens
const (
	TokenUser      = "userView"
	TokenSystem    = "systemView"
	TokenInterface = "interfaceView"
	TokenBGP       = "bgpView"
	TokenPool      = "poolView"
	TokenACL       = "aclView"
)

var tokenViews = map[string]model.View{
	TokenUser:      model.ViewUser,
	TokenSystem:    model.ViewSystem,
	TokenInterface: model.ViewInterface,
	TokenBGP:       model.ViewBGP,
	TokenPool:      model.ViewPool,
	TokenACL:       model.ViewACL,
}

// parentToken is where quit/exit leads from each token.
var parentToken = map[string]string{
	TokenUser:      TokenUser,
	TokenSystem:    TokenUser,
	TokenInterface: TokenSystem,
	TokenBGP:       TokenSystem,
	TokenPool:      TokenSystem,
	TokenACL:       TokenSystem,
}

type handler func(e *Engine, d *model.Device, token string, cmd strategy.Command) router.BackendResult

var handlers = map[strategy.Op]handler{
	strategy.OpSystemView:    systemView,
	strategy.OpQuit:          quit,
	strategy.OpReturn:        returnUser,
	strategy.OpSysname:       sysname,
	strategy.OpUndoSysname:   undoSysname,
	strategy.OpDisplayConfig: displayConfig,
	strategy.OpSave:          save,
}

// Engine is the native backend. It is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	devices  map[string]*model.Device
	strategy *strategy.Strategy
	stats    Stats
}

// Stats counts backend calls.
type Stats struct {
	Handled   int `json:"handled"`
	Unhandled int `json:"unhandled"`
	Rejected  int `json:"rejected"`
}

// New creates an engine with an empty snapshot. A nil strategy selects the
// default profile.
func New(s *strategy.Strategy) *Engine {
	if s == nil {
		s = strategy.Resolve("")
	}
	return &Engine{devices: make(map[string]*model.Device), strategy: s}
}

// SetStrategy switches the grammar used to parse commands.
func (e *Engine) SetStrategy(s *strategy.Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategy = s
}

// Sync replaces the snapshot with copies of devices.
func (e *Engine) Sync(devices []*model.Device, _ []*model.Cable) {
	snap := make(map[string]*model.Device, len(devices))
	for _, d := range devices {
		snap[d.ID] = d.Clone()
	}
	e.mu.Lock()
	e.devices = snap
	e.mu.Unlock()
}

// Stats returns the call counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// TryExecute answers one command. Unknown devices, unknown tokens and commands
// outside the native surface are not handled.
func (e *Engine) TryExecute(ctx context.Context, deviceID, command, viewToken string) (router.BackendResult, error) {
	if err := ctx.Err(); err != nil {
		return router.BackendResult{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	// The wait for the lock can outlast the caller
	if err := ctx.Err(); err != nil {
		return router.BackendResult{}, err
	}

	d, ok := e.devices[deviceID]
	if !ok {
		return router.BackendResult{}, fmt.Errorf("device %s: %w", deviceID, util.ErrNotFound)
	}
	view, ok := tokenViews[viewToken]
	if !ok {
		e.stats.Unhandled++
		return router.BackendResult{}, nil
	}
	cmd, err := e.strategy.Parse(command, view)
	if err != nil || !e.strategy.Allowed(cmd.Op, view) {
		e.stats.Unhandled++
		return router.BackendResult{}, nil
	}
	h, ok := handlers[cmd.Op]
	if !ok {
		e.stats.Unhandled++
		return router.BackendResult{}, nil
	}

	res := h(e, d, viewToken, cmd)
	if !res.Success {
		e.stats.Rejected++
		return res, nil
	}
	e.stats.Handled++
	if res.NewView != "" {
		d.CLI.Enter(tokenViews[res.NewView], "")
	}
	if res.NewHostname != "" {
		d.Hostname = res.NewHostname
	}
	return res, nil
}

func accept(lines ...string) router.BackendResult {
	return router.BackendResult{Handled: true, Success: true, Output: lines}
}

func rejected() router.BackendResult {
	return router.BackendResult{Handled: true}
}

func systemView(_ *Engine, _ *model.Device, _ string, _ strategy.Command) router.BackendResult {
	res := accept("Enter configuration commands, one per line. End with CNTL/Z.")
	res.NewView = TokenSystem
	return res
}

func quit(_ *Engine, _ *model.Device, token string, _ strategy.Command) router.BackendResult {
	res := accept()
	res.NewView = parentToken[token]
	return res
}

func returnUser(_ *Engine, _ *model.Device, _ string, _ strategy.Command) router.BackendResult {
	res := accept()
	res.NewView = TokenUser
	return res
}

// sysname accepts only valid names; the interpreter reports the errors.
func sysname(_ *Engine, _ *model.Device, _ string, cmd strategy.Command) router.BackendResult {
	name := strings.TrimSpace(cmd.Arg(0))
	if !util.IsValidHostname(name) {
		return rejected()
	}
	res := accept(fmt.Sprintf("Hostname set to '%s'", name))
	res.NewHostname = name
	return res
}

func undoSysname(e *Engine, _ *model.Device, _ string, _ strategy.Command) router.BackendResult {
	res := accept("Hostname reset to default.")
	res.NewHostname = e.strategy.DefaultHostname()
	return res
}

func displayConfig(_ *Engine, d *model.Device, _ string, _ strategy.Command) router.BackendResult {
	return accept(model.RunningConfig(d)...)
}

func save(e *Engine, d *model.Device, _ string, _ strategy.Command) router.BackendResult {
	if e.strategy.UsesVRP(d) {
		return accept("The current configuration will be written to the device.", "Save the configuration successfully.")
	}
	return accept("Building configuration...", "[OK]")
}
