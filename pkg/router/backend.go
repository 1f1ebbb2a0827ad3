package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/strategy"
	"github.com/newtron-network/newtsim/pkg/util"
)

// Backend names reported in Outcome.Backend
const (
	BackendNative = "native"
	BackendInterp = "interp"
)

// DefaultBackendTimeout bounds a primary backend call.
const DefaultBackendTimeout = 250 * time.Millisecond

// Backend is a primary execution engine tried before the interpreter. View
// state crosses the boundary as backend tokens (model.View.Token).
type Backend interface {
	TryExecute(ctx context.Context, deviceID, command, viewToken string) (BackendResult, error)
}

// BackendResult is the answer of a primary backend. Only a handled, successful
// result is applied; anything else falls back to the interpreter.
type BackendResult struct {
	Handled     bool
	Success     bool
	Output      []string
	NewView     string // backend view token, "" when unchanged
	NewHostname string
}

// Syncer is implemented by backends that keep their own topology snapshot.
// Sync is called after every commit.
type Syncer interface {
	Sync(devices []*model.Device, cables []*model.Cable)
}

// StrategySetter is implemented by backends that parse with the session's
// vendor profile.
type StrategySetter interface {
	SetStrategy(s *strategy.Strategy)
}

// errNotApplied marks a backend reply that was not a handled success.
var errNotApplied = errors.New("backend result not applied")

// tryBackend runs the primary backend under the router timeout. A nil error
// means the result is applied; a timeout or transport failure wraps
// util.ErrBackendUnavailable, anything else wraps errNotApplied.
func (r *Router) tryBackend(ctx context.Context, d *model.Device, line string) (BackendResult, error) {
	if r.backend == nil || line == "" {
		return BackendResult{}, errNotApplied
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type reply struct {
		res BackendResult
		err error
	}
	ch := make(chan reply, 1)
	token := d.CLI.View.Token()
	go func() {
		res, err := r.backend.TryExecute(ctx, d.ID, line, token)
		ch <- reply{res, err}
	}()

	select {
	case <-ctx.Done():
		return BackendResult{}, fmt.Errorf("%w: no reply within %v", util.ErrBackendUnavailable, r.timeout)
	case rep := <-ch:
		switch {
		case rep.err != nil:
			return BackendResult{}, fmt.Errorf("%w: %v", util.ErrBackendUnavailable, rep.err)
		case !rep.res.Handled:
			return BackendResult{}, fmt.Errorf("%w: not handled", errNotApplied)
		case !rep.res.Success:
			return BackendResult{}, fmt.Errorf("%w: rejected", errNotApplied)
		}
		return rep.res, nil
	}
}

// applyNative builds the device copy for a backend result: console echo and
// output, the view mapped back from its token, and the hostname.
func (r *Router) applyNative(d *model.Device, line string, res BackendResult) *model.Device {
	dev := d.Clone()
	dev.AppendConsole(r.strategy.Prompt(d) + line)
	dev.AppendConsole(res.Output...)
	if v := model.ViewFromToken(res.NewView, dev.CLI.View); v != dev.CLI.View {
		dev.CLI.Enter(v, "")
	}
	if res.NewHostname != "" {
		dev.Hostname = res.NewHostname
	}
	return dev
}

func (r *Router) syncBackend() {
	if s, ok := r.backend.(Syncer); ok {
		s.Sync(r.topo.Devices, r.topo.Cables)
	}
}
