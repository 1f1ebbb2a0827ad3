// Package health runs health checks over the converged state of a lab
// device: cabled ports, OSPF adjacencies, BGP peer reachability, DHCP pool
// usage and the routing table.
package health

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

// Status is the outcome of a check.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

// Worst returns the more severe of a and b.
func Worst(a, b Status) Status {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

func (s Status) rank() int {
	switch s {
	case StatusOK:
		return 0
	case StatusUnknown:
		return 1
	case StatusWarning:
		return 2
	default:
		return 3
	}
}

// Result is the outcome of one named check.
type Result struct {
	Check     string        `json:"check"`
	Status    Status        `json:"status"`
	Message   string        `json:"message"`
	Details   interface{}   `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Report collects every check run on one device.
type Report struct {
	Device    string        `json:"device"`
	Timestamp time.Time     `json:"timestamp"`
	Overall   Status        `json:"overall"`
	Results   []Result      `json:"results"`
	Duration  time.Duration `json:"duration"`
}

// Lab is the state the checks read.
type Lab interface {
	Devices() []*model.Device
	Cables() []*model.Cable
}

// Check inspects one device. Checks that do not apply return no results.
type Check func(d *model.Device, devices []*model.Device, cables []*model.Cable, now time.Time) []Result

// Checker runs registered checks.
type Checker struct {
	checks map[string]Check
	now    func() time.Time
}

// NewChecker creates a checker with the default checks.
func NewChecker() *Checker {
	return &Checker{
		checks: map[string]Check{
			"interfaces": checkInterfaces,
			"ospf":       checkOSPF,
			"bgp":        checkBGP,
			"dhcp":       checkDHCP,
			"routes":     checkRoutes,
		},
		now: time.Now,
	}
}

// WithClock sets the time used for lease expiry.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

// Register adds or replaces a check.
func (c *Checker) Register(name string, check Check) {
	c.checks[name] = check
}

// ListChecks returns the check names, sorted.
func (c *Checker) ListChecks() []string {
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run runs every check on the device.
func (c *Checker) Run(ctx context.Context, lab Lab, deviceID string) (*Report, error) {
	return c.run(ctx, lab, deviceID, c.ListChecks())
}

// RunCheck runs a single named check.
func (c *Checker) RunCheck(ctx context.Context, lab Lab, deviceID, name string) (*Report, error) {
	if _, ok := c.checks[name]; !ok {
		return nil, fmt.Errorf("unknown check %q (valid: %s)", name, strings.Join(c.ListChecks(), ", "))
	}
	return c.run(ctx, lab, deviceID, []string{name})
}

func (c *Checker) run(ctx context.Context, lab Lab, deviceID string, names []string) (*Report, error) {
	devices, cables := lab.Devices(), lab.Cables()
	d := model.FindDevice(devices, deviceID)
	if d == nil {
		return nil, fmt.Errorf("device %s: %w", deviceID, util.ErrNotFound)
	}

	start := time.Now()
	now := c.now()
	report := &Report{Device: deviceID, Timestamp: now, Overall: StatusOK}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t0 := time.Now()
		results := c.checks[name](d, devices, cables, now)
		for i := range results {
			results[i].Check = name
			results[i].Duration = time.Since(t0)
			results[i].Timestamp = now
			report.Overall = Worst(report.Overall, results[i].Status)
		}
		report.Results = append(report.Results, results...)
	}
	report.Duration = time.Since(start)
	return report, nil
}

type link struct {
	port *model.Port
	peer *model.Device
	far  *model.Port
}

// links resolves the cables attached to d.
func links(d *model.Device, devices []*model.Device, cables []*model.Cable) []link {
	var out []link
	for _, c := range cables {
		for _, pair := range [2][2]model.Endpoint{{c.A, c.B}, {c.B, c.A}} {
			if pair[0].Device != d.ID {
				continue
			}
			p := d.Port(pair[0].Port)
			peer := model.FindDevice(devices, pair[1].Device)
			if p == nil || peer == nil {
				continue
			}
			if far := peer.Port(pair[1].Port); far != nil {
				out = append(out, link{port: p, peer: peer, far: far})
			}
		}
	}
	return out
}

func checkInterfaces(d *model.Device, devices []*model.Device, cables []*model.Cable, _ time.Time) []Result {
	ls := links(d, devices, cables)
	if len(ls) == 0 {
		return []Result{{Status: StatusWarning, Message: "No cabled ports"}}
	}
	var down []string
	for _, l := range ls {
		switch {
		case !l.port.Config.Enabled:
			down = append(down, fmt.Sprintf("%s is shut down", l.port.Name))
		case !l.far.Config.Enabled:
			down = append(down, fmt.Sprintf("%s: peer %s %s is shut down", l.port.Name, l.peer.Hostname, l.far.Name))
		}
	}
	if len(down) > 0 {
		return []Result{{
			Status:  StatusWarning,
			Message: fmt.Sprintf("%d of %d cabled ports down", len(down), len(ls)),
			Details: down,
		}}
	}
	return []Result{{Status: StatusOK, Message: fmt.Sprintf("%d cabled ports up", len(ls))}}
}

func checkOSPF(d *model.Device, _ []*model.Device, _ []*model.Cable, _ time.Time) []Result {
	if !d.OSPF.Enabled {
		return nil
	}
	advertised := 0
	for _, p := range d.Ports {
		if d.OSPF.Advertises(p) {
			advertised++
		}
	}
	n := len(d.OSPF.Neighbors)
	switch {
	case advertised == 0:
		return []Result{{Status: StatusWarning, Message: "OSPF enabled but no interface is advertised"}}
	case n == 0:
		return []Result{{Status: StatusWarning, Message: fmt.Sprintf("No OSPF neighbors on %d advertised interfaces", advertised)}}
	}
	names := make([]string, 0, n)
	for _, nb := range d.OSPF.Neighbors {
		names = append(names, nb.Hostname)
	}
	return []Result{{Status: StatusOK, Message: fmt.Sprintf("%d OSPF neighbors Full", n), Details: names}}
}

func checkBGP(d *model.Device, devices []*model.Device, _ []*model.Cable, _ time.Time) []Result {
	if d.BGP == nil {
		return nil
	}
	if len(d.BGP.Peers) == 0 {
		return []Result{{Status: StatusWarning, Message: "No BGP peers configured"}}
	}
	var results []Result
	for _, p := range d.BGP.Peers {
		owner := ownerOf(devices, p.Address)
		switch {
		case owner == nil:
			results = append(results, Result{Status: StatusCritical, Message: fmt.Sprintf("BGP peer %s: address not assigned in the lab", p.Address)})
		case owner.BGP == nil:
			results = append(results, Result{Status: StatusCritical, Message: fmt.Sprintf("BGP peer %s: %s runs no BGP", p.Address, owner.Hostname)})
		case owner.BGP.ASN != p.RemoteAS:
			results = append(results, Result{Status: StatusCritical, Message: fmt.Sprintf("BGP peer %s: remote-as %d, %s is AS %d", p.Address, p.RemoteAS, owner.Hostname, owner.BGP.ASN)})
		default:
			if _, ok := d.Routes.Lookup(p.Address); !ok {
				results = append(results, Result{Status: StatusCritical, Message: fmt.Sprintf("BGP peer %s: no route", p.Address)})
				continue
			}
			results = append(results, Result{Status: StatusOK, Message: fmt.Sprintf("BGP peer %s (%s, AS %d): reachable", p.Address, owner.Hostname, p.RemoteAS)})
		}
	}
	return results
}

func ownerOf(devices []*model.Device, addr string) *model.Device {
	for _, dev := range devices {
		for _, p := range dev.Ports {
			if p.Config.IPAddress == addr {
				return dev
			}
		}
	}
	return nil
}

// poolWarnRatio is the lease usage reported as a warning.
const poolWarnRatio = 0.9

func checkDHCP(d *model.Device, _ []*model.Device, _ []*model.Cable, now time.Time) []Result {
	if !d.DHCP.Enabled {
		return nil
	}
	var results []Result
	for _, pool := range d.DHCP.Pools {
		if !pool.Configured() {
			results = append(results, Result{Status: StatusWarning, Message: fmt.Sprintf("pool %s: no network configured", pool.Name)})
			continue
		}
		capacity := (1 << (32 - pool.MaskLen)) - 2
		active := 0
		for _, l := range pool.Leases {
			if l.Expires.After(now) {
				active++
			}
		}
		status := StatusOK
		switch {
		case active >= capacity:
			status = StatusCritical
		case float64(active) >= poolWarnRatio*float64(capacity):
			status = StatusWarning
		}
		results = append(results, Result{
			Status:  status,
			Message: fmt.Sprintf("pool %s: %d/%d leases active", pool.Name, active, capacity),
		})
	}
	if len(results) == 0 {
		return []Result{{Status: StatusWarning, Message: "DHCP enabled but no pools defined"}}
	}
	return results
}

func checkRoutes(d *model.Device, _ []*model.Device, _ []*model.Cable, _ time.Time) []Result {
	if d.IsHost() || d.IsBridge() {
		return nil
	}
	if len(d.Routes) == 0 {
		return []Result{{Status: StatusWarning, Message: "Routing table is empty"}}
	}
	byProto := make(map[string]int)
	for _, r := range d.Routes {
		byProto[r.Protocol]++
	}
	protos := make([]string, 0, len(byProto))
	for p := range byProto {
		protos = append(protos, p)
	}
	sort.Strings(protos)
	parts := make([]string, 0, len(protos))
	for _, p := range protos {
		parts = append(parts, fmt.Sprintf("%s %d", p, byProto[p]))
	}
	return []Result{{Status: StatusOK, Message: fmt.Sprintf("%d routes (%s)", len(d.Routes), strings.Join(parts, ", "))}}
}
