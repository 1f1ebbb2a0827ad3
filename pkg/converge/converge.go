// Package converge recomputes the network-wide derived state of a device set:
// expired DHCP leases are dropped, OSPF adjacencies and shortest paths are
// rebuilt and every routing table is replaced wholesale.
//
// Converge always runs over the entire collection. There is no incremental
// mode: a link removal or reconfiguration on one device can change the tables
// of devices it is not cabled to.
package converge

import (
	"fmt"
	"sort"
	"time"

	"github.com/newtron-network/newtsim/pkg/fabric"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

// Summary describes one convergence pass.
type Summary struct {
	Devices       int `json:"devices"`
	Vertices      int `json:"vertices"`    // OSPF speakers
	Adjacencies   int `json:"adjacencies"` // undirected
	Routes        int `json:"routes"`      // across all tables
	LeasesExpired int `json:"leases_expired"`
	SkippedCables int `json:"skipped_cables"`
}

// Converge returns converged clones of devices. The input slice and devices
// are never modified. The pass is all-or-nothing: a failure anywhere returns
// an error and no devices.
func Converge(devices []*model.Device, cables []*model.Cable, now time.Time) (out []*model.Device, sum Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, sum = nil, Summary{}
			err = fmt.Errorf("convergence failed: %v", r)
		}
	}()

	work := model.CloneDevices(devices)
	sum.Devices = len(work)
	sum.LeasesExpired = CleanLeases(work, now)

	fab := fabric.Build(work, cables)
	sum.SkippedCables = fab.Skipped

	g := buildGraph(fab, work)
	sum.Vertices = len(g.vertices)
	sum.Adjacencies = g.adjacencies()

	for _, d := range work {
		d.OSPF.Neighbors = g.neighbors(d)
		d.Routes = buildTable(d, g, fab)
		sum.Routes += len(d.Routes)
	}

	util.WithComponent("converge").Debugf("converged %d devices: %d vertices, %d adjacencies, %d routes, %d leases expired, %d cables skipped",
		sum.Devices, sum.Vertices, sum.Adjacencies, sum.Routes, sum.LeasesExpired, sum.SkippedCables)
	return work, sum, nil
}

// CleanLeases removes every pool lease expiring at or before now and returns
// how many were removed. Leases expiring after now are left untouched. Hosts
// whose DHCP address expired lose it.
func CleanLeases(devices []*model.Device, now time.Time) int {
	removed := 0
	for _, d := range devices {
		for _, p := range d.DHCP.Pools {
			for addr, l := range p.Leases {
				if !l.Expires.After(now) {
					delete(p.Leases, addr)
					removed++
				}
			}
		}
		if d.IsHost() && d.Host.LeaseServer != "" && !d.Host.LeaseExpires.After(now) {
			releaseHost(d)
		}
	}
	return removed
}

func releaseHost(d *model.Device) {
	if len(d.Ports) > 0 {
		d.Ports[0].Config.IPAddress = ""
		d.Ports[0].Config.MaskLen = 0
	}
	d.Host.Gateway = ""
	d.Host.DNS = nil
	d.Host.LeaseServer = ""
	d.Host.LeaseExpires = time.Time{}
}

// buildTable derives the full routing table of d.
func buildTable(d *model.Device, g *graph, fab *fabric.Fabric) model.RoutingTable {
	t := make(model.RoutingTable)

	for _, p := range d.Ports {
		if !p.Config.Enabled || !p.HasAddress() {
			continue
		}
		t.Install(model.Route{Destination: p.Prefix(), Protocol: model.ProtoDirect, Interface: p.ID})
	}

	for _, sr := range d.StaticRoutes {
		if r, ok := resolveNextHop(d, fab, sr.Destination, sr.NextHop, model.ProtoStatic); ok {
			t.Install(r)
		}
	}

	if d.IsHost() && d.Host.Gateway != "" {
		if r, ok := resolveNextHop(d, fab, "0.0.0.0/0", d.Host.Gateway, model.ProtoStatic); ok {
			t.Install(r)
		}
	}

	if g.isVertex(d.ID) {
		for _, r := range g.ospfRoutes(d.ID) {
			t.Install(r)
		}
	}
	return t
}

// resolveNextHop builds a route via nextHop, which must sit on a connected
// subnet of d. The owning device is looked up on the egress segment.
func resolveNextHop(d *model.Device, fab *fabric.Fabric, dest, nextHop, proto string) (model.Route, bool) {
	addr, maskLen := util.SplitIPMask(dest)
	prefix := util.NetworkPrefix(addr, maskLen)
	if prefix == "" {
		return model.Route{}, false
	}
	for _, p := range d.Ports {
		if !p.Config.Enabled || !p.HasAddress() || !util.SameSubnet(p.Config.IPAddress, nextHop, p.Config.MaskLen) {
			continue
		}
		r := model.Route{
			Destination: prefix,
			Protocol:    proto,
			NextHopIP:   nextHop,
			Interface:   p.ID,
		}
		if n, ok := fab.Neighbor(fabric.PortRef{Device: d, Port: p}, nextHop); ok {
			r.NextHop = n.Device.ID
		}
		return r, true
	}
	return model.Route{}, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
