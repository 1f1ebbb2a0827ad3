package fabric

import (
	"sort"

	"github.com/newtron-network/newtsim/pkg/model"
)

// Spanning tree port roles
const (
	RoleRoot       = "Root"
	RoleDesignated = "Designated"
	RoleAlternate  = "Alternate"
	RoleDisabled   = "Disabled"
)

// Spanning tree port states
const (
	StateForwarding = "Forwarding"
	StateDiscarding = "Discarding"
)

// STPPort is the computed spanning tree state of one bridged port.
type STPPort struct {
	Port             *model.Port
	Role             string
	State            string
	Cost             int
	DesignatedBridge string // bridge id of the designated bridge of the link
}

// SpanningTree is the converged tree of every STP domain in the fabric. A
// domain is a set of STP-enabled bridges joined by enabled switched links;
// each elects the bridge with the lowest (priority, MAC) as root.
type SpanningTree struct {
	root     map[string]*model.Device // bridge id -> root of its domain
	rootCost map[string]int
	ports    map[string]STPPort // port key -> state
}

type stpEdge struct {
	local, remote PortRef
}

func stpBridge(d *model.Device) bool {
	return d.IsBridge() && d.STP.Enabled
}

// bridgeLess orders bridges by priority, then MAC.
func bridgeLess(a, b *model.Device) bool {
	pa, pb := a.STP.BridgePriority(), b.STP.BridgePriority()
	if pa != pb {
		return pa < pb
	}
	ma, mb := a.BridgeMAC(), b.BridgeMAC()
	if ma != mb {
		return ma < mb
	}
	return a.ID < b.ID
}

// SpanningTree computes root bridges, root path costs and port roles. The
// result is informational: segments are not pruned by blocked ports.
func (f *Fabric) SpanningTree() *SpanningTree {
	t := &SpanningTree{
		root:     make(map[string]*model.Device),
		rootCost: make(map[string]int),
		ports:    make(map[string]STPPort),
	}

	var bridges []*model.Device
	for _, d := range f.sortedDevices() {
		if stpBridge(d) {
			bridges = append(bridges, d)
		}
	}
	sort.SliceStable(bridges, func(i, j int) bool { return bridgeLess(bridges[i], bridges[j]) })

	edges := make(map[string][]stpEdge)
	for _, l := range f.links {
		if !f.stpLink(l) {
			continue
		}
		edges[l.A.Device.ID] = append(edges[l.A.Device.ID], stpEdge{local: l.A, remote: l.B})
		edges[l.B.Device.ID] = append(edges[l.B.Device.ID], stpEdge{local: l.B, remote: l.A})
	}

	// Lowest unassigned bridge roots a new domain; relax costs over the
	// receiving port of each link.
	for _, b := range bridges {
		if _, done := t.root[b.ID]; done {
			continue
		}
		t.root[b.ID] = b
		t.rootCost[b.ID] = 0
		queue := []*model.Device{b}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, e := range edges[u.ID] {
				v := e.remote.Device
				cost := t.rootCost[u.ID] + e.remote.Port.STPPathCost()
				if cur, seen := t.rootCost[v.ID]; seen && cur <= cost {
					continue
				}
				t.root[v.ID] = b
				t.rootCost[v.ID] = cost
				queue = append(queue, v)
			}
		}
	}

	for _, d := range bridges {
		rootPort := t.electRootPort(d, edges[d.ID])
		for _, p := range d.Ports {
			if !bridged(d, p) {
				continue
			}
			ref := PortRef{Device: d, Port: p}
			st := STPPort{Port: p, Role: RoleDesignated, State: StateForwarding, Cost: p.STPPathCost(), DesignatedBridge: d.BridgeID()}
			switch {
			case !p.Config.Enabled:
				st.Role, st.State = RoleDisabled, StateDiscarding
			case rootPort != nil && rootPort.Key() == ref.Key():
				st.Role = RoleRoot
				if peer, ok := f.Peer(d.ID, p.ID); ok {
					st.DesignatedBridge = peer.Device.BridgeID()
				}
			case p.Config.EdgePort:
			default:
				for _, e := range edges[d.ID] {
					if e.local.Key() != ref.Key() {
						continue
					}
					if !t.designated(e.local, e.remote) {
						st.Role, st.State = RoleAlternate, StateDiscarding
						st.DesignatedBridge = e.remote.Device.BridgeID()
					}
				}
			}
			t.ports[ref.Key()] = st
		}
	}
	return t
}

// stpLink reports whether a cable carries BPDUs between two STP bridges.
func (f *Fabric) stpLink(l Link) bool {
	for _, r := range []PortRef{l.A, l.B} {
		if !stpBridge(r.Device) || !bridged(r.Device, r.Port) || !r.Port.Config.Enabled {
			return false
		}
	}
	return true
}

// electRootPort picks the port of d with the best path to the root: lowest
// cost, then lowest upstream bridge, then lowest local port id.
func (t *SpanningTree) electRootPort(d *model.Device, edges []stpEdge) *PortRef {
	if t.root[d.ID] == d {
		return nil
	}
	var best *PortRef
	bestCost := 0
	var bestUp *model.Device
	for i := range edges {
		e := edges[i]
		up := e.remote.Device
		if t.root[up.ID] != t.root[d.ID] {
			continue
		}
		cost := t.rootCost[up.ID] + e.local.Port.STPPathCost()
		better := best == nil || cost < bestCost ||
			(cost == bestCost && up != bestUp && bridgeLess(up, bestUp)) ||
			(cost == bestCost && up == bestUp && e.local.Port.ID < best.Port.ID)
		if better {
			ref := e.local
			best, bestCost, bestUp = &ref, cost, up
		}
	}
	return best
}

// designated reports whether local wins the designated election of its link.
func (t *SpanningTree) designated(local, remote PortRef) bool {
	lc, rc := t.rootCost[local.Device.ID], t.rootCost[remote.Device.ID]
	if lc != rc {
		return lc < rc
	}
	if local.Device != remote.Device {
		return bridgeLess(local.Device, remote.Device)
	}
	return local.Port.ID < remote.Port.ID
}

// Root returns the root bridge of the domain d belongs to.
func (t *SpanningTree) Root(d *model.Device) (*model.Device, bool) {
	r, ok := t.root[d.ID]
	return r, ok
}

// RootCost returns the path cost from d to its root bridge.
func (t *SpanningTree) RootCost(d *model.Device) int {
	return t.rootCost[d.ID]
}

// Port returns the computed state of a bridged port.
func (t *SpanningTree) Port(d *model.Device, p *model.Port) (STPPort, bool) {
	st, ok := t.ports[d.ID+"/"+p.ID]
	return st, ok
}
