package model

import (
	"sort"

	"github.com/newtron-network/newtsim/pkg/util"
)

// Route protocols
const (
	ProtoDirect = "direct"
	ProtoStatic = "static"
	ProtoOSPF   = "ospf"
)

// AdminDistance returns the route preference of a protocol; lower wins.
func AdminDistance(proto string) int {
	switch proto {
	case ProtoDirect:
		return 0
	case ProtoStatic:
		return 1
	case ProtoOSPF:
		return 110
	default:
		return 255
	}
}

// Route is one entry of a derived routing table.
type Route struct {
	Destination string `json:"destination"` // "a.b.c.d/n"
	Protocol    string `json:"protocol"`
	NextHop     string `json:"next_hop,omitempty"` // device id, "" for direct
	NextHopIP   string `json:"next_hop_ip,omitempty"`
	Interface   string `json:"interface,omitempty"` // egress port id
	Cost        int    `json:"cost"`
}

// Preference returns the admin distance of the route.
func (r Route) Preference() int {
	return AdminDistance(r.Protocol)
}

// Better reports whether r should replace o in a table: lower admin
// distance, then lower cost, then lower next-hop id.
func (r Route) Better(o Route) bool {
	if r.Preference() != o.Preference() {
		return r.Preference() < o.Preference()
	}
	if r.Cost != o.Cost {
		return r.Cost < o.Cost
	}
	return r.NextHop < o.NextHop
}

// RoutingTable is keyed by destination prefix. It is replaced wholesale on
// every convergence and never edited in place by the CLI.
type RoutingTable map[string]Route

// Install adds r unless an existing entry is better.
func (t RoutingTable) Install(r Route) {
	if cur, ok := t[r.Destination]; ok && !r.Better(cur) {
		return
	}
	t[r.Destination] = r
}

// Lookup performs a longest-prefix match.
func (t RoutingTable) Lookup(ip string) (Route, bool) {
	best, bestLen, found := Route{}, -1, false
	for prefix, r := range t {
		if !util.PrefixContains(prefix, ip) {
			continue
		}
		l := util.PrefixLen(prefix)
		if l > bestLen || (l == bestLen && r.Better(best)) {
			best, bestLen, found = r, l, true
		}
	}
	return best, found
}

// Sorted returns the routes ordered by network address then prefix length.
func (t RoutingTable) Sorted() []Route {
	out := make([]Route, 0, len(t))
	for _, r := range t {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, li := util.SplitIPMask(out[i].Destination)
		aj, lj := util.SplitIPMask(out[j].Destination)
		if ai != aj {
			return util.IPToUint32(ai) < util.IPToUint32(aj)
		}
		return li < lj
	})
	return out
}

// Clone returns a copy of the table.
func (t RoutingTable) Clone() RoutingTable {
	if t == nil {
		return nil
	}
	c := make(RoutingTable, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// StaticRoute is a configured static route.
type StaticRoute struct {
	Destination string `json:"destination" yaml:"destination"` // "a.b.c.d/n"
	NextHop     string `json:"next_hop" yaml:"next_hop"`       // next-hop IP
}

// OSPFConfig is the OSPF process of a device.
type OSPFConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	ProcessID int           `json:"process_id,omitempty" yaml:"process_id,omitempty"`
	RouterID  string        `json:"router_id,omitempty" yaml:"router_id,omitempty"`
	Networks  []OSPFNetwork `json:"networks,omitempty" yaml:"networks,omitempty"`

	// Derived by convergence
	Neighbors []Neighbor `json:"neighbors,omitempty" yaml:"-"`
}

// OSPFNetwork is a "network <addr> <wildcard> area <a>" statement.
type OSPFNetwork struct {
	Address string `json:"address" yaml:"address"`
	MaskLen int    `json:"mask_len" yaml:"mask_len"`
	Area    string `json:"area" yaml:"area"`
}

// Covers reports whether addr falls within the statement.
func (n OSPFNetwork) Covers(addr string) bool {
	return util.SameSubnet(n.Address, addr, n.MaskLen)
}

// Neighbor is a derived OSPF adjacency.
type Neighbor struct {
	DeviceID  string `json:"device_id"`
	Hostname  string `json:"hostname"`
	RouterID  string `json:"router_id,omitempty"`
	Address   string `json:"address,omitempty"`   // neighbor interface address
	Interface string `json:"interface"`           // local port id
	State     string `json:"state"`               // always "Full"
	Cost      int    `json:"cost"`
}

// Advertises reports whether an enabled, addressed port is covered by the
// network statements. With no statements every addressed port is advertised.
func (o *OSPFConfig) Advertises(p *Port) bool {
	if !p.Config.Enabled || !p.HasAddress() {
		return false
	}
	if len(o.Networks) == 0 {
		return true
	}
	for _, n := range o.Networks {
		if n.Covers(p.Config.IPAddress) {
			return true
		}
	}
	return false
}

func (o OSPFConfig) clone() OSPFConfig {
	c := o
	c.Networks = append([]OSPFNetwork(nil), o.Networks...)
	c.Neighbors = append([]Neighbor(nil), o.Neighbors...)
	return c
}
