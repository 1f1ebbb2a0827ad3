// Package fabric resolves cables against devices and computes the layer-2
// broadcast segments of the topology. Bridging devices (switches, access
// points) join their switched ports per VLAN; routers, hosts and routed ports
// terminate segments.
package fabric

import (
	"sort"
	"strconv"

	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

// PortRef is a resolved device port.
type PortRef struct {
	Device *model.Device
	Port   *model.Port
}

// Key returns "device/port".
func (r PortRef) Key() string {
	return r.Device.ID + "/" + r.Port.ID
}

// Link is a cable whose both endpoints resolved.
type Link struct {
	Cable *model.Cable
	A, B  PortRef
}

// Fabric is the resolved layer-2 view of one device set. Queries compress
// union-find paths, so a Fabric must not be shared between goroutines.
type Fabric struct {
	devices map[string]*model.Device
	links   []Link
	peers   map[string]PortRef // port key -> cable peer

	parent map[string]string   // union-find over attachment nodes
	adj    map[string][]string // node graph, for path queries
	owner  map[string]string   // node -> device id

	// Skipped counts cables with an endpoint that did not resolve; Errors
	// holds one *util.ReferenceError per skipped cable.
	Skipped int
	Errors  []error
}

const untagged = -1

// Build resolves cables and computes segments. Cables referencing a missing
// device or port are skipped and counted, never fatal.
func Build(devices []*model.Device, cables []*model.Cable) *Fabric {
	f := &Fabric{
		devices: make(map[string]*model.Device, len(devices)),
		peers:   make(map[string]PortRef),
		parent:  make(map[string]string),
		adj:     make(map[string][]string),
		owner:   make(map[string]string),
	}
	for _, d := range devices {
		f.devices[d.ID] = d
	}

	for _, c := range cables {
		a, okA := f.resolve(c.A)
		b, okB := f.resolve(c.B)
		if !okA || !okB || a.Key() == b.Key() {
			f.Skipped++
			f.Errors = append(f.Errors, cableError(c, okA, okB))
			util.WithField("cable", c.ID).Debugf("skipping cable: %v", f.Errors[len(f.Errors)-1])
			continue
		}
		f.links = append(f.links, Link{Cable: c, A: a, B: b})
		f.peers[a.Key()] = b
		f.peers[b.Key()] = a
	}

	// Every terminating port is a node even when uncabled
	for _, d := range devices {
		for _, p := range d.Ports {
			if !bridged(d, p) {
				f.node(portNode(d, p), d.ID)
			}
		}
	}

	for _, l := range f.links {
		if !l.A.Port.Config.Enabled || !l.B.Port.Config.Enabled {
			continue
		}
		as, bs := f.attachments(l.A), f.attachments(l.B)
		for tag, an := range as {
			if bn, ok := bs[tag]; ok {
				f.union(an, bn)
				f.adj[an] = append(f.adj[an], bn)
				f.adj[bn] = append(f.adj[bn], an)
			}
		}
	}
	for k := range f.adj {
		sort.Strings(f.adj[k])
	}
	return f
}

func cableError(c *model.Cable, okA, okB bool) error {
	switch {
	case !okA:
		return util.NewReferenceError("cable", c.ID, "endpoint "+c.A.String()+" does not resolve")
	case !okB:
		return util.NewReferenceError("cable", c.ID, "endpoint "+c.B.String()+" does not resolve")
	}
	return util.NewReferenceError("cable", c.ID, "both ends on the same port")
}

func (f *Fabric) resolve(e model.Endpoint) (PortRef, bool) {
	d, ok := f.devices[e.Device]
	if !ok {
		return PortRef{}, false
	}
	p := d.Port(e.Port)
	if p == nil {
		return PortRef{}, false
	}
	return PortRef{Device: d, Port: p}, true
}

// bridged reports whether p joins its device's VLAN bridge.
func bridged(d *model.Device, p *model.Port) bool {
	return d.IsBridge() && p.IsSwitched()
}

func portNode(d *model.Device, p *model.Port) string {
	return "p:" + d.ID + "/" + p.ID
}

func vlanNode(d *model.Device, vlan int) string {
	return "s:" + d.ID + "/" + strconv.Itoa(vlan)
}

// attachments maps frame tags seen on the wire of ref to the node they
// enter: untagged frames and, on trunks, one entry per tagged VLAN.
func (f *Fabric) attachments(ref PortRef) map[int]string {
	d, p := ref.Device, ref.Port
	if !bridged(d, p) {
		return map[int]string{untagged: f.node(portNode(d, p), d.ID)}
	}
	out := map[int]string{untagged: f.node(vlanNode(d, p.NativeVLAN()), d.ID)}
	for _, v := range model.SortedVLANs(p.TaggedVLANs()) {
		out[v] = f.node(vlanNode(d, v), d.ID)
	}
	return out
}

func (f *Fabric) node(key, deviceID string) string {
	if _, ok := f.parent[key]; !ok {
		f.parent[key] = key
		f.owner[key] = deviceID
	}
	return key
}

func (f *Fabric) find(key string) string {
	for f.parent[key] != key {
		f.parent[key] = f.parent[f.parent[key]]
		key = f.parent[key]
	}
	return key
}

func (f *Fabric) union(a, b string) {
	ra, rb := f.find(a), f.find(b)
	if ra == rb {
		return
	}
	// Smaller key becomes root so segment ids are stable
	if rb < ra {
		ra, rb = rb, ra
	}
	f.parent[rb] = ra
}

// Links returns the resolved cables.
func (f *Fabric) Links() []Link {
	return f.links
}

// Device returns a device by id.
func (f *Fabric) Device(id string) *model.Device {
	return f.devices[id]
}

// Peer returns the port at the other end of the cable plugged into ref.
func (f *Fabric) Peer(deviceID, portID string) (PortRef, bool) {
	r, ok := f.peers[deviceID+"/"+portID]
	return r, ok
}

// Cabled reports whether a cable is plugged into the port.
func (f *Fabric) Cabled(deviceID, portID string) bool {
	_, ok := f.peers[deviceID+"/"+portID]
	return ok
}

// Segment returns the segment id of a terminating port. Bridged ports have no
// segment of their own.
func (f *Fabric) Segment(ref PortRef) (string, bool) {
	if bridged(ref.Device, ref.Port) {
		return "", false
	}
	key := portNode(ref.Device, ref.Port)
	if _, ok := f.parent[key]; !ok {
		return "", false
	}
	return f.find(key), true
}

// SameSegment reports whether two terminating ports share a broadcast domain.
func (f *Fabric) SameSegment(a, b PortRef) bool {
	sa, okA := f.Segment(a)
	sb, okB := f.Segment(b)
	return okA && okB && sa == sb
}

// Members returns the enabled terminating ports on the same segment as ref,
// excluding ref itself, ordered by device id then port id.
func (f *Fabric) Members(ref PortRef) []PortRef {
	seg, ok := f.Segment(ref)
	if !ok {
		return nil
	}
	var out []PortRef
	for _, d := range f.sortedDevices() {
		for _, p := range d.Ports {
			if d.ID == ref.Device.ID && p.ID == ref.Port.ID {
				continue
			}
			if !p.Config.Enabled || bridged(d, p) {
				continue
			}
			if s, ok := f.Segment(PortRef{Device: d, Port: p}); ok && s == seg {
				out = append(out, PortRef{Device: d, Port: p})
			}
		}
	}
	return out
}

// Neighbor finds the enabled terminating port holding ip on the segment of ref.
func (f *Fabric) Neighbor(ref PortRef, ip string) (PortRef, bool) {
	for _, m := range f.Members(ref) {
		if m.Port.Config.IPAddress == ip && m.Port.HasAddress() {
			return m, true
		}
	}
	return PortRef{}, false
}

// L2Path returns the device ids crossed from terminating port a to terminating
// port b, both ends included. It returns nil when they are not on one segment.
func (f *Fabric) L2Path(a, b PortRef) []string {
	if !f.SameSegment(a, b) {
		return nil
	}
	from, to := portNode(a.Device, a.Port), portNode(b.Device, b.Port)
	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			break
		}
		for _, next := range f.adj[cur] {
			if _, seen := prev[next]; !seen {
				prev[next] = cur
				queue = append(queue, next)
			}
		}
	}
	if _, ok := prev[to]; !ok {
		return nil
	}
	var nodes []string
	for n := to; n != ""; n = prev[n] {
		nodes = append(nodes, n)
	}
	var path []string
	for i := len(nodes) - 1; i >= 0; i-- {
		dev := f.owner[nodes[i]]
		if len(path) == 0 || path[len(path)-1] != dev {
			path = append(path, dev)
		}
	}
	return path
}

func (f *Fabric) sortedDevices() []*model.Device {
	out := make([]*model.Device, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
