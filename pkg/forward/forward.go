// Package forward walks simulated ICMP packets hop by hop through converged
// routing tables and the layer-2 fabric. It never modifies the devices it is
// given.
package forward

import (
	"github.com/newtron-network/newtsim/pkg/fabric"
	"github.com/newtron-network/newtsim/pkg/model"
)

// MaxHops bounds a trace; a routing loop ends in a TTL drop.
const MaxHops = 30

// Drop reasons
const (
	ReasonNoSource    = "no source address"
	ReasonNoRoute     = "no route to host"
	ReasonPortDown    = "egress interface down"
	ReasonUnreachable = "destination host unreachable"
	ReasonTTL         = "TTL exceeded"
	ReasonFiltered    = "administratively prohibited"
)

// Tracer traces packets over one device set.
type Tracer struct {
	fab *fabric.Fabric
}

// New returns a tracer over devices and cables.
func New(devices []*model.Device, cables []*model.Cable) *Tracer {
	return &Tracer{fab: fabric.Build(devices, cables)}
}

// Trace follows an echo request from source to dst and, when it arrives, the
// echo reply back.
func (t *Tracer) Trace(sourceID, dst string) *model.PacketTrace {
	tr := &model.PacketTrace{Source: sourceID, Destination: dst}
	src := t.fab.Device(sourceID)
	if src == nil {
		return tr
	}

	srcIP := sourceAddress(src, dst)
	tr.SourceIP = srcIP
	if srcIP == "" {
		tr.Hops = []model.Hop{{Device: src.ID, Action: model.HopDrop, Reason: ReasonNoSource}}
		return tr
	}

	hops, target, ok := t.walk(src, nil, srcIP, dst)
	tr.Hops = hops
	if !ok {
		return tr
	}
	reply, _, ok := t.walk(target, nil, dst, srcIP)
	tr.Reply = reply
	tr.Success = ok
	return tr
}

// sourceAddress picks the address of the egress port toward dst, falling back
// to the first enabled address.
func sourceAddress(d *model.Device, dst string) string {
	if r, ok := d.Routes.Lookup(dst); ok {
		if p := d.PortByID(r.Interface); p != nil && p.Config.Enabled && p.HasAddress() {
			return p.Config.IPAddress
		}
	}
	return d.PrimaryAddress()
}

// walk routes a packet from src toward dst, starting at cur. It returns the
// hops, the device that accepted the packet and whether it was delivered.
func (t *Tracer) walk(cur *model.Device, ingress *model.Port, src, dst string) ([]model.Hop, *model.Device, bool) {
	pkt := model.Packet{Protocol: "icmp", Source: src, Dest: dst}
	var hops []model.Hop
	for ttl := 0; ttl < MaxHops; ttl++ {
		hop := model.Hop{Device: cur.ID}
		if ingress != nil {
			hop.Ingress = ingress.ID
			if !permitted(cur, ingress.Config.ACLIn, pkt) {
				return append(hops, drop(hop, ReasonFiltered)), nil, false
			}
		}

		if owns(cur, dst) {
			hop.Action = model.HopDeliver
			return append(hops, hop), cur, true
		}
		if cur.IsHost() && ingress != nil {
			return append(hops, drop(hop, ReasonUnreachable)), nil, false
		}

		route, ok := cur.Routes.Lookup(dst)
		if !ok {
			return append(hops, drop(hop, ReasonNoRoute)), nil, false
		}
		egress := cur.PortByID(route.Interface)
		if egress == nil || !egress.Config.Enabled {
			return append(hops, drop(hop, ReasonPortDown)), nil, false
		}
		hop.Egress = egress.ID
		if !permitted(cur, egress.Config.ACLOut, pkt) {
			return append(hops, drop(hop, ReasonFiltered)), nil, false
		}

		nextIP := route.NextHopIP
		if route.Protocol == model.ProtoDirect || nextIP == "" {
			nextIP = dst
		}
		from := fabric.PortRef{Device: cur, Port: egress}
		next, ok := t.fab.Neighbor(from, nextIP)
		if !ok {
			return append(hops, drop(hop, ReasonUnreachable)), nil, false
		}

		if len(hops) == 0 {
			hop.Action = model.HopOriginate
		} else {
			hop.Action = model.HopForward
		}
		hops = append(hops, hop)

		path := t.fab.L2Path(from, next)
		for i := 1; i+1 < len(path); i++ {
			hops = append(hops, model.Hop{Device: path[i], Action: model.HopSwitch})
		}
		cur, ingress = next.Device, next.Port
	}
	return append(hops, model.Hop{Device: cur.ID, Action: model.HopDrop, Reason: ReasonTTL}), nil, false
}

// permitted applies the access list bound to a port. An unbound or missing
// list lets everything through.
func permitted(d *model.Device, aclID string, pkt model.Packet) bool {
	if aclID == "" {
		return true
	}
	acl := d.ACL(aclID)
	if acl == nil {
		return true
	}
	ok, _ := acl.Permits(d, pkt)
	return ok
}

func owns(d *model.Device, ip string) bool {
	p := d.PortWithAddress(ip)
	return p != nil && p.Config.Enabled
}

func drop(h model.Hop, reason string) model.Hop {
	h.Action = model.HopDrop
	h.Reason = reason
	return h
}
