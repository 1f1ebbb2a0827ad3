package converge

import (
	"container/heap"

	"github.com/newtron-network/newtsim/pkg/fabric"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

// edge is the best adjacency from one vertex to another.
type edge struct {
	cost   int
	local  *model.Port
	remote *model.Port
}

// graph is the OSPF topology: one vertex per OSPF-enabled device, one edge per
// neighbor pair.
type graph struct {
	vertices map[string]*model.Device
	edges    map[string]map[string]edge // from -> to -> best edge
	spf      map[string]*shortestPaths  // memoized per source
}

func buildGraph(fab *fabric.Fabric, devices []*model.Device) *graph {
	g := &graph{
		vertices: make(map[string]*model.Device),
		edges:    make(map[string]map[string]edge),
		spf:      make(map[string]*shortestPaths),
	}
	for _, d := range devices {
		if d.OSPF.Enabled {
			g.vertices[d.ID] = d
			g.edges[d.ID] = make(map[string]edge)
		}
	}

	for _, id := range sortedKeys(g.vertices) {
		d := g.vertices[id]
		for _, p := range d.Ports {
			if !p.Config.Enabled {
				continue
			}
			for _, m := range fab.Members(fabric.PortRef{Device: d, Port: p}) {
				if _, ok := g.vertices[m.Device.ID]; !ok || m.Device.ID == id {
					continue
				}
				if !compatible(p, m.Port) {
					continue
				}
				e := edge{cost: max(d.LinkCost(p), m.Device.LinkCost(m.Port)), local: p, remote: m.Port}
				if cur, ok := g.edges[id][m.Device.ID]; ok && !e.better(cur) {
					continue
				}
				g.edges[id][m.Device.ID] = e
			}
		}
	}
	return g
}

// compatible reports whether two ports on one segment can form an adjacency:
// when both are addressed they must share the subnet.
func compatible(a, b *model.Port) bool {
	if !a.HasAddress() || !b.HasAddress() {
		return true
	}
	return a.Config.MaskLen == b.Config.MaskLen &&
		util.SameSubnet(a.Config.IPAddress, b.Config.IPAddress, a.Config.MaskLen)
}

// better prefers the cheaper edge, then the lower local port name.
func (e edge) better(o edge) bool {
	if e.cost != o.cost {
		return e.cost < o.cost
	}
	return e.local.Name < o.local.Name
}

func (g *graph) isVertex(id string) bool {
	_, ok := g.vertices[id]
	return ok
}

func (g *graph) adjacencies() int {
	n := 0
	for from, tos := range g.edges {
		for to := range tos {
			if from < to {
				n++
			} else if _, back := g.edges[to][from]; !back {
				n++
			}
		}
	}
	return n
}

// neighbors lists the derived OSPF neighbors of d, ordered by device id.
func (g *graph) neighbors(d *model.Device) []model.Neighbor {
	tos, ok := g.edges[d.ID]
	if !ok {
		return nil
	}
	var out []model.Neighbor
	for _, id := range sortedKeys(tos) {
		e := tos[id]
		peer := g.vertices[id]
		out = append(out, model.Neighbor{
			DeviceID:  id,
			Hostname:  peer.Hostname,
			RouterID:  RouterID(peer),
			Address:   e.remote.Config.IPAddress,
			Interface: e.local.ID,
			State:     "Full",
			Cost:      e.cost,
		})
	}
	return out
}

// RouterID returns the configured OSPF router id, or the highest enabled
// interface address.
func RouterID(d *model.Device) string {
	if d.OSPF.RouterID != "" {
		return d.OSPF.RouterID
	}
	best := ""
	for _, p := range d.Ports {
		if p.Config.Enabled && p.HasAddress() && util.IPToUint32(p.Config.IPAddress) > util.IPToUint32(best) {
			best = p.Config.IPAddress
		}
	}
	return best
}

// shortestPaths is the result of one Dijkstra run.
type shortestPaths struct {
	dist  map[string]int
	first map[string]string // first-hop vertex on the chosen path
}

type item struct {
	id    string
	dist  int
	first string
}

// queue is a min-heap ordered by distance, first hop, then vertex id.
type queue []item

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	if q[i].first != q[j].first {
		return q[i].first < q[j].first
	}
	return q[i].id < q[j].id
}
func (q queue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x interface{}) { *q = append(*q, x.(item)) }
func (q *queue) Pop() interface{} {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// dijkstra computes single-source shortest paths from src. Equal-cost paths
// are resolved toward the lowest first-hop device id.
func (g *graph) dijkstra(src string) *shortestPaths {
	if sp, ok := g.spf[src]; ok {
		return sp
	}
	sp := &shortestPaths{
		dist:  map[string]int{src: 0},
		first: map[string]string{src: ""},
	}
	done := make(map[string]bool)
	q := &queue{{id: src}}
	for q.Len() > 0 {
		cur := heap.Pop(q).(item)
		if done[cur.id] {
			continue
		}
		done[cur.id] = true
		for _, to := range sortedKeys(g.edges[cur.id]) {
			if done[to] {
				continue
			}
			nd := cur.dist + g.edges[cur.id][to].cost
			first := cur.first
			if cur.id == src {
				first = to
			}
			d, seen := sp.dist[to]
			if !seen || nd < d || (nd == d && first < sp.first[to]) {
				sp.dist[to] = nd
				sp.first[to] = first
				heap.Push(q, item{id: to, dist: nd, first: first})
			}
		}
	}
	g.spf[src] = sp
	return sp
}

// ospfRoutes returns, for every network advertised by a reachable vertex, the
// route from src. Unreachable vertices contribute nothing.
func (g *graph) ospfRoutes(src string) []model.Route {
	sp := g.dijkstra(src)
	best := make(map[string]model.Route)
	for _, id := range sortedKeys(sp.dist) {
		if id == src {
			continue
		}
		hop := g.edges[src][sp.first[id]]
		adv := g.vertices[id]
		for _, p := range adv.Ports {
			if !adv.OSPF.Advertises(p) {
				continue
			}
			r := model.Route{
				Destination: p.Prefix(),
				Protocol:    model.ProtoOSPF,
				NextHop:     sp.first[id],
				NextHopIP:   hop.remote.Config.IPAddress,
				Interface:   hop.local.ID,
				Cost:        sp.dist[id],
			}
			if cur, ok := best[r.Destination]; ok && !r.Better(cur) {
				continue
			}
			best[r.Destination] = r
		}
	}
	out := make([]model.Route, 0, len(best))
	for _, k := range sortedKeys(best) {
		out = append(out, best[k])
	}
	return out
}
