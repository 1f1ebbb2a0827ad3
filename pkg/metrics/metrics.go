// Package metrics exposes router activity and topology state to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/router"
)

// Source is the topology state read on each scrape.
type Source interface {
	TopologyName() string
	Devices() []*model.Device
}

// Metrics is a router observer plus a scrape-time collector of the topology.
type Metrics struct {
	registry *prometheus.Registry

	commands      *prometheus.CounterVec
	commits       *prometheus.CounterVec
	leasesExpired prometheus.Counter
	duration      *prometheus.HistogramVec
}

// New creates the metrics of one router. src may be nil when only the
// command counters are wanted.
func New(src Source) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newtsim_commands_total",
			Help: "Console commands executed.",
		}, []string{"topology", "backend", "result"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newtsim_commits_total",
			Help: "State commits, by trigger.",
		}, []string{"topology", "trigger"}),
		leasesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newtsim_dhcp_leases_expired_total",
			Help: "DHCP leases released by convergence.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newtsim_command_duration_seconds",
			Help:    "Command execution time including convergence.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
		}, []string{"backend"}),
	}
	m.registry.MustRegister(m.commands, m.commits, m.leasesExpired, m.duration)
	if src != nil {
		m.registry.MustRegister(newCollector(src, time.Now))
	}
	return m
}

// Committed implements router.Observer.
func (m *Metrics) Committed(c router.Commit) {
	m.leasesExpired.Add(float64(c.Summary.LeasesExpired))
	o := c.Outcome
	if o == nil {
		m.commits.WithLabelValues(c.Topology, "sweep").Inc()
		return
	}
	result := "rejected"
	if o.Accepted {
		result = "accepted"
		m.commits.WithLabelValues(c.Topology, "command").Inc()
	}
	m.commands.WithLabelValues(c.Topology, o.Backend, result).Inc()
	m.duration.WithLabelValues(o.Backend).Observe(o.Duration.Seconds())
}

// Registry returns the registry holding every metric.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// topologyCollector implements prometheus.Collector, reading the router on
// each scrape.
type topologyCollector struct {
	src Source
	now func() time.Time

	devices   *prometheus.Desc
	routes    *prometheus.Desc
	neighbors *prometheus.Desc
	leases    *prometheus.Desc
	portsUp   *prometheus.Desc
}

func newCollector(src Source, now func() time.Time) *topologyCollector {
	return &topologyCollector{
		src: src,
		now: now,
		devices: prometheus.NewDesc(
			"newtsim_devices",
			"Devices in the topology.",
			[]string{"topology"}, nil,
		),
		routes: prometheus.NewDesc(
			"newtsim_routes",
			"Routing table entries per device and protocol.",
			[]string{"topology", "device", "protocol"}, nil,
		),
		neighbors: prometheus.NewDesc(
			"newtsim_ospf_neighbors",
			"OSPF adjacencies per device.",
			[]string{"topology", "device"}, nil,
		),
		leases: prometheus.NewDesc(
			"newtsim_dhcp_leases_active",
			"Unexpired DHCP leases per server.",
			[]string{"topology", "device"}, nil,
		),
		portsUp: prometheus.NewDesc(
			"newtsim_ports_up",
			"Administratively enabled ports per device.",
			[]string{"topology", "device"}, nil,
		),
	}
}

func (c *topologyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.devices
	ch <- c.routes
	ch <- c.neighbors
	ch <- c.leases
	ch <- c.portsUp
}

func (c *topologyCollector) Collect(ch chan<- prometheus.Metric) {
	topo := c.src.TopologyName()
	devices := c.src.Devices()
	now := c.now()

	ch <- prometheus.MustNewConstMetric(c.devices, prometheus.GaugeValue, float64(len(devices)), topo)
	for _, d := range devices {
		byProto := make(map[string]int)
		for _, r := range d.Routes {
			byProto[r.Protocol]++
		}
		for proto, n := range byProto {
			ch <- prometheus.MustNewConstMetric(c.routes, prometheus.GaugeValue, float64(n), topo, d.ID, proto)
		}
		if d.OSPF.Enabled {
			ch <- prometheus.MustNewConstMetric(c.neighbors, prometheus.GaugeValue, float64(len(d.OSPF.Neighbors)), topo, d.ID)
		}
		if d.DHCP.Enabled {
			ch <- prometheus.MustNewConstMetric(c.leases, prometheus.GaugeValue, float64(d.ActiveLeases(now)), topo, d.ID)
		}
		up := 0
		for _, p := range d.Ports {
			if p.Config.Enabled {
				up++
			}
		}
		ch <- prometheus.MustNewConstMetric(c.portsUp, prometheus.GaugeValue, float64(up), topo, d.ID)
	}
}
