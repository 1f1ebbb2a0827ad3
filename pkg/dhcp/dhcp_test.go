package dhcp

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/newtron-network/newtsim/pkg/fabric"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

var now = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func segment(pool *model.DHCPPool, enabled bool) (*fabric.Fabric, fabric.PortRef) {
	r1 := &model.Device{ID: "r1", Hostname: "R1", Type: model.DeviceRouter,
		Ports: []*model.Port{{ID: "p1", Name: "GE0/0/1", Config: model.PortConfig{Mode: model.PortModeRouted, Enabled: true, IPAddress: "192.168.10.1", MaskLen: 24}}},
		DHCP:  model.DHCPConfig{Enabled: enabled, Pools: []*model.DHCPPool{pool}}}
	pc := &model.Device{ID: "pc1", Hostname: "PC1", Type: model.DevicePC,
		Ports: []*model.Port{{ID: "eth0", Name: "eth0", Config: model.PortConfig{Mode: model.PortModeRouted, Enabled: true}}}}
	fab := fabric.Build([]*model.Device{r1, pc}, []*model.Cable{
		{ID: "c1", A: model.Endpoint{Device: "pc1", Port: "eth0"}, B: model.Endpoint{Device: "r1", Port: "p1"}},
	})
	return fab, fabric.PortRef{Device: pc, Port: pc.Ports[0]}
}

func lanPool() *model.DHCPPool {
	return &model.DHCPPool{
		Name: "lan", Network: "192.168.10.0", MaskLen: 24, Gateway: "192.168.10.1",
		DNS: []string{"8.8.8.8", "1.1.1.1"}, LeaseDays: 2, Domain: "lab.local",
		Excluded: []model.AddressRange{{Start: "192.168.10.2", End: "192.168.10.9"}},
	}
}

func TestExchange(t *testing.T) {
	fab, client := segment(lanPool(), true)
	srv, err := FindServer(fab, client)
	if err != nil {
		t.Fatalf("FindServer() error = %v", err)
	}
	if srv.Device.ID != "r1" || srv.Pool.Name != "lan" {
		t.Fatalf("server = %s/%s", srv.Device.ID, srv.Pool.Name)
	}

	g, err := srv.Exchange("02:00:00:00:00:01", "PC1", now, nil)
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	want := &Grant{
		Server:   "r1",
		ServerIP: "192.168.10.1",
		Pool:     "lan",
		MaskLen:  24,
		Gateway:  "192.168.10.1",
		DNS:      []string{"8.8.8.8", "1.1.1.1"},
		Domain:   "lab.local",
		Lease: model.Lease{
			Address:  "192.168.10.10",
			ClientID: "02:00:00:00:00:01",
			Hostname: "PC1",
			Expires:  now.Add(48 * time.Hour),
		},
	}
	if !reflect.DeepEqual(g, want) {
		t.Errorf("Exchange() =\n%+v\nwant\n%+v", g, want)
	}
	if len(srv.Pool.Leases) != 0 {
		t.Error("Exchange() mutated the pool")
	}
}

func TestAllocation(t *testing.T) {
	tests := []struct {
		name   string
		leases map[string]model.Lease
		inUse  func(string) bool
		want   string
	}{
		{"first free", nil, nil, "192.168.10.10"},
		{"skip held lease", map[string]model.Lease{
			"192.168.10.10": {Address: "192.168.10.10", ClientID: "other", Expires: now.Add(time.Hour)},
		}, nil, "192.168.10.11"},
		{"reuse expired lease", map[string]model.Lease{
			"192.168.10.10": {Address: "192.168.10.10", ClientID: "other", Expires: now},
		}, nil, "192.168.10.10"},
		{"same client keeps address", map[string]model.Lease{
			"192.168.10.50": {Address: "192.168.10.50", ClientID: "02:00:00:00:00:01", Expires: now.Add(time.Hour)},
		}, nil, "192.168.10.50"},
		{"skip static address", nil, func(ip string) bool { return ip == "192.168.10.10" }, "192.168.10.11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := lanPool()
			pool.Leases = tt.leases
			fab, client := segment(pool, true)
			srv, err := FindServer(fab, client)
			if err != nil {
				t.Fatal(err)
			}
			g, err := srv.Exchange("02:00:00:00:00:01", "PC1", now, tt.inUse)
			if err != nil {
				t.Fatalf("Exchange() error = %v", err)
			}
			if g.Lease.Address != tt.want {
				t.Errorf("address = %s, want %s", g.Lease.Address, tt.want)
			}
		})
	}
}

func TestPoolExhausted(t *testing.T) {
	pool := &model.DHCPPool{Name: "tiny", Network: "192.168.10.0", MaskLen: 30, Gateway: "192.168.10.1"}
	pool.Leases = map[string]model.Lease{
		"192.168.10.2": {Address: "192.168.10.2", ClientID: "x", Expires: now.Add(time.Hour)},
	}
	r1 := &model.Device{ID: "r1", Ports: []*model.Port{{ID: "p1", Config: model.PortConfig{Enabled: true, IPAddress: "192.168.10.1", MaskLen: 30}}},
		DHCP: model.DHCPConfig{Enabled: true, Pools: []*model.DHCPPool{pool}}}
	srv := &Server{Device: r1, Port: r1.Ports[0], Pool: pool}
	_, err := srv.Exchange("02:00:00:00:00:01", "PC1", now, nil)
	if !errors.Is(err, util.ErrPoolExhausted) {
		t.Errorf("Exchange() error = %v, want ErrPoolExhausted", err)
	}
}

func TestNoServer(t *testing.T) {
	fab, client := segment(lanPool(), false)
	if _, err := FindServer(fab, client); !errors.Is(err, ErrNoServer) {
		t.Errorf("FindServer() error = %v, want ErrNoServer", err)
	}
}

func TestApplyAndBindings(t *testing.T) {
	pool := lanPool()
	server := &model.Device{ID: "r1", DHCP: model.DHCPConfig{Enabled: true, Pools: []*model.DHCPPool{pool}}}

	g := &Grant{Server: "r1", Pool: "lan", Lease: model.Lease{Address: "192.168.10.11", ClientID: "m1", Expires: now.Add(time.Hour)}}
	if err := Apply(server, g); err != nil {
		t.Fatal(err)
	}
	g2 := &Grant{Server: "r1", Pool: "lan", Lease: model.Lease{Address: "192.168.10.10", ClientID: "m2", Expires: now.Add(time.Hour)}}
	if err := Apply(server, g2); err != nil {
		t.Fatal(err)
	}

	b := Bindings(server, now)
	if len(b) != 2 || b[0].Lease.Address != "192.168.10.10" || b[1].Lease.Address != "192.168.10.11" {
		t.Errorf("Bindings() = %+v", b)
	}

	// Renewal at a new address replaces the old binding
	g.Lease.Address = "192.168.10.20"
	if err := Apply(server, g); err != nil {
		t.Fatal(err)
	}
	if _, ok := pool.Leases["192.168.10.11"]; ok {
		t.Error("old lease kept after renewal")
	}

	if err := Apply(server, &Grant{Pool: "lan", Released: true, Lease: model.Lease{ClientID: "m1"}}); err != nil {
		t.Fatal(err)
	}
	if len(pool.Leases) != 1 {
		t.Errorf("leases after release = %v", pool.Leases)
	}

	if err := Apply(server, &Grant{Pool: "nope"}); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("Apply(unknown pool) error = %v", err)
	}
}
