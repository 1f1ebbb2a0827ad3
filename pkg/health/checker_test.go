package health

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/newtron-network/newtsim/internal/testutil"
	"github.com/newtron-network/newtsim/pkg/converge"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

type fakeLab struct {
	devices []*model.Device
	cables  []*model.Cable
}

func (l fakeLab) Devices() []*model.Device { return l.devices }
func (l fakeLab) Cables() []*model.Cable   { return l.cables }

func converged(t *testing.T, topo *model.Topology) fakeLab {
	t.Helper()
	devices, _, err := converge.Converge(topo.Devices, topo.Cables, testutil.Now)
	if err != nil {
		t.Fatalf("Converge() error = %v", err)
	}
	return fakeLab{devices: devices, cables: topo.Cables}
}

func newChecker() *Checker {
	return NewChecker().WithClock(func() time.Time { return testutil.Now })
}

func messages(r *Report) map[string]Status {
	out := make(map[string]Status)
	for _, res := range r.Results {
		out[res.Check+": "+res.Message] = res.Status
	}
	return out
}

func TestListChecks(t *testing.T) {
	want := []string{"bgp", "dhcp", "interfaces", "ospf", "routes"}
	if got := NewChecker().ListChecks(); !reflect.DeepEqual(got, want) {
		t.Errorf("ListChecks() = %v, want %v", got, want)
	}
}

func TestWorst(t *testing.T) {
	tests := []struct{ a, b, want Status }{
		{StatusOK, StatusOK, StatusOK},
		{StatusOK, StatusUnknown, StatusUnknown},
		{StatusWarning, StatusUnknown, StatusWarning},
		{StatusCritical, StatusWarning, StatusCritical},
	}
	for _, tt := range tests {
		if got := Worst(tt.a, tt.b); got != tt.want {
			t.Errorf("Worst(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRunHealthyLab(t *testing.T) {
	lab := converged(t, testutil.Lab())
	tests := []struct {
		device string
		want   map[string]Status
	}{
		{"r1", map[string]Status{
			"interfaces: 1 cabled ports up":       StatusOK,
			"dhcp: pool lan: 0/254 leases active": StatusOK,
			"routes: 1 routes (direct 1)":         StatusOK,
		}},
		{"sw1", map[string]Status{"interfaces: 2 cabled ports up": StatusOK}},
		{"pc1", map[string]Status{"interfaces: 1 cabled ports up": StatusOK}},
	}
	for _, tt := range tests {
		t.Run(tt.device, func(t *testing.T) {
			r, err := newChecker().Run(context.Background(), lab, tt.device)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := messages(r); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("results = %v, want %v", got, tt.want)
			}
			if r.Overall != StatusOK || r.Device != tt.device || !r.Timestamp.Equal(testutil.Now) {
				t.Errorf("report = %+v", r)
			}
		})
	}
}

func TestShutPortWarns(t *testing.T) {
	topo := testutil.Lab()
	topo.Device("r1").Port("p1").Config.Enabled = false
	lab := converged(t, topo)

	r, err := newChecker().RunCheck(context.Background(), lab, "sw1", "interfaces")
	if err != nil {
		t.Fatalf("RunCheck() error = %v", err)
	}
	if r.Overall != StatusWarning || len(r.Results) != 1 {
		t.Fatalf("report = %+v", r)
	}
	down, _ := r.Results[0].Details.([]string)
	if len(down) != 1 || !strings.Contains(down[0], "peer R1 GigabitEthernet0/0/1 is shut down") {
		t.Errorf("details = %v", r.Results[0].Details)
	}
}

func TestDHCPPoolUsage(t *testing.T) {
	topo := testutil.Lab()
	pool := topo.Device("r1").DHCP.Pools[0]
	pool.MaskLen = 30 // two hosts
	pool.Leases = map[string]model.Lease{
		"192.168.1.1": {Address: "192.168.1.1", Expires: testutil.Now.Add(time.Hour)},
		"192.168.1.2": {Address: "192.168.1.2", Expires: testutil.Now.Add(-time.Hour)},
	}
	lab := fakeLab{devices: topo.Devices, cables: topo.Cables}
	c := newChecker()

	r, err := c.RunCheck(context.Background(), lab, "r1", "dhcp")
	if err != nil {
		t.Fatal(err)
	}
	if r.Results[0].Message != "pool lan: 1/2 leases active" || r.Overall != StatusOK {
		t.Errorf("half full = %+v", r.Results[0])
	}

	pool.Leases["192.168.1.2"] = model.Lease{Address: "192.168.1.2", Expires: testutil.Now.Add(time.Hour)}
	r, _ = c.RunCheck(context.Background(), lab, "r1", "dhcp")
	if r.Overall != StatusCritical {
		t.Errorf("full pool overall = %s, want critical", r.Overall)
	}
}

func TestBGPPeers(t *testing.T) {
	topo := testutil.Lab()
	r1 := topo.Device("r1")
	r1.BGP = &model.BGPConfig{ASN: 65001, Peers: []*model.BGPPeer{
		{Address: "10.9.9.9", RemoteAS: 65002},
	}}
	pc1 := topo.Device("pc1")
	pc1.Ports[0].Config.IPAddress, pc1.Ports[0].Config.MaskLen = "192.168.1.10", 24
	lab := converged(t, topo)
	c := newChecker()

	r, _ := c.RunCheck(context.Background(), lab, "r1", "bgp")
	if r.Overall != StatusCritical || !strings.Contains(r.Results[0].Message, "address not assigned") {
		t.Errorf("unknown peer = %+v", r.Results)
	}

	r1 = model.FindDevice(lab.devices, "r1")
	r1.BGP.Peers[0].Address = "192.168.1.10"
	r, _ = c.RunCheck(context.Background(), lab, "r1", "bgp")
	if !strings.Contains(r.Results[0].Message, "PC1 runs no BGP") {
		t.Errorf("non-BGP peer = %+v", r.Results)
	}

	model.FindDevice(lab.devices, "pc1").BGP = &model.BGPConfig{ASN: 65002}
	r, _ = c.RunCheck(context.Background(), lab, "r1", "bgp")
	if r.Overall != StatusOK {
		t.Errorf("reachable peer = %+v", r.Results)
	}
}

func TestOSPFWithoutNeighbors(t *testing.T) {
	topo := testutil.Lab()
	topo.Device("r1").OSPF.Enabled = true
	lab := converged(t, topo)

	r, err := newChecker().RunCheck(context.Background(), lab, "r1", "ospf")
	if err != nil {
		t.Fatal(err)
	}
	if r.Overall != StatusWarning || r.Results[0].Message != "No OSPF neighbors on 1 advertised interfaces" {
		t.Errorf("results = %+v", r.Results)
	}
}

func TestRunErrors(t *testing.T) {
	lab := converged(t, testutil.Lab())
	c := newChecker()
	if _, err := c.Run(context.Background(), lab, "nope"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("unknown device error = %v", err)
	}
	if _, err := c.RunCheck(context.Background(), lab, "r1", "vxlan"); err == nil || !strings.Contains(err.Error(), "unknown check") {
		t.Errorf("unknown check error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Run(ctx, lab, "r1"); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled error = %v", err)
	}
}
