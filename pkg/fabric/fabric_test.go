package fabric

import (
	"errors"
	"reflect"
	"testing"

	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

func routed(id, name, ip string, mask int) *model.Port {
	return &model.Port{ID: id, Name: name, Config: model.PortConfig{Mode: model.PortModeRouted, Enabled: true, IPAddress: ip, MaskLen: mask}}
}

func access(id string, vlan int) *model.Port {
	return &model.Port{ID: id, Name: "Ethernet" + id, Config: model.PortConfig{Mode: model.PortModeAccess, VLAN: vlan, Enabled: true}}
}

func trunk(id string, vlans ...int) *model.Port {
	return &model.Port{ID: id, Name: "Ethernet" + id, Config: model.PortConfig{Mode: model.PortModeTrunk, AllowedVLANs: vlans, Enabled: true}}
}

func cable(id, ad, ap, bd, bp string) *model.Cable {
	return &model.Cable{ID: id, A: model.Endpoint{Device: ad, Port: ap}, B: model.Endpoint{Device: bd, Port: bp}}
}

// Two hosts per VLAN behind two switches joined by a trunk:
//
//	pc10a - sw1 ==trunk(10,20)== sw2 - pc10b
//	pc20a - sw1                  sw2 - pc20b
func vlanTopology(trunkVLANs ...int) ([]*model.Device, []*model.Cable) {
	host := func(id, ip string) *model.Device {
		return &model.Device{ID: id, Type: model.DevicePC, Ports: []*model.Port{routed("eth0", "Ethernet0", ip, 24)}}
	}
	sw1 := &model.Device{ID: "sw1", Type: model.DeviceSwitch, Ports: []*model.Port{access("1", 10), access("2", 20), trunk("24", trunkVLANs...)}}
	sw2 := &model.Device{ID: "sw2", Type: model.DeviceSwitch, Ports: []*model.Port{access("1", 10), access("2", 20), trunk("24", trunkVLANs...)}}
	devices := []*model.Device{
		host("pc10a", "10.0.10.1"), host("pc20a", "10.0.20.1"),
		host("pc10b", "10.0.10.2"), host("pc20b", "10.0.20.2"),
		sw1, sw2,
	}
	cables := []*model.Cable{
		cable("c1", "pc10a", "eth0", "sw1", "1"),
		cable("c2", "pc20a", "eth0", "sw1", "2"),
		cable("c3", "sw1", "24", "sw2", "24"),
		cable("c4", "pc10b", "eth0", "sw2", "1"),
		cable("c5", "pc20b", "eth0", "sw2", "2"),
	}
	return devices, cables
}

func ref(f *Fabric, dev, port string) PortRef {
	d := f.Device(dev)
	return PortRef{Device: d, Port: d.PortByID(port)}
}

func TestSegmentsFollowVLANs(t *testing.T) {
	f := Build(vlanTopology(10, 20))

	tests := []struct {
		a, b string
		want bool
	}{
		{"pc10a", "pc10b", true},
		{"pc20a", "pc20b", true},
		{"pc10a", "pc20a", false},
		{"pc10a", "pc20b", false},
	}
	for _, tt := range tests {
		if got := f.SameSegment(ref(f, tt.a, "eth0"), ref(f, tt.b, "eth0")); got != tt.want {
			t.Errorf("SameSegment(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTrunkAllowListPrunes(t *testing.T) {
	f := Build(vlanTopology(10))
	if !f.SameSegment(ref(f, "pc10a", "eth0"), ref(f, "pc10b", "eth0")) {
		t.Error("VLAN 10 should cross the trunk")
	}
	if f.SameSegment(ref(f, "pc20a", "eth0"), ref(f, "pc20b", "eth0")) {
		t.Error("VLAN 20 is not allowed on the trunk")
	}
}

func TestShutdownPortSplitsSegment(t *testing.T) {
	devices, cables := vlanTopology(10, 20)
	devices[5].Ports[2].Config.Enabled = false // sw2 trunk
	f := Build(devices, cables)
	if f.SameSegment(ref(f, "pc10a", "eth0"), ref(f, "pc10b", "eth0")) {
		t.Error("shut trunk should split the segment")
	}
}

func TestMalformedCablesSkipped(t *testing.T) {
	devices, cables := vlanTopology(10, 20)
	cables = append(cables,
		cable("bad1", "ghost", "eth0", "sw1", "1"),
		cable("bad2", "pc10a", "eth9", "sw1", "1"),
		cable("loop", "sw1", "1", "sw1", "1"),
	)
	f := Build(devices, cables)
	if f.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", f.Skipped)
	}
	if len(f.Links()) != 5 {
		t.Errorf("len(Links) = %d, want 5", len(f.Links()))
	}
	if len(f.Errors) != 3 {
		t.Fatalf("len(Errors) = %d, want 3", len(f.Errors))
	}
	wantRefs := []string{"bad1", "bad2", "loop"}
	for i, err := range f.Errors {
		if !errors.Is(err, util.ErrInvalidReference) {
			t.Errorf("Errors[%d] = %v, want ErrInvalidReference", i, err)
		}
		var ref *util.ReferenceError
		if !errors.As(err, &ref) || ref.Kind != "cable" || ref.Ref != wantRefs[i] {
			t.Errorf("Errors[%d] = %#v, want cable %s", i, err, wantRefs[i])
		}
	}
}

func TestCableByPortName(t *testing.T) {
	r1 := &model.Device{ID: "r1", Type: model.DeviceRouter, Ports: []*model.Port{routed("p1", "GigabitEthernet0/0/0", "10.0.0.1", 30)}}
	r2 := &model.Device{ID: "r2", Type: model.DeviceRouter, Ports: []*model.Port{routed("p1", "GigabitEthernet0/0/0", "10.0.0.2", 30)}}
	f := Build([]*model.Device{r1, r2}, []*model.Cable{cable("c", "r1", "gigabitethernet0/0/0", "r2", "GE0/0/0")})
	if f.Skipped != 0 {
		t.Fatalf("Skipped = %d, want 0", f.Skipped)
	}
	peer, ok := f.Peer("r1", "p1")
	if !ok || peer.Device.ID != "r2" {
		t.Errorf("Peer(r1, p1) = %v, %v", peer, ok)
	}
	n, ok := f.Neighbor(ref(f, "r1", "p1"), "10.0.0.2")
	if !ok || n.Device.ID != "r2" {
		t.Errorf("Neighbor(10.0.0.2) = %v, %v", n, ok)
	}
}

func TestL2Path(t *testing.T) {
	f := Build(vlanTopology(10, 20))
	got := f.L2Path(ref(f, "pc10a", "eth0"), ref(f, "pc10b", "eth0"))
	want := []string{"pc10a", "sw1", "sw2", "pc10b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("L2Path = %v, want %v", got, want)
	}
	if p := f.L2Path(ref(f, "pc10a", "eth0"), ref(f, "pc20b", "eth0")); p != nil {
		t.Errorf("L2Path across VLANs = %v, want nil", p)
	}
}

func TestMembers(t *testing.T) {
	f := Build(vlanTopology(10, 20))
	var got []string
	for _, m := range f.Members(ref(f, "pc10a", "eth0")) {
		got = append(got, m.Device.ID)
	}
	if !reflect.DeepEqual(got, []string{"pc10b"}) {
		t.Errorf("Members = %v, want [pc10b]", got)
	}
}
