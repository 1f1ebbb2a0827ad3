package topology

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newtron-network/newtsim/pkg/converge"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

const minimal = `
name: mini
devices:
  - id: r1
    type: router
    vendor: Cisco
    ports:
      - name: Gi0/0
        config: {ip_address: 10.0.0.1, mask_len: 24}
      - name: Gi0/1
        config: {enabled: false}
  - id: sw1
    type: switch
    vendor: Huawei
    ports:
      - {id: "1"}
cables:
  - {id: c1, a: {device: r1, port: gi0/0}, b: {device: sw1, port: "1"}}
`

func TestParseDefaults(t *testing.T) {
	topo, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	r1 := topo.Device("r1")
	if r1.Hostname != "r1" {
		t.Errorf("Hostname = %q, want r1", r1.Hostname)
	}
	p := r1.Ports[0]
	if p.ID != "Gi0/0" || p.Config.Mode != model.PortModeRouted || !p.Config.Enabled {
		t.Errorf("port 0 = %+v", p)
	}
	if r1.Ports[1].Config.Enabled {
		t.Error("explicit enabled: false ignored")
	}
	sw := topo.Device("sw1").Ports[0]
	if sw.Name != "1" || sw.Config.Mode != model.PortModeAccess {
		t.Errorf("switch port = %+v", sw)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"no name", "devices: [{id: a, type: pc}]", "topology name is required"},
		{"no devices", "name: x", "at least one device is required"},
		{"duplicate device", "name: x\ndevices: [{id: a, type: pc}, {id: a, type: pc}]", "device a: duplicate id"},
		{"bad type", "name: x\ndevices: [{id: a, type: toaster}]", `unknown type "toaster"`},
		{"bad hostname", "name: x\ndevices: [{id: a, type: pc, hostname: 'a b'}]", "invalid hostname"},
		{"bad ip", "name: x\ndevices: [{id: a, type: pc, ports: [{id: e0, config: {ip_address: 300.1.1.1, mask_len: 24}}]}]", "invalid ip_address"},
		{"bad mask", "name: x\ndevices: [{id: a, type: pc, ports: [{id: e0, config: {ip_address: 10.0.0.1}}]}]", "mask_len must be 1-32"},
		{"bad vlan", "name: x\ndevices: [{id: a, type: switch, ports: [{id: e0, config: {vlan: 5000}}]}]", "VLAN ID must be between"},
		{"dangling device", "name: x\ndevices: [{id: a, type: pc, ports: [{id: e0}]}]\ncables: [{id: c, a: {device: a, port: e0}, b: {device: z, port: e0}}]", `undefined device "z"`},
		{"dangling port", "name: x\ndevices: [{id: a, type: pc, ports: [{id: e0}]}, {id: b, type: pc, ports: [{id: e0}]}]\ncables: [{id: c, a: {device: a, port: e0}, b: {device: b, port: e9}}]", `undefined port "e9"`},
		{"port reuse", "name: x\ndevices: [{id: a, type: pc, ports: [{id: e0}]}, {id: b, type: switch, ports: [{id: '1'}, {id: '2'}]}]\ncables: [{id: c1, a: {device: a, port: e0}, b: {device: b, port: '1'}}, {id: c2, a: {device: a, port: e0}, b: {device: b, port: '2'}}]", "already used by cable c1"},
		{"loop", "name: x\ndevices: [{id: a, type: pc, ports: [{id: e0}]}]\ncables: [{id: c, a: {device: a, port: e0}, b: {device: a, port: e0}}]", "both ends on port a:e0"},
		{"bad route prefix", "name: x\ndevices: [{id: a, type: router, static_routes: [{destination: 10.0.0.0, next_hop: 10.0.0.1}]}]", "invalid CIDR notation: 10.0.0.0"},
		{"bad next hop", "name: x\ndevices: [{id: a, type: router, static_routes: [{destination: 10.0.0.0/8, next_hop: gw}]}]", `invalid next_hop "gw"`},
		{"bad permission", "name: x\ndevices: [{id: a, type: pc}]\naccess: {permissions: {service.apply: [bob]}}", `unknown permission "service.apply"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() error = nil")
			}
			if !errors.Is(err, util.ErrValidationFailed) {
				t.Errorf("error %v does not wrap ErrValidationFailed", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	_, err := Parse([]byte("devices: [{id: a, type: toaster}]"))
	var ve *util.ValidationError
	if !errors.As(err, &ve) || len(ve.Errors) != 2 {
		t.Fatalf("error = %v, want 2 validation errors", err)
	}
}

func TestParseAccess(t *testing.T) {
	doc := `name: x
devices: [{id: a, type: pc}]
access:
  super_users: [root]
  user_groups:
    ops: [alice]
  permissions:
    all: [ops]
    console.view: [eve]
`
	topo, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	a := topo.Access
	if a == nil || len(a.SuperUsers) != 1 || len(a.UserGroups["ops"]) != 1 || len(a.Permissions) != 2 {
		t.Errorf("Access = %+v", a)
	}
	if Sample().Access != nil {
		t.Error("sample lab has an access policy")
	}
}

func TestParseSyntaxError(t *testing.T) {
	if _, err := Parse([]byte("name: [unclosed")); err == nil || !strings.Contains(err.Error(), "parsing topology YAML") {
		t.Errorf("Parse() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lab.yaml")
	if err := os.WriteFile(path, []byte(minimal), 0o644); err != nil {
		t.Fatal(err)
	}
	topo, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if topo.Name != "mini" || len(topo.Devices) != 2 || len(topo.Cables) != 1 {
		t.Errorf("Load() = %+v", topo)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) error = nil")
	}
}

func TestSampleConverges(t *testing.T) {
	topo := Sample()
	devices, sum, err := converge.Converge(topo.Devices, topo.Cables, time.Now())
	if err != nil {
		t.Fatalf("Converge() error = %v", err)
	}
	if sum.SkippedCables != 0 || sum.Adjacencies != 1 {
		t.Errorf("Summary = %+v", sum)
	}
	r1 := model.FindDevice(devices, "r1")
	if _, ok := r1.Routes["172.16.0.0/24"]; !ok {
		t.Errorf("r1 has no OSPF route to 172.16.0.0/24: %v", r1.Routes.Sorted())
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(Sample())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	topo, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal()) error = %v", err)
	}
	if len(topo.Devices) != 5 || len(topo.Cables) != 4 {
		t.Errorf("round trip lost devices or cables: %d/%d", len(topo.Devices), len(topo.Cables))
	}
}
