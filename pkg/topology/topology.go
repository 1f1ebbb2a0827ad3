// Package topology loads lab topologies from YAML files.
//
// A file names the topology, lists its devices with their ports and initial
// configuration, and the cables between ports:
//
//	name: lab
//	devices:
//	  - id: r1
//	    hostname: R1
//	    type: router
//	    vendor: Huawei
//	    ports:
//	      - id: p1
//	        name: GigabitEthernet0/0/1
//	        config: {ip_address: 192.168.1.1, mask_len: 24}
//	cables:
//	  - id: c1
//	    a: {device: r1, port: p1}
//	    b: {device: sw1, port: GigabitEthernet0/0/2}
//
// Ports are enabled unless the file says otherwise. Missing hostnames, port
// names and port modes are filled from the device id, port id and device type.
//
// An optional access block restricts who may run commands:
//
//	access:
//	  user_groups: {ops: [alice]}
//	  permissions: {all: [ops], console.view: [eve]}
package topology

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/newtsim/pkg/auth"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

//go:embed sample.yaml
var sampleYAML []byte

var deviceTypes = map[string]bool{
	model.DeviceRouter:   true,
	model.DeviceSwitch:   true,
	model.DevicePC:       true,
	model.DeviceFirewall: true,
	model.DeviceAP:       true,
}

// portFlags captures the explicitly written port admin states.
type portFlags struct {
	Devices []struct {
		Ports []struct {
			Config struct {
				Enabled *bool `yaml:"enabled"`
			} `yaml:"config"`
		} `yaml:"ports"`
	} `yaml:"devices"`
}

// Load reads and validates the topology file at path.
func Load(path string) (*model.Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology file: %w", err)
	}
	topo, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	util.Debugf("loaded topology %s from %s: %d devices, %d cables", topo.Name, path, len(topo.Devices), len(topo.Cables))
	return topo, nil
}

// Sample returns the built-in demo lab.
func Sample() *model.Topology {
	topo, err := Parse(sampleYAML)
	if err != nil {
		panic("topology: invalid built-in sample: " + err.Error())
	}
	return topo
}

// Parse decodes and validates a topology document.
func Parse(data []byte) (*model.Topology, error) {
	var topo model.Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("parsing topology YAML: %w", err)
	}
	var flags portFlags
	if err := yaml.Unmarshal(data, &flags); err != nil {
		return nil, fmt.Errorf("parsing topology YAML: %w", err)
	}

	applyDefaults(&topo, &flags)
	if err := Validate(&topo); err != nil {
		return nil, err
	}
	return &topo, nil
}

// Marshal renders topo back to YAML. Derived state is not written.
func Marshal(topo *model.Topology) ([]byte, error) {
	return yaml.Marshal(topo)
}

func applyDefaults(topo *model.Topology, flags *portFlags) {
	for i, d := range topo.Devices {
		if d == nil {
			continue
		}
		if d.Hostname == "" {
			d.Hostname = d.ID
		}
		for j, p := range d.Ports {
			if p == nil {
				continue
			}
			if p.ID == "" {
				p.ID = p.Name
			}
			if p.Name == "" {
				p.Name = p.ID
			}
			if p.Config.Mode == "" {
				p.Config.Mode = model.PortModeRouted
				if d.IsBridge() {
					p.Config.Mode = model.PortModeAccess
				}
			}
			p.Config.Enabled = true
			if i < len(flags.Devices) && j < len(flags.Devices[i].Ports) {
				if e := flags.Devices[i].Ports[j].Config.Enabled; e != nil {
					p.Config.Enabled = *e
				}
			}
		}
	}
}

// Validate checks a topology for structural errors and reports all of them
// at once.
func Validate(topo *model.Topology) error {
	vb := &util.ValidationBuilder{}
	vb.Add(topo.Name != "", "topology name is required")
	vb.Add(len(topo.Devices) > 0, "at least one device is required")

	ids := make(map[string]bool)
	for i, d := range topo.Devices {
		if d == nil || d.ID == "" {
			vb.AddErrorf("device %d: id is required", i)
			continue
		}
		if ids[d.ID] {
			vb.AddErrorf("device %s: duplicate id", d.ID)
		}
		ids[d.ID] = true
		vb.Add(deviceTypes[d.Type], fmt.Sprintf("device %s: unknown type %q", d.ID, d.Type))
		vb.Add(util.IsValidHostname(d.Hostname), fmt.Sprintf("device %s: invalid hostname %q", d.ID, d.Hostname))
		validatePorts(vb, d)
		validateRoutes(vb, d)
	}

	used := make(map[string]string)
	cableIDs := make(map[string]bool)
	for i, c := range topo.Cables {
		if c == nil {
			vb.AddErrorf("cable %d: empty", i)
			continue
		}
		name := c.ID
		if name == "" {
			name = fmt.Sprintf("%d", i)
		} else if cableIDs[c.ID] {
			vb.AddErrorf("cable %s: duplicate id", c.ID)
		}
		cableIDs[c.ID] = true

		var ends [2]string
		for k, ep := range []model.Endpoint{c.A, c.B} {
			d := topo.Device(ep.Device)
			if d == nil {
				vb.AddErrorf("cable %s: endpoint %s references undefined device %q", name, ep, ep.Device)
				continue
			}
			p := d.Port(ep.Port)
			if p == nil {
				vb.AddErrorf("cable %s: endpoint %s references undefined port %q", name, ep, ep.Port)
				continue
			}
			key := d.ID + ":" + p.ID
			if other, ok := used[key]; ok {
				vb.AddErrorf("cable %s: port %s already used by cable %s", name, key, other)
			}
			used[key] = name
			ends[k] = key
		}
		if ends[0] != "" && ends[0] == ends[1] {
			vb.AddErrorf("cable %s: both ends on port %s", name, ends[0])
		}
	}
	if topo.Access != nil {
		perms := make([]string, 0, len(topo.Access.Permissions))
		for perm := range topo.Access.Permissions {
			perms = append(perms, perm)
		}
		sort.Strings(perms)
		for _, perm := range perms {
			vb.Add(auth.Known(perm), fmt.Sprintf("access: unknown permission %q", perm))
		}
	}
	return vb.Build()
}

func validateRoutes(vb *util.ValidationBuilder, d *model.Device) {
	for _, r := range d.StaticRoutes {
		if _, _, err := util.ParseIPWithMask(r.Destination); err != nil {
			vb.AddErrorf("device %s: static route: %v", d.ID, err)
		}
		vb.Add(util.IsValidIPv4(r.NextHop),
			fmt.Sprintf("device %s: static route %s: invalid next_hop %q", d.ID, r.Destination, r.NextHop))
	}
}

func validatePorts(vb *util.ValidationBuilder, d *model.Device) {
	ports := make(map[string]bool)
	for i, p := range d.Ports {
		if p == nil || p.ID == "" {
			vb.AddErrorf("device %s: port %d: id or name is required", d.ID, i)
			continue
		}
		if ports[p.ID] {
			vb.AddErrorf("device %s: duplicate port %s", d.ID, p.ID)
		}
		ports[p.ID] = true

		cfg := p.Config
		if cfg.IPAddress != "" {
			vb.Add(util.IsValidIPv4(cfg.IPAddress),
				fmt.Sprintf("device %s port %s: invalid ip_address %q", d.ID, p.ID, cfg.IPAddress))
			vb.Add(cfg.MaskLen > 0 && cfg.MaskLen <= 32,
				fmt.Sprintf("device %s port %s: mask_len must be 1-32, got %d", d.ID, p.ID, cfg.MaskLen))
		}
		for _, v := range append([]int{cfg.VLAN}, cfg.AllowedVLANs...) {
			if v != 0 {
				if err := util.ValidateVLANID(v); err != nil {
					vb.AddErrorf("device %s port %s: %v", d.ID, p.ID, err)
				}
			}
		}
	}
}
