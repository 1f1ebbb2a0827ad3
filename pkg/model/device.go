package model

import (
	"sort"
	"strings"
	"time"
)

// DeviceType values
const (
	DeviceRouter   = "router"
	DeviceSwitch   = "switch"
	DevicePC       = "pc"
	DeviceFirewall = "firewall"
	DeviceAP       = "ap"
)

// Vendor names recognized for rendering. Any other vendor string renders in
// the IOS style.
const (
	VendorHuawei = "Huawei"
	VendorCisco  = "Cisco"
	VendorDLink  = "D-Link"
	VendorNetSim = "NetSim"
)

// ConsoleLimit bounds the number of lines kept per device console.
const ConsoleLimit = 500

// Device is one simulated network element.
type Device struct {
	ID       string   `json:"id" yaml:"id"`
	Hostname string   `json:"hostname" yaml:"hostname"`
	Type     string   `json:"type" yaml:"type"`
	Vendor   string   `json:"vendor" yaml:"vendor"`
	Model    string   `json:"model,omitempty" yaml:"model,omitempty"`
	CLI      CLIState `json:"cli" yaml:"-"`
	Ports    []*Port  `json:"ports" yaml:"ports"`
	VLANs    []int    `json:"vlans,omitempty" yaml:"vlans,omitempty"`

	StaticRoutes []StaticRoute `json:"static_routes,omitempty" yaml:"static_routes,omitempty"`
	OSPF         OSPFConfig    `json:"ospf" yaml:"ospf,omitempty"`
	BGP          *BGPConfig    `json:"bgp,omitempty" yaml:"bgp,omitempty"`
	DHCP         DHCPConfig    `json:"dhcp" yaml:"dhcp,omitempty"`
	ACLs         []*ACL        `json:"acls,omitempty" yaml:"acls,omitempty"`
	STP          STPConfig     `json:"stp" yaml:"stp,omitempty"`
	AAA          AAAConfig     `json:"aaa" yaml:"aaa,omitempty"`
	Host         HostConfig    `json:"host" yaml:"host,omitempty"`

	// Derived state, rebuilt by convergence
	Routes RoutingTable `json:"routes,omitempty" yaml:"-"`

	Console []string `json:"console,omitempty" yaml:"-"`
}

// IsHost returns true for end stations (no forwarding).
func (d *Device) IsHost() bool {
	return d.Type == DevicePC
}

// IsBridge returns true for devices whose switched ports bridge frames.
func (d *Device) IsBridge() bool {
	return d.Type == DeviceSwitch || d.Type == DeviceAP
}

// IsHuawei returns true when the device speaks the VRP dialect.
func (d *Device) IsHuawei() bool {
	return strings.EqualFold(d.Vendor, VendorHuawei)
}

// Port returns the port matching ref by id or name, or nil.
func (d *Device) Port(ref string) *Port {
	for _, p := range d.Ports {
		if p.ID == ref {
			return p
		}
	}
	for _, p := range d.Ports {
		if p.Matches(ref) {
			return p
		}
	}
	return nil
}

// PortByID returns the port with the exact id, or nil.
func (d *Device) PortByID(id string) *Port {
	for _, p := range d.Ports {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PortWithAddress returns the port holding ip, or nil.
func (d *Device) PortWithAddress(ip string) *Port {
	for _, p := range d.Ports {
		if p.Config.IPAddress == ip && p.HasAddress() {
			return p
		}
	}
	return nil
}

// PrimaryAddress returns the first enabled port address, or "".
func (d *Device) PrimaryAddress() string {
	for _, p := range d.Ports {
		if p.Config.Enabled && p.HasAddress() {
			return p.Config.IPAddress
		}
	}
	return ""
}

// HasVLAN returns true if id is in the device VLAN database. VLAN 1 always exists.
func (d *Device) HasVLAN(id int) bool {
	if id == 1 {
		return true
	}
	for _, v := range d.VLANs {
		if v == id {
			return true
		}
	}
	return false
}

// AppendConsole appends lines, discarding the oldest beyond ConsoleLimit.
func (d *Device) AppendConsole(lines ...string) {
	d.Console = append(d.Console, lines...)
	if over := len(d.Console) - ConsoleLimit; over > 0 {
		d.Console = append([]string(nil), d.Console[over:]...)
	}
}

// ClearConsole empties the console log.
func (d *Device) ClearConsole() {
	d.Console = nil
}

// Pool returns the DHCP pool by name, or nil.
func (d *Device) Pool(name string) *DHCPPool {
	for _, p := range d.DHCP.Pools {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ACL returns the ACL by id, or nil.
func (d *Device) ACL(id string) *ACL {
	for _, a := range d.ACLs {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// ActiveLeases counts unexpired leases across all pools.
func (d *Device) ActiveLeases(now time.Time) int {
	n := 0
	for _, p := range d.DHCP.Pools {
		for _, l := range p.Leases {
			if l.Expires.After(now) {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy of the device.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	c := *d
	c.Ports = make([]*Port, len(d.Ports))
	for i, p := range d.Ports {
		c.Ports[i] = p.Clone()
	}
	c.VLANs = cloneInts(d.VLANs)
	c.StaticRoutes = append([]StaticRoute(nil), d.StaticRoutes...)
	c.OSPF = d.OSPF.clone()
	if d.BGP != nil {
		c.BGP = d.BGP.clone()
	}
	c.DHCP = d.DHCP.clone()
	if d.ACLs != nil {
		c.ACLs = make([]*ACL, len(d.ACLs))
		for i, a := range d.ACLs {
			c.ACLs[i] = a.clone()
		}
	}
	c.STP = d.STP.clone()
	c.AAA.Users = append([]LocalUser(nil), d.AAA.Users...)
	c.Host.DNS = append([]string(nil), d.Host.DNS...)
	c.Routes = d.Routes.Clone()
	c.Console = append([]string(nil), d.Console...)
	return &c
}

// AddVLANs merges ids into the VLAN database, keeping it sorted.
func (d *Device) AddVLANs(ids ...int) {
	seen := make(map[int]bool, len(d.VLANs))
	for _, v := range d.VLANs {
		seen[v] = true
	}
	for _, id := range ids {
		if !seen[id] {
			d.VLANs = append(d.VLANs, id)
			seen[id] = true
		}
	}
	sort.Ints(d.VLANs)
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	return append([]int(nil), in...)
}
