// Package model defines the simulated network: devices, ports, cables and the
// configuration and derived state the CLI and the convergence engine operate on.
package model

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/newtron-network/newtsim/pkg/util"
)

// PortMode is the switching mode of a port.
type PortMode string

const (
	PortModeAccess PortMode = "access"
	PortModeTrunk  PortMode = "trunk"
	PortModeHybrid PortMode = "hybrid"
	PortModeRouted PortMode = "routed"
)

// Port media types
const (
	PortTypeRJ45 = "RJ45"
	PortTypeSFP  = "SFP"
	PortTypeLAG  = "LAG" // logical Eth-Trunk / Port-channel interface
)

// DefaultSpeed is the speed assumed for auto-negotiating ports (Mbps).
const DefaultSpeed = 1000

// Port represents a physical interface of a device.
type Port struct {
	ID     string     `json:"id" yaml:"id"`
	Name   string     `json:"name" yaml:"name"` // e.g., "GigabitEthernet0/0/1"
	Type   string     `json:"type,omitempty" yaml:"type,omitempty"`
	MAC    string     `json:"mac,omitempty" yaml:"mac,omitempty"`
	Config PortConfig `json:"config" yaml:"config"`
}

// PortConfig is the configurable state of a port.
type PortConfig struct {
	Mode         PortMode `json:"mode" yaml:"mode"`
	VLAN         int      `json:"vlan,omitempty" yaml:"vlan,omitempty"` // access/native VLAN
	AllowedVLANs []int    `json:"allowed_vlans,omitempty" yaml:"allowed_vlans,omitempty"`
	IPAddress    string   `json:"ip_address,omitempty" yaml:"ip_address,omitempty"`
	MaskLen      int      `json:"mask_len,omitempty" yaml:"mask_len,omitempty"`
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Speed        int      `json:"speed,omitempty" yaml:"speed,omitempty"` // Mbps, 0 = auto
	Duplex       string   `json:"duplex,omitempty" yaml:"duplex,omitempty"`
	Cost         int      `json:"cost,omitempty" yaml:"cost,omitempty"` // OSPF cost, 0 = derived

	// Link aggregation: LAGGroup is the trunk a physical member belongs to;
	// LAGMode and LoadBalance configure a logical LAG port.
	LAGGroup    int    `json:"lag_group,omitempty" yaml:"lag_group,omitempty"`
	LAGMode     string `json:"lag_mode,omitempty" yaml:"lag_mode,omitempty"`
	LoadBalance string `json:"load_balance,omitempty" yaml:"load_balance,omitempty"`

	STPCost  int  `json:"stp_cost,omitempty" yaml:"stp_cost,omitempty"` // 0 = derived from speed
	EdgePort bool `json:"edge_port,omitempty" yaml:"edge_port,omitempty"`

	ACLIn        string        `json:"acl_in,omitempty" yaml:"acl_in,omitempty"`
	ACLOut       string        `json:"acl_out,omitempty" yaml:"acl_out,omitempty"`
	PortSecurity *PortSecurity `json:"port_security,omitempty" yaml:"port_security,omitempty"`
}

// HasAddress returns true if the port carries an IPv4 address.
func (p *Port) HasAddress() bool {
	return p.Config.IPAddress != "" && p.Config.MaskLen > 0
}

// Prefix returns the connected network of the port ("10.0.0.0/24"), or "".
func (p *Port) Prefix() string {
	if !p.HasAddress() {
		return ""
	}
	return util.NetworkPrefix(p.Config.IPAddress, p.Config.MaskLen)
}

// CIDR returns "address/len", or "" when unaddressed.
func (p *Port) CIDR() string {
	if !p.HasAddress() {
		return ""
	}
	return fmt.Sprintf("%s/%d", p.Config.IPAddress, p.Config.MaskLen)
}

// EffectiveSpeed returns the configured speed, or DefaultSpeed for auto.
func (p *Port) EffectiveSpeed() int {
	if p.Config.Speed <= 0 {
		return DefaultSpeed
	}
	return p.Config.Speed
}

// OSPFCost returns the configured cost or the reference-bandwidth cost
// (100000 Mbps reference, minimum 1).
func (p *Port) OSPFCost() int {
	if p.Config.Cost > 0 {
		return p.Config.Cost
	}
	cost := 100000 / p.EffectiveSpeed()
	if cost < 1 {
		return 1
	}
	return cost
}

// IsLAG returns true for logical aggregation interfaces.
func (p *Port) IsLAG() bool {
	return p.Type == PortTypeLAG
}

// STPPathCost returns the configured spanning tree cost or the 802.1t
// default for the port speed (20000 at 1 Gbps).
func (p *Port) STPPathCost() int {
	if p.Config.STPCost > 0 {
		return p.Config.STPCost
	}
	return 20000000 / p.EffectiveSpeed()
}

// IsSwitched returns true for ports in a bridging mode.
func (p *Port) IsSwitched() bool {
	return p.Config.Mode == PortModeAccess || p.Config.Mode == PortModeTrunk || p.Config.Mode == PortModeHybrid
}

// NativeVLAN returns the untagged VLAN of a switched port (default 1).
func (p *Port) NativeVLAN() int {
	if p.Config.VLAN > 0 {
		return p.Config.VLAN
	}
	return 1
}

// HardwareAddr returns the port MAC, deriving a stable locally administered
// address from the device and port ids when none is configured.
func (p *Port) HardwareAddr(deviceID string) string {
	if p.MAC != "" {
		return p.MAC
	}
	h := fnv.New64a()
	h.Write([]byte(deviceID + "/" + p.ID))
	sum := h.Sum64()
	return fmt.Sprintf("02:%02x:%02x:%02x:%02x:%02x",
		byte(sum>>32), byte(sum>>24), byte(sum>>16), byte(sum>>8), byte(sum))
}

// Matches reports whether ref names this port: the exact id, or the name
// matched case-insensitively with abbreviation.
func (p *Port) Matches(ref string) bool {
	if ref == "" {
		return false
	}
	return p.ID == ref || strings.EqualFold(p.Name, ref) || util.InterfaceNameMatches(p.Name, ref)
}

// Clone returns a deep copy of the port.
func (p *Port) Clone() *Port {
	if p == nil {
		return nil
	}
	c := *p
	if p.Config.AllowedVLANs != nil {
		c.Config.AllowedVLANs = append([]int(nil), p.Config.AllowedVLANs...)
	}
	if p.Config.PortSecurity != nil {
		ps := *p.Config.PortSecurity
		c.Config.PortSecurity = &ps
	}
	return &c
}
