package model

import (
	"time"

	"github.com/newtron-network/newtsim/pkg/util"
)

// DefaultLeaseDays is the pool lease time when none is configured.
const DefaultLeaseDays = 1

// DHCPConfig is the DHCP server state of a device.
type DHCPConfig struct {
	Enabled  bool           `json:"enabled" yaml:"enabled"`
	Pools    []*DHCPPool    `json:"pools,omitempty" yaml:"pools,omitempty"`
	Excluded []AddressRange `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

// AddressRange is an inclusive range of IPv4 addresses.
type AddressRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Contains reports whether ip is inside the range.
func (r AddressRange) Contains(ip string) bool {
	v := util.IPToUint32(ip)
	end := r.End
	if end == "" {
		end = r.Start
	}
	return v >= util.IPToUint32(r.Start) && v <= util.IPToUint32(end)
}

// DHCPPool is an address pool.
type DHCPPool struct {
	Name      string           `json:"name" yaml:"name"`
	Network   string           `json:"network,omitempty" yaml:"network,omitempty"`
	MaskLen   int              `json:"mask_len,omitempty" yaml:"mask_len,omitempty"`
	Gateway   string           `json:"gateway,omitempty" yaml:"gateway,omitempty"`
	DNS       []string         `json:"dns,omitempty" yaml:"dns,omitempty"`
	LeaseDays int              `json:"lease_days,omitempty" yaml:"lease_days,omitempty"`
	Domain    string           `json:"domain,omitempty" yaml:"domain,omitempty"`
	Excluded  []AddressRange   `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Leases    map[string]Lease `json:"leases,omitempty" yaml:"-"` // keyed by address
}

// Lease is an address binding held by a client.
type Lease struct {
	Address  string    `json:"address"`
	ClientID string    `json:"client_id"` // client MAC
	Hostname string    `json:"hostname,omitempty"`
	Expires  time.Time `json:"expires"`
}

// Configured returns true once the pool has a network.
func (p *DHCPPool) Configured() bool {
	return p.Network != "" && p.MaskLen > 0 && p.MaskLen < 31
}

// LeaseDuration returns the configured lease time.
func (p *DHCPPool) LeaseDuration() time.Duration {
	days := p.LeaseDays
	if days <= 0 {
		days = DefaultLeaseDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// IsExcluded reports whether ip may not be handed out from this pool.
func (p *DHCPPool) IsExcluded(ip string, global []AddressRange) bool {
	if ip == p.Gateway {
		return true
	}
	for _, r := range p.Excluded {
		if r.Contains(ip) {
			return true
		}
	}
	for _, r := range global {
		if r.Contains(ip) {
			return true
		}
	}
	return false
}

// LeaseFor returns the lease held by clientID, if any.
func (p *DHCPPool) LeaseFor(clientID string) (Lease, bool) {
	for _, l := range p.Leases {
		if l.ClientID == clientID {
			return l, true
		}
	}
	return Lease{}, false
}

func (p *DHCPPool) clone() *DHCPPool {
	c := *p
	c.DNS = append([]string(nil), p.DNS...)
	c.Excluded = append([]AddressRange(nil), p.Excluded...)
	if p.Leases != nil {
		c.Leases = make(map[string]Lease, len(p.Leases))
		for k, v := range p.Leases {
			c.Leases[k] = v
		}
	}
	return &c
}

func (c DHCPConfig) clone() DHCPConfig {
	out := DHCPConfig{Enabled: c.Enabled}
	out.Excluded = append([]AddressRange(nil), c.Excluded...)
	for _, p := range c.Pools {
		out.Pools = append(out.Pools, p.clone())
	}
	return out
}

// HostConfig is the IP stack of an end station.
type HostConfig struct {
	Gateway    string   `json:"gateway,omitempty" yaml:"gateway,omitempty"`
	DNS        []string `json:"dns,omitempty" yaml:"dns,omitempty"`
	DHCPClient bool     `json:"dhcp_client,omitempty" yaml:"dhcp_client,omitempty"`

	// Set when the address was obtained by DHCP
	LeaseServer  string    `json:"lease_server,omitempty" yaml:"-"`
	LeaseExpires time.Time `json:"lease_expires,omitempty" yaml:"-"`
}
