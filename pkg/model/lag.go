package model

import (
	"fmt"
	"strconv"
	"strings"
)

// LAG modes
const (
	LAGManual = "manual"
	LAGLACP   = "lacp"
)

// LAGPortID is the port id of the logical interface of trunk n.
func LAGPortID(n int) string {
	return "eth-trunk" + strconv.Itoa(n)
}

// LAGName renders the logical interface name of trunk n in the device dialect.
func LAGName(d *Device, n int) string {
	if d.IsHuawei() {
		return fmt.Sprintf("Eth-Trunk%d", n)
	}
	return fmt.Sprintf("Port-channel%d", n)
}

// ParseLAGName recognizes "eth-trunk 1", "Eth-Trunk1", "port-channel 2" and
// "Po2", returning the trunk number.
func ParseLAGName(name string) (int, bool) {
	s := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	for _, prefix := range []string{"eth-trunk", "port-channel", "po"} {
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(s, prefix))
		if err != nil || n < 1 || n > 64 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// LAGGroupOf returns the trunk number of a logical LAG port.
func LAGGroupOf(p *Port) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(p.ID, "eth-trunk"))
	return n
}

// LAGMembers returns the physical ports bundled into trunk n.
func (d *Device) LAGMembers(n int) []*Port {
	var out []*Port
	for _, p := range d.Ports {
		if !p.IsLAG() && p.Config.LAGGroup == n {
			out = append(out, p)
		}
	}
	return out
}

// LinkSpeed is the bandwidth a port contributes to routing: its own speed, or
// for a bundled member the sum over the enabled members of its trunk.
func (d *Device) LinkSpeed(p *Port) int {
	n := p.Config.LAGGroup
	if n == 0 {
		return p.EffectiveSpeed()
	}
	if lag := d.PortByID(LAGPortID(n)); lag != nil && !lag.Config.Enabled {
		return p.EffectiveSpeed()
	}
	total := 0
	for _, m := range d.LAGMembers(n) {
		if m.Config.Enabled {
			total += m.EffectiveSpeed()
		}
	}
	if total == 0 {
		return p.EffectiveSpeed()
	}
	return total
}

// LinkCost returns the OSPF cost of p on d: the configured cost, or the
// reference-bandwidth cost over LinkSpeed.
func (d *Device) LinkCost(p *Port) int {
	if p.Config.Cost > 0 {
		return p.Config.Cost
	}
	cost := 100000 / d.LinkSpeed(p)
	if cost < 1 {
		return 1
	}
	return cost
}
