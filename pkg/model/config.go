package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newtron-network/newtsim/pkg/util"
)

// RunningConfig renders the device configuration in its vendor dialect:
// VRP style for Huawei, IOS style for everything else. Output is a pure
// function of the configuration; derived state is never rendered.
func RunningConfig(d *Device) []string {
	if d.IsHuawei() {
		return vrpConfig(d)
	}
	return iosConfig(d)
}

func vrpConfig(d *Device) []string {
	var b cfgBuilder
	b.section("#", " sysname "+d.Hostname)
	if len(d.VLANs) > 0 {
		b.section("#", "vlan batch "+joinInts(d.VLANs, " "))
	}
	if d.STP.Enabled {
		lines := []string{"stp enable"}
		if d.STP.Mode != "" {
			lines = append(lines, "stp mode "+d.STP.Mode)
		}
		if d.STP.Priority != nil {
			lines = append(lines, fmt.Sprintf("stp priority %d", *d.STP.Priority))
		}
		b.section("#", lines...)
	}
	if d.DHCP.Enabled {
		b.section("#", "dhcp enable")
	}
	for _, p := range d.DHCP.Pools {
		lines := []string{"ip pool " + p.Name}
		if p.Gateway != "" {
			lines = append(lines, " gateway-list "+p.Gateway)
		}
		if p.Network != "" {
			lines = append(lines, fmt.Sprintf(" network %s mask %s", p.Network, util.MaskString(p.MaskLen)))
		}
		for _, r := range p.Excluded {
			lines = append(lines, " excluded-ip-address "+rangeText(r))
		}
		if len(p.DNS) > 0 {
			lines = append(lines, " dns-list "+strings.Join(p.DNS, " "))
		}
		if p.Domain != "" {
			lines = append(lines, " domain-name "+p.Domain)
		}
		if p.LeaseDays > 0 {
			lines = append(lines, fmt.Sprintf(" lease day %d", p.LeaseDays))
		}
		b.section("#", lines...)
	}
	for _, a := range d.ACLs {
		lines := []string{"acl number " + a.ID}
		for _, r := range a.Rules {
			lines = append(lines, fmt.Sprintf(" rule %d %s %s", r.ID, r.Action, r.Match))
		}
		b.section("#", lines...)
	}
	for _, p := range d.Ports {
		lines := []string{"interface " + p.Name}
		if p.Config.Description != "" {
			lines = append(lines, " description "+p.Config.Description)
		}
		switch p.Config.Mode {
		case PortModeRouted:
			if d.IsBridge() {
				lines = append(lines, " undo portswitch")
			}
		case PortModeAccess:
			lines = append(lines, " port link-type access")
			if p.Config.VLAN > 1 {
				lines = append(lines, fmt.Sprintf(" port default vlan %d", p.Config.VLAN))
			}
		case PortModeTrunk, PortModeHybrid:
			lines = append(lines, " port link-type "+string(p.Config.Mode))
			if len(p.Config.AllowedVLANs) > 0 {
				lines = append(lines, " port trunk allow-pass vlan "+joinInts(p.Config.AllowedVLANs, " "))
			}
		}
		if p.HasAddress() {
			lines = append(lines, fmt.Sprintf(" ip address %s %s", p.Config.IPAddress, util.MaskString(p.Config.MaskLen)))
		}
		if p.Config.Speed > 0 {
			lines = append(lines, fmt.Sprintf(" speed %d", p.Config.Speed))
		}
		if p.Config.Duplex != "" {
			lines = append(lines, " duplex "+p.Config.Duplex)
		}
		if p.Config.Cost > 0 {
			lines = append(lines, fmt.Sprintf(" ospf cost %d", p.Config.Cost))
		}
		lines = append(lines, vrpPortFeatures(p)...)
		if !p.Config.Enabled {
			lines = append(lines, " shutdown")
		}
		b.section("#", lines...)
	}
	if d.BGP != nil {
		lines := []string{fmt.Sprintf("bgp %d", d.BGP.ASN)}
		if d.BGP.RouterID != "" {
			lines = append(lines, " router-id "+d.BGP.RouterID)
		}
		for _, p := range d.BGP.Peers {
			lines = append(lines, fmt.Sprintf(" peer %s as-number %d", p.Address, p.RemoteAS))
		}
		b.section("#", lines...)
	}
	if d.OSPF.Enabled {
		lines := []string{"ospf " + strconv.Itoa(processID(d))}
		area := ""
		for _, n := range d.OSPF.Networks {
			if n.Area != area {
				area = n.Area
				lines = append(lines, " area "+vrpArea(area))
			}
			lines = append(lines, fmt.Sprintf("  network %s %s", n.Address, wildcard(n.MaskLen)))
		}
		b.section("#", lines...)
	}
	for _, r := range d.StaticRoutes {
		addr, l := util.SplitIPMask(r.Destination)
		b.section("#", fmt.Sprintf("ip route-static %s %s %s", addr, util.MaskString(l), r.NextHop))
	}
	if d.AAA.Enabled || len(d.AAA.Users) > 0 {
		lines := []string{"aaa"}
		for _, u := range d.AAA.Users {
			lines = append(lines, fmt.Sprintf(" local-user %s password irreversible-cipher %s", u.Name, u.PasswordHash))
			if u.Privilege > 0 {
				lines = append(lines, fmt.Sprintf(" local-user %s privilege level %d", u.Name, u.Privilege))
			}
		}
		b.section("#", lines...)
	}
	if d.AAA.SSHServer {
		b.section("#", "stelnet server enable")
	}
	if d.IsHost() {
		b.hostLines("#", d)
	}
	b.section("#", "return")
	return b.lines
}

func iosConfig(d *Device) []string {
	var b cfgBuilder
	b.section("!", "hostname "+d.Hostname)
	for _, v := range d.VLANs {
		b.section("!", fmt.Sprintf("vlan %d", v))
	}
	if d.AAA.Enabled {
		b.section("!", "aaa new-model")
	}
	for _, u := range d.AAA.Users {
		b.section("!", fmt.Sprintf("username %s privilege %d secret %s", u.Name, max(u.Privilege, 1), u.PasswordHash))
	}
	if d.STP.Enabled {
		lines := []string{"spanning-tree"}
		if d.STP.Mode != "" {
			lines = append(lines, "spanning-tree mode "+d.STP.Mode)
		}
		if d.STP.Priority != nil {
			lines = append(lines, fmt.Sprintf("spanning-tree vlan 1 priority %d", *d.STP.Priority))
		}
		b.section("!", lines...)
	}
	for _, p := range d.Ports {
		if p.IsLAG() && p.Config.LoadBalance != "" {
			b.section("!", "port-channel load-balance "+p.Config.LoadBalance)
			break
		}
	}
	if d.DHCP.Enabled {
		b.section("!", "service dhcp")
	}
	for _, r := range d.DHCP.Excluded {
		b.section("!", "ip dhcp excluded-address "+rangeText(r))
	}
	for _, p := range d.DHCP.Pools {
		lines := []string{"ip dhcp pool " + p.Name}
		if p.Network != "" {
			lines = append(lines, fmt.Sprintf(" network %s %s", p.Network, util.MaskString(p.MaskLen)))
		}
		if p.Gateway != "" {
			lines = append(lines, " default-router "+p.Gateway)
		}
		if len(p.DNS) > 0 {
			lines = append(lines, " dns-server "+strings.Join(p.DNS, " "))
		}
		if p.Domain != "" {
			lines = append(lines, " domain-name "+p.Domain)
		}
		if p.LeaseDays > 0 {
			lines = append(lines, fmt.Sprintf(" lease %d", p.LeaseDays))
		}
		for _, r := range p.Excluded {
			lines = append(lines, " excluded-ip-address "+rangeText(r))
		}
		b.section("!", lines...)
	}
	for _, a := range d.ACLs {
		lines := []string{"ip access-list extended " + a.ID}
		for _, r := range a.Rules {
			lines = append(lines, fmt.Sprintf(" %d %s %s", r.ID, r.Action, r.Match))
		}
		b.section("!", lines...)
	}
	for _, p := range d.Ports {
		lines := []string{"interface " + p.Name}
		if p.Config.Description != "" {
			lines = append(lines, " description "+p.Config.Description)
		}
		switch p.Config.Mode {
		case PortModeRouted:
			if d.IsBridge() {
				lines = append(lines, " no switchport")
			}
		case PortModeAccess:
			lines = append(lines, " switchport mode access")
			if p.Config.VLAN > 1 {
				lines = append(lines, fmt.Sprintf(" switchport access vlan %d", p.Config.VLAN))
			}
		case PortModeTrunk, PortModeHybrid:
			lines = append(lines, " switchport mode trunk")
			if len(p.Config.AllowedVLANs) > 0 {
				lines = append(lines, " switchport trunk allowed vlan "+util.CompactRange(p.Config.AllowedVLANs))
			}
		}
		if p.HasAddress() {
			lines = append(lines, fmt.Sprintf(" ip address %s %s", p.Config.IPAddress, util.MaskString(p.Config.MaskLen)))
		}
		if p.Config.Speed > 0 {
			lines = append(lines, fmt.Sprintf(" speed %d", p.Config.Speed))
		}
		if p.Config.Duplex != "" {
			lines = append(lines, " duplex "+p.Config.Duplex)
		}
		if p.Config.Cost > 0 {
			lines = append(lines, fmt.Sprintf(" ip ospf cost %d", p.Config.Cost))
		}
		lines = append(lines, iosPortFeatures(d, p)...)
		if !p.Config.Enabled {
			lines = append(lines, " shutdown")
		}
		b.section("!", lines...)
	}
	if d.OSPF.Enabled {
		lines := []string{"router ospf " + strconv.Itoa(processID(d))}
		for _, n := range d.OSPF.Networks {
			lines = append(lines, fmt.Sprintf(" network %s %s area %s", n.Address, wildcard(n.MaskLen), n.Area))
		}
		b.section("!", lines...)
	}
	if d.BGP != nil {
		lines := []string{fmt.Sprintf("router bgp %d", d.BGP.ASN)}
		if d.BGP.RouterID != "" {
			lines = append(lines, " bgp router-id "+d.BGP.RouterID)
		}
		for _, p := range d.BGP.Peers {
			lines = append(lines, fmt.Sprintf(" neighbor %s remote-as %d", p.Address, p.RemoteAS))
		}
		b.section("!", lines...)
	}
	for _, r := range d.StaticRoutes {
		addr, l := util.SplitIPMask(r.Destination)
		b.section("!", fmt.Sprintf("ip route %s %s %s", addr, util.MaskString(l), r.NextHop))
	}
	if d.AAA.SSHServer {
		b.section("!", "ip ssh version 2")
	}
	if d.IsHost() {
		b.hostLines("!", d)
	}
	b.section("!", "end")
	return b.lines
}

func vrpPortFeatures(p *Port) []string {
	var lines []string
	c := p.Config
	if c.LAGGroup > 0 {
		lines = append(lines, fmt.Sprintf(" eth-trunk %d", c.LAGGroup))
	}
	if p.IsLAG() && c.LAGMode == LAGLACP {
		lines = append(lines, " mode lacp-static")
	}
	if p.IsLAG() && c.LoadBalance != "" {
		lines = append(lines, " load-balance "+c.LoadBalance)
	}
	if c.STPCost > 0 {
		lines = append(lines, fmt.Sprintf(" stp cost %d", c.STPCost))
	}
	if c.EdgePort {
		lines = append(lines, " stp edged-port enable")
	}
	if c.ACLIn != "" {
		lines = append(lines, " traffic-filter inbound acl "+c.ACLIn)
	}
	if c.ACLOut != "" {
		lines = append(lines, " traffic-filter outbound acl "+c.ACLOut)
	}
	if ps := c.PortSecurity; ps != nil {
		lines = append(lines, " port-security enable")
		if ps.MaxMAC > 0 {
			lines = append(lines, fmt.Sprintf(" port-security max-mac-num %d", ps.MaxMAC))
		}
		if ps.Action != "" {
			lines = append(lines, " port-security protect-action "+ps.Action)
		}
	}
	return lines
}

func iosPortFeatures(d *Device, p *Port) []string {
	var lines []string
	c := p.Config
	if c.LAGGroup > 0 {
		mode := "on"
		if lag := d.PortByID(LAGPortID(c.LAGGroup)); lag != nil && lag.Config.LAGMode == LAGLACP {
			mode = "active"
		}
		lines = append(lines, fmt.Sprintf(" channel-group %d mode %s", c.LAGGroup, mode))
	}
	if c.STPCost > 0 {
		lines = append(lines, fmt.Sprintf(" spanning-tree cost %d", c.STPCost))
	}
	if c.EdgePort {
		lines = append(lines, " spanning-tree portfast")
	}
	if c.ACLIn != "" {
		lines = append(lines, " ip access-group "+c.ACLIn+" in")
	}
	if c.ACLOut != "" {
		lines = append(lines, " ip access-group "+c.ACLOut+" out")
	}
	if ps := c.PortSecurity; ps != nil {
		lines = append(lines, " switchport port-security")
		if ps.MaxMAC > 0 {
			lines = append(lines, fmt.Sprintf(" switchport port-security maximum %d", ps.MaxMAC))
		}
		if ps.Action != "" {
			lines = append(lines, " switchport port-security violation "+ps.Action)
		}
	}
	return lines
}

type cfgBuilder struct {
	lines []string
}

func (b *cfgBuilder) section(sep string, lines ...string) {
	b.lines = append(b.lines, sep)
	b.lines = append(b.lines, lines...)
}

func (b *cfgBuilder) hostLines(sep string, d *Device) {
	switch {
	case d.Host.DHCPClient:
		b.section(sep, "ip dhcp")
	case d.Host.Gateway != "":
		b.section(sep, "ip default-gateway "+d.Host.Gateway)
	}
	if len(d.Host.DNS) > 0 {
		b.lines = append(b.lines, "ip name-server "+strings.Join(d.Host.DNS, " "))
	}
}

func processID(d *Device) int {
	if d.OSPF.ProcessID > 0 {
		return d.OSPF.ProcessID
	}
	return 1
}

func wildcard(maskLen int) string {
	return util.Uint32ToIP(^util.IPToUint32(util.MaskString(maskLen)))
}

// vrpArea renders an area id in dotted form ("0" -> "0.0.0.0").
func vrpArea(area string) string {
	if n, err := strconv.ParseUint(area, 10, 32); err == nil {
		return util.Uint32ToIP(uint32(n))
	}
	return area
}

func rangeText(r AddressRange) string {
	if r.End == "" || r.End == r.Start {
		return r.Start
	}
	return r.Start + " " + r.End
}

func joinInts(vals []int, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
