package interp

import (
	"fmt"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

// findPort resolves a typed interface name, tolerating a space between the
// type and the number ("GigabitEthernet 0/0/1").
func findPort(d *model.Device, name string) *model.Port {
	if p := d.Port(name); p != nil {
		return p
	}
	return d.Port(strings.ReplaceAll(name, " ", ""))
}

func enterInterface(c *call) {
	name := c.cmd.Arg(0)
	p := findPort(c.d, name)
	if p == nil {
		if n, ok := model.ParseLAGName(name); ok {
			enterLAG(c, n)
			return
		}
		c.failf("Error: Interface %s not found.", name)
		return
	}
	if c.enter(model.ViewInterface, p.ID) {
		c.print("Entered interface view for %s", p.Name)
	}
}

// ifacePort returns the port of the interface view, failing the command when
// it no longer exists.
func ifacePort(c *call) *model.Port {
	p := c.port()
	if p == nil {
		c.failf("Error: Interface %s not found.", c.d.CLI.Interface)
	}
	return p
}

// linkUp reports the physical state of a port: cabled, and enabled at both ends.
func (c *call) linkUp(p *model.Port) bool {
	if !p.Config.Enabled {
		return false
	}
	peer, ok := c.fabric().Peer(c.d.ID, p.ID)
	return ok && peer.Port.Config.Enabled
}

func upDown(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

func displayIPBrief(c *call) {
	row := func(cols ...interface{}) string {
		return strings.TrimRight(fmt.Sprintf("%-20s %-16s %-8s %-12s %s", cols...), " ")
	}
	c.lines(row("Interface", "IP-Address", "Status", "Protocol", "Mode"), strings.Repeat("-", 70))
	for _, p := range c.d.Ports {
		addr := p.CIDR()
		if addr == "" {
			addr = "unassigned"
		}
		c.lines(row(p.Name, addr, upDown(c.linkUp(p)), upDown(p.Config.Enabled), string(p.Config.Mode)))
	}
}

func displayInterface(c *call) {
	if name := c.cmd.Arg(0); name != "" {
		p := findPort(c.d, name)
		if p == nil {
			c.failf("Error: Interface %s not found.", name)
			return
		}
		c.lines(c.interfaceDetail(p)...)
		return
	}
	for _, p := range c.d.Ports {
		c.lines(c.interfaceDetail(p)...)
		c.lines("")
	}
}

func (c *call) interfaceDetail(p *model.Port) []string {
	admin := "up"
	if !p.Config.Enabled {
		admin = "administratively down"
	}
	out := []string{
		"Interface: " + p.Name,
		"  Type: " + p.Type,
		"  Status: " + upDown(c.linkUp(p)),
		"  Admin Status: " + admin,
		"  Mode: " + string(p.Config.Mode),
		"  Hardware Address: " + p.HardwareAddr(c.d.ID),
		fmt.Sprintf("  Speed: %d Mbps", p.EffectiveSpeed()),
	}
	if p.Config.Duplex != "" {
		out = append(out, "  Duplex: "+p.Config.Duplex)
	}
	if p.HasAddress() {
		out = append(out, "  IP Address: "+p.CIDR())
	}
	if p.Config.Description != "" {
		out = append(out, "  Description: "+p.Config.Description)
	}
	switch p.Config.Mode {
	case model.PortModeAccess:
		out = append(out, fmt.Sprintf("  VLAN: %d", p.NativeVLAN()))
	case model.PortModeTrunk, model.PortModeHybrid:
		out = append(out, fmt.Sprintf("  Native VLAN: %d", p.NativeVLAN()))
		if len(p.Config.AllowedVLANs) > 0 {
			out = append(out, "  Allowed VLANs: "+util.CompactRange(p.Config.AllowedVLANs))
		}
	}
	if c.d.OSPF.Enabled && p.HasAddress() {
		out = append(out, fmt.Sprintf("  OSPF Cost: %d", c.d.LinkCost(p)))
	}
	return out
}

func ipAddress(c *call) {
	p := ifacePort(c)
	if p == nil {
		return
	}
	if p.IsSwitched() {
		if c.vrp() {
			c.fail("Error: Cannot configure an IP address on a layer 2 port. Run 'undo portswitch' first.")
		} else {
			c.fail("Error: Cannot configure an IP address on a layer 2 port. Run 'no switchport' first.")
		}
		return
	}
	ip, maskArg := c.cmd.Arg(0), c.cmd.Arg(1)
	maskLen, err := util.ParseMask(maskArg)
	if err != nil || maskLen == 0 {
		c.failf("Error: Invalid mask '%s'", maskArg)
		return
	}
	for _, other := range c.d.Ports {
		if other == p || !other.HasAddress() {
			continue
		}
		l := maskLen
		if other.Config.MaskLen < l {
			l = other.Config.MaskLen
		}
		if util.SameSubnet(ip, other.Config.IPAddress, l) {
			c.failf("Error: The address %s/%d overlaps with interface %s.", ip, maskLen, other.Name)
			return
		}
	}
	p.Config.IPAddress, p.Config.MaskLen = ip, maskLen
	c.print("IP address %s %s configured", ip, maskArg)
}

func undoIPAddress(c *call) {
	p := ifacePort(c)
	if p == nil {
		return
	}
	if !p.HasAddress() {
		c.fail("Error: No IP address to remove")
		return
	}
	p.Config.IPAddress, p.Config.MaskLen = "", 0
	c.print("IP address removed")
}

func shutdown(c *call) {
	if p := ifacePort(c); p != nil {
		p.Config.Enabled = false
		c.print("Interface %s administratively disabled", p.Name)
	}
}

func undoShutdown(c *call) {
	if p := ifacePort(c); p != nil {
		p.Config.Enabled = true
		c.print("Interface %s enabled", p.Name)
	}
}

func description(c *call) {
	if p := ifacePort(c); p != nil {
		p.Config.Description = c.cmd.Arg(0)
		c.print("Description set to '%s'", p.Config.Description)
	}
}

func undoDescription(c *call) {
	if p := ifacePort(c); p != nil {
		p.Config.Description = ""
		c.print("Description removed")
	}
}

// l2Port returns the interface port when the device bridges frames.
func l2Port(c *call) *model.Port {
	p := ifacePort(c)
	if p == nil {
		return nil
	}
	if !c.d.IsBridge() {
		c.fail("Error: Layer 2 commands are not supported on this device.")
		return nil
	}
	return p
}

func linkType(c *call) {
	p := l2Port(c)
	if p == nil {
		return
	}
	mode := model.PortMode(strings.ToLower(c.cmd.Arg(0)))
	switch mode {
	case model.PortModeAccess, model.PortModeTrunk, model.PortModeHybrid:
	default:
		c.failf("Error: Invalid port mode '%s'. Use access, trunk, or hybrid.", c.cmd.Arg(0))
		return
	}
	if !p.IsSwitched() {
		p.Config.IPAddress, p.Config.MaskLen = "", 0
	}
	p.Config.Mode = mode
	if mode == model.PortModeAccess {
		p.Config.AllowedVLANs = nil
	}
	c.print("Port link-type set to %s", mode)
}

func accessVLAN(c *call) {
	p := l2Port(c)
	if p == nil {
		return
	}
	if p.Config.Mode != model.PortModeAccess {
		c.fail("Error: The port is not an access port. Set the link-type to access first.")
		return
	}
	id, _ := strconv.Atoi(c.cmd.Arg(0))
	if util.ValidateVLANID(id) != nil {
		c.fail("Error: Invalid VLAN ID (1-4094)")
		return
	}
	if !c.d.HasVLAN(id) {
		if c.vrp() {
			c.failf("Error: The VLAN %d does not exist.", id)
			return
		}
		c.d.AddVLANs(id)
		c.print("%% Access VLAN does not exist. Creating vlan %d", id)
	}
	p.Config.VLAN = id
	c.print("Access VLAN set to %d", id)
}

// trunkAllow edits the allow list of a trunk or hybrid port. The list is
// replaced unless prefixed by "add", "remove" or "except"; "all" stands for
// every VLAN in the device database.
func trunkAllow(c *call) {
	p := l2Port(c)
	if p == nil {
		return
	}
	if p.Config.Mode != model.PortModeTrunk && p.Config.Mode != model.PortModeHybrid {
		c.fail("Error: The port is not a trunk port. Set the link-type to trunk first.")
		return
	}

	words := strings.Fields(c.cmd.Arg(0))
	op := "set"
	if len(words) > 1 {
		switch strings.ToLower(words[0]) {
		case "add", "remove", "except":
			op, words = strings.ToLower(words[0]), words[1:]
		}
	}

	var list mapset.Set[int]
	if len(words) == 1 && strings.EqualFold(words[0], "all") {
		list = model.VLANSet(append([]int{1}, c.d.VLANs...)...)
	} else {
		ids, err := util.ParseVLANList(words)
		if err != nil {
			c.failf("Error: %v", err)
			return
		}
		list = model.VLANSet(ids...)
	}

	cur := model.VLANSet(p.Config.AllowedVLANs...)
	switch op {
	case "add":
		cur = cur.Union(list)
	case "remove":
		cur = cur.Difference(list)
	case "except":
		cur = model.VLANSet(append([]int{1}, c.d.VLANs...)...).Difference(list)
	default:
		cur = list
	}
	p.Config.AllowedVLANs = model.SortedVLANs(cur)
	if len(p.Config.AllowedVLANs) == 0 {
		p.Config.AllowedVLANs = nil
		c.print("Trunk allowed VLANs cleared")
		return
	}
	c.print("Trunk allowed VLANs set to: %s", util.CompactRange(p.Config.AllowedVLANs))
}

var validSpeeds = map[int]bool{10: true, 100: true, 1000: true, 10000: true, 25000: true, 40000: true, 100000: true}

func speed(c *call) {
	p := ifacePort(c)
	if p == nil {
		return
	}
	arg := strings.ToLower(c.cmd.Arg(0))
	if arg == "auto" {
		p.Config.Speed = 0
		c.print("Speed set to auto")
		return
	}
	v, err := strconv.Atoi(arg)
	if err != nil || !validSpeeds[v] {
		c.failf("Error: Invalid speed '%s'", c.cmd.Arg(0))
		return
	}
	p.Config.Speed = v
	c.print("Speed set to %d", v)
}

func duplex(c *call) {
	p := ifacePort(c)
	if p == nil {
		return
	}
	switch arg := strings.ToLower(c.cmd.Arg(0)); arg {
	case "auto":
		p.Config.Duplex = ""
		c.print("Duplex set to auto")
	case "full", "half":
		p.Config.Duplex = arg
		c.print("Duplex set to %s", arg)
	default:
		c.failf("Error: Invalid duplex mode '%s'. Use full, half, or auto.", c.cmd.Arg(0))
	}
}

func ospfCost(c *call) {
	p := ifacePort(c)
	if p == nil {
		return
	}
	cost, _ := strconv.Atoi(c.cmd.Arg(0))
	if cost < 1 || cost > 65535 {
		c.fail("Error: Invalid cost (1-65535)")
		return
	}
	p.Config.Cost = cost
	c.print("OSPF cost set to %d", cost)
}

func undoOSPFCost(c *call) {
	if p := ifacePort(c); p != nil {
		p.Config.Cost = 0
		c.print("OSPF cost restored to default (%d)", c.d.LinkCost(p))
	}
}

func routedPort(c *call) {
	p := ifacePort(c)
	if p == nil {
		return
	}
	if !p.IsSwitched() {
		c.print("Interface %s is already a layer 3 port", p.Name)
		return
	}
	p.Config.Mode = model.PortModeRouted
	p.Config.VLAN, p.Config.AllowedVLANs = 0, nil
	c.print("Interface %s switched to layer 3 mode", p.Name)
}

func switchedPort(c *call) {
	p := l2Port(c)
	if p == nil {
		return
	}
	if p.IsSwitched() {
		c.print("Interface %s is already a layer 2 port", p.Name)
		return
	}
	p.Config.Mode = model.PortModeAccess
	p.Config.IPAddress, p.Config.MaskLen = "", 0
	c.print("Interface %s switched to layer 2 mode", p.Name)
}
