package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/converge"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

var protoNames = map[string]string{
	model.ProtoDirect: "Direct",
	model.ProtoStatic: "Static",
	model.ProtoOSPF:   "OSPF",
}

func displayRoutes(c *call) {
	row := func(cols ...interface{}) string {
		return strings.TrimRight(fmt.Sprintf("%-20s %-8s %-6v %-6v %-16s %s", cols...), " ")
	}
	c.lines("Routing Table: Main", "Device: "+c.d.Hostname, "")
	c.lines(row("Destination/Mask", "Proto", "Pre", "Cost", "NextHop", "Interface"), strings.Repeat("-", 75))
	routes := c.d.Routes.Sorted()
	for _, r := range routes {
		nh, iface := r.NextHopIP, r.Interface
		if p := c.d.PortByID(r.Interface); p != nil {
			iface = p.Name
			if r.Protocol == model.ProtoDirect {
				nh = p.Config.IPAddress
			}
		}
		c.lines(row(r.Destination, protoNames[r.Protocol], r.Preference(), r.Cost, nh, iface))
	}
	c.lines("", fmt.Sprintf("Total routes: %d", len(routes)))
}

func displayOSPFPeer(c *call) {
	if !c.d.OSPF.Enabled {
		c.print("OSPF is not enabled on this device.")
		return
	}
	c.print("OSPF Process %d with Router ID %s", processID(c.d), converge.RouterID(c.d))
	c.lines("")
	if len(c.d.OSPF.Neighbors) == 0 {
		c.print("(No OSPF neighbors)")
		return
	}
	var rows [][]string
	for _, n := range c.d.OSPF.Neighbors {
		iface := n.Interface
		if p := c.d.PortByID(n.Interface); p != nil {
			iface = p.Name
		}
		rows = append(rows, []string{n.RouterID, n.Hostname, n.Address, iface, n.State, strconv.Itoa(n.Cost)})
	}
	c.lines(cli.Lines([]string{"Router ID", "Neighbor", "Address", "Interface", "State", "Cost"}, rows)...)
}

func processID(d *model.Device) int {
	if d.OSPF.ProcessID > 0 {
		return d.OSPF.ProcessID
	}
	return 1
}

func staticRoute(c *call) {
	dest, maskArg, nh := c.cmd.Arg(0), c.cmd.Arg(1), c.cmd.Arg(2)
	maskLen, err := util.ParseMask(maskArg)
	if err != nil {
		c.failf("Error: Invalid mask '%s'", maskArg)
		return
	}
	if c.d.PortWithAddress(nh) != nil {
		c.failf("Error: Next hop %s is a local address.", nh)
		return
	}
	prefix := util.NetworkPrefix(dest, maskLen)
	for _, r := range c.d.StaticRoutes {
		if r.Destination == prefix && r.NextHop == nh {
			c.print("Static route %s via %s already configured", prefix, nh)
			return
		}
	}
	c.d.StaticRoutes = append(c.d.StaticRoutes, model.StaticRoute{Destination: prefix, NextHop: nh})
	c.print("Static route added: %s via %s", prefix, nh)
}

// undoStaticRoute removes the routes to a prefix, or only the one through the
// given next hop.
func undoStaticRoute(c *call) {
	dest, maskArg := c.cmd.Arg(0), c.cmd.Arg(1)
	maskLen, err := util.ParseMask(maskArg)
	if err != nil {
		c.failf("Error: Invalid mask '%s'", maskArg)
		return
	}
	nh := ""
	if f := strings.Fields(c.cmd.Arg(2)); len(f) > 0 {
		nh = f[0]
	}
	prefix := util.NetworkPrefix(dest, maskLen)
	kept := c.d.StaticRoutes[:0]
	removed := 0
	for _, r := range c.d.StaticRoutes {
		if r.Destination == prefix && (nh == "" || r.NextHop == nh) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	if removed == 0 {
		c.failf("Error: Static route to %s does not exist", prefix)
		return
	}
	c.d.StaticRoutes = kept
	c.print("Static route to %s removed", prefix)
}

func enableOSPF(c *call) {
	pid := 1
	if arg := c.cmd.Arg(0); arg != "" {
		pid, _ = strconv.Atoi(arg)
		if pid < 1 || pid > 65535 {
			c.fail("Error: Invalid OSPF process ID (1-65535)")
			return
		}
	}
	if c.d.OSPF.Enabled && processID(c.d) != pid {
		c.failf("Error: OSPF process %d is already running.", processID(c.d))
		return
	}
	c.d.OSPF.Enabled = true
	c.d.OSPF.ProcessID = pid
	c.print("OSPF process %d enabled", pid)
}

func undoOSPF(c *call) {
	if arg := strings.TrimSpace(c.cmd.Arg(0)); arg != "" && c.d.OSPF.Enabled && arg != strconv.Itoa(processID(c.d)) {
		c.failf("Error: OSPF process %s does not exist", arg)
		return
	}
	c.d.OSPF = model.OSPFConfig{}
	c.print("OSPF disabled")
}

func ospfNetwork(c *call) {
	if !c.d.OSPF.Enabled {
		if c.vrp() {
			c.fail("Error: OSPF is not enabled. Run 'ospf' first.")
		} else {
			c.fail("Error: OSPF is not enabled. Run 'router ospf <process-id>' first.")
		}
		return
	}
	addr, wc, area := c.cmd.Arg(0), c.cmd.Arg(1), c.cmd.Arg(2)
	maskLen, err := util.WildcardToMaskLen(wc)
	if err != nil {
		c.failf("Error: Invalid wildcard mask '%s'", wc)
		return
	}
	n := model.OSPFNetwork{Address: util.ComputeNetworkAddr(addr, maskLen), MaskLen: maskLen, Area: area}
	for _, cur := range c.d.OSPF.Networks {
		if cur == n {
			c.print("Network %s %s already in OSPF area %s", n.Address, wc, area)
			return
		}
	}
	c.d.OSPF.Networks = append(c.d.OSPF.Networks, n)
	c.print("Network %s %s added to OSPF area %s", n.Address, wc, area)
}

func enableBGP(c *call) {
	asn, err := strconv.ParseInt(c.cmd.Arg(0), 10, 64)
	if err == nil {
		err = util.ValidateASN(asn)
	}
	if err != nil {
		c.failf("Error: Invalid AS number '%s'", c.cmd.Arg(0))
		return
	}
	created := c.d.BGP == nil
	if !created && c.d.BGP.ASN != asn {
		c.failf("Error: BGP is already running with AS %d.", c.d.BGP.ASN)
		return
	}
	if !c.enter(model.ViewBGP, "") {
		return
	}
	c.d.CLI.BGP = asn
	if created {
		c.d.BGP = &model.BGPConfig{ASN: asn}
		c.print("BGP AS %d enabled", asn)
	}
}

func undoBGP(c *call) {
	if c.d.BGP == nil {
		c.fail("Error: BGP is not enabled")
		return
	}
	if arg := strings.TrimSpace(c.cmd.Arg(0)); arg != "" && arg != strconv.FormatInt(c.d.BGP.ASN, 10) {
		c.failf("Error: BGP AS %s does not exist", arg)
		return
	}
	c.d.BGP = nil
	c.print("BGP disabled")
}

func bgpPeer(c *call) {
	addr := c.cmd.Arg(0)
	as, err := strconv.ParseInt(c.cmd.Arg(1), 10, 64)
	if err == nil {
		err = util.ValidateASN(as)
	}
	if err != nil {
		c.failf("Error: Invalid AS number '%s'", c.cmd.Arg(1))
		return
	}
	if c.d.PortWithAddress(addr) != nil {
		c.failf("Error: Peer %s is a local address.", addr)
		return
	}
	c.d.BGP.SetPeer(addr, as)
	c.print("BGP peer %s AS %d configured", addr, as)
}

func undoBGPPeer(c *call) {
	addr := c.cmd.Arg(0)
	if !c.d.BGP.RemovePeer(addr) {
		c.failf("Error: Peer %s does not exist", addr)
		return
	}
	c.print("BGP peer %s removed", addr)
}

func routerID(c *call) {
	c.d.BGP.RouterID = c.cmd.Arg(0)
	c.print("Router ID set to %s", c.d.BGP.RouterID)
}

func displayBGPPeer(c *call) {
	b := c.d.BGP
	if b == nil {
		c.print("BGP is not enabled on this device.")
		return
	}
	rid := b.RouterID
	if rid == "" {
		rid = converge.RouterID(c.d)
	}
	c.lines(
		" BGP local router ID : "+rid,
		fmt.Sprintf(" Local AS number : %d", b.ASN),
		fmt.Sprintf(" Total number of peers : %d", len(b.Peers)),
		"",
	)
	if len(b.Peers) == 0 {
		c.print("(No BGP peers configured)")
		return
	}
	var rows [][]string
	for _, p := range b.Peers {
		rows = append(rows, []string{p.Address, strconv.FormatInt(p.RemoteAS, 10), c.peerState(p)})
	}
	c.lines(cli.Lines([]string{"Peer", "AS", "State"}, rows)...)
}

// peerState is Established when the device holding the peer address runs BGP
// in the expected AS and points a peer back at this device.
func (c *call) peerState(p *model.BGPPeer) string {
	for _, d := range c.topology() {
		if d.ID == c.d.ID || d.BGP == nil || d.BGP.ASN != p.RemoteAS || d.PortWithAddress(p.Address) == nil {
			continue
		}
		for _, back := range d.BGP.Peers {
			if back.RemoteAS == c.d.BGP.ASN && c.d.PortWithAddress(back.Address) != nil {
				return "Established"
			}
		}
	}
	return "Idle"
}
