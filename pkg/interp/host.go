package interp

import (
	"errors"
	"strings"
	"time"

	"github.com/newtron-network/newtsim/pkg/dhcp"
	"github.com/newtron-network/newtsim/pkg/fabric"
	"github.com/newtron-network/newtsim/pkg/forward"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

// Traffic kinds
const (
	TrafficPing       = "ping"
	TrafficTraceroute = "traceroute"
)

// target reads the destination address of ping and traceroute; options
// before it are ignored.
func target(c *call, usage string) (string, bool) {
	f := strings.Fields(c.cmd.Arg(0))
	if len(f) == 0 {
		c.fail(usage)
		return "", false
	}
	dst := f[len(f)-1]
	if !util.IsValidIPv4(dst) {
		c.failf("Error: Invalid IP address '%s'", dst)
		return "", false
	}
	return dst, true
}

func (c *call) trace(kind, dst string) *model.PacketTrace {
	tr := forward.New(c.topology(), c.in.Cables).Trace(c.d.ID, dst)
	c.res.Traffic = &model.Traffic{Kind: kind, Path: tr.Path(), Trace: tr}
	return tr
}

func ping(c *call) {
	dst, ok := target(c, "Usage: ping <ip-address>")
	if !ok {
		return
	}
	c.lines(forward.PingLines(c.d, c.trace(TrafficPing, dst))...)
}

func traceroute(c *call) {
	dst, ok := target(c, "Usage: traceroute <ip-address>")
	if !ok {
		return
	}
	c.lines(forward.TracerouteLines(c.topology(), c.trace(TrafficTraceroute, dst))...)
}

func ipconfig(c *call) {
	c.lines("Host: "+c.d.Hostname, "")
	for _, p := range c.d.Ports {
		c.print("Interface: %s", p.Name)
		c.print("   Physical Address: %s", p.HardwareAddr(c.d.ID))
		if p.HasAddress() {
			c.print("   IPv4 Address: %s", p.Config.IPAddress)
			c.print("   Subnet Mask:  %s", util.MaskString(p.Config.MaskLen))
		} else {
			c.print("   IPv4 Address: (not configured)")
		}
		c.lines("")
	}
	if !c.d.IsHost() {
		return
	}
	gw := c.d.Host.Gateway
	if gw == "" {
		gw = "(none)"
	}
	c.print("Default Gateway: %s", gw)
	if len(c.d.Host.DNS) > 0 {
		c.print("DNS Servers: %s", strings.Join(c.d.Host.DNS, ", "))
	}
	c.print("DHCP Client: %s", enabledText(c.d.Host.DHCPClient))
	if c.d.Host.LeaseServer != "" {
		c.print("Lease Expires: %s", c.d.Host.LeaseExpires.UTC().Format(time.RFC1123))
	}
}

// hostNIC returns the first port of a host; other devices do not know the
// host commands.
func hostNIC(c *call) *model.Port {
	if !c.d.IsHost() {
		c.fail(c.s.UnknownCommand(c.d, c.cmd.Raw))
		return nil
	}
	if len(c.d.Ports) == 0 {
		c.fail("Error: No network interface available")
		return nil
	}
	return c.d.Ports[0]
}

// releaseGrant gives a DHCP address back to the server it came from.
func (c *call) releaseGrant(nic *model.Port) {
	if c.d.Host.LeaseServer == "" {
		return
	}
	c.res.Lease = &dhcp.Grant{
		Server:   c.d.Host.LeaseServer,
		Released: true,
		Lease:    model.Lease{Address: nic.Config.IPAddress, ClientID: nic.HardwareAddr(c.d.ID)},
	}
	c.d.Host.LeaseServer = ""
	c.d.Host.LeaseExpires = time.Time{}
}

func hostIP(c *call) {
	nic := hostNIC(c)
	if nic == nil {
		return
	}
	ip, maskArg := c.cmd.Arg(0), c.cmd.Arg(1)
	maskLen, err := util.ParseMask(maskArg)
	if err != nil || maskLen == 0 || maskLen > 30 {
		c.failf("Error: Invalid mask '%s'", maskArg)
		return
	}
	gw := ""
	if f := strings.Fields(c.cmd.Arg(2)); len(f) > 0 {
		gw = f[0]
		if !util.IsValidIPv4(gw) {
			c.fail("Error: Invalid IP address format")
			return
		}
		if !util.SameSubnet(ip, gw, maskLen) {
			c.failf("Error: Gateway %s is not in subnet %s", gw, util.NetworkPrefix(ip, maskLen))
			return
		}
	}

	c.releaseGrant(nic)
	nic.Config.IPAddress, nic.Config.MaskLen = ip, maskLen
	c.d.Host.Gateway = gw
	c.d.Host.DHCPClient = false

	c.lines("IP configuration set:", "  Address: "+ip, "  Mask: "+util.MaskString(maskLen))
	if gw != "" {
		c.print("  Gateway: %s", gw)
	}
}

func hostDHCP(c *call) {
	nic := hostNIC(c)
	if nic == nil {
		return
	}
	if !nic.Config.Enabled {
		c.failf("Error: Interface %s is down", nic.Name)
		return
	}
	srv, err := dhcp.FindServer(c.fabric(), fabric.PortRef{Device: c.d, Port: nic})
	if err != nil {
		c.failf("Error: No DHCP server responded on %s", nic.Name)
		return
	}

	topo := c.topology()
	inUse := func(ip string) bool {
		for _, d := range topo {
			if d.ID != c.d.ID && d.PortWithAddress(ip) != nil {
				return true
			}
		}
		return false
	}
	g, err := srv.Exchange(nic.HardwareAddr(c.d.ID), c.d.Hostname, c.in.Now, inUse)
	switch {
	case errors.Is(err, util.ErrPoolExhausted):
		c.failf("Error: DHCP server %s has no free address in pool %s", srv.Device.Hostname, srv.Pool.Name)
		return
	case err != nil:
		c.failf("Error: DHCP exchange failed: %v", err)
		return
	}

	nic.Config.IPAddress, nic.Config.MaskLen = g.Lease.Address, g.MaskLen
	c.d.Host.Gateway = g.Gateway
	c.d.Host.DNS = g.DNS
	c.d.Host.DHCPClient = true
	c.d.Host.LeaseServer = g.Server
	c.d.Host.LeaseExpires = g.Lease.Expires
	c.res.Lease = g

	c.lines("DHCP request sent...", "Received IP: "+nic.CIDR())
	if g.Gateway != "" {
		c.print("Gateway: %s", g.Gateway)
	}
	if len(g.DNS) > 0 {
		c.print("DNS: %s", strings.Join(g.DNS, ", "))
	}
	c.print("Lease expires: %s", g.Lease.Expires.UTC().Format(time.RFC1123))
}

func hostRelease(c *call) {
	nic := hostNIC(c)
	if nic == nil {
		return
	}
	if c.d.Host.LeaseServer == "" {
		c.fail("Error: No DHCP lease to release")
		return
	}
	addr := nic.Config.IPAddress
	c.releaseGrant(nic)
	nic.Config.IPAddress, nic.Config.MaskLen = "", 0
	c.d.Host.Gateway = ""
	c.d.Host.DNS = nil
	c.print("DHCP lease %s released", addr)
}
