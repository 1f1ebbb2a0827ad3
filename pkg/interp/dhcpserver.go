package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/dhcp"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

// MaxDNSServers bounds a pool's DNS list.
const MaxDNSServers = 8

func dhcpEnable(c *call) {
	c.d.DHCP.Enabled = true
	c.print("DHCP service enabled")
}

func undoDHCPEnable(c *call) {
	c.d.DHCP.Enabled = false
	c.print("DHCP service disabled")
}

func enterPool(c *call) {
	name := c.cmd.Arg(0)
	created := c.d.Pool(name) == nil
	if !c.enter(model.ViewPool, name) {
		return
	}
	if created {
		c.d.DHCP.Pools = append(c.d.DHCP.Pools, &model.DHCPPool{Name: name})
		c.print("DHCP pool '%s' created. Entering pool configuration.", name)
	}
}

func undoPool(c *call) {
	name := c.cmd.Arg(0)
	for i, p := range c.d.DHCP.Pools {
		if p.Name == name {
			c.d.DHCP.Pools = append(c.d.DHCP.Pools[:i], c.d.DHCP.Pools[i+1:]...)
			c.print("DHCP pool '%s' deleted", name)
			return
		}
	}
	c.failf("Error: DHCP pool '%s' does not exist", name)
}

// viewPool returns the pool of the pool view.
func viewPool(c *call) *model.DHCPPool {
	p := c.d.Pool(c.d.CLI.Pool)
	if p == nil {
		c.failf("Error: DHCP pool '%s' does not exist", c.d.CLI.Pool)
	}
	return p
}

func poolNetwork(c *call) {
	pool := viewPool(c)
	if pool == nil {
		return
	}
	addr, maskArg := c.cmd.Arg(0), c.cmd.Arg(1)
	maskLen, err := util.ParseMask(maskArg)
	if err != nil || maskLen < 1 || maskLen > 30 {
		c.failf("Error: Invalid mask '%s'", maskArg)
		return
	}
	pool.Network, pool.MaskLen = util.ComputeNetworkAddr(addr, maskLen), maskLen
	if c.vrp() {
		c.print("Pool network set to %s mask %s", pool.Network, util.MaskString(maskLen))
	} else {
		c.print("Pool network set to %s %s", pool.Network, util.MaskString(maskLen))
	}
}

func poolGateway(c *call) {
	pool := viewPool(c)
	if pool == nil {
		return
	}
	gw := c.cmd.Arg(0)
	if pool.Configured() && !util.SameSubnet(gw, pool.Network, pool.MaskLen) {
		c.failf("Error: Gateway %s is not in pool network %s/%d", gw, pool.Network, pool.MaskLen)
		return
	}
	pool.Gateway = gw
	c.print("Default gateway set to %s", gw)
}

func poolDNS(c *call) {
	pool := viewPool(c)
	if pool == nil {
		return
	}
	servers := strings.Fields(c.cmd.Arg(0))
	if len(servers) > MaxDNSServers {
		c.failf("Error: At most %d DNS servers may be configured", MaxDNSServers)
		return
	}
	for _, s := range servers {
		if !util.IsValidIPv4(s) {
			c.failf("Error: Invalid DNS server address '%s'", s)
			return
		}
	}
	pool.DNS = servers
	c.print("DNS servers set to: %s", strings.Join(servers, ", "))
}

func poolLease(c *call) {
	pool := viewPool(c)
	if pool == nil {
		return
	}
	days, _ := strconv.Atoi(c.cmd.Arg(0))
	if days < 1 || days > 365 {
		c.fail("Error: Invalid lease time (1-365 days)")
		return
	}
	pool.LeaseDays = days
	c.print("Lease time set to %d days", days)
}

func poolDomain(c *call) {
	if pool := viewPool(c); pool != nil {
		pool.Domain = c.cmd.Arg(0)
		c.print("Domain name set to '%s'", pool.Domain)
	}
}

// addressRange reads "<start> [<end>]" from the command arguments.
func addressRange(c *call) (model.AddressRange, bool) {
	r := model.AddressRange{Start: c.cmd.Arg(0), End: c.cmd.Arg(0)}
	if f := strings.Fields(c.cmd.Arg(1)); len(f) > 0 {
		r.End = f[0]
	}
	if !util.IsValidIPv4(r.End) || util.IPToUint32(r.End) < util.IPToUint32(r.Start) {
		c.failf("Error: Invalid address range %s - %s", r.Start, r.End)
		return r, false
	}
	return r, true
}

func poolExclude(c *call) {
	pool := viewPool(c)
	if pool == nil {
		return
	}
	r, ok := addressRange(c)
	if !ok {
		return
	}
	if pool.Configured() && (!util.SameSubnet(r.Start, pool.Network, pool.MaskLen) || !util.SameSubnet(r.End, pool.Network, pool.MaskLen)) {
		c.failf("Error: Excluded range is outside pool network %s/%d", pool.Network, pool.MaskLen)
		return
	}
	pool.Excluded = append(pool.Excluded, r)
	c.print("Excluded addresses: %s - %s", r.Start, r.End)
}

func dhcpExclude(c *call) {
	r, ok := addressRange(c)
	if !ok {
		return
	}
	c.d.DHCP.Excluded = append(c.d.DHCP.Excluded, r)
	c.print("Excluded addresses: %s - %s", r.Start, r.End)
}

func poolSize(p *model.DHCPPool) int {
	if !p.Configured() {
		return 0
	}
	return 1<<(32-p.MaskLen) - 2
}

func activeLeases(p *model.DHCPPool, c *call) int {
	n := 0
	for _, l := range p.Leases {
		if l.Expires.After(c.in.Now) {
			n++
		}
	}
	return n
}

func displayPool(c *call) {
	if name := strings.TrimSpace(c.cmd.Arg(0)); name != "" && !strings.EqualFold(name, "all") {
		name = strings.TrimPrefix(name, "name ")
		p := c.d.Pool(name)
		if p == nil {
			c.failf("Error: DHCP pool '%s' does not exist", name)
			return
		}
		c.lines(poolDetail(p, c)...)
		return
	}

	c.lines("DHCP Server Pool Information", "DHCP Service: "+enabledText(c.d.DHCP.Enabled), "")
	if len(c.d.DHCP.Pools) == 0 {
		c.print("(No pools configured)")
		return
	}
	var rows [][]string
	for _, p := range c.d.DHCP.Pools {
		network := "-"
		if p.Configured() {
			network = fmt.Sprintf("%s/%d", p.Network, p.MaskLen)
		}
		gw := p.Gateway
		if gw == "" {
			gw = "-"
		}
		rows = append(rows, []string{p.Name, network, gw, fmt.Sprintf("%d/%d", activeLeases(p, c), poolSize(p))})
	}
	c.lines(cli.Lines([]string{"Pool Name", "Network", "Gateway", "Leases"}, rows)...)
}

func poolDetail(p *model.DHCPPool, c *call) []string {
	out := []string{"Pool-Name      : " + p.Name}
	if p.Configured() {
		out = append(out, "Network        : "+p.Network, "Mask           : "+maskText(p.MaskLen))
	} else {
		out = append(out, "Network        : (not configured)")
	}
	if p.Gateway != "" {
		out = append(out, "Gateway        : "+p.Gateway)
	}
	if len(p.DNS) > 0 {
		out = append(out, "DNS Servers    : "+strings.Join(p.DNS, " "))
	}
	if p.Domain != "" {
		out = append(out, "Domain Name    : "+p.Domain)
	}
	out = append(out, fmt.Sprintf("Lease          : %d days", int(p.LeaseDuration().Hours())/24))
	for _, r := range p.Excluded {
		out = append(out, fmt.Sprintf("Excluded       : %s - %s", r.Start, r.End))
	}
	used := activeLeases(p, c)
	out = append(out, fmt.Sprintf("Used           : %d", used), fmt.Sprintf("Idle           : %d", poolSize(p)-used))
	return out
}

func displayBindings(c *call) {
	bindings := dhcp.Bindings(c.d, c.in.Now)
	c.lines("DHCP Address Bindings", "")
	var rows [][]string
	for _, b := range bindings {
		host := b.Lease.Hostname
		if host == "" {
			host = "-"
		}
		rows = append(rows, []string{
			b.Lease.Address, b.Lease.ClientID, b.Pool, host,
			b.Lease.Expires.UTC().Format("Jan 02 2006 15:04"),
		})
	}
	c.lines(cli.Lines([]string{"IP Address", "MAC Address", "Pool", "Hostname", "Lease Expires"}, rows)...)
	c.lines("", fmt.Sprintf("Total bindings: %d", len(bindings)))
}

// resetBindings clears leases: "all" or "*" for every pool, "name <pool>" for
// one pool, or a single leased address.
func resetBindings(c *call) {
	words := strings.Fields(c.cmd.Arg(0))
	switch {
	case words[0] == "*" || strings.EqualFold(words[0], "all"):
		for _, p := range c.d.DHCP.Pools {
			p.Leases = nil
		}
		c.print("All DHCP bindings cleared.")
	case strings.EqualFold(words[0], "name") && len(words) == 2:
		p := c.d.Pool(words[1])
		if p == nil {
			c.failf("Error: DHCP pool '%s' does not exist", words[1])
			return
		}
		p.Leases = nil
		c.print("DHCP bindings of pool %s cleared.", p.Name)
	case util.IsValidIPv4(words[0]):
		for _, p := range c.d.DHCP.Pools {
			if _, ok := p.Leases[words[0]]; ok {
				delete(p.Leases, words[0])
				c.print("DHCP binding %s cleared.", words[0])
				return
			}
		}
		c.failf("Error: No DHCP binding for %s", words[0])
	default:
		c.failf("Error: Invalid binding selector '%s'", c.cmd.Arg(0))
	}
}
