package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/model"
)

// createLAG adds the logical interface of trunk n. Its layer 2 mode follows
// the device: switched on bridges, routed elsewhere.
func createLAG(c *call, n int) *model.Port {
	mode := model.PortModeRouted
	if c.d.IsBridge() {
		mode = model.PortModeAccess
	}
	p := &model.Port{
		ID:     model.LAGPortID(n),
		Name:   model.LAGName(c.d, n),
		Type:   model.PortTypeLAG,
		Config: model.PortConfig{Mode: mode, Enabled: true, LAGMode: model.LAGManual},
	}
	c.d.Ports = append(c.d.Ports, p)
	return p
}

// enterLAG enters the view of trunk n, creating it on first use.
func enterLAG(c *call, n int) {
	p := c.d.PortByID(model.LAGPortID(n))
	created := p == nil
	if created {
		p = createLAG(c, n)
	}
	if !c.enter(model.ViewInterface, p.ID) {
		return
	}
	switch {
	case !created:
		c.print("Entered interface view for %s", p.Name)
	case c.d.IsHuawei():
		c.print("Eth-Trunk %d created. Entering interface configuration.", n)
	default:
		c.print("Port-channel %d created. Entering interface configuration.", n)
	}
}

// undoInterface deletes a logical LAG interface and releases its members.
// Physical interfaces cannot be removed.
func undoInterface(c *call) {
	name := c.cmd.Arg(0)
	n, ok := model.ParseLAGName(name)
	if !ok {
		if findPort(c.d, name) != nil {
			c.failf("Error: Interface %s cannot be deleted.", name)
			return
		}
		c.failf("Error: Interface %s not found.", name)
		return
	}
	id := model.LAGPortID(n)
	lag := c.d.PortByID(id)
	if lag == nil {
		c.failf("Error: Interface %s not found.", model.LAGName(c.d, n))
		return
	}
	for _, m := range c.d.LAGMembers(n) {
		m.Config.LAGGroup = 0
	}
	for i, p := range c.d.Ports {
		if p.ID == id {
			c.d.Ports = append(c.d.Ports[:i], c.d.Ports[i+1:]...)
			break
		}
	}
	if c.d.IsHuawei() {
		c.print("Eth-Trunk %d deleted", n)
		return
	}
	c.print("Port-channel %d deleted", n)
}

// lagMember bundles the physical interface of the view into a trunk. The
// IOS "mode" keyword also picks the bundling protocol of the trunk.
func lagMember(c *call) {
	p := ifacePort(c)
	if p == nil {
		return
	}
	if p.IsLAG() {
		c.fail("Error: A trunk interface cannot join another trunk.")
		return
	}
	n, _ := strconv.Atoi(c.cmd.Arg(0))
	if n < 1 || n > 64 {
		c.fail("Error: Invalid trunk ID (1-64)")
		return
	}
	mode, lagMode := "", ""
	if len(c.cmd.Args) > 1 {
		switch mode = strings.ToLower(c.cmd.Arg(1)); mode {
		case "active", "passive":
			lagMode = model.LAGLACP
		case "on":
			lagMode = model.LAGManual
		default:
			c.failf("Error: Invalid channel-group mode '%s'. Use active, passive, or on.", c.cmd.Arg(1))
			return
		}
	}
	lag := c.d.PortByID(model.LAGPortID(n))
	if lag == nil {
		if c.vrp() {
			c.failf("Error: Eth-Trunk %d does not exist.", n)
			return
		}
		lag = createLAG(c, n)
	}
	if lagMode != "" {
		lag.Config.LAGMode = lagMode
	}
	p.Config.LAGGroup = n
	if mode != "" {
		c.print("Interface added to channel-group %d mode %s", n, mode)
		return
	}
	if c.vrp() {
		c.print("Interface added to Eth-Trunk %d", n)
		return
	}
	c.print("Interface added to channel-group %d", n)
}

func undoLAGMember(c *call) {
	p := ifacePort(c)
	if p == nil {
		return
	}
	if p.Config.LAGGroup == 0 {
		c.fail("Error: The interface is not a trunk member.")
		return
	}
	n := p.Config.LAGGroup
	p.Config.LAGGroup = 0
	c.print("Interface removed from %s", model.LAGName(c.d, n))
}

// viewLAG returns the interface port when it is a logical trunk.
func viewLAG(c *call) *model.Port {
	p := ifacePort(c)
	if p == nil {
		return nil
	}
	if !p.IsLAG() {
		c.fail("Error: The command is only supported on trunk interfaces.")
		return nil
	}
	return p
}

// lagMode handles "mode lacp", "mode lacp-static" and "mode manual
// [load-balance]".
func lagMode(c *call) {
	p := viewLAG(c)
	if p == nil {
		return
	}
	switch strings.ToLower(c.cmd.Arg(0)) {
	case "lacp", "lacp-static", "lacp-dynamic":
		p.Config.LAGMode = model.LAGLACP
		c.print("LACP mode configured")
	case "manual":
		p.Config.LAGMode = model.LAGManual
		c.print("Manual load balance mode configured")
	default:
		c.failf("Error: Invalid trunk mode '%s'. Use lacp or manual.", c.cmd.Arg(0))
	}
}

var loadBalanceMethods = map[string]bool{
	"src-mac": true, "dst-mac": true, "src-dst-mac": true,
	"src-ip": true, "dst-ip": true, "src-dst-ip": true,
}

// loadBalance sets the hashing of one trunk (VRP, trunk view) or of every
// trunk (IOS, global).
func loadBalance(c *call) {
	method := strings.ToLower(c.cmd.Arg(0))
	if !loadBalanceMethods[method] {
		c.failf("Error: Invalid load balance method '%s'", c.cmd.Arg(0))
		return
	}
	if c.d.CLI.View == model.ViewInterface {
		p := viewLAG(c)
		if p == nil {
			return
		}
		p.Config.LoadBalance = method
		c.print("Load balance method set to %s", method)
		return
	}
	for _, p := range c.d.Ports {
		if p.IsLAG() {
			p.Config.LoadBalance = method
		}
	}
	c.print("Port-channel load balance set to %s", method)
}

// displayLAG lists trunks with their members; an argument limits the output
// to one trunk.
func displayLAG(c *call) {
	var lags []*model.Port
	for _, p := range c.d.Ports {
		if p.IsLAG() {
			lags = append(lags, p)
		}
	}
	if arg := strings.TrimSpace(c.cmd.Arg(0)); arg != "" && !isSummary(arg) {
		n, err := strconv.Atoi(arg)
		if err != nil {
			n, _ = model.ParseLAGName(arg)
		}
		lag := c.d.PortByID(model.LAGPortID(n))
		if lag == nil {
			c.failf("Error: Trunk %s does not exist.", arg)
			return
		}
		lags = []*model.Port{lag}
	}
	if len(lags) == 0 {
		c.print("(No link aggregation groups configured)")
		return
	}

	var rows [][]string
	for _, lag := range lags {
		n := model.LAGGroupOf(lag)
		var members []string
		up, bandwidth := false, 0
		for _, m := range c.d.LAGMembers(n) {
			members = append(members, m.Name)
			if c.linkUp(m) {
				up = true
				bandwidth += m.EffectiveSpeed()
			}
		}
		status := "Down"
		if up && lag.Config.Enabled {
			status = "Up"
		}
		memberText := "(no members)"
		if len(members) > 0 {
			memberText = strings.Join(members, ", ")
		}
		mode := "Manual"
		if lag.Config.LAGMode == model.LAGLACP {
			mode = "LACP"
		}
		rows = append(rows, []string{lag.Name, mode, status, fmt.Sprintf("%d Mbps", bandwidth), memberText})
	}
	title := "Eth-Trunk Summary"
	if !c.vrp() {
		title = "EtherChannel Summary"
	}
	c.lines(title, "")
	c.lines(cli.Lines([]string{"Trunk", "Mode", "Status", "Bandwidth", "Member Ports"}, rows)...)
	for _, lag := range lags {
		if lag.Config.LoadBalance != "" {
			c.lines("", fmt.Sprintf("Load Balance (%s): %s", lag.Name, lag.Config.LoadBalance))
		}
	}
}

func isSummary(arg string) bool {
	switch strings.ToLower(arg) {
	case "summary", "detail", "brief":
		return true
	}
	return false
}
