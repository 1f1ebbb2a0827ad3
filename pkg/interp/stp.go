package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/model"
)

var (
	vrpSTPModes = map[string]bool{"stp": true, "rstp": true, "mstp": true}
	iosSTPModes = map[string]bool{"pvst": true, "rapid-pvst": true, "mst": true}
)

// bridge fails the command on devices that do not run a VLAN bridge.
func bridge(c *call) bool {
	if !c.d.IsBridge() {
		c.fail("Error: Spanning tree is not supported on this device.")
		return false
	}
	return true
}

func stpEnable(c *call) {
	if !bridge(c) {
		return
	}
	c.d.STP.Enabled = true
	c.print("Spanning Tree Protocol enabled")
}

func undoSTP(c *call) {
	if !bridge(c) {
		return
	}
	c.d.STP.Enabled = false
	c.print("Spanning Tree Protocol disabled")
}

func stpMode(c *call) {
	if !bridge(c) {
		return
	}
	mode := strings.ToLower(c.cmd.Arg(0))
	if c.vrp() {
		if !vrpSTPModes[mode] {
			c.failf("Error: Invalid mode '%s'. Use stp, rstp, or mstp.", c.cmd.Arg(0))
			return
		}
		c.d.STP.Mode = mode
		c.print("STP mode set to %s", strings.ToUpper(mode))
		return
	}
	if !iosSTPModes[mode] {
		c.failf("Error: Invalid mode '%s'. Use pvst, rapid-pvst, or mst.", c.cmd.Arg(0))
		return
	}
	c.d.STP.Mode = mode
	c.print("Spanning tree mode set to %s", mode)
}

// stpPriority handles "stp priority <n>" and "spanning-tree vlan <list>
// priority <n>"; the priority is per bridge whatever the VLAN list.
func stpPriority(c *call) {
	if !bridge(c) {
		return
	}
	prio, err := strconv.Atoi(c.cmd.Arg(len(c.cmd.Args) - 1))
	if err != nil || prio < 0 || prio > 61440 || prio%model.BridgePriorityStep != 0 {
		c.fail("Error: Priority must be 0-61440 in increments of 4096")
		return
	}
	c.d.STP.Priority = &prio
	if len(c.cmd.Args) > 1 {
		c.print("VLAN bridge priority set to %d", prio)
		return
	}
	c.print("Bridge priority set to %d", prio)
}

func stpRoot(c *call) {
	if !bridge(c) {
		return
	}
	var prio int
	switch strings.ToLower(c.cmd.Arg(len(c.cmd.Args) - 1)) {
	case "primary":
		prio = 0
		c.print("This switch is configured as root bridge (priority 0)")
	case "secondary":
		prio = model.BridgePriorityStep
		c.print("This switch is configured as secondary root bridge")
	default:
		c.fail("Error: Use 'root primary' or 'root secondary'.")
		return
	}
	c.d.STP.Priority = &prio
}

func stpCost(c *call) {
	p := l2Port(c)
	if p == nil {
		return
	}
	cost, _ := strconv.Atoi(c.cmd.Arg(0))
	if cost < 1 || cost > 200000000 {
		c.fail("Error: Invalid port cost (1-200000000)")
		return
	}
	p.Config.STPCost = cost
	c.print("Port cost set to %d", cost)
}

func stpEdge(c *call) {
	p := l2Port(c)
	if p == nil {
		return
	}
	p.Config.EdgePort = true
	if c.vrp() {
		c.print("Port configured as edge port (fast transition to forwarding)")
		return
	}
	c.print("PortFast enabled on interface")
}

func undoSTPEdge(c *call) {
	if p := l2Port(c); p != nil {
		p.Config.EdgePort = false
		c.print("Edge port disabled on %s", p.Name)
	}
}

// displaySTP renders the bridge summary and port roles. "brief" or
// "summary" limit it to the port table, "interface <name>" to one port.
func displaySTP(c *call) {
	if !c.d.IsBridge() {
		c.fail("Error: Spanning tree is not supported on this device.")
		return
	}
	if !c.d.STP.Enabled {
		c.print("Spanning tree protocol is disabled.")
		return
	}
	tree := c.fabric().SpanningTree()
	words := strings.Fields(c.cmd.Arg(0))

	if len(words) > 1 && strings.HasPrefix("interface", strings.ToLower(words[0])) {
		name := strings.Join(words[1:], " ")
		p := findPort(c.d, name)
		if p == nil {
			c.failf("Error: Interface %s not found.", name)
			return
		}
		st, ok := tree.Port(c.d, p)
		if !ok {
			c.failf("Error: Interface %s is not a layer 2 port.", p.Name)
			return
		}
		c.lines(
			"STP Port State for "+p.Name,
			"Port Role: "+st.Role,
			"Port State: "+st.State,
			fmt.Sprintf("Port Cost: %d", st.Cost),
			"Port Priority: 128",
			"Designated Bridge: "+st.DesignatedBridge,
		)
		return
	}

	brief := len(words) > 0
	root, _ := tree.Root(c.d)
	if !brief {
		c.print("Mode: %s", strings.ToUpper(c.d.STP.ModeName()))
		c.print("Bridge ID: %s", c.d.BridgeID())
		switch {
		case root == nil:
		case root.ID == c.d.ID:
			c.print("Root Bridge: %s (This bridge is root)", root.BridgeID())
		default:
			c.print("Root Bridge: %s", root.BridgeID())
			c.print("Root Path Cost: %d", tree.RootCost(c.d))
		}
		c.lines("")
	}

	var rows [][]string
	for _, p := range c.d.Ports {
		st, ok := tree.Port(c.d, p)
		if !ok {
			continue
		}
		rows = append(rows, []string{p.Name, st.Role, st.State, strconv.Itoa(st.Cost), "128"})
	}
	if len(rows) == 0 {
		c.print("(No layer 2 ports)")
		return
	}
	c.lines(cli.Lines([]string{"Interface", "Role", "State", "Cost", "Priority"}, rows)...)
	if !brief {
		c.lines("", "Forward Delay: 15s, Max Age: 20s, Hello Time: 2s")
	}
}
