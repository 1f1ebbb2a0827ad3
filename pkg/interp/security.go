package interp

import (
	"strconv"
	"strings"

	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/fabric"
	"github.com/newtron-network/newtsim/pkg/model"
)

// aclDirection maps "inbound"/"in" and "outbound"/"out" to the port field
// holding the bound list.
func aclDirection(p *model.Port, dir string) (*string, string, bool) {
	switch strings.ToLower(dir) {
	case "inbound", "in":
		return &p.Config.ACLIn, "inbound", true
	case "outbound", "out":
		return &p.Config.ACLOut, "outbound", true
	}
	return nil, "", false
}

// trafficFilter binds an existing ACL to the interface: "traffic-filter
// inbound acl 3000" or "ip access-group EDGE in".
func trafficFilter(c *call) {
	p := ifacePort(c)
	if p == nil {
		return
	}
	dirArg, id := c.cmd.Arg(0), c.cmd.Arg(1)
	if c.vrp() {
		words := strings.Fields(id)
		id = words[len(words)-1]
	} else {
		dirArg, id = c.cmd.Arg(1), c.cmd.Arg(0)
	}
	field, dir, ok := aclDirection(p, dirArg)
	if !ok {
		c.failf("Error: Invalid direction '%s'. Use inbound or outbound.", dirArg)
		return
	}
	if c.d.ACL(id) == nil {
		c.failf("Error: ACL %s does not exist", id)
		return
	}
	*field = id
	c.print("ACL %s applied %s on interface", id, dir)
}

func undoTrafficFilter(c *call) {
	p := ifacePort(c)
	if p == nil {
		return
	}
	words := strings.Fields(c.cmd.Arg(0))
	field, dir, ok := aclDirection(p, words[len(words)-1])
	if !ok {
		c.failf("Error: Invalid direction '%s'. Use inbound or outbound.", words[len(words)-1])
		return
	}
	if *field == "" {
		c.failf("Error: No ACL applied %s on interface", dir)
		return
	}
	c.print("ACL %s removed %s from interface", *field, dir)
	*field = ""
}

func portSecurity(c *call) {
	p := l2Port(c)
	if p == nil {
		return
	}
	if p.Config.PortSecurity == nil {
		p.Config.PortSecurity = &model.PortSecurity{MaxMAC: 1, Action: model.SecurityProtect}
	}
	c.print("Port security enabled on interface")
}

func undoPortSecurity(c *call) {
	if p := l2Port(c); p != nil {
		p.Config.PortSecurity = nil
		c.print("Port security disabled on interface")
	}
}

// securedPort returns the interface port once port security is enabled.
func securedPort(c *call) *model.Port {
	p := l2Port(c)
	if p == nil {
		return nil
	}
	if p.Config.PortSecurity == nil {
		c.fail("Error: Port security is not enabled on this interface.")
		return nil
	}
	return p
}

func portSecurityMax(c *call) {
	p := securedPort(c)
	if p == nil {
		return
	}
	n, _ := strconv.Atoi(c.cmd.Arg(0))
	if n < 1 || n > 4096 {
		c.fail("Error: Invalid MAC address limit (1-4096)")
		return
	}
	p.Config.PortSecurity.MaxMAC = n
	c.print("Maximum MAC addresses set to %d", n)
}

func portSecurityAction(c *call) {
	p := securedPort(c)
	if p == nil {
		return
	}
	switch action := strings.ToLower(c.cmd.Arg(0)); action {
	case model.SecurityProtect, model.SecurityRestrict, model.SecurityShutdown:
		p.Config.PortSecurity.Action = action
		c.print("Violation action set to '%s'", action)
	default:
		c.failf("Error: Invalid action '%s'. Use protect, restrict, or shutdown.", c.cmd.Arg(0))
	}
}

// learnedMACs counts the host addresses reachable through a switched port:
// every enabled terminating port found by walking cables outward from the
// port across bridges, without coming back through this device.
func (c *call) learnedMACs(p *model.Port) int {
	f := c.fabric()
	peer, ok := f.Peer(c.d.ID, p.ID)
	if !ok || !p.Config.Enabled || !peer.Port.Config.Enabled {
		return 0
	}
	seen := map[string]bool{c.d.ID: true}
	count := 0
	queue := []fabric.PortRef{peer}
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		d := ref.Device
		if !d.IsBridge() || !ref.Port.IsSwitched() {
			count++
			continue
		}
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		for _, q := range d.Ports {
			if q.ID == ref.Port.ID || !q.Config.Enabled || !q.IsSwitched() {
				continue
			}
			if next, ok := f.Peer(d.ID, q.ID); ok && next.Port.Config.Enabled && !seen[next.Device.ID] {
				queue = append(queue, next)
			}
		}
	}
	return count
}

func displayPortSecurity(c *call) {
	var rows [][]string
	secured, violations := 0, 0
	for _, p := range c.d.Ports {
		ps := p.Config.PortSecurity
		if ps == nil {
			continue
		}
		secured++
		current := c.learnedMACs(p)
		violation := 0
		if current > ps.MaxMAC {
			violation = 1
			violations++
		}
		rows = append(rows, []string{p.Name, strconv.Itoa(ps.MaxMAC), strconv.Itoa(current), strconv.Itoa(violation), actionName(ps.Action)})
	}
	if secured == 0 {
		c.print("(No interfaces with port security)")
		return
	}
	c.lines("Port Security Status", "")
	c.lines(cli.Lines([]string{"Interface", "Max", "Current", "Violation", "Action"}, rows)...)
	c.lines("", "Total ports with security: "+strconv.Itoa(secured), "Total violations: "+strconv.Itoa(violations))
}

func actionName(action string) string {
	if action == "" {
		return ""
	}
	return strings.ToUpper(action[:1]) + action[1:]
}

func aaa(c *call) {
	c.d.AAA.Enabled = true
	c.print("AAA enabled")
}

// localUser stores a local account. Only the bcrypt hash of the password is
// kept; the VRP "cipher"/"simple" keyword changes nothing.
func localUser(c *call) {
	name, password := c.cmd.Arg(0), c.cmd.Arg(len(c.cmd.Args)-1)
	if c.vrp() {
		switch strings.ToLower(c.cmd.Arg(1)) {
		case "cipher", "simple", "irreversible-cipher":
		default:
			c.failf("Error: Invalid password type '%s'. Use cipher or simple.", c.cmd.Arg(1))
			return
		}
	}
	if len(password) < 4 {
		c.fail("Error: The password must be at least 4 characters.")
		return
	}
	hash, err := model.HashPassword(password)
	if err != nil {
		c.failf("Error: %v", err)
		return
	}
	u := model.LocalUser{Name: name, PasswordHash: hash, Privilege: 1}
	if cur := c.d.AAA.User(name); cur != nil {
		u.Privilege = cur.Privilege
	}
	c.d.AAA.SetUser(u)
	if c.vrp() {
		c.print("Local user '%s' configuration", name)
		return
	}
	c.print("Username '%s' configured", name)
}

func userPrivilege(c *call) {
	name := c.cmd.Arg(0)
	level, _ := strconv.Atoi(c.cmd.Arg(1))
	if level > 15 {
		c.fail("Error: Invalid privilege level (0-15)")
		return
	}
	u := c.d.AAA.User(name)
	if u == nil {
		c.failf("Error: Local user %s does not exist", name)
		return
	}
	u.Privilege = level
	c.print("Privilege level of '%s' set to %d", name, level)
}

func undoLocalUser(c *call) {
	name := c.cmd.Arg(0)
	if !c.d.AAA.RemoveUser(name) {
		c.failf("Error: Local user %s does not exist", name)
		return
	}
	c.print("Local user '%s' deleted", name)
}

func sshServer(c *call) {
	if !c.vrp() && c.cmd.Arg(0) != "2" {
		c.fail("Error: Only SSH version 2 is supported")
		return
	}
	c.d.AAA.SSHServer = true
	c.print("SSH server enabled")
}

func undoSSHServer(c *call) {
	c.d.AAA.SSHServer = false
	c.print("SSH server disabled")
}

func displayUsers(c *call) {
	if len(c.d.AAA.Users) == 0 {
		c.print("(No local users configured)")
		return
	}
	var rows [][]string
	for _, u := range c.d.AAA.Users {
		rows = append(rows, []string{u.Name, strconv.Itoa(u.Privilege), "ssh"})
	}
	c.lines(cli.Lines([]string{"User", "Privilege", "Service"}, rows)...)
	c.lines("", "Total users: "+strconv.Itoa(len(rows)), "SSH server: "+enabledText(c.d.AAA.SSHServer))
}
