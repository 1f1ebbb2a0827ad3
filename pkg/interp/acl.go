package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newtron-network/newtsim/pkg/model"
)

func enterACL(c *call) {
	id := c.cmd.Arg(0)
	if c.vrp() {
		if n, _ := strconv.Atoi(id); n < 2000 || n > 3999 {
			c.fail("Error: Invalid ACL number (2000-3999)")
			return
		}
	}
	created := c.d.ACL(id) == nil
	if !c.enter(model.ViewACL, id) {
		return
	}
	if created {
		c.d.ACLs = append(c.d.ACLs, &model.ACL{ID: id})
		c.print("ACL %s created. Entering ACL configuration.", id)
	}
}

func viewACL(c *call) *model.ACL {
	a := c.d.ACL(c.d.CLI.ACL)
	if a == nil {
		c.failf("Error: ACL %s does not exist", c.d.CLI.ACL)
	}
	return a
}

// aclRule adds "rule [<id>] <action> <match>" (VRP) or "<action> <match>" (IOS).
func aclRule(c *call) {
	a := viewACL(c)
	if a == nil {
		return
	}
	words := strings.Fields(c.cmd.Arg(0))
	if kw := c.cmd.Keyword(); kw == model.ACLPermit || kw == model.ACLDeny {
		words = append([]string{kw}, words...)
	}

	id := 0
	if len(words) > 0 {
		if n, err := strconv.Atoi(words[0]); err == nil {
			if n < 0 {
				c.fail("Error: Invalid rule ID")
				return
			}
			id, words = n, words[1:]
		}
	}
	if len(words) == 0 || (words[0] != model.ACLPermit && words[0] != model.ACLDeny) {
		c.fail("Error: Rule action must be permit or deny")
		return
	}
	action, match := words[0], strings.Join(words[1:], " ")
	if match == "" {
		match = "any"
	}
	r := a.AddRule(id, action, match)
	c.print("Rule %d (%s) added successfully", r.ID, r.Action)
}

func undoRule(c *call) {
	a := viewACL(c)
	if a == nil {
		return
	}
	id, _ := strconv.Atoi(c.cmd.Arg(0))
	if !a.RemoveRule(id) {
		c.failf("Error: Rule %d does not exist", id)
		return
	}
	c.print("Rule %d deleted", id)
}

func undoACL(c *call) {
	words := strings.Fields(c.cmd.Arg(0))
	if len(words) == 0 {
		c.fail("Error: Incomplete command. Specify an ACL number or 'all'.")
		return
	}
	id := words[len(words)-1]
	if strings.EqualFold(id, "all") {
		c.d.ACLs = nil
		c.print("All ACLs deleted")
		return
	}
	for i, a := range c.d.ACLs {
		if a.ID == id {
			c.d.ACLs = append(c.d.ACLs[:i], c.d.ACLs[i+1:]...)
			c.print("ACL %s deleted", id)
			return
		}
	}
	c.failf("Error: ACL %s does not exist", id)
}

func displayACL(c *call) {
	acls := c.d.ACLs
	if words := strings.Fields(c.cmd.Arg(0)); len(words) > 0 && !strings.EqualFold(words[0], "all") {
		a := c.d.ACL(words[len(words)-1])
		if a == nil {
			c.failf("Error: ACL %s does not exist", words[len(words)-1])
			return
		}
		acls = []*model.ACL{a}
	}
	if len(acls) == 0 {
		c.print("(No ACLs configured)")
		return
	}
	for i, a := range acls {
		if i > 0 {
			c.lines("")
		}
		if c.vrp() {
			c.print("Advanced ACL %s, %d rule(s)", a.ID, len(a.Rules))
			for _, r := range a.Rules {
				c.print(" rule %d %s %s", r.ID, r.Action, r.Match)
			}
			continue
		}
		c.print("Extended IP access list %s", a.ID)
		for _, r := range a.Rules {
			c.lines(fmt.Sprintf("    %d %s %s", r.ID, r.Action, r.Match))
		}
	}
}
