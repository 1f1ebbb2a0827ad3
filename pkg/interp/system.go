package interp

import (
	"fmt"
	"strings"

	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
	"github.com/newtron-network/newtsim/pkg/version"
)

func systemView(c *call) {
	if c.enter(model.ViewSystem, "") {
		c.print("Enter configuration commands, one per line. End with CNTL/Z.")
	}
}

// quit steps back one level; user view is the floor.
func quit(c *call) {
	c.d.CLI.Enter(c.s.Parent(c.d.CLI.View), "")
}

func returnUser(c *call) {
	c.d.CLI.Enter(model.ViewUser, "")
}

func sysname(c *call) {
	name := strings.TrimSpace(c.cmd.Arg(0))
	switch {
	case name == "":
		c.fail("Error: Hostname cannot be empty.")
	case len(name) > 64:
		c.fail("Error: Hostname too long (max 64 characters).")
	case !util.IsValidHostname(name):
		c.fail("Error: Invalid hostname. Use alphanumeric characters, hyphens, or underscores only.")
	default:
		c.d.Hostname = name
		c.print("Hostname set to '%s'", name)
	}
}

func undoSysname(c *call) {
	c.d.Hostname = c.s.DefaultHostname()
	c.print("Hostname reset to default.")
}

func displayVersion(c *call) {
	c.lines(
		"NetSim OS Software, Version "+version.Release(),
		"Copyright (C) 2024-2026 NetSim Community",
		"",
		"Device:    "+c.d.Hostname,
		"Model:     "+c.d.Model,
		"Vendor:    "+c.d.Vendor,
		"Uptime:    0 days, 0 hours, 0 minutes",
	)
}

func displayConfig(c *call) {
	c.lines(model.RunningConfig(c.d)...)
}

func displayHistory(c *call) {
	for _, h := range c.in.History {
		c.print("  %s", h)
	}
}

func displayClock(c *call) {
	now := c.in.Now.UTC()
	if c.vrp() {
		c.print("%s", now.Format("2006-01-02 15:04:05"))
		c.print("%s", now.Format("Monday"))
		c.print("Time Zone(UTC) : UTC")
		return
	}
	c.print("*%s", now.Format("15:04:05.000 UTC Mon Jan 2 2006"))
}

func save(c *call) {
	if c.vrp() {
		c.lines(
			"The current configuration will be written to the device.",
			"Save the configuration successfully.",
		)
		return
	}
	c.lines("Building configuration...", "[OK]")
}

func help(c *call) {
	c.lines(c.s.Help(c.d.CLI.View)...)
}

// enabledText renders an admin state the way both dialects print it.
func enabledText(on bool) string {
	if on {
		return "Enabled"
	}
	return "Disabled"
}

func maskText(maskLen int) string {
	return fmt.Sprintf("%s (/%d)", util.MaskString(maskLen), maskLen)
}
