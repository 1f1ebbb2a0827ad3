// Package auth provides permission-based access control over lab consoles.
package auth

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/newtron-network/newtsim/pkg/strategy"
)

// Permission defines an action that can be controlled
type Permission string

// Standard permissions
const (
	PermConsoleView      Permission = "console.view"
	PermConsoleConfigure Permission = "console.configure"
	PermConsoleClear     Permission = "console.clear"

	PermProfileSet Permission = "profile.set"
	PermReconverge Permission = "topology.reconverge"

	PermAuditView Permission = "audit.view"

	PermAll Permission = "all" // Superuser - allows everything
)

// PermissionCategory groups related permissions
type PermissionCategory struct {
	Name        string
	Description string
	Permissions []Permission
}

// StandardCategories defines standard permission categories
var StandardCategories = []PermissionCategory{
	{
		Name:        "console",
		Description: "Device consoles",
		Permissions: []Permission{PermConsoleView, PermConsoleConfigure, PermConsoleClear},
	},
	{
		Name:        "topology",
		Description: "Lab-wide operations",
		Permissions: []Permission{PermProfileSet, PermReconverge},
	},
	{
		Name:        "audit",
		Description: "Audit log access",
		Permissions: []Permission{PermAuditView},
	},
}

// Known reports whether p names a standard permission or "all".
func Known(p string) bool {
	if Permission(p) == PermAll {
		return true
	}
	for _, cat := range StandardCategories {
		for _, perm := range cat.Permissions {
			if string(perm) == p {
				return true
			}
		}
	}
	return false
}

// readOnlyOps leave the device state untouched.
var readOnlyOps = mapset.NewSet(
	strategy.OpQuit,
	strategy.OpReturn,
	strategy.OpHelp,
	strategy.OpDisplayVersion,
	strategy.OpDisplayConfig,
	strategy.OpDisplayHistory,
	strategy.OpDisplayClock,
	strategy.OpDisplayIPBrief,
	strategy.OpDisplayInterface,
	strategy.OpDisplayVLAN,
	strategy.OpDisplayRoutes,
	strategy.OpDisplayOSPFPeer,
	strategy.OpDisplayBGPPeer,
	strategy.OpDisplayPool,
	strategy.OpDisplayBindings,
	strategy.OpDisplayACL,
	strategy.OpDisplaySTP,
	strategy.OpDisplayLAG,
	strategy.OpDisplayPortSecurity,
	strategy.OpDisplayUsers,
	strategy.OpPing,
	strategy.OpTraceroute,
	strategy.OpIPConfig,
)

// CommandPermission returns the permission needed to run op.
func CommandPermission(op strategy.Op) Permission {
	if readOnlyOps.Contains(op) {
		return PermConsoleView
	}
	return PermConsoleConfigure
}

// Context carries what a permission is being checked against.
type Context struct {
	Device  string
	Command string
}

// NewContext creates an empty permission context
func NewContext() *Context {
	return &Context{}
}

// WithDevice sets the device
func (c *Context) WithDevice(device string) *Context {
	c.Device = device
	return c
}

// WithCommand sets the console command
func (c *Context) WithCommand(command string) *Context {
	c.Command = command
	return c
}
