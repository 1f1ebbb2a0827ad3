// Package strategy holds the vendor CLI profiles: grammar tables, view graph,
// prompts and error texts. Strategies are immutable and shared by every device
// and session.
package strategy

import (
	"fmt"
	"strings"

	"github.com/newtron-network/newtsim/pkg/model"
)

// Profile ids
const (
	ProfileHuawei  = "huawei"
	ProfileCisco   = "cisco"
	ProfileGeneric = "generic"
)

// DefaultProfile is used when no profile, or an unknown one, is requested.
const DefaultProfile = ProfileGeneric

// Strategy is one vendor CLI profile.
type Strategy struct {
	id          string
	description string
	vrp         bool // VRP prompts and messages
	ios         bool // IOS prompts and messages
	rules       []rule
}

var profiles = map[string]*Strategy{
	ProfileHuawei:  newStrategy(ProfileHuawei, "Huawei VRP grammar", dialectVRP),
	ProfileCisco:   newStrategy(ProfileCisco, "Cisco IOS grammar", dialectIOS),
	ProfileGeneric: newStrategy(ProfileGeneric, "VRP and IOS grammar, device-styled prompts", dialectBoth),
}

func newStrategy(id, description string, d dialect) *Strategy {
	s := &Strategy{id: id, description: description, vrp: d == dialectVRP, ios: d == dialectIOS}
	for _, rl := range grammar {
		if d == dialectBoth || rl.dialect == dialectBoth || rl.dialect == d {
			s.rules = append(s.rules, rl)
		}
	}
	return s
}

// Resolve returns the strategy for profileID. It is total: an empty or
// unknown id yields the default profile.
func Resolve(profileID string) *Strategy {
	if s, ok := profiles[strings.ToLower(strings.TrimSpace(profileID))]; ok {
		return s
	}
	return profiles[DefaultProfile]
}

// Profiles lists the available profile ids.
func Profiles() []string {
	return []string{ProfileGeneric, ProfileHuawei, ProfileCisco}
}

// Known reports whether profileID names a profile.
func Known(profileID string) bool {
	_, ok := profiles[strings.ToLower(strings.TrimSpace(profileID))]
	return ok
}

// ID returns the profile id.
func (s *Strategy) ID() string {
	return s.id
}

// Describe explains which strategy serves a requested profile id.
func (s *Strategy) Describe(profileID string) string {
	switch {
	case strings.TrimSpace(profileID) == "":
		return fmt.Sprintf("No vendor profile selected, using default profile '%s' (%s)", s.id, s.description)
	case !Known(profileID):
		return fmt.Sprintf("Unknown vendor profile '%s', using default profile '%s' (%s)", profileID, s.id, s.description)
	}
	return fmt.Sprintf("Vendor profile '%s' active (%s)", s.id, s.description)
}

// DefaultHostname is the hostname restored by "undo sysname".
func (s *Strategy) DefaultHostname() string {
	return "Router"
}

// UsesVRP reports whether d gets VRP prompts and messages under this profile.
func (s *Strategy) UsesVRP(d *model.Device) bool {
	return s.vrpStyle(d)
}

func (s *Strategy) vrpStyle(d *model.Device) bool {
	if s.vrp || s.ios {
		return s.vrp
	}
	return d != nil && d.IsHuawei()
}

// Prompt renders the console prompt of d for its current view.
func (s *Strategy) Prompt(d *model.Device) string {
	port := ""
	if p := d.PortByID(d.CLI.Interface); p != nil {
		port = p.Name
	}
	if s.vrpStyle(d) {
		switch d.CLI.View {
		case model.ViewUser:
			return "<" + d.Hostname + ">"
		case model.ViewSystem:
			return "[" + d.Hostname + "]"
		case model.ViewInterface:
			return "[" + d.Hostname + "-" + port + "]"
		case model.ViewBGP:
			return "[" + d.Hostname + "-bgp]"
		case model.ViewPool:
			return "[" + d.Hostname + "-ip-pool-" + d.CLI.Pool + "]"
		case model.ViewACL:
			return "[" + d.Hostname + "-acl-adv-" + d.CLI.ACL + "]"
		}
	}
	switch d.CLI.View {
	case model.ViewSystem:
		return d.Hostname + "(config)#"
	case model.ViewInterface:
		return d.Hostname + "(config-if)#"
	case model.ViewBGP:
		return d.Hostname + "(config-router)#"
	case model.ViewPool:
		return d.Hostname + "(dhcp-config)#"
	case model.ViewACL:
		return d.Hostname + "(config-ext-nacl)#"
	}
	return d.Hostname + ">"
}

// UnknownCommand is the single console line for an unparseable input.
func (s *Strategy) UnknownCommand(d *model.Device, line string) string {
	if s.vrpStyle(d) {
		return "Error: Unrecognized command found at '^' position."
	}
	if s.ios {
		return "% Invalid input detected at '^' marker."
	}
	return fmt.Sprintf("Error: Unrecognized command '%s'", strings.TrimSpace(line))
}

// AmbiguousCommand is the single console line for an ambiguous abbreviation.
func (s *Strategy) AmbiguousCommand(d *model.Device, line string) string {
	if s.vrpStyle(d) {
		return "Error: Ambiguous command found at '^' position."
	}
	return fmt.Sprintf("%% Ambiguous command: \"%s\"", strings.TrimSpace(line))
}

// ViewRequired is the single console line for an op typed in the wrong view.
func (s *Strategy) ViewRequired(d *model.Device, v model.View) string {
	enter := map[model.View]string{
		model.ViewSystem:    "system-view",
		model.ViewInterface: "interface <name>",
		model.ViewBGP:       "bgp <as-number>",
		model.ViewPool:      "ip pool <name>",
		model.ViewACL:       "acl <number>",
	}
	if !s.vrpStyle(d) {
		enter = map[model.View]string{
			model.ViewSystem:    "configure terminal",
			model.ViewInterface: "interface <name>",
			model.ViewBGP:       "router bgp <as-number>",
			model.ViewPool:      "ip dhcp pool <name>",
			model.ViewACL:       "ip access-list extended <name>",
		}
	}
	return fmt.Sprintf("Error: Command requires %s. Enter '%s' first.", v, enter[v])
}

// Help lists the syntax of every command usable in view, one per line.
func (s *Strategy) Help(view model.View) []string {
	lines := []string{"Available commands:"}
	seen := make(map[string]bool)
	for _, rl := range s.rules {
		if !s.Allowed(rl.op, view) || rl.op == OpHelp {
			continue
		}
		syn := rl.Syntax()
		if seen[syn] {
			continue
		}
		seen[syn] = true
		lines = append(lines, "  "+syn)
	}
	return lines
}
