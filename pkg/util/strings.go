package util

import (
	"regexp"
	"strings"
)

var parseInterfaceRegexp = regexp.MustCompile(`^([a-zA-Z-]+)\s*(\d+(?:/\d+)*)$`)

// ParseInterfaceName splits an interface name into its type word and its
// slot/port numbering: "GigabitEthernet0/0/1" -> ("GigabitEthernet", "0/0/1").
// Names without numbering return (name, "").
func ParseInterfaceName(name string) (ifType string, num string) {
	m := parseInterfaceRegexp.FindStringSubmatch(strings.TrimSpace(name))
	if len(m) == 3 {
		return m[1], m[2]
	}
	return name, ""
}

// InterfaceNameMatches reports whether typed input refers to the interface
// called name. Matching is case-insensitive and accepts an abbreviated type
// word with the exact numbering: "g0/0/1", "GE0/0/1" and "gigabitethernet 0/0/1"
// all match "GigabitEthernet0/0/1". "GE" is accepted for GigabitEthernet as on VRP.
func InterfaceNameMatches(name, input string) bool {
	input = strings.Join(strings.Fields(input), "")
	if strings.EqualFold(name, input) {
		return true
	}
	nameType, nameNum := ParseInterfaceName(name)
	inType, inNum := ParseInterfaceName(input)
	if nameNum == "" || inNum != nameNum || inType == "" {
		return false
	}
	nt, it := strings.ToLower(nameType), strings.ToLower(inType)
	if strings.HasPrefix(nt, it) {
		return true
	}
	return it == "ge" && nt == "gigabitethernet"
}

// IsValidHostname applies the console hostname rules: 1-64 characters drawn
// from letters, digits, '-' and '_'.
func IsValidHostname(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, c := range name {
		ok := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_'
		if !ok {
			return false
		}
	}
	return true
}
