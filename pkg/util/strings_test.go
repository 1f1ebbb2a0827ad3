package util

import "testing"

func TestInterfaceNameMatches(t *testing.T) {
	tests := []struct {
		name, input string
		want        bool
	}{
		{"GigabitEthernet0/0/1", "GigabitEthernet0/0/1", true},
		{"GigabitEthernet0/0/1", "gigabitethernet0/0/1", true},
		{"GigabitEthernet0/0/1", "g0/0/1", true},
		{"GigabitEthernet0/0/1", "GE0/0/1", true},
		{"GigabitEthernet0/0/1", "gi 0/0/1", true},
		{"GigabitEthernet0/0/1", "g0/0/2", false},
		{"GigabitEthernet0/0/1", "fa0/0/1", false},
		{"Ethernet0", "eth0", true},
		{"Ethernet0", "0", false},
	}
	for _, tt := range tests {
		if got := InterfaceNameMatches(tt.name, tt.input); got != tt.want {
			t.Errorf("InterfaceNameMatches(%q, %q) = %v, want %v", tt.name, tt.input, got, tt.want)
		}
	}
}

func TestIsValidHostname(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"R1", true},
		{"core-sw_01", true},
		{"", false},
		{"bad name", false},
		{"bad.name", false},
		{"x234567890123456789012345678901234567890123456789012345678901234", true},
		{"x2345678901234567890123456789012345678901234567890123456789012345", false},
	}
	for _, tt := range tests {
		if got := IsValidHostname(tt.in); got != tt.want {
			t.Errorf("IsValidHostname(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
