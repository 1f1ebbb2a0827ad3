package model

import (
	"fmt"
	"strings"
)

// DefaultBridgePriority is the bridge priority of an unconfigured switch.
const DefaultBridgePriority = 32768

// BridgePriorityStep is the granularity of bridge priorities.
const BridgePriorityStep = 4096

// STPConfig is the spanning tree configuration of a bridge.
type STPConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Mode     string `json:"mode,omitempty" yaml:"mode,omitempty"` // stp, rstp, mstp, pvst, rapid-pvst
	Priority *int   `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// BridgePriority returns the configured priority or the default.
func (s STPConfig) BridgePriority() int {
	if s.Priority != nil {
		return *s.Priority
	}
	return DefaultBridgePriority
}

// ModeName returns the configured mode, "rstp" when unset.
func (s STPConfig) ModeName() string {
	if s.Mode == "" {
		return "rstp"
	}
	return s.Mode
}

func (s STPConfig) clone() STPConfig {
	c := s
	if s.Priority != nil {
		p := *s.Priority
		c.Priority = &p
	}
	return c
}

// BridgeMAC is the base MAC of the device: the address of its first port.
func (d *Device) BridgeMAC() string {
	for _, p := range d.Ports {
		if !p.IsLAG() {
			return p.HardwareAddr(d.ID)
		}
	}
	return "00:00:00:00:00:00"
}

// BridgeID renders "<priority>.<mac>" with the MAC in dotted quad-hex form,
// so that bridge ids of equal priority compare lexically.
func (d *Device) BridgeID() string {
	return fmt.Sprintf("%d.%s", d.STP.BridgePriority(), dottedMAC(d.BridgeMAC()))
}

func dottedMAC(mac string) string {
	hex := strings.ToLower(strings.ReplaceAll(mac, ":", ""))
	if len(hex) != 12 {
		return hex
	}
	return hex[0:4] + "." + hex[4:8] + "." + hex[8:12]
}
