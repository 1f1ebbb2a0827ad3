// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/newtron-network/newtsim/pkg/model"
)

// Now is the fixed clock used by fixtures.
var Now = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

// Clock returns a settable clock starting at Now.
func Clock() (now func() time.Time, advance func(time.Duration)) {
	var mu sync.Mutex
	t := Now
	now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return t
	}
	advance = func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(d)
	}
	return now, advance
}

// Port builds an enabled RJ45 port.
func Port(id, name string, mode model.PortMode, ip string, mask int) *model.Port {
	return &model.Port{ID: id, Name: name, Type: model.PortTypeRJ45,
		Config: model.PortConfig{Mode: mode, Enabled: true, IPAddress: ip, MaskLen: mask}}
}

// Lab returns the three-device lab pc1 - sw1 - r1. R1 serves DHCP pool "lan"
// (192.168.1.0/24, gateway 192.168.1.1, two-day leases).
func Lab() *model.Topology {
	r1 := &model.Device{ID: "r1", Hostname: "R1", Type: model.DeviceRouter, Vendor: model.VendorHuawei, Model: "AR2220",
		Ports: []*model.Port{
			Port("p1", "GigabitEthernet0/0/1", model.PortModeRouted, "192.168.1.1", 24),
			Port("p2", "GigabitEthernet0/0/2", model.PortModeRouted, "", 0),
		},
		DHCP: model.DHCPConfig{Enabled: true, Pools: []*model.DHCPPool{{
			Name: "lan", Network: "192.168.1.0", MaskLen: 24, Gateway: "192.168.1.1", LeaseDays: 2,
		}}},
	}
	sw1 := &model.Device{ID: "sw1", Hostname: "SW1", Type: model.DeviceSwitch, Vendor: model.VendorHuawei, Model: "S5700",
		Ports: []*model.Port{
			Port("1", "GigabitEthernet0/0/1", model.PortModeAccess, "", 0),
			Port("2", "GigabitEthernet0/0/2", model.PortModeAccess, "", 0),
			Port("3", "GigabitEthernet0/0/3", model.PortModeAccess, "", 0),
		}}
	pc1 := &model.Device{ID: "pc1", Hostname: "PC1", Type: model.DevicePC, Vendor: model.VendorNetSim,
		Ports: []*model.Port{Port("eth0", "eth0", model.PortModeRouted, "", 0)}}
	return &model.Topology{
		Name:    "lab",
		Devices: []*model.Device{r1, sw1, pc1},
		Cables: []*model.Cable{
			{ID: "c1", A: model.Endpoint{Device: "pc1", Port: "eth0"}, B: model.Endpoint{Device: "sw1", Port: "1"}},
			{ID: "c2", A: model.Endpoint{Device: "sw1", Port: "2"}, B: model.Endpoint{Device: "r1", Port: "p1"}},
		},
	}
}

// Context returns a context with a reasonable timeout for tests.
// The cancel function is registered via t.Cleanup.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
