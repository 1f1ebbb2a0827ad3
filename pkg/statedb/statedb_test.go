package statedb

import (
	"strings"
	"testing"
	"time"

	"github.com/newtron-network/newtsim/internal/testutil"
	"github.com/newtron-network/newtsim/pkg/converge"
	"github.com/newtron-network/newtsim/pkg/model"
)

func convergedLab(t *testing.T) []*model.Device {
	t.Helper()
	lab := testutil.Lab()
	lab.Devices[0].DHCP.Pools[0].Leases = map[string]model.Lease{
		"192.168.1.2": {Address: "192.168.1.2", ClientID: "02:00:00:00:00:01", Hostname: "PC1", Expires: testutil.Now.Add(time.Hour)},
	}
	devices, _, err := converge.Converge(lab.Devices, lab.Cables, testutil.Now)
	if err != nil {
		t.Fatalf("Converge() error = %v", err)
	}
	return devices
}

func TestKeys(t *testing.T) {
	if got := Key(TableRoute, "lab", "r1|10.0.0.0/24"); got != "ROUTE_TABLE|lab|r1|10.0.0.0/24" {
		t.Errorf("Key() = %q", got)
	}
	if got := LockKey("lab"); got != "NEWTSIM_LOCK|lab" {
		t.Errorf("LockKey() = %q", got)
	}
	if got := Channel("lab"); got != "newtsim:commits:lab" {
		t.Errorf("Channel() = %q", got)
	}
	if got := Holder("alice", "host1", 42); got != "alice@host1:42" {
		t.Errorf("Holder() = %q", got)
	}
}

func TestEntries(t *testing.T) {
	entries := Entries("lab", convergedLab(t))

	dev := entries["DEVICE_TABLE|lab|r1"]
	if dev["hostname"] != "R1" || dev["vendor"] != "Huawei" || dev["view"] != "user-view" {
		t.Errorf("device entry = %v", dev)
	}
	port := entries["PORT_TABLE|lab|r1|p1"]
	if port["address"] != "192.168.1.1/24" || port["admin_status"] != "up" || port["name"] != "GigabitEthernet0/0/1" {
		t.Errorf("port entry = %v", port)
	}
	if p2 := entries["PORT_TABLE|lab|r1|p2"]; p2["address"] != "" {
		t.Errorf("unaddressed port = %v", p2)
	}
	route := entries["ROUTE_TABLE|lab|r1|192.168.1.0/24"]
	if route["protocol"] != model.ProtoDirect || route["interface"] != "p1" || route["preference"] != "0" {
		t.Errorf("route entry = %v", route)
	}
	lease := entries["DHCP_LEASE_TABLE|lab|r1|192.168.1.2"]
	if lease["pool"] != "lan" || lease["hostname"] != "PC1" || lease["expires"] != "2024-06-01T10:30:00Z" {
		t.Errorf("lease entry = %v", lease)
	}

	count := 0
	for k := range entries {
		if strings.HasPrefix(k, TablePort+"|") {
			count++
		}
	}
	if count != 6 {
		t.Errorf("port entries = %d, want 6", count)
	}
}
