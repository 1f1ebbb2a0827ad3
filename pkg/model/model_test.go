package model

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// ===================== View Tests =====================

func TestViewTokenRoundTrip(t *testing.T) {
	for _, v := range AllViews {
		if got := ViewFromToken(v.Token(), ViewUser); got != v {
			t.Errorf("ViewFromToken(%q) = %v, want %v", v.Token(), got, v)
		}
	}
}

func TestViewFromTokenDefault(t *testing.T) {
	tests := []struct {
		token   string
		current View
	}{
		{"", ViewSystem},
		{"zoneView", ViewInterface},
		{"SYSTEMVIEW", ViewUser},
	}
	for _, tt := range tests {
		if got := ViewFromToken(tt.token, tt.current); got != tt.current {
			t.Errorf("ViewFromToken(%q, %v) = %v, want current view", tt.token, tt.current, got)
		}
	}
}

func TestViewString(t *testing.T) {
	if ViewSystem.String() != "system-view" {
		t.Errorf("ViewSystem.String() = %q", ViewSystem.String())
	}
	if v, ok := ParseView("pool-view"); !ok || v != ViewPool {
		t.Errorf("ParseView(pool-view) = %v, %v", v, ok)
	}
	if View(42).String() != "unknown-view" {
		t.Errorf("View(42).String() = %q", View(42).String())
	}
}

func TestViewText(t *testing.T) {
	for _, v := range AllViews {
		b, err := v.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) error = %v", v, err)
		}
		var back View
		if err := back.UnmarshalText(b); err != nil || back != v {
			t.Errorf("UnmarshalText(%q) = %v, %v", b, back, err)
		}
	}
	var v View
	if err := v.UnmarshalText([]byte("bgpView")); err != nil || v != ViewBGP {
		t.Errorf("UnmarshalText(bgpView) = %v, %v", v, err)
	}
	if err := v.UnmarshalText([]byte("zone-view")); err == nil {
		t.Error("UnmarshalText(zone-view) should fail")
	}
}

func TestCLIStateEnter(t *testing.T) {
	s := CLIState{}
	s.Enter(ViewInterface, "p1")
	if s.Interface != "p1" || s.View != ViewInterface {
		t.Fatalf("Enter(interface) = %+v", s)
	}
	s.Enter(ViewPool, "LAN")
	if s.Interface != "" || s.Pool != "LAN" {
		t.Errorf("Enter(pool) should clear interface, got %+v", s)
	}
	s.Enter(ViewSystem, "")
	if s.Pool != "" || s.ACL != "" || s.Interface != "" {
		t.Errorf("Enter(system) should clear sub-context, got %+v", s)
	}
}

// ===================== Device Tests =====================

func testDevice() *Device {
	return &Device{
		ID:       "r1",
		Hostname: "R1",
		Type:     DeviceRouter,
		Vendor:   VendorHuawei,
		Model:    "AR2220",
		Ports: []*Port{
			{ID: "p1", Name: "GigabitEthernet0/0/0", Config: PortConfig{Mode: PortModeRouted, Enabled: true, IPAddress: "10.0.12.1", MaskLen: 24}},
			{ID: "p2", Name: "GigabitEthernet0/0/1", Config: PortConfig{Mode: PortModeTrunk, Enabled: true, AllowedVLANs: []int{10, 20}}},
		},
		VLANs: []int{10, 20},
		DHCP: DHCPConfig{Enabled: true, Pools: []*DHCPPool{{
			Name: "LAN", Network: "192.168.1.0", MaskLen: 24, Gateway: "192.168.1.1",
			Leases: map[string]Lease{"192.168.1.2": {Address: "192.168.1.2", ClientID: "aa"}},
		}}},
		BGP:    &BGPConfig{ASN: 65001, Peers: []*BGPPeer{{Address: "10.0.12.2", RemoteAS: 65002}}},
		Routes: RoutingTable{"10.0.12.0/24": {Destination: "10.0.12.0/24", Protocol: ProtoDirect}},
	}
}

func TestDeviceCloneIsDeep(t *testing.T) {
	d := testDevice()
	c := d.Clone()
	if !reflect.DeepEqual(d, c) {
		t.Fatal("Clone() should be equal to the original")
	}

	c.Ports[0].Config.IPAddress = "1.1.1.1"
	c.Ports[1].Config.AllowedVLANs[0] = 99
	c.VLANs[0] = 99
	c.DHCP.Pools[0].Leases["x"] = Lease{}
	c.BGP.Peers[0].RemoteAS = 1
	c.Routes["0.0.0.0/0"] = Route{}

	if d.Ports[0].Config.IPAddress != "10.0.12.1" {
		t.Error("port config shared with clone")
	}
	if d.Ports[1].Config.AllowedVLANs[0] != 10 {
		t.Error("allowed VLANs shared with clone")
	}
	if d.VLANs[0] != 10 {
		t.Error("VLAN list shared with clone")
	}
	if len(d.DHCP.Pools[0].Leases) != 1 {
		t.Error("lease map shared with clone")
	}
	if d.BGP.Peers[0].RemoteAS != 65002 {
		t.Error("BGP peers shared with clone")
	}
	if len(d.Routes) != 1 {
		t.Error("routing table shared with clone")
	}
}

func TestDevicePortLookup(t *testing.T) {
	d := testDevice()
	tests := []struct {
		ref  string
		want string
	}{
		{"p1", "p1"},
		{"GigabitEthernet0/0/1", "p2"},
		{"gigabitethernet0/0/0", "p1"},
		{"GE0/0/1", "p2"},
		{"g0/0/0", "p1"},
		{"GigabitEthernet0/0/9", ""},
	}
	for _, tt := range tests {
		p := d.Port(tt.ref)
		got := ""
		if p != nil {
			got = p.ID
		}
		if got != tt.want {
			t.Errorf("Port(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestAppendConsoleBounded(t *testing.T) {
	d := &Device{}
	for i := 0; i < ConsoleLimit+20; i++ {
		d.AppendConsole("line")
	}
	d.AppendConsole("last")
	if len(d.Console) != ConsoleLimit {
		t.Errorf("len(Console) = %d, want %d", len(d.Console), ConsoleLimit)
	}
	if d.Console[len(d.Console)-1] != "last" {
		t.Errorf("last console line = %q", d.Console[len(d.Console)-1])
	}
	d.ClearConsole()
	if len(d.Console) != 0 {
		t.Error("ClearConsole should empty the log")
	}
}

func TestRemoveVLANs(t *testing.T) {
	d := &Device{
		VLANs: []int{10, 20, 30},
		Ports: []*Port{
			{ID: "a", Config: PortConfig{Mode: PortModeAccess, VLAN: 20}},
			{ID: "t", Config: PortConfig{Mode: PortModeTrunk, AllowedVLANs: []int{10, 20, 30}}},
		},
	}
	d.RemoveVLANs(1, 20)
	if !reflect.DeepEqual(d.VLANs, []int{10, 30}) {
		t.Errorf("VLANs = %v, want [10 30]", d.VLANs)
	}
	if d.Ports[0].Config.VLAN != 1 {
		t.Errorf("access port VLAN = %d, want 1", d.Ports[0].Config.VLAN)
	}
	if !reflect.DeepEqual(d.Ports[1].Config.AllowedVLANs, []int{10, 30}) {
		t.Errorf("trunk allow list = %v, want [10 30]", d.Ports[1].Config.AllowedVLANs)
	}
	if !d.HasVLAN(1) {
		t.Error("VLAN 1 always exists")
	}
}

// ===================== Port Tests =====================

func TestPortOSPFCost(t *testing.T) {
	tests := []struct {
		name string
		cfg  PortConfig
		want int
	}{
		{"auto speed", PortConfig{}, 100},
		{"100M", PortConfig{Speed: 100}, 1000},
		{"10G", PortConfig{Speed: 10000}, 10},
		{"above reference", PortConfig{Speed: 400000}, 1},
		{"configured", PortConfig{Speed: 100, Cost: 7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Port{Config: tt.cfg}
			if got := p.OSPFCost(); got != tt.want {
				t.Errorf("OSPFCost() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHardwareAddrStable(t *testing.T) {
	p := &Port{ID: "p1"}
	a := p.HardwareAddr("pc1")
	if a != p.HardwareAddr("pc1") {
		t.Error("derived MAC should be stable")
	}
	if a == p.HardwareAddr("pc2") {
		t.Error("derived MAC should differ per device")
	}
	if !strings.HasPrefix(a, "02:") || len(a) != 17 {
		t.Errorf("derived MAC %q is not a locally administered address", a)
	}
	p.MAC = "00:11:22:33:44:55"
	if p.HardwareAddr("pc1") != "00:11:22:33:44:55" {
		t.Error("configured MAC should win")
	}
}

func TestCarriesVLAN(t *testing.T) {
	access := &Port{Config: PortConfig{Mode: PortModeAccess, VLAN: 10}}
	trunk := &Port{Config: PortConfig{Mode: PortModeTrunk, AllowedVLANs: []int{10, 20}}}
	routed := &Port{Config: PortConfig{Mode: PortModeRouted}}

	if !access.CarriesVLAN(10) || access.CarriesVLAN(1) {
		t.Error("access port should carry only its VLAN")
	}
	if !trunk.CarriesVLAN(1) || !trunk.CarriesVLAN(20) || trunk.CarriesVLAN(30) {
		t.Error("trunk should carry native plus allowed VLANs")
	}
	if routed.CarriesVLAN(1) {
		t.Error("routed port carries no VLAN")
	}
}

// ===================== Routing Tests =====================

func TestRoutingTableInstall(t *testing.T) {
	rt := RoutingTable{}
	rt.Install(Route{Destination: "10.0.0.0/24", Protocol: ProtoOSPF, Cost: 2, NextHop: "r2"})
	rt.Install(Route{Destination: "10.0.0.0/24", Protocol: ProtoStatic, NextHop: "r3"})
	if rt["10.0.0.0/24"].Protocol != ProtoStatic {
		t.Errorf("static should beat ospf, got %s", rt["10.0.0.0/24"].Protocol)
	}
	rt.Install(Route{Destination: "10.0.0.0/24", Protocol: ProtoOSPF, Cost: 1})
	if rt["10.0.0.0/24"].Protocol != ProtoStatic {
		t.Error("ospf should not replace static")
	}
	rt.Install(Route{Destination: "10.0.0.0/24", Protocol: ProtoDirect})
	if rt["10.0.0.0/24"].Protocol != ProtoDirect {
		t.Error("direct should beat static")
	}
}

func TestRoutingTableLookup(t *testing.T) {
	rt := RoutingTable{
		"0.0.0.0/0":   {Destination: "0.0.0.0/0", Protocol: ProtoStatic, NextHop: "gw"},
		"10.0.0.0/8":  {Destination: "10.0.0.0/8", Protocol: ProtoOSPF, NextHop: "r2"},
		"10.1.0.0/16": {Destination: "10.1.0.0/16", Protocol: ProtoOSPF, NextHop: "r3"},
	}
	tests := []struct {
		ip   string
		want string
	}{
		{"10.1.2.3", "r3"},
		{"10.2.0.1", "r2"},
		{"8.8.8.8", "gw"},
	}
	for _, tt := range tests {
		r, ok := rt.Lookup(tt.ip)
		if !ok || r.NextHop != tt.want {
			t.Errorf("Lookup(%s) = %+v, %v, want next hop %s", tt.ip, r, ok, tt.want)
		}
	}
	if _, ok := (RoutingTable{}).Lookup("1.1.1.1"); ok {
		t.Error("empty table should miss")
	}
}

func TestRoutingTableSorted(t *testing.T) {
	rt := RoutingTable{
		"192.168.1.0/24": {Destination: "192.168.1.0/24"},
		"10.0.0.0/8":     {Destination: "10.0.0.0/8"},
		"10.0.0.0/24":    {Destination: "10.0.0.0/24"},
	}
	var got []string
	for _, r := range rt.Sorted() {
		got = append(got, r.Destination)
	}
	want := []string{"10.0.0.0/8", "10.0.0.0/24", "192.168.1.0/24"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sorted() = %v, want %v", got, want)
	}
}

// ===================== DHCP / ACL Tests =====================

func TestPoolExclusion(t *testing.T) {
	p := &DHCPPool{Gateway: "10.0.0.1", Excluded: []AddressRange{{Start: "10.0.0.10", End: "10.0.0.20"}}}
	global := []AddressRange{{Start: "10.0.0.50"}}
	tests := []struct {
		ip   string
		want bool
	}{
		{"10.0.0.1", true},
		{"10.0.0.15", true},
		{"10.0.0.50", true},
		{"10.0.0.2", false},
		{"10.0.0.21", false},
	}
	for _, tt := range tests {
		if got := p.IsExcluded(tt.ip, global); got != tt.want {
			t.Errorf("IsExcluded(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
	if p.LeaseDuration() != 24*time.Hour {
		t.Errorf("default lease = %v, want 24h", p.LeaseDuration())
	}
}

func TestACLAddRule(t *testing.T) {
	a := &ACL{ID: "3000"}
	a.AddRule(0, ACLPermit, "ip")
	a.AddRule(0, ACLDeny, "icmp")
	a.AddRule(7, ACLPermit, "tcp")
	a.AddRule(5, ACLDeny, "ip")

	var ids []int
	for _, r := range a.Rules {
		ids = append(ids, r.ID)
	}
	if !reflect.DeepEqual(ids, []int{5, 7, 10}) {
		t.Errorf("rule ids = %v, want [5 7 10]", ids)
	}
	if a.Rules[0].Action != ACLDeny {
		t.Error("AddRule with an existing id should replace the rule")
	}
	if !a.RemoveRule(7) || a.RemoveRule(7) {
		t.Error("RemoveRule should remove once")
	}
}

// ===================== Config Rendering =====================

func TestRunningConfigVRP(t *testing.T) {
	got := strings.Join(RunningConfig(testDevice()), "\n")
	for _, want := range []string{
		" sysname R1",
		"vlan batch 10 20",
		"dhcp enable",
		"ip pool LAN",
		" network 192.168.1.0 mask 255.255.255.0",
		"interface GigabitEthernet0/0/0",
		" ip address 10.0.12.1 255.255.255.0",
		" port trunk allow-pass vlan 10 20",
		"bgp 65001",
		" peer 10.0.12.2 as-number 65002",
		"return",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("VRP config missing %q:\n%s", want, got)
		}
	}
}

func TestRunningConfigIOS(t *testing.T) {
	d := testDevice()
	d.Vendor = VendorCisco
	d.OSPF = OSPFConfig{Enabled: true, ProcessID: 1, Networks: []OSPFNetwork{{Address: "10.0.12.0", MaskLen: 24, Area: "0"}}}
	d.StaticRoutes = []StaticRoute{{Destination: "0.0.0.0/0", NextHop: "10.0.12.2"}}

	got := strings.Join(RunningConfig(d), "\n")
	for _, want := range []string{
		"hostname R1",
		"service dhcp",
		"ip dhcp pool LAN",
		" switchport trunk allowed vlan 10,20",
		"router ospf 1",
		" network 10.0.12.0 0.0.0.255 area 0",
		"router bgp 65001",
		"ip route 0.0.0.0 0.0.0.0 10.0.12.2",
		"end",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("IOS config missing %q:\n%s", want, got)
		}
	}
}

func TestRunningConfigDeterministic(t *testing.T) {
	d := testDevice()
	a := RunningConfig(d)
	b := RunningConfig(d.Clone())
	if !reflect.DeepEqual(a, b) {
		t.Error("RunningConfig should be a pure function of the configuration")
	}
}

func TestTracePath(t *testing.T) {
	tr := &PacketTrace{Hops: []Hop{
		{Device: "pc1", Action: HopOriginate},
		{Device: "sw1", Action: HopSwitch},
		{Device: "r1", Action: HopForward},
		{Device: "r1", Action: HopForward},
		{Device: "pc2", Action: HopDeliver},
	}}
	want := []string{"pc1", "sw1", "r1", "pc2"}
	if got := tr.Path(); !reflect.DeepEqual(got, want) {
		t.Errorf("Path() = %v, want %v", got, want)
	}
}

func TestReplaceDeviceByID(t *testing.T) {
	devices := []*Device{{ID: "a", Hostname: "A"}, {ID: "b", Hostname: "B"}}
	updated := &Device{ID: "b", Hostname: "A"}
	out := ReplaceDevice(devices, updated)
	if out[1] != updated || out[0] != devices[0] {
		t.Error("ReplaceDevice should merge by id only")
	}
	if devices[1].Hostname != "B" {
		t.Error("ReplaceDevice should not modify the input slice")
	}
}

// ===================== ACL Evaluation Tests =====================

func TestACLEvaluate(t *testing.T) {
	pkt := Packet{Protocol: "icmp", Source: "192.168.1.10", Dest: "10.0.0.5"}
	tests := []struct {
		name  string
		match string
		want  bool
	}{
		{"vrp any", "any", true},
		{"vrp source wildcard", "ip source 192.168.1.0 0.0.0.255", true},
		{"vrp source miss", "ip source 192.168.2.0 0.0.0.255", false},
		{"vrp host zero wildcard", "icmp source 192.168.1.10 0", true},
		{"vrp destination", "ip source any destination 10.0.0.0 0.255.255.255", true},
		{"vrp destination miss", "ip destination 172.16.0.0 0.0.255.255", false},
		{"protocol mismatch", "tcp source any", false},
		{"ios host", "icmp host 192.168.1.10 any", true},
		{"ios wildcard pair", "ip 192.168.0.0 0.0.255.255 10.0.0.0 0.0.0.255", true},
		{"ios destination miss", "ip any host 10.0.0.6", false},
		{"ios trailing port spec", "icmp any any echo", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &ACL{ID: "3000"}
			a.AddRule(0, ACLPermit, tt.match)
			if got := a.Evaluate(pkt) != nil; got != tt.want {
				t.Errorf("Evaluate() with %q matched = %v, want %v", tt.match, got, tt.want)
			}
		})
	}
}

func TestACLPermitsDefaultByVendor(t *testing.T) {
	a := &ACL{ID: "3000"}
	a.AddRule(5, ACLDeny, "ip source 10.0.0.0 0.255.255.255")
	a.AddRule(10, ACLPermit, "ip source 10.1.0.0 0.0.255.255")
	huawei, cisco := &Device{Vendor: VendorHuawei}, &Device{Vendor: VendorCisco}

	ok, r := a.Permits(huawei, Packet{Protocol: "icmp", Source: "10.1.2.3", Dest: "1.1.1.1"})
	if ok || r == nil || r.ID != 5 {
		t.Errorf("first match should win: got %v, rule %+v", ok, r)
	}
	if ok, r := a.Permits(huawei, Packet{Protocol: "icmp", Source: "172.16.0.1", Dest: "1.1.1.1"}); !ok || r != nil {
		t.Error("VRP should permit unmatched packets")
	}
	if ok, _ := a.Permits(cisco, Packet{Protocol: "icmp", Source: "172.16.0.1", Dest: "1.1.1.1"}); ok {
		t.Error("IOS should deny unmatched packets")
	}
}

// ===================== LAG Tests =====================

func TestParseLAGName(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"eth-trunk 1", 1, true},
		{"Eth-Trunk12", 12, true},
		{"port-channel 2", 2, true},
		{"Po3", 3, true},
		{"eth-trunk 0", 0, false},
		{"port-channel 65", 0, false},
		{"GigabitEthernet0/0/1", 0, false},
	}
	for _, tt := range tests {
		n, ok := ParseLAGName(tt.in)
		if n != tt.want || ok != tt.ok {
			t.Errorf("ParseLAGName(%q) = %d, %v, want %d, %v", tt.in, n, ok, tt.want, tt.ok)
		}
	}
}

func TestLinkSpeedSumsMembers(t *testing.T) {
	d := &Device{Vendor: VendorHuawei, Ports: []*Port{
		{ID: "p1", Config: PortConfig{Enabled: true, LAGGroup: 1}},
		{ID: "p2", Config: PortConfig{Enabled: true, LAGGroup: 1, Speed: 10000}},
		{ID: "p3", Config: PortConfig{Enabled: false, LAGGroup: 1}},
		{ID: "p4", Config: PortConfig{Enabled: true}},
		{ID: LAGPortID(1), Name: LAGName(&Device{Vendor: VendorHuawei}, 1), Type: PortTypeLAG, Config: PortConfig{Enabled: true}},
	}}
	if got := d.LinkSpeed(d.Ports[0]); got != 11000 {
		t.Errorf("LinkSpeed(member) = %d, want 11000", got)
	}
	if got := d.LinkCost(d.Ports[0]); got != 9 {
		t.Errorf("LinkCost(member) = %d, want 9", got)
	}
	if got := d.LinkCost(d.Ports[3]); got != 100 {
		t.Errorf("LinkCost(standalone) = %d, want 100", got)
	}
	if got := len(d.LAGMembers(1)); got != 3 {
		t.Errorf("LAGMembers(1) = %d ports, want 3", got)
	}
	if d.Ports[4].Name != "Eth-Trunk1" || LAGGroupOf(d.Ports[4]) != 1 {
		t.Errorf("logical port = %s group %d", d.Ports[4].Name, LAGGroupOf(d.Ports[4]))
	}

	// A shut logical interface unbundles its members
	d.Ports[4].Config.Enabled = false
	if got := d.LinkSpeed(d.Ports[0]); got != 1000 {
		t.Errorf("LinkSpeed with trunk down = %d, want 1000", got)
	}
}

// ===================== STP Tests =====================

func TestBridgeID(t *testing.T) {
	prio := 4096
	d := &Device{ID: "sw1", Ports: []*Port{{ID: "1", MAC: "00:1A:2B:3C:4D:5E"}}}
	if got := d.BridgeID(); got != "32768.001a.2b3c.4d5e" {
		t.Errorf("BridgeID() = %q", got)
	}
	d.STP.Priority = &prio
	if got := d.BridgeID(); got != "4096.001a.2b3c.4d5e" {
		t.Errorf("BridgeID() with priority = %q", got)
	}
	if d.STP.ModeName() != "rstp" {
		t.Errorf("default mode = %q", d.STP.ModeName())
	}

	c := d.Clone()
	*c.STP.Priority = 0
	if *d.STP.Priority != 4096 {
		t.Error("Clone should copy the bridge priority")
	}
}

func TestSTPPathCost(t *testing.T) {
	if got := (&Port{}).STPPathCost(); got != 20000 {
		t.Errorf("STPPathCost(1G) = %d, want 20000", got)
	}
	if got := (&Port{Config: PortConfig{Speed: 100}}).STPPathCost(); got != 200000 {
		t.Errorf("STPPathCost(100M) = %d, want 200000", got)
	}
	if got := (&Port{Config: PortConfig{STPCost: 5}}).STPPathCost(); got != 5 {
		t.Errorf("STPPathCost(configured) = %d, want 5", got)
	}
}

// ===================== AAA Tests =====================

func TestLocalUsers(t *testing.T) {
	var a AAAConfig
	hash, err := HashPassword("Huawei@123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "Huawei@123" {
		t.Fatal("password stored in clear")
	}
	a.SetUser(LocalUser{Name: "admin", PasswordHash: hash, Privilege: 15})
	if !a.Authenticate("admin", "Huawei@123") {
		t.Error("correct password rejected")
	}
	if a.Authenticate("admin", "wrong") || a.Authenticate("nobody", "Huawei@123") {
		t.Error("bad credentials accepted")
	}

	a.SetUser(LocalUser{Name: "admin", PasswordHash: hash, Privilege: 3})
	if len(a.Users) != 1 || a.User("admin").Privilege != 3 {
		t.Errorf("SetUser should replace, users = %+v", a.Users)
	}
	if !a.RemoveUser("admin") || a.RemoveUser("admin") {
		t.Error("RemoveUser should delete once")
	}
}
