package strategy

import "strings"

// dialect tags a grammar rule with the vendor syntax it belongs to.
type dialect int

const (
	dialectBoth dialect = iota
	dialectVRP
	dialectIOS
)

// rule is one syntax of one op. Pattern elements are keywords or placeholders:
//
//	<w>  any single token
//	<n>  a non-negative integer
//	<ip> a dotted IPv4 address
//	<*>  one or more remaining tokens, joined into a single argument
//	<?>  zero or more remaining tokens
type rule struct {
	op      Op
	dialect dialect
	pattern []string
}

func r(op Op, d dialect, pattern string) rule {
	return rule{op: op, dialect: d, pattern: strings.Fields(pattern)}
}

// Syntax returns the pattern as typed in help output.
func (r rule) Syntax() string {
	return strings.Join(r.pattern, " ")
}

var grammar = []rule{
	// Navigation
	r(OpSystemView, dialectVRP, "system-view"),
	r(OpSystemView, dialectIOS, "configure terminal"),
	r(OpQuit, dialectBoth, "quit"),
	r(OpQuit, dialectBoth, "exit"),
	r(OpReturn, dialectVRP, "return"),
	r(OpReturn, dialectIOS, "end"),

	// System
	r(OpSysname, dialectVRP, "sysname <?>"),
	r(OpSysname, dialectIOS, "hostname <?>"),
	r(OpUndoSysname, dialectVRP, "undo sysname"),
	r(OpUndoSysname, dialectIOS, "no hostname"),
	r(OpDisplayVersion, dialectVRP, "display version"),
	r(OpDisplayVersion, dialectIOS, "show version"),
	r(OpDisplayConfig, dialectVRP, "display current-configuration"),
	r(OpDisplayConfig, dialectIOS, "show running-config"),
	r(OpDisplayHistory, dialectVRP, "display history-command"),
	r(OpDisplayHistory, dialectIOS, "show history"),
	r(OpDisplayClock, dialectVRP, "display clock"),
	r(OpDisplayClock, dialectIOS, "show clock"),
	r(OpSave, dialectVRP, "save"),
	r(OpSave, dialectIOS, "write memory"),
	r(OpSave, dialectIOS, "write"),
	r(OpHelp, dialectBoth, "help"),
	r(OpHelp, dialectBoth, "?"),

	// Interfaces
	r(OpInterface, dialectBoth, "interface <*>"),
	r(OpDisplayIPBrief, dialectVRP, "display ip interface brief"),
	r(OpDisplayIPBrief, dialectIOS, "show ip interface brief"),
	r(OpDisplayInterface, dialectVRP, "display interface <?>"),
	r(OpDisplayInterface, dialectIOS, "show interfaces <?>"),
	r(OpIPAddress, dialectBoth, "ip address <ip> <w>"),
	r(OpUndoIPAddress, dialectVRP, "undo ip address"),
	r(OpUndoIPAddress, dialectIOS, "no ip address"),
	r(OpShutdown, dialectBoth, "shutdown"),
	r(OpUndoShutdown, dialectVRP, "undo shutdown"),
	r(OpUndoShutdown, dialectIOS, "no shutdown"),
	r(OpDescription, dialectBoth, "description <*>"),
	r(OpUndoDescription, dialectVRP, "undo description"),
	r(OpUndoDescription, dialectIOS, "no description"),
	r(OpLinkType, dialectVRP, "port link-type <w>"),
	r(OpLinkType, dialectIOS, "switchport mode <w>"),
	r(OpAccessVLAN, dialectVRP, "port default vlan <n>"),
	r(OpAccessVLAN, dialectIOS, "switchport access vlan <n>"),
	r(OpTrunkAllow, dialectVRP, "port trunk allow-pass vlan <*>"),
	r(OpTrunkAllow, dialectIOS, "switchport trunk allowed vlan <*>"),
	r(OpSpeed, dialectBoth, "speed <w>"),
	r(OpDuplex, dialectBoth, "duplex <w>"),
	r(OpOSPFCost, dialectVRP, "ospf cost <n>"),
	r(OpOSPFCost, dialectIOS, "ip ospf cost <n>"),
	r(OpUndoOSPFCost, dialectVRP, "undo ospf cost"),
	r(OpUndoOSPFCost, dialectIOS, "no ip ospf cost"),
	r(OpRouted, dialectVRP, "undo portswitch"),
	r(OpRouted, dialectIOS, "no switchport"),
	r(OpSwitched, dialectVRP, "portswitch"),
	r(OpSwitched, dialectIOS, "switchport"),

	// VLANs
	r(OpVLAN, dialectBoth, "vlan <n>"),
	r(OpVLANBatch, dialectVRP, "vlan batch <*>"),
	r(OpUndoVLAN, dialectVRP, "undo vlan <*>"),
	r(OpUndoVLAN, dialectIOS, "no vlan <*>"),
	r(OpDisplayVLAN, dialectVRP, "display vlan"),
	r(OpDisplayVLAN, dialectIOS, "show vlan brief"),
	r(OpDisplayVLAN, dialectIOS, "show vlan"),

	// Routing
	r(OpDisplayRoutes, dialectVRP, "display ip routing-table"),
	r(OpDisplayRoutes, dialectIOS, "show ip route"),
	r(OpDisplayOSPFPeer, dialectVRP, "display ospf peer"),
	r(OpDisplayOSPFPeer, dialectVRP, "display ospf neighbor"),
	r(OpDisplayOSPFPeer, dialectIOS, "show ip ospf neighbor"),
	r(OpStaticRoute, dialectVRP, "ip route-static <ip> <w> <ip>"),
	r(OpStaticRoute, dialectIOS, "ip route <ip> <w> <ip>"),
	r(OpUndoStaticRoute, dialectVRP, "undo ip route-static <ip> <w> <?>"),
	r(OpUndoStaticRoute, dialectIOS, "no ip route <ip> <w> <?>"),
	r(OpOSPF, dialectVRP, "ospf"),
	r(OpOSPF, dialectVRP, "ospf <n>"),
	r(OpOSPF, dialectIOS, "router ospf <n>"),
	r(OpUndoOSPF, dialectVRP, "undo ospf <?>"),
	r(OpUndoOSPF, dialectIOS, "no router ospf <?>"),
	r(OpOSPFNetwork, dialectBoth, "network <ip> <ip> area <w>"),
	r(OpBGP, dialectVRP, "bgp <n>"),
	r(OpBGP, dialectIOS, "router bgp <n>"),
	r(OpUndoBGP, dialectVRP, "undo bgp <?>"),
	r(OpUndoBGP, dialectIOS, "no router bgp <?>"),
	r(OpBGPPeer, dialectVRP, "peer <ip> as-number <n>"),
	r(OpBGPPeer, dialectIOS, "neighbor <ip> remote-as <n>"),
	r(OpUndoBGPPeer, dialectVRP, "undo peer <ip>"),
	r(OpUndoBGPPeer, dialectIOS, "no neighbor <ip>"),
	r(OpRouterID, dialectVRP, "router-id <ip>"),
	r(OpRouterID, dialectIOS, "bgp router-id <ip>"),
	r(OpDisplayBGPPeer, dialectVRP, "display bgp peer"),
	r(OpDisplayBGPPeer, dialectIOS, "show ip bgp summary"),

	// DHCP server
	r(OpDHCPEnable, dialectVRP, "dhcp enable"),
	r(OpDHCPEnable, dialectIOS, "service dhcp"),
	r(OpUndoDHCPEnable, dialectVRP, "undo dhcp enable"),
	r(OpUndoDHCPEnable, dialectIOS, "no service dhcp"),
	r(OpPool, dialectVRP, "ip pool <w>"),
	r(OpPool, dialectIOS, "ip dhcp pool <w>"),
	r(OpUndoPool, dialectVRP, "undo ip pool <w>"),
	r(OpUndoPool, dialectIOS, "no ip dhcp pool <w>"),
	r(OpPoolNetwork, dialectVRP, "network <ip> mask <w>"),
	r(OpPoolNetwork, dialectIOS, "network <ip> <w>"),
	r(OpPoolGateway, dialectVRP, "gateway-list <ip>"),
	r(OpPoolGateway, dialectIOS, "default-router <ip>"),
	r(OpPoolDNS, dialectVRP, "dns-list <*>"),
	r(OpPoolDNS, dialectIOS, "dns-server <*>"),
	r(OpPoolLease, dialectVRP, "lease day <n>"),
	r(OpPoolLease, dialectIOS, "lease <n>"),
	r(OpPoolDomain, dialectBoth, "domain-name <w>"),
	r(OpPoolExclude, dialectVRP, "excluded-ip-address <ip> <?>"),
	r(OpDHCPExclude, dialectIOS, "ip dhcp excluded-address <ip> <?>"),
	r(OpDisplayPool, dialectVRP, "display ip pool <?>"),
	r(OpDisplayPool, dialectIOS, "show ip dhcp pool <?>"),
	r(OpDisplayBindings, dialectVRP, "display dhcp server ip-in-use"),
	r(OpDisplayBindings, dialectIOS, "show ip dhcp binding"),
	r(OpResetBindings, dialectVRP, "reset ip pool <*>"),
	r(OpResetBindings, dialectIOS, "clear ip dhcp binding <*>"),

	// ACLs
	r(OpACL, dialectVRP, "acl <n>"),
	r(OpACL, dialectVRP, "acl number <n>"),
	r(OpACL, dialectIOS, "ip access-list extended <w>"),
	r(OpACLRule, dialectVRP, "rule <*>"),
	r(OpACLRule, dialectIOS, "permit <*>"),
	r(OpACLRule, dialectIOS, "deny <*>"),
	r(OpUndoRule, dialectVRP, "undo rule <n>"),
	r(OpUndoACL, dialectVRP, "undo acl <?>"),
	r(OpUndoACL, dialectIOS, "no ip access-list extended <w>"),
	r(OpDisplayACL, dialectVRP, "display acl <?>"),
	r(OpDisplayACL, dialectIOS, "show access-lists"),

	// Spanning tree
	r(OpSTPEnable, dialectVRP, "stp enable"),
	r(OpSTPEnable, dialectIOS, "spanning-tree"),
	r(OpUndoSTP, dialectVRP, "undo stp enable"),
	r(OpUndoSTP, dialectIOS, "no spanning-tree"),
	r(OpSTPMode, dialectVRP, "stp mode <w>"),
	r(OpSTPMode, dialectIOS, "spanning-tree mode <w>"),
	r(OpSTPPriority, dialectVRP, "stp priority <n>"),
	r(OpSTPPriority, dialectIOS, "spanning-tree vlan <w> priority <n>"),
	r(OpSTPRoot, dialectVRP, "stp root <w>"),
	r(OpSTPRoot, dialectIOS, "spanning-tree vlan <w> root <w>"),
	r(OpSTPCost, dialectVRP, "stp cost <n>"),
	r(OpSTPCost, dialectIOS, "spanning-tree cost <n>"),
	r(OpSTPEdge, dialectVRP, "stp edged-port enable"),
	r(OpSTPEdge, dialectIOS, "spanning-tree portfast"),
	r(OpUndoSTPEdge, dialectVRP, "undo stp edged-port <?>"),
	r(OpUndoSTPEdge, dialectIOS, "no spanning-tree portfast"),
	r(OpDisplaySTP, dialectVRP, "display stp <?>"),
	r(OpDisplaySTP, dialectIOS, "show spanning-tree <?>"),

	// Link aggregation
	r(OpLAGMember, dialectVRP, "eth-trunk <n>"),
	r(OpLAGMember, dialectIOS, "channel-group <n> mode <w>"),
	r(OpLAGMember, dialectIOS, "channel-group <n>"),
	r(OpUndoLAGMember, dialectVRP, "undo eth-trunk"),
	r(OpUndoLAGMember, dialectIOS, "no channel-group <?>"),
	r(OpLAGMode, dialectVRP, "mode <w> <?>"),
	r(OpLoadBalance, dialectVRP, "load-balance <w>"),
	r(OpLoadBalance, dialectIOS, "port-channel load-balance <w>"),
	r(OpUndoInterface, dialectVRP, "undo interface <*>"),
	r(OpUndoInterface, dialectIOS, "no interface <*>"),
	r(OpDisplayLAG, dialectVRP, "display eth-trunk <?>"),
	r(OpDisplayLAG, dialectIOS, "show etherchannel <?>"),

	// Security
	r(OpTrafficFilter, dialectVRP, "traffic-filter <w> acl <*>"),
	r(OpTrafficFilter, dialectIOS, "ip access-group <w> <w>"),
	r(OpUndoTrafficFilter, dialectVRP, "undo traffic-filter <w>"),
	r(OpUndoTrafficFilter, dialectIOS, "no ip access-group <*>"),
	r(OpPortSecurity, dialectVRP, "port-security enable"),
	r(OpPortSecurity, dialectIOS, "switchport port-security"),
	r(OpUndoPortSecurity, dialectVRP, "undo port-security enable"),
	r(OpUndoPortSecurity, dialectIOS, "no switchport port-security"),
	r(OpPortSecurityMax, dialectVRP, "port-security max-mac-num <n>"),
	r(OpPortSecurityMax, dialectIOS, "switchport port-security maximum <n>"),
	r(OpPortSecurityAction, dialectVRP, "port-security protect-action <w>"),
	r(OpPortSecurityAction, dialectIOS, "switchport port-security violation <w>"),
	r(OpDisplayPortSecurity, dialectVRP, "display port-security <?>"),
	r(OpDisplayPortSecurity, dialectIOS, "show port-security <?>"),
	r(OpAAA, dialectVRP, "aaa"),
	r(OpAAA, dialectIOS, "aaa new-model"),
	r(OpLocalUser, dialectVRP, "local-user <w> password <w> <w>"),
	r(OpLocalUser, dialectIOS, "username <w> secret <w>"),
	r(OpLocalUser, dialectIOS, "username <w> password <w>"),
	r(OpUserPrivilege, dialectVRP, "local-user <w> privilege level <n>"),
	r(OpUserPrivilege, dialectIOS, "username <w> privilege <n>"),
	r(OpUndoLocalUser, dialectVRP, "undo local-user <w>"),
	r(OpUndoLocalUser, dialectIOS, "no username <w>"),
	r(OpSSHServer, dialectVRP, "stelnet server enable"),
	r(OpSSHServer, dialectVRP, "ssh server enable"),
	r(OpSSHServer, dialectIOS, "ip ssh version <n>"),
	r(OpUndoSSHServer, dialectVRP, "undo stelnet server enable"),
	r(OpUndoSSHServer, dialectVRP, "undo ssh server enable"),
	r(OpUndoSSHServer, dialectIOS, "no ip ssh <?>"),
	r(OpDisplayUsers, dialectVRP, "display local-user"),

	// Hosts
	r(OpPing, dialectBoth, "ping <?>"),
	r(OpTraceroute, dialectVRP, "tracert <?>"),
	r(OpTraceroute, dialectIOS, "traceroute <?>"),
	r(OpIPConfig, dialectBoth, "ipconfig"),
	r(OpIPConfig, dialectBoth, "ifconfig"),
	r(OpHostIP, dialectBoth, "ip <ip> <w> <?>"),
	r(OpHostDHCP, dialectBoth, "ip dhcp"),
	r(OpHostDHCP, dialectBoth, "ipconfig /renew"),
	r(OpHostRelease, dialectBoth, "ipconfig /release"),
}
