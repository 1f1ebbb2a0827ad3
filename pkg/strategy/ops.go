package strategy

import "github.com/newtron-network/newtsim/pkg/model"

// Op identifies a command independently of the vendor syntax used to type it.
type Op string

// Navigation and system
const (
	OpSystemView     Op = "system-view"
	OpQuit           Op = "quit"
	OpReturn         Op = "return"
	OpSysname        Op = "sysname"
	OpUndoSysname    Op = "undo-sysname"
	OpDisplayVersion Op = "display-version"
	OpDisplayConfig  Op = "display-config"
	OpDisplayHistory Op = "display-history"
	OpDisplayClock   Op = "display-clock"
	OpSave           Op = "save"
	OpHelp           Op = "help"
)

// Interfaces
const (
	OpInterface        Op = "interface"
	OpDisplayIPBrief   Op = "display-ip-brief"
	OpDisplayInterface Op = "display-interface"
	OpIPAddress        Op = "ip-address"
	OpUndoIPAddress    Op = "undo-ip-address"
	OpShutdown         Op = "shutdown"
	OpUndoShutdown     Op = "undo-shutdown"
	OpDescription      Op = "description"
	OpUndoDescription  Op = "undo-description"
	OpLinkType         Op = "link-type"
	OpAccessVLAN       Op = "access-vlan"
	OpTrunkAllow       Op = "trunk-allow"
	OpSpeed            Op = "speed"
	OpDuplex           Op = "duplex"
	OpOSPFCost         Op = "ospf-cost"
	OpUndoOSPFCost     Op = "undo-ospf-cost"
	OpRouted           Op = "routed"
	OpSwitched         Op = "switched"
)

// VLANs
const (
	OpVLAN        Op = "vlan"
	OpVLANBatch   Op = "vlan-batch"
	OpUndoVLAN    Op = "undo-vlan"
	OpDisplayVLAN Op = "display-vlan"
)

// Routing
const (
	OpDisplayRoutes   Op = "display-routes"
	OpDisplayOSPFPeer Op = "display-ospf-peer"
	OpStaticRoute     Op = "static-route"
	OpUndoStaticRoute Op = "undo-static-route"
	OpOSPF            Op = "ospf"
	OpUndoOSPF        Op = "undo-ospf"
	OpOSPFNetwork     Op = "ospf-network"
	OpBGP             Op = "bgp"
	OpUndoBGP         Op = "undo-bgp"
	OpBGPPeer         Op = "bgp-peer"
	OpUndoBGPPeer     Op = "undo-bgp-peer"
	OpRouterID        Op = "router-id"
	OpDisplayBGPPeer  Op = "display-bgp-peer"
)

// DHCP server
const (
	OpDHCPEnable      Op = "dhcp-enable"
	OpUndoDHCPEnable  Op = "undo-dhcp-enable"
	OpPool            Op = "pool"
	OpUndoPool        Op = "undo-pool"
	OpPoolNetwork     Op = "pool-network"
	OpPoolGateway     Op = "pool-gateway"
	OpPoolDNS         Op = "pool-dns"
	OpPoolLease       Op = "pool-lease"
	OpPoolDomain      Op = "pool-domain"
	OpPoolExclude     Op = "pool-exclude"
	OpDHCPExclude     Op = "dhcp-exclude"
	OpDisplayPool     Op = "display-pool"
	OpDisplayBindings Op = "display-bindings"
	OpResetBindings   Op = "reset-bindings"
)

// ACLs
const (
	OpACL        Op = "acl"
	OpACLRule    Op = "acl-rule"
	OpUndoRule   Op = "undo-rule"
	OpUndoACL    Op = "undo-acl"
	OpDisplayACL Op = "display-acl"
)

// Spanning tree
const (
	OpSTPEnable   Op = "stp-enable"
	OpUndoSTP     Op = "undo-stp"
	OpSTPMode     Op = "stp-mode"
	OpSTPPriority Op = "stp-priority"
	OpSTPRoot     Op = "stp-root"
	OpSTPCost     Op = "stp-cost"
	OpSTPEdge     Op = "stp-edge"
	OpUndoSTPEdge Op = "undo-stp-edge"
	OpDisplaySTP  Op = "display-stp"
)

// Link aggregation
const (
	OpLAGMember     Op = "lag-member"
	OpUndoLAGMember Op = "undo-lag-member"
	OpLAGMode       Op = "lag-mode"
	OpLoadBalance   Op = "load-balance"
	OpUndoInterface Op = "undo-interface"
	OpDisplayLAG    Op = "display-lag"
)

// Security and management access
const (
	OpTrafficFilter       Op = "traffic-filter"
	OpUndoTrafficFilter   Op = "undo-traffic-filter"
	OpPortSecurity        Op = "port-security"
	OpUndoPortSecurity    Op = "undo-port-security"
	OpPortSecurityMax     Op = "port-security-max"
	OpPortSecurityAction  Op = "port-security-action"
	OpDisplayPortSecurity Op = "display-port-security"
	OpAAA                 Op = "aaa"
	OpLocalUser           Op = "local-user"
	OpUserPrivilege       Op = "user-privilege"
	OpUndoLocalUser       Op = "undo-local-user"
	OpSSHServer           Op = "ssh-server"
	OpUndoSSHServer       Op = "undo-ssh-server"
	OpDisplayUsers        Op = "display-users"
)

// Host commands
const (
	OpPing        Op = "ping"
	OpTraceroute  Op = "traceroute"
	OpIPConfig    Op = "ipconfig"
	OpHostIP      Op = "host-ip"
	OpHostDHCP    Op = "host-dhcp"
	OpHostRelease Op = "host-release"
)

// scope is the set of views an op may run in.
type scope int

const (
	scopeAny       scope = iota // every view
	scopeSystem                 // system view only
	scopeConfig                 // any view except user
	scopeInterface              // interface view
	scopeBGP                    // bgp view
	scopePool                   // pool view
	scopeACL                    // acl view
)

var opScopes = map[Op]scope{
	OpSysname:     scopeSystem,
	OpUndoSysname: scopeSystem,
	OpInterface:   scopeConfig,

	OpIPAddress:       scopeInterface,
	OpUndoIPAddress:   scopeInterface,
	OpShutdown:        scopeInterface,
	OpUndoShutdown:    scopeInterface,
	OpDescription:     scopeInterface,
	OpUndoDescription: scopeInterface,
	OpLinkType:        scopeInterface,
	OpAccessVLAN:      scopeInterface,
	OpTrunkAllow:      scopeInterface,
	OpSpeed:           scopeInterface,
	OpDuplex:          scopeInterface,
	OpOSPFCost:        scopeInterface,
	OpUndoOSPFCost:    scopeInterface,
	OpRouted:          scopeInterface,
	OpSwitched:        scopeInterface,

	OpVLAN:            scopeSystem,
	OpVLANBatch:       scopeSystem,
	OpUndoVLAN:        scopeSystem,
	OpStaticRoute:     scopeSystem,
	OpUndoStaticRoute: scopeSystem,
	OpOSPF:            scopeSystem,
	OpUndoOSPF:        scopeSystem,
	OpOSPFNetwork:     scopeSystem,
	OpBGP:             scopeSystem,
	OpUndoBGP:         scopeSystem,
	OpBGPPeer:         scopeBGP,
	OpUndoBGPPeer:     scopeBGP,
	OpRouterID:        scopeBGP,

	OpDHCPEnable:     scopeSystem,
	OpUndoDHCPEnable: scopeSystem,
	OpPool:           scopeSystem,
	OpUndoPool:       scopeSystem,
	OpDHCPExclude:    scopeSystem,
	OpPoolNetwork:    scopePool,
	OpPoolGateway:    scopePool,
	OpPoolDNS:        scopePool,
	OpPoolLease:      scopePool,
	OpPoolDomain:     scopePool,
	OpPoolExclude:    scopePool,
	OpResetBindings:  scopeAny,

	OpACL:      scopeSystem,
	OpUndoACL:  scopeSystem,
	OpACLRule:  scopeACL,
	OpUndoRule: scopeACL,

	OpSTPEnable:   scopeSystem,
	OpUndoSTP:     scopeSystem,
	OpSTPMode:     scopeSystem,
	OpSTPPriority: scopeSystem,
	OpSTPRoot:     scopeSystem,
	OpSTPCost:     scopeInterface,
	OpSTPEdge:     scopeInterface,
	OpUndoSTPEdge: scopeInterface,

	OpLAGMember:     scopeInterface,
	OpUndoLAGMember: scopeInterface,
	OpLAGMode:       scopeInterface,
	OpLoadBalance:   scopeConfig,
	OpUndoInterface: scopeSystem,

	OpTrafficFilter:      scopeInterface,
	OpUndoTrafficFilter:  scopeInterface,
	OpPortSecurity:       scopeInterface,
	OpUndoPortSecurity:   scopeInterface,
	OpPortSecurityMax:    scopeInterface,
	OpPortSecurityAction: scopeInterface,
	OpAAA:                scopeSystem,
	OpLocalUser:          scopeSystem,
	OpUserPrivilege:      scopeSystem,
	OpUndoLocalUser:      scopeSystem,
	OpSSHServer:          scopeSystem,
	OpUndoSSHServer:      scopeSystem,
}

// Allowed reports whether op may run in view.
func (s *Strategy) Allowed(op Op, view model.View) bool {
	switch opScopes[op] {
	case scopeSystem:
		return view == model.ViewSystem
	case scopeConfig:
		return view == model.ViewSystem || view == model.ViewInterface
	case scopeInterface:
		return view == model.ViewInterface
	case scopeBGP:
		return view == model.ViewBGP
	case scopePool:
		return view == model.ViewPool
	case scopeACL:
		return view == model.ViewACL
	}
	return true
}

// RequiredView returns the view a user has to enter before op is accepted.
func (s *Strategy) RequiredView(op Op) model.View {
	switch opScopes[op] {
	case scopeSystem, scopeConfig:
		return model.ViewSystem
	case scopeInterface:
		return model.ViewInterface
	case scopeBGP:
		return model.ViewBGP
	case scopePool:
		return model.ViewPool
	case scopeACL:
		return model.ViewACL
	}
	return model.ViewUser
}

// CanEnter reports whether the view graph has an edge from one view to
// another. Sub-views are reachable from any configuration view; user and
// system views are reachable from anywhere.
func (s *Strategy) CanEnter(from, to model.View) bool {
	switch to {
	case model.ViewUser, model.ViewSystem:
		return true
	case model.ViewInterface, model.ViewBGP, model.ViewPool, model.ViewACL:
		return from != model.ViewUser
	}
	return false
}

// Parent returns the view "quit" steps back to.
func (s *Strategy) Parent(v model.View) model.View {
	switch v {
	case model.ViewInterface, model.ViewBGP, model.ViewPool, model.ViewACL:
		return model.ViewSystem
	}
	return model.ViewUser
}
