package model

import (
	"sort"
	"strings"

	"github.com/newtron-network/newtsim/pkg/util"
)

// ACL is a numbered (VRP) or named (IOS) access list.
type ACL struct {
	ID    string     `json:"id" yaml:"id"`
	Rules []*ACLRule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// ACLRule is a single rule; Match holds the rule text after the action.
type ACLRule struct {
	ID     int    `json:"id" yaml:"id"`
	Action string `json:"action" yaml:"action"` // permit, deny
	Match  string `json:"match" yaml:"match"`
}

// ACL actions
const (
	ACLPermit = "permit"
	ACLDeny   = "deny"
)

// RuleStep is the id increment used when a rule is added without an id.
const RuleStep = 5

// AddRule inserts or replaces a rule. An id of 0 allocates the next step
// above the highest existing id. Rules stay ordered by id.
func (a *ACL) AddRule(id int, action, match string) *ACLRule {
	if id <= 0 {
		id = RuleStep
		for _, r := range a.Rules {
			if r.ID >= id {
				id = (r.ID/RuleStep + 1) * RuleStep
			}
		}
	}
	for _, r := range a.Rules {
		if r.ID == id {
			r.Action, r.Match = action, match
			return r
		}
	}
	rule := &ACLRule{ID: id, Action: action, Match: match}
	a.Rules = append(a.Rules, rule)
	sort.Slice(a.Rules, func(i, j int) bool { return a.Rules[i].ID < a.Rules[j].ID })
	return rule
}

// RemoveRule removes a rule by id.
func (a *ACL) RemoveRule(id int) bool {
	for i, r := range a.Rules {
		if r.ID == id {
			a.Rules = append(a.Rules[:i], a.Rules[i+1:]...)
			return true
		}
	}
	return false
}

func (a *ACL) clone() *ACL {
	c := &ACL{ID: a.ID}
	for _, r := range a.Rules {
		cp := *r
		c.Rules = append(c.Rules, &cp)
	}
	return c
}

// Packet is what an ACL matches against.
type Packet struct {
	Protocol string // ip, icmp, tcp, udp
	Source   string
	Dest     string
}

// Evaluate returns the first rule matching pkt, or nil.
func (a *ACL) Evaluate(pkt Packet) *ACLRule {
	for _, r := range a.Rules {
		if m, ok := parseMatch(r.Match); ok && m.matches(pkt) {
			return r
		}
	}
	return nil
}

// Permits applies the ACL with the device default for unmatched packets:
// VRP traffic filters permit, IOS access groups end in an implicit deny.
func (a *ACL) Permits(d *Device, pkt Packet) (bool, *ACLRule) {
	if r := a.Evaluate(pkt); r != nil {
		return r.Action == ACLPermit, r
	}
	return d.IsHuawei(), nil
}

type addrMatch struct {
	any        bool
	addr, wild uint32
}

func (m addrMatch) matches(ip string) bool {
	if m.any {
		return true
	}
	v := util.IPToUint32(ip)
	return v&^m.wild == m.addr&^m.wild
}

type ruleMatch struct {
	proto    string
	src, dst addrMatch
}

func (m ruleMatch) matches(pkt Packet) bool {
	if m.proto != "ip" && m.proto != pkt.Protocol {
		return false
	}
	return m.src.matches(pkt.Source) && m.dst.matches(pkt.Dest)
}

var ruleProtocols = map[string]bool{"ip": true, "icmp": true, "tcp": true, "udp": true}

// parseMatch reads rule text in either dialect:
//
//	VRP: [proto] [source <addr> <wildcard>|any] [destination <addr> <wildcard>|any] ...
//	IOS: <proto> <any|host a|a w> <any|host a|a w> ...
func parseMatch(text string) (ruleMatch, bool) {
	toks := strings.Fields(strings.ToLower(text))
	m := ruleMatch{proto: "ip", src: addrMatch{any: true}, dst: addrMatch{any: true}}
	if len(toks) > 0 && ruleProtocols[toks[0]] {
		m.proto = toks[0]
		toks = toks[1:]
	}

	vrp := false
	for _, t := range toks {
		if t == "source" || t == "destination" {
			vrp = true
		}
	}
	if vrp {
		for i := 0; i < len(toks); i++ {
			var target *addrMatch
			switch toks[i] {
			case "source":
				target = &m.src
			case "destination":
				target = &m.dst
			default:
				continue
			}
			am, n, ok := parseAddr(toks[i+1:])
			if !ok {
				return m, false
			}
			*target = am
			i += n
		}
		return m, true
	}

	src, n, ok := parseAddr(toks)
	if !ok {
		return m, len(toks) == 0
	}
	m.src = src
	if dst, _, ok := parseAddr(toks[n:]); ok {
		m.dst = dst
	}
	return m, true
}

// parseAddr reads one address spec and returns how many tokens it used. VRP
// writes a host as "<addr> 0", IOS as "host <addr>".
func parseAddr(toks []string) (addrMatch, int, bool) {
	switch {
	case len(toks) == 0:
		return addrMatch{}, 0, false
	case toks[0] == "any":
		return addrMatch{any: true}, 1, true
	case toks[0] == "host" && len(toks) > 1 && util.IsValidIPv4(toks[1]):
		return addrMatch{addr: util.IPToUint32(toks[1])}, 2, true
	case !util.IsValidIPv4(toks[0]):
		return addrMatch{}, 0, false
	}
	addr := util.IPToUint32(toks[0])
	if len(toks) > 1 {
		if toks[1] == "0" {
			return addrMatch{addr: addr}, 2, true
		}
		if util.IsValidIPv4(toks[1]) {
			return addrMatch{addr: addr, wild: util.IPToUint32(toks[1])}, 2, true
		}
	}
	return addrMatch{addr: addr}, 1, true
}
