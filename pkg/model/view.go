package model

import "fmt"

// View is the CLI mode a device console is in. Exactly one view is active
// per device at any time.
type View int

const (
	ViewUser View = iota
	ViewSystem
	ViewInterface
	ViewBGP
	ViewPool
	ViewACL
)

var viewNames = [...]string{
	ViewUser:      "user-view",
	ViewSystem:    "system-view",
	ViewInterface: "interface-view",
	ViewBGP:       "bgp-view",
	ViewPool:      "pool-view",
	ViewACL:       "acl-view",
}

// Backend view tokens, as exchanged with an execution backend.
var viewTokens = [...]string{
	ViewUser:      "userView",
	ViewSystem:    "systemView",
	ViewInterface: "interfaceView",
	ViewBGP:       "bgpView",
	ViewPool:      "poolView",
	ViewACL:       "aclView",
}

// AllViews lists every view in declaration order.
var AllViews = []View{ViewUser, ViewSystem, ViewInterface, ViewBGP, ViewPool, ViewACL}

func (v View) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown-view"
	}
	return viewNames[v]
}

// Token returns the backend token for v.
func (v View) Token() string {
	if v < 0 || int(v) >= len(viewTokens) {
		return viewTokens[ViewUser]
	}
	return viewTokens[v]
}

// ViewFromToken maps a backend token back to a View. The mapping is total:
// an unknown or empty token yields current unchanged.
func ViewFromToken(token string, current View) View {
	for i, t := range viewTokens {
		if t == token {
			return View(i)
		}
	}
	return current
}

// ParseView accepts the core name ("system-view") and reports whether it is known.
func ParseView(name string) (View, bool) {
	for i, n := range viewNames {
		if n == name {
			return View(i), true
		}
	}
	return ViewUser, false
}

// MarshalText encodes the view as its core name.
func (v View) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText accepts a core name or a backend token.
func (v *View) UnmarshalText(b []byte) error {
	if parsed, ok := ParseView(string(b)); ok {
		*v = parsed
		return nil
	}
	for i, t := range viewTokens {
		if t == string(b) {
			*v = View(i)
			return nil
		}
	}
	return fmt.Errorf("unknown view %q", b)
}

// IsConfig reports whether v is a configuration view (anything below system).
func (v View) IsConfig() bool {
	return v != ViewUser
}

// CLIState is the per-device console state: the active view plus the
// sub-context the view operates on.
type CLIState struct {
	View      View   `json:"view"`
	Interface string `json:"interface,omitempty"` // port id, interface view only
	Pool      string `json:"pool,omitempty"`      // pool name, pool view only
	ACL       string `json:"acl,omitempty"`       // acl id, acl view only
	BGP       int64  `json:"bgp,omitempty"`       // local AS, bgp view only
}

// Enter switches to view and sets ctx as its sub-context. Sub-context that the
// target view does not carry is cleared.
func (s *CLIState) Enter(view View, ctx string) {
	s.View = view
	s.Interface, s.Pool, s.ACL = "", "", ""
	if view != ViewBGP {
		s.BGP = 0
	}
	switch view {
	case ViewInterface:
		s.Interface = ctx
	case ViewPool:
		s.Pool = ctx
	case ViewACL:
		s.ACL = ctx
	}
}
