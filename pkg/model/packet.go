package model

// Hop actions recorded along a packet trace
const (
	HopOriginate = "originate"
	HopForward   = "forward"
	HopSwitch    = "switch"
	HopDeliver   = "deliver"
	HopDrop      = "drop"
)

// Hop is one device visited by a traced packet.
type Hop struct {
	Device  string `json:"device"`
	Ingress string `json:"ingress,omitempty"` // port id
	Egress  string `json:"egress,omitempty"`  // port id
	Action  string `json:"action"`
	Reason  string `json:"reason,omitempty"` // drop reason
}

// PacketTrace is the hop-by-hop path of one simulated ICMP exchange.
type PacketTrace struct {
	Source      string `json:"source"`      // source device id
	SourceIP    string `json:"source_ip"`
	Destination string `json:"destination"` // destination IP
	Hops        []Hop  `json:"hops"`
	Reply       []Hop  `json:"reply,omitempty"`
	Success     bool   `json:"success"`
}

// Path returns the ordered device ids of the forward hops, collapsing
// consecutive repeats.
func (t *PacketTrace) Path() []string {
	var out []string
	for _, h := range t.Hops {
		if len(out) == 0 || out[len(out)-1] != h.Device {
			out = append(out, h.Device)
		}
	}
	return out
}

// Traffic is emitted by ping and traceroute for highlighting.
type Traffic struct {
	Kind  string       `json:"kind"` // ping, traceroute
	Path  []string     `json:"path"` // device ids, source first
	Trace *PacketTrace `json:"trace,omitempty"`
}
