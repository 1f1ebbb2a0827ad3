package forward

import (
	"fmt"

	"github.com/newtron-network/newtsim/pkg/model"
)

// PingCount is the number of echo requests sent by ping.
const PingCount = 4

// PingLines renders the console output of a ping from src.
func PingLines(src *model.Device, tr *model.PacketTrace) []string {
	dst := tr.Destination
	lines := []string{fmt.Sprintf("PING %s (%s) 56 bytes of data.", dst, dst)}

	received := 0
	switch {
	case tr.SourceIP == "":
		lines = append(lines, fmt.Sprintf("From %s: Network is unreachable (no IP configured)", src.Hostname))
	case tr.Success:
		ttl := 64 - routedHops(tr.Reply)
		rtt := len(tr.Hops) + len(tr.Reply)
		for seq := 1; seq <= PingCount; seq++ {
			lines = append(lines, fmt.Sprintf("64 bytes from %s: icmp_seq=%d ttl=%d time=%d ms", dst, seq, ttl, rtt))
		}
		received = PingCount
	default:
		last := tr.Hops[len(tr.Hops)-1]
		for seq := 1; seq <= PingCount; seq++ {
			switch last.Reason {
			case ReasonUnreachable, ReasonNoRoute:
				lines = append(lines, fmt.Sprintf("From %s icmp_seq=%d Destination Host Unreachable", tr.SourceIP, seq))
			case ReasonFiltered:
				lines = append(lines, fmt.Sprintf("From %s icmp_seq=%d Packet filtered", tr.SourceIP, seq))
			default:
				lines = append(lines, fmt.Sprintf("Request timeout for icmp_seq %d", seq))
			}
		}
	}

	loss := 100 - received*100/PingCount
	return append(lines,
		"",
		fmt.Sprintf("--- %s ping statistics ---", dst),
		fmt.Sprintf("%d packets transmitted, %d received, %d%% packet loss", PingCount, received, loss),
	)
}

// TracerouteLines renders the console output of a traceroute. Each layer-3
// hop after the source is listed with the address it was reached on.
func TracerouteLines(devices []*model.Device, tr *model.PacketTrace) []string {
	dst := tr.Destination
	lines := []string{fmt.Sprintf("traceroute to %s (%s), %d hops max, 60 byte packets", dst, dst, MaxHops)}
	if tr.SourceIP == "" {
		return append(lines, "traceroute: no source address configured")
	}

	n := 0
	for i, h := range tr.Hops {
		if i == 0 || h.Action == model.HopSwitch {
			continue
		}
		n++
		addr := ""
		if d := model.FindDevice(devices, h.Device); d != nil {
			if p := d.PortByID(h.Ingress); p != nil {
				addr = p.Config.IPAddress
			}
		}
		if addr == "" || (h.Action == model.HopDrop && h.Reason == ReasonTTL) {
			lines = append(lines, fmt.Sprintf("%2d  * * *", n))
			continue
		}
		ms := 2*n - 1
		line := fmt.Sprintf("%2d  %s (%s)  %d ms  %d ms  %d ms", n, addr, h.Device, ms, ms, ms)
		if h.Action == model.HopDrop {
			line += "  !H"
		}
		lines = append(lines, line)
	}
	if n == 0 && !tr.Success {
		lines = append(lines, " 1  * * *")
	}
	return lines
}

// routedHops counts the devices that decremented TTL along hops.
func routedHops(hops []model.Hop) int {
	n := 0
	for _, h := range hops {
		if h.Action == model.HopForward {
			n++
		}
	}
	return n
}
