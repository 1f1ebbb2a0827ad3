// Package dhcp allocates simulated DHCP leases. Each request runs a full
// Discover/Offer/Request/Ack exchange as dhcpv4 messages between the client
// and the pool of the serving device, without touching a wire. The client
// configuration is read back from the Ack the way a real client would.
package dhcp

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"

	"github.com/newtron-network/newtsim/pkg/fabric"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

// ErrNoServer is returned when no DHCP server answers on the client segment.
var ErrNoServer = errors.New("no DHCP server reachable")

// Grant is the outcome of one exchange. It is applied to the server device by
// the caller; allocation itself never mutates the server.
type Grant struct {
	Server   string // server device id
	ServerIP string // server identifier
	Pool     string
	Lease    model.Lease
	MaskLen  int
	Gateway  string
	DNS      []string
	Domain   string
	Released bool // the client gave the address back
}

// Server is a DHCP server bound to the pool answering one segment.
type Server struct {
	Device *model.Device
	Port   *model.Port // interface the client is reached on
	Pool   *model.DHCPPool
}

// FindServer returns the first DHCP server, by device id, on the segment of
// the client port whose pool covers the serving interface.
func FindServer(fab *fabric.Fabric, client fabric.PortRef) (*Server, error) {
	for _, m := range fab.Members(client) {
		d := m.Device
		if !d.DHCP.Enabled || !m.Port.HasAddress() {
			continue
		}
		for _, p := range d.DHCP.Pools {
			if p.Configured() && util.SameSubnet(p.Network, m.Port.Config.IPAddress, p.MaskLen) {
				return &Server{Device: d, Port: m.Port, Pool: p}, nil
			}
		}
	}
	return nil, ErrNoServer
}

// Exchange runs Discover/Offer/Request/Ack for clientMAC. inUse reports
// addresses already configured on the segment, which are never offered.
func (s *Server) Exchange(clientMAC, hostname string, now time.Time, inUse func(ip string) bool) (*Grant, error) {
	hw, err := net.ParseMAC(clientMAC)
	if err != nil {
		return nil, fmt.Errorf("client hardware address %q: %w", clientMAC, err)
	}

	discover, err := dhcpv4.NewDiscovery(hw, dhcpv4.WithOption(dhcpv4.OptHostName(hostname)))
	if err != nil {
		return nil, fmt.Errorf("build discover: %w", err)
	}
	addr, err := s.allocate(clientMAC, now, inUse)
	if err != nil {
		return nil, err
	}
	offer, err := s.reply(discover, dhcpv4.MessageTypeOffer, addr)
	if err != nil {
		return nil, err
	}

	request, err := dhcpv4.NewRequestFromOffer(offer)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requested := request.RequestedIPAddress()
	if requested == nil || !requested.Equal(offer.YourIPAddr) {
		return nil, fmt.Errorf("request does not match offer %s", offer.YourIPAddr)
	}
	ack, err := s.reply(request, dhcpv4.MessageTypeAck, requested.String())
	if err != nil {
		return nil, err
	}

	util.WithDevice(s.Device.ID).Debugf("dhcp: %s acked %s from pool %s", clientMAC, ack.YourIPAddr, s.Pool.Name)
	return grantFromAck(s, ack, clientMAC, hostname, now), nil
}

func (s *Server) reply(req *dhcpv4.DHCPv4, mt dhcpv4.MessageType, addr string) (*dhcpv4.DHCPv4, error) {
	mods := []dhcpv4.Modifier{
		dhcpv4.WithMessageType(mt),
		dhcpv4.WithYourIP(net.ParseIP(addr)),
		dhcpv4.WithServerIP(net.ParseIP(s.Port.Config.IPAddress)),
		dhcpv4.WithOption(dhcpv4.OptServerIdentifier(net.ParseIP(s.Port.Config.IPAddress))),
		dhcpv4.WithNetmask(net.CIDRMask(s.Pool.MaskLen, 32)),
		dhcpv4.WithLeaseTime(uint32(s.Pool.LeaseDuration() / time.Second)),
	}
	if s.Pool.Gateway != "" {
		mods = append(mods, dhcpv4.WithRouter(net.ParseIP(s.Pool.Gateway)))
	}
	if len(s.Pool.DNS) > 0 {
		var dns []net.IP
		for _, d := range s.Pool.DNS {
			dns = append(dns, net.ParseIP(d))
		}
		mods = append(mods, dhcpv4.WithDNS(dns...))
	}
	if s.Pool.Domain != "" {
		mods = append(mods, dhcpv4.WithOption(dhcpv4.OptDomainName(s.Pool.Domain)))
	}
	msg, err := dhcpv4.NewReplyFromRequest(req, mods...)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", mt, err)
	}
	return msg, nil
}

// allocate returns the address held by clientMAC, or the lowest free one.
func (s *Server) allocate(clientMAC string, now time.Time, inUse func(string) bool) (string, error) {
	if l, ok := s.Pool.LeaseFor(clientMAC); ok && l.Expires.After(now) {
		return l.Address, nil
	}
	first := util.IPToUint32(util.ComputeNetworkAddr(s.Pool.Network, s.Pool.MaskLen)) + 1
	last := util.IPToUint32(util.ComputeBroadcastAddr(s.Pool.Network, s.Pool.MaskLen)) - 1
	for v := first; v <= last; v++ {
		ip := util.Uint32ToIP(v)
		if s.Pool.IsExcluded(ip, s.Device.DHCP.Excluded) || s.Device.PortWithAddress(ip) != nil {
			continue
		}
		if l, held := s.Pool.Leases[ip]; held && l.Expires.After(now) {
			continue
		}
		if inUse != nil && inUse(ip) {
			continue
		}
		return ip, nil
	}
	return "", fmt.Errorf("pool %s: %w", s.Pool.Name, util.ErrPoolExhausted)
}

func grantFromAck(s *Server, ack *dhcpv4.DHCPv4, clientMAC, hostname string, now time.Time) *Grant {
	g := &Grant{
		Server:   s.Device.ID,
		ServerIP: ack.ServerIdentifier().String(),
		Pool:     s.Pool.Name,
		Domain:   ack.DomainName(),
	}
	if mask := ack.SubnetMask(); mask != nil {
		g.MaskLen, _ = mask.Size()
	}
	if routers := ack.Router(); len(routers) > 0 {
		g.Gateway = routers[0].String()
	}
	for _, d := range ack.DNS() {
		g.DNS = append(g.DNS, d.String())
	}
	lt := ack.IPAddressLeaseTime(s.Pool.LeaseDuration())
	g.Lease = model.Lease{
		Address:  ack.YourIPAddr.String(),
		ClientID: clientMAC,
		Hostname: hostname,
		Expires:  now.Add(lt),
	}
	return g
}

// Apply records g on the server device: the lease is stored in its pool, or
// removed when released. Any other lease held by the same client is dropped.
func Apply(server *model.Device, g *Grant) error {
	for _, p := range server.DHCP.Pools {
		for addr, l := range p.Leases {
			if l.ClientID == g.Lease.ClientID {
				delete(p.Leases, addr)
			}
		}
	}
	if g.Released {
		return nil
	}
	pool := server.Pool(g.Pool)
	if pool == nil {
		return fmt.Errorf("pool %s on %s: %w", g.Pool, server.ID, util.ErrNotFound)
	}
	if pool.Leases == nil {
		pool.Leases = make(map[string]model.Lease)
	}
	pool.Leases[g.Lease.Address] = g.Lease
	return nil
}

// Bindings returns the leases of d active at now, ordered by address.
func Bindings(d *model.Device, now time.Time) []Binding {
	var out []Binding
	for _, p := range d.DHCP.Pools {
		for _, l := range p.Leases {
			if l.Expires.After(now) {
				out = append(out, Binding{Pool: p.Name, Lease: l})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return util.IPToUint32(out[i].Lease.Address) < util.IPToUint32(out[j].Lease.Address)
	})
	return out
}

// Binding is an active lease with its pool name.
type Binding struct {
	Pool  string
	Lease model.Lease
}
