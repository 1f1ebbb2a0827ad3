package model

// BGPConfig represents the BGP process of a device
type BGPConfig struct {
	ASN      int64      `json:"asn" yaml:"asn"`
	RouterID string     `json:"router_id,omitempty" yaml:"router_id,omitempty"`
	Peers    []*BGPPeer `json:"peers,omitempty" yaml:"peers,omitempty"`
}

// BGPPeer represents a configured BGP neighbor
type BGPPeer struct {
	Address  string `json:"address" yaml:"address"`
	RemoteAS int64  `json:"remote_as" yaml:"remote_as"`
}

// Peer returns the peer with the given address, or nil.
func (b *BGPConfig) Peer(addr string) *BGPPeer {
	for _, p := range b.Peers {
		if p.Address == addr {
			return p
		}
	}
	return nil
}

// SetPeer adds or updates a peer.
func (b *BGPConfig) SetPeer(addr string, remoteAS int64) {
	if p := b.Peer(addr); p != nil {
		p.RemoteAS = remoteAS
		return
	}
	b.Peers = append(b.Peers, &BGPPeer{Address: addr, RemoteAS: remoteAS})
}

// RemovePeer removes a peer by address.
func (b *BGPConfig) RemovePeer(addr string) bool {
	for i, p := range b.Peers {
		if p.Address == addr {
			b.Peers = append(b.Peers[:i], b.Peers[i+1:]...)
			return true
		}
	}
	return false
}

func (b *BGPConfig) clone() *BGPConfig {
	c := &BGPConfig{ASN: b.ASN, RouterID: b.RouterID}
	for _, p := range b.Peers {
		cp := *p
		c.Peers = append(c.Peers, &cp)
	}
	return c
}
