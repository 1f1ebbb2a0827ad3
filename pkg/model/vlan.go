package model

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// VLANSet returns a set holding ids.
func VLANSet(ids ...int) mapset.Set[int] {
	return mapset.NewThreadUnsafeSet[int](ids...)
}

// SortedVLANs returns the members of s in ascending order.
func SortedVLANs(s mapset.Set[int]) []int {
	out := s.ToSlice()
	sort.Ints(out)
	return out
}

// TaggedVLANs returns the VLANs a trunk or hybrid port carries tagged. A
// trunk with no allow list carries only its native VLAN.
func (p *Port) TaggedVLANs() mapset.Set[int] {
	if p.Config.Mode != PortModeTrunk && p.Config.Mode != PortModeHybrid {
		return VLANSet()
	}
	s := VLANSet(p.Config.AllowedVLANs...)
	s.Remove(p.NativeVLAN())
	return s
}

// CarriesVLAN reports whether a switched port forwards frames of vlan.
func (p *Port) CarriesVLAN(vlan int) bool {
	switch p.Config.Mode {
	case PortModeAccess:
		return p.NativeVLAN() == vlan
	case PortModeTrunk, PortModeHybrid:
		return p.NativeVLAN() == vlan || p.TaggedVLANs().Contains(vlan)
	}
	return false
}

// RemoveVLANs drops ids from the device VLAN database. VLAN 1 is never removed.
// Access ports left on a deleted VLAN fall back to VLAN 1 and trunk allow
// lists lose the deleted ids.
func (d *Device) RemoveVLANs(ids ...int) {
	del := VLANSet(ids...)
	del.Remove(1)
	kept := VLANSet(d.VLANs...).Difference(del)
	d.VLANs = SortedVLANs(kept)
	for _, p := range d.Ports {
		if p.Config.Mode == PortModeAccess && del.Contains(p.Config.VLAN) {
			p.Config.VLAN = 1
		}
		if len(p.Config.AllowedVLANs) > 0 {
			p.Config.AllowedVLANs = SortedVLANs(VLANSet(p.Config.AllowedVLANs...).Difference(del))
		}
	}
}
