package model

import "fmt"

// Endpoint is one end of a cable.
type Endpoint struct {
	Device string `json:"device" yaml:"device"`
	Port   string `json:"port" yaml:"port"` // port id, or port name (case-insensitive)
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%s", e.Device, e.Port)
}

// Cable is an immutable, unordered link between two ports.
type Cable struct {
	ID   string   `json:"id" yaml:"id"`
	Type string   `json:"type,omitempty" yaml:"type,omitempty"` // copper, fiber
	A    Endpoint `json:"a" yaml:"a"`
	B    Endpoint `json:"b" yaml:"b"`
}

// Other returns the endpoint opposite to device/port, and false when the
// cable does not touch it.
func (c *Cable) Other(device, portID string) (Endpoint, bool) {
	switch {
	case c.A.Device == device && c.A.Port == portID:
		return c.B, true
	case c.B.Device == device && c.B.Port == portID:
		return c.A, true
	}
	return Endpoint{}, false
}

// Topology is the device arena plus cabling. Devices are addressed by id only.
type Topology struct {
	Name    string        `json:"name" yaml:"name"`
	Devices []*Device     `json:"devices" yaml:"devices"`
	Cables  []*Cable      `json:"cables" yaml:"cables"`
	Access  *AccessPolicy `json:"access,omitempty" yaml:"access,omitempty"`
}

// AccessPolicy maps users to console permissions. A topology without one is
// open to everybody.
type AccessPolicy struct {
	SuperUsers  []string            `json:"super_users,omitempty" yaml:"super_users,omitempty"`
	UserGroups  map[string][]string `json:"user_groups,omitempty" yaml:"user_groups,omitempty"`
	Permissions map[string][]string `json:"permissions,omitempty" yaml:"permissions,omitempty"` // permission -> users or groups
}

// Device returns the device with the given id, or nil.
func (t *Topology) Device(id string) *Device {
	return FindDevice(t.Devices, id)
}

// FindDevice looks a device up by id.
func FindDevice(devices []*Device, id string) *Device {
	for _, d := range devices {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// Clone returns a deep copy of the topology.
func (t *Topology) Clone() *Topology {
	c := &Topology{Name: t.Name, Access: t.Access}
	c.Devices = CloneDevices(t.Devices)
	c.Cables = make([]*Cable, len(t.Cables))
	for i, cb := range t.Cables {
		cp := *cb
		c.Cables[i] = &cp
	}
	return c
}

// CloneDevices deep-copies a device slice.
func CloneDevices(devices []*Device) []*Device {
	out := make([]*Device, len(devices))
	for i, d := range devices {
		out[i] = d.Clone()
	}
	return out
}

// ReplaceDevice returns devices with the entry whose id matches d.ID replaced
// by d. Position in the slice is never used as identity.
func ReplaceDevice(devices []*Device, d *Device) []*Device {
	out := make([]*Device, len(devices))
	for i, cur := range devices {
		if cur.ID == d.ID {
			out[i] = d
		} else {
			out[i] = cur
		}
	}
	return out
}
