package model

import "golang.org/x/crypto/bcrypt"

// Port security violation actions
const (
	SecurityProtect  = "protect"
	SecurityRestrict = "restrict"
	SecurityShutdown = "shutdown"
)

// PortSecurity limits the MAC addresses learned on a switched port.
type PortSecurity struct {
	MaxMAC int    `json:"max_mac" yaml:"max_mac"`
	Action string `json:"action" yaml:"action"`
}

// AAAConfig holds local accounts and management access of a device.
type AAAConfig struct {
	Enabled   bool        `json:"enabled" yaml:"enabled"`
	SSHServer bool        `json:"ssh_server" yaml:"ssh_server"`
	Users     []LocalUser `json:"users,omitempty" yaml:"users,omitempty"`
}

// LocalUser is a device account. Only the bcrypt hash of the password is kept.
type LocalUser struct {
	Name         string `json:"name" yaml:"name"`
	PasswordHash string `json:"password_hash" yaml:"password_hash"`
	Privilege    int    `json:"privilege,omitempty" yaml:"privilege,omitempty"`
}

// HashPassword returns the bcrypt hash stored for a local user.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// User returns the local user by name, or nil.
func (a *AAAConfig) User(name string) *LocalUser {
	for i := range a.Users {
		if a.Users[i].Name == name {
			return &a.Users[i]
		}
	}
	return nil
}

// SetUser adds or replaces a local user.
func (a *AAAConfig) SetUser(u LocalUser) {
	if cur := a.User(u.Name); cur != nil {
		*cur = u
		return
	}
	a.Users = append(a.Users, u)
}

// RemoveUser deletes a local user.
func (a *AAAConfig) RemoveUser(name string) bool {
	for i, u := range a.Users {
		if u.Name == name {
			a.Users = append(a.Users[:i], a.Users[i+1:]...)
			return true
		}
	}
	return false
}

// Authenticate checks a password against the local user database.
func (a *AAAConfig) Authenticate(name, password string) bool {
	u := a.User(name)
	if u == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
