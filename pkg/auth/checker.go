package auth

import (
	"fmt"
	"sort"

	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

// Checker validates user permissions against a topology access policy
type Checker struct {
	policy *model.AccessPolicy
}

// NewChecker creates a permission checker. A nil policy allows everything.
func NewChecker(policy *model.AccessPolicy) *Checker {
	return &Checker{policy: policy}
}

// Open returns true when no policy is configured.
func (c *Checker) Open() bool {
	return c.policy == nil
}

// CheckUser verifies if a specific user has a permission
func (c *Checker) CheckUser(username string, permission Permission, ctx *Context) error {
	if c.Open() || c.IsSuperUser(username) {
		return nil
	}
	if c.checkPermissionMap(username, permission) {
		return nil
	}
	return &PermissionError{
		User:       username,
		Permission: permission,
		Context:    ctx,
	}
}

// IsSuperUser returns true if username is a superuser
func (c *Checker) IsSuperUser(username string) bool {
	if c.policy == nil {
		return false
	}
	for _, su := range c.policy.SuperUsers {
		if su == username {
			return true
		}
	}
	return false
}

// checkPermissionMap checks the "all" wildcard key, then the specific
// permission key.
func (c *Checker) checkPermissionMap(username string, permission Permission) bool {
	if groups, ok := c.policy.Permissions[string(PermAll)]; ok {
		if c.userInGroups(username, groups) {
			return true
		}
	}
	groups, ok := c.policy.Permissions[string(permission)]
	if !ok {
		return false
	}
	return c.userInGroups(username, groups)
}

func (c *Checker) userInGroups(username string, allowedGroups []string) bool {
	for _, group := range allowedGroups {
		if group == username {
			return true
		}
		for _, member := range c.policy.UserGroups[group] {
			if member == username {
				return true
			}
		}
	}
	return false
}

// ListPermissionsForUser returns all permissions a user has, sorted
func (c *Checker) ListPermissionsForUser(username string) []Permission {
	if c.Open() || c.IsSuperUser(username) {
		return []Permission{PermAll}
	}
	var perms []Permission
	for permStr, groups := range c.policy.Permissions {
		if c.userInGroups(username, groups) {
			perms = append(perms, Permission(permStr))
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// GetUserGroups returns the groups a user belongs to, sorted
func (c *Checker) GetUserGroups(username string) []string {
	if c.policy == nil {
		return nil
	}
	var groups []string
	for groupName, members := range c.policy.UserGroups {
		for _, member := range members {
			if member == username {
				groups = append(groups, groupName)
				break
			}
		}
	}
	sort.Strings(groups)
	return groups
}

// PermissionError represents a permission denial
type PermissionError struct {
	User       string
	Permission Permission
	Context    *Context
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("permission denied: user '%s' does not have '%s' permission", e.User, e.Permission)
	if e.Context != nil && e.Context.Device != "" {
		msg += fmt.Sprintf(" on device '%s'", e.Context.Device)
	}
	return msg
}

func (e *PermissionError) Unwrap() error {
	return util.ErrPermissionDenied
}
