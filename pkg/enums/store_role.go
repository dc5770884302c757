package enums

import "fmt"

// StoreRole is the role a user holds in store_admins.
type StoreRole string

const (
	StoreRoleOwner   StoreRole = "owner"
	StoreRoleManager StoreRole = "manager"
)

var validStoreRoles = []StoreRole{StoreRoleOwner, StoreRoleManager}

func (r StoreRole) IsValid() bool {
	for _, candidate := range validStoreRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseStoreRole(value string) (StoreRole, error) {
	for _, candidate := range validStoreRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid store role %q", value)
}
