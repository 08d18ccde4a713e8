package enums

import "fmt"

// SystemRole is the platform-wide role carried in access tokens.
type SystemRole string

const (
	SystemRoleUser  SystemRole = "user"
	SystemRoleAdmin SystemRole = "admin"
)

func (r SystemRole) String() string {
	return string(r)
}

func (r SystemRole) IsValid() bool {
	return r == SystemRoleUser || r == SystemRoleAdmin
}

func ParseSystemRole(value string) (SystemRole, error) {
	role := SystemRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid system role %q", value)
	}
	return role, nil
}
