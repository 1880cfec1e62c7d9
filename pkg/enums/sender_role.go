package enums

import "fmt"

// SenderRole identifies which side of a chat authored a message.
type SenderRole string

const (
	SenderRoleLocal  SenderRole = "local"
	SenderRoleRemote SenderRole = "remote"
)

var validSenderRoles = []SenderRole{
	SenderRoleLocal,
	SenderRoleRemote,
}

// String implements fmt.Stringer.
func (s SenderRole) String() string {
	return string(s)
}

// IsValid checks whether the role matches the canonical enum.
func (s SenderRole) IsValid() bool {
	for _, candidate := range validSenderRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSenderRole converts raw strings into SenderRole.
func ParseSenderRole(value string) (SenderRole, error) {
	for _, candidate := range validSenderRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sender role %q", value)
}
