package enums

import (
	"fmt"
	"strings"
)

// MemberStatus is the subscription state stored on the member record.
type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "Active"
	MemberStatusPaused    MemberStatus = "Paused"
	MemberStatusCancelled MemberStatus = "Cancelled"
)

var validMemberStatuses = []MemberStatus{
	MemberStatusActive,
	MemberStatusPaused,
	MemberStatusCancelled,
}

// String implements fmt.Stringer.
func (s MemberStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s MemberStatus) IsValid() bool {
	for _, candidate := range validMemberStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanLogin reports whether the member may sign into the portal.
func (s MemberStatus) CanLogin() bool {
	return s == MemberStatusActive || s == MemberStatusPaused
}

// ParseMemberStatus converts raw input into a MemberStatus.
func ParseMemberStatus(value string) (MemberStatus, error) {
	for _, candidate := range validMemberStatuses {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member status %q", value)
}
