package enums

import (
	"fmt"
	"strings"
)

// DropStatus is the position of a drop in the collect/clean/return cycle.
// Values match the Airtable single-select options.
type DropStatus string

const (
	DropStatusDropped   DropStatus = "Dropped"
	DropStatusInTransit DropStatus = "In Transit"
	DropStatusAtLaundry DropStatus = "At Laundry"
	DropStatusReady     DropStatus = "Ready"
	DropStatusCollected DropStatus = "Collected"
)

// Ordered along the normal progression.
var validDropStatuses = []DropStatus{
	DropStatusDropped,
	DropStatusInTransit,
	DropStatusAtLaundry,
	DropStatusReady,
	DropStatusCollected,
}

// DropStatuses returns the statuses in progression order.
func DropStatuses() []DropStatus {
	out := make([]DropStatus, len(validDropStatuses))
	copy(out, validDropStatuses)
	return out
}

// String implements fmt.Stringer.
func (s DropStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is one of the five known states.
func (s DropStatus) IsValid() bool {
	return s.Position() >= 0
}

// Position is the zero-based index along the progression, or -1 when unknown.
func (s DropStatus) Position() int {
	for i, candidate := range validDropStatuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// IsBackwardFrom reports whether moving from prev to s goes against the progression.
func (s DropStatus) IsBackwardFrom(prev DropStatus) bool {
	return prev.IsValid() && s.IsValid() && s.Position() < prev.Position()
}

// IsInFlight reports whether the drop is still with us (not yet Ready or Collected).
func (s DropStatus) IsInFlight() bool {
	switch s {
	case DropStatusDropped, DropStatusInTransit, DropStatusAtLaundry:
		return true
	}
	return false
}

// ParseDropStatus accepts the display value case-insensitively, or its snake_case form.
func ParseDropStatus(value string) (DropStatus, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
	for _, candidate := range validDropStatuses {
		if strings.EqualFold(string(candidate), normalized) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid drop status %q", value)
}
