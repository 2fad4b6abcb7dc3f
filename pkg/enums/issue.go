package enums

import (
	"fmt"
	"strings"
)

// IssueStatus is the lifecycle of a support ticket. Closed is terminal.
type IssueStatus string

const (
	IssueStatusOpen             IssueStatus = "Open"
	IssueStatusInProgress       IssueStatus = "In Progress"
	IssueStatusAwaitingCustomer IssueStatus = "Awaiting Customer"
	IssueStatusResolved         IssueStatus = "Resolved"
	IssueStatusClosed           IssueStatus = "Closed"
)

var validIssueStatuses = []IssueStatus{
	IssueStatusOpen,
	IssueStatusInProgress,
	IssueStatusAwaitingCustomer,
	IssueStatusResolved,
	IssueStatusClosed,
}

func (s IssueStatus) String() string {
	return string(s)
}

func (s IssueStatus) IsValid() bool {
	for _, candidate := range validIssueStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further updates are accepted.
func (s IssueStatus) IsTerminal() bool {
	return s == IssueStatusClosed
}

// IsOpen reports whether the ticket still needs work.
func (s IssueStatus) IsOpen() bool {
	return s != IssueStatusResolved && s != IssueStatusClosed
}

func ParseIssueStatus(value string) (IssueStatus, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
	for _, candidate := range validIssueStatuses {
		if strings.EqualFold(string(candidate), normalized) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid issue status %q", value)
}

// IssuePriority orders the ops queue.
type IssuePriority string

const (
	IssuePriorityLow    IssuePriority = "Low"
	IssuePriorityNormal IssuePriority = "Normal"
	IssuePriorityHigh   IssuePriority = "High"
	IssuePriorityUrgent IssuePriority = "Urgent"
)

var validIssuePriorities = []IssuePriority{
	IssuePriorityLow,
	IssuePriorityNormal,
	IssuePriorityHigh,
	IssuePriorityUrgent,
}

func (p IssuePriority) String() string {
	return string(p)
}

func (p IssuePriority) IsValid() bool {
	for _, candidate := range validIssuePriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

func ParseIssuePriority(value string) (IssuePriority, error) {
	for _, candidate := range validIssuePriorities {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid issue priority %q", value)
}

// IssueType is the member-facing ticket category.
type IssueType string

const (
	IssueTypeMissingItem IssueType = "Missing Item"
	IssueTypeDamagedItem IssueType = "Damaged Item"
	IssueTypeLateReturn  IssueType = "Late Return"
	IssueTypeBagProblem  IssueType = "Bag Problem"
	IssueTypeBilling     IssueType = "Billing"
	IssueTypeOther       IssueType = "Other"
)

var validIssueTypes = []IssueType{
	IssueTypeMissingItem,
	IssueTypeDamagedItem,
	IssueTypeLateReturn,
	IssueTypeBagProblem,
	IssueTypeBilling,
	IssueTypeOther,
}

func (t IssueType) String() string {
	return string(t)
}

func (t IssueType) IsValid() bool {
	for _, candidate := range validIssueTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseIssueType(value string) (IssueType, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
	for _, candidate := range validIssueTypes {
		if strings.EqualFold(string(candidate), normalized) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid issue type %q", value)
}

// IssueSource records who opened the ticket.
type IssueSource string

const (
	IssueSourcePortal IssueSource = "Portal"
	IssueSourceOps    IssueSource = "Ops"
)
