package issues

import (
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

// Issue is a support ticket raised by a member or by ops.
type Issue struct {
	ID          string              `json:"id"`
	Type        enums.IssueType     `json:"type"`
	Description string              `json:"description"`
	Status      enums.IssueStatus   `json:"status"`
	Priority    enums.IssuePriority `json:"priority"`
	MemberID    string              `json:"member_id,omitempty"`
	MemberName  string              `json:"member_name,omitempty"`
	BagNumber   string              `json:"bag_number,omitempty"`
	Source      enums.IssueSource   `json:"source"`
	Resolution  string              `json:"resolution,omitempty"`
	ResolvedAt  *time.Time          `json:"resolved_at,omitempty"`
	Created     time.Time           `json:"created"`
}

const (
	fieldType        = "Type"
	fieldDescription = "Description"
	fieldStatus      = "Status"
	fieldPriority    = "Priority"
	fieldMember      = "Member"
	fieldMemberID    = "Member ID"
	fieldBagNumber   = "Bag Number"
	fieldSource      = "Source"
	fieldResolution  = "Resolution"
	fieldResolvedAt  = "Resolved At"
	fieldCreated     = "Created"
)

type issueFields struct {
	Type        string        `json:"Type"`
	Description string        `json:"Description"`
	Status      string        `json:"Status"`
	Priority    string        `json:"Priority"`
	Member      []string      `json:"Member"`
	MemberID    airtable.Text `json:"Member ID"`
	MemberName  airtable.Text `json:"Member Name"`
	BagNumber   airtable.Text `json:"Bag Number"`
	Source      string        `json:"Source"`
	Resolution  string        `json:"Resolution"`
	ResolvedAt  string        `json:"Resolved At"`
	Created     string        `json:"Created"`
}

func issueFromRecord(rec airtable.Record) (Issue, error) {
	var f issueFields
	if err := rec.Decode(&f); err != nil {
		return Issue{}, err
	}
	memberID := f.MemberID.String()
	if memberID == "" {
		memberID = airtable.FirstLink(f.Member)
	}
	created := rec.CreatedTime
	if parsed := airtable.ParseTime(f.Created); parsed != nil {
		created = *parsed
	}
	return Issue{
		ID:          rec.ID,
		Type:        enums.IssueType(f.Type),
		Description: f.Description,
		Status:      enums.IssueStatus(f.Status),
		Priority:    enums.IssuePriority(f.Priority),
		MemberID:    memberID,
		MemberName:  f.MemberName.String(),
		BagNumber:   f.BagNumber.String(),
		Source:      enums.IssueSource(f.Source),
		Resolution:  f.Resolution,
		ResolvedAt:  airtable.ParseTime(f.ResolvedAt),
		Created:     created,
	}, nil
}

// NewIssue is a ticket as first written.
type NewIssue struct {
	Type        enums.IssueType
	Description string
	Priority    enums.IssuePriority
	MemberID    string
	BagNumber   string
	Source      enums.IssueSource
	Created     time.Time
}

func (n NewIssue) fields() map[string]any {
	f := map[string]any{
		fieldType:        string(n.Type),
		fieldDescription: strings.TrimSpace(n.Description),
		fieldStatus:      string(enums.IssueStatusOpen),
		fieldPriority:    string(n.Priority),
		fieldSource:      string(n.Source),
		fieldCreated:     airtable.FormatTime(n.Created),
	}
	if n.MemberID != "" {
		f[fieldMember] = []string{n.MemberID}
		f[fieldMemberID] = n.MemberID
	}
	if n.BagNumber != "" {
		f[fieldBagNumber] = n.BagNumber
	}
	return f
}

// Update is a partial write; nil pointers leave the column untouched.
type Update struct {
	Status     *enums.IssueStatus
	Priority   *enums.IssuePriority
	Resolution *string
	ResolvedAt *time.Time
}

func (u Update) fields() map[string]any {
	f := map[string]any{}
	if u.Status != nil {
		f[fieldStatus] = string(*u.Status)
	}
	if u.Priority != nil {
		f[fieldPriority] = string(*u.Priority)
	}
	if u.Resolution != nil {
		f[fieldResolution] = strings.TrimSpace(*u.Resolution)
	}
	if u.ResolvedAt != nil {
		f[fieldResolvedAt] = airtable.FormatTime(*u.ResolvedAt)
	}
	return f
}
