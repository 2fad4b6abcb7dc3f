package bags

import (
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

// Bag is a physical reusable bag. Its state is independent of any drop.
type Bag struct {
	ID           string             `json:"id"`
	BagNumber    string             `json:"bag_number"`
	Status       enums.BagStatus    `json:"status"`
	MemberID     string             `json:"member_id,omitempty"`
	MemberName   string             `json:"member_name,omitempty"`
	Condition    enums.BagCondition `json:"condition,omitempty"`
	IssuedDate   *time.Time         `json:"issued_date,omitempty"`
	ReturnedDate *time.Time         `json:"returned_date,omitempty"`
	Notes        string             `json:"notes,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

const (
	fieldBagNumber    = "Bag Number"
	fieldStatus       = "Status"
	fieldMember       = "Member"
	fieldMemberID     = "Member ID"
	fieldCondition    = "Condition"
	fieldIssuedDate   = "Issued Date"
	fieldReturnedDate = "Returned Date"
	fieldNotes        = "Notes"
)

type bagFields struct {
	BagNumber    airtable.Text `json:"Bag Number"`
	Status       string        `json:"Status"`
	Member       []string      `json:"Member"`
	MemberID     airtable.Text `json:"Member ID"`
	MemberName   airtable.Text `json:"Member Name"`
	Condition    string        `json:"Condition"`
	IssuedDate   string        `json:"Issued Date"`
	ReturnedDate string        `json:"Returned Date"`
	Notes        string        `json:"Notes"`
}

func bagFromRecord(rec airtable.Record) (Bag, error) {
	var f bagFields
	if err := rec.Decode(&f); err != nil {
		return Bag{}, err
	}
	memberID := f.MemberID.String()
	if memberID == "" {
		memberID = airtable.FirstLink(f.Member)
	}
	return Bag{
		ID:           rec.ID,
		BagNumber:    f.BagNumber.String(),
		Status:       enums.BagStatus(f.Status),
		MemberID:     memberID,
		MemberName:   f.MemberName.String(),
		Condition:    enums.BagCondition(f.Condition),
		IssuedDate:   airtable.ParseTime(f.IssuedDate),
		ReturnedDate: airtable.ParseTime(f.ReturnedDate),
		Notes:        f.Notes,
		CreatedAt:    rec.CreatedTime,
	}, nil
}

// NewBag is a freshly provisioned bag; it always starts Available.
type NewBag struct {
	BagNumber string
	Condition enums.BagCondition
	Notes     string
}

func (n NewBag) fields() map[string]any {
	f := map[string]any{
		fieldBagNumber: n.BagNumber,
		fieldStatus:    string(enums.BagStatusAvailable),
		fieldCondition: string(n.Condition),
	}
	if strings.TrimSpace(n.Notes) != "" {
		f[fieldNotes] = strings.TrimSpace(n.Notes)
	}
	return f
}

// Update is a partial write. Dates are Airtable date strings (YYYY-MM-DD).
type Update struct {
	Status       *enums.BagStatus
	Condition    *enums.BagCondition
	MemberID     string
	ClearMember  bool
	IssuedDate   string
	ReturnedDate string
	Notes        *string
}

func (u Update) fields() map[string]any {
	f := map[string]any{}
	if u.Status != nil {
		f[fieldStatus] = string(*u.Status)
	}
	if u.Condition != nil {
		f[fieldCondition] = string(*u.Condition)
	}
	if u.MemberID != "" {
		f[fieldMember] = []string{u.MemberID}
		f[fieldMemberID] = u.MemberID
	}
	if u.ClearMember {
		f[fieldMember] = []string{}
		f[fieldMemberID] = nil
	}
	if u.IssuedDate != "" {
		f[fieldIssuedDate] = u.IssuedDate
	}
	if u.ReturnedDate != "" {
		f[fieldReturnedDate] = u.ReturnedDate
	}
	if u.Notes != nil {
		f[fieldNotes] = strings.TrimSpace(*u.Notes)
	}
	return f
}
