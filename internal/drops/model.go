package drops

import (
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

// Drop is one bag's trip from the gym to the laundry and back.
type Drop struct {
	ID             string           `json:"id"`
	BagNumber      string           `json:"bag_number"`
	Status         enums.DropStatus `json:"status"`
	MemberID       string           `json:"member_id,omitempty"`
	MemberName     string           `json:"member_name,omitempty"`
	MemberPhone    string           `json:"-"`
	MemberEmail    string           `json:"-"`
	Gym            string           `json:"gym,omitempty"`
	DropDate       *time.Time       `json:"drop_date,omitempty"`
	ReadyAt        *time.Time       `json:"ready_at,omitempty"`
	PickupDeadline *time.Time       `json:"pickup_deadline,omitempty"`
	CollectedAt    *time.Time       `json:"collected_at,omitempty"`
	LaundryPartner string           `json:"laundry_partner,omitempty"`
	ScanLog        []ScanEntry      `json:"scan_log"`
	Notes          string           `json:"notes,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// DroppedAt is when the clock started for SLA purposes.
func (d Drop) DroppedAt() time.Time {
	if d.DropDate != nil {
		return *d.DropDate
	}
	return d.CreatedAt
}

const (
	fieldBagNumber      = "Bag Number"
	fieldStatus         = "Status"
	fieldMember         = "Member"
	fieldMemberID       = "Member ID"
	fieldMemberName     = "Member Name"
	fieldMemberPhone    = "Member Phone"
	fieldMemberEmail    = "Member Email"
	fieldGym            = "Gym"
	fieldDropDate       = "Drop Date"
	fieldReadyAt        = "Ready At"
	fieldPickupDeadline = "Pickup Deadline"
	fieldCollectedAt    = "Collected At"
	fieldLaundryPartner = "Laundry Partner"
	fieldScanLog        = "Scan Log"
	fieldNotes          = "Notes"
)

type dropFields struct {
	BagNumber      airtable.Text `json:"Bag Number"`
	Status         string        `json:"Status"`
	Member         []string      `json:"Member"`
	MemberID       airtable.Text `json:"Member ID"`
	MemberName     airtable.Text `json:"Member Name"`
	MemberPhone    airtable.Text `json:"Member Phone"`
	MemberEmail    airtable.Text `json:"Member Email"`
	Gym            airtable.Text `json:"Gym"`
	DropDate       string        `json:"Drop Date"`
	ReadyAt        string        `json:"Ready At"`
	PickupDeadline string        `json:"Pickup Deadline"`
	CollectedAt    string        `json:"Collected At"`
	LaundryPartner string        `json:"Laundry Partner"`
	ScanLog        string        `json:"Scan Log"`
	Notes          string        `json:"Notes"`
}

func dropFromRecord(rec airtable.Record) (Drop, error) {
	var f dropFields
	if err := rec.Decode(&f); err != nil {
		return Drop{}, err
	}
	memberID := f.MemberID.String()
	if memberID == "" {
		memberID = airtable.FirstLink(f.Member)
	}
	return Drop{
		ID:             rec.ID,
		BagNumber:      f.BagNumber.String(),
		Status:         enums.DropStatus(f.Status),
		MemberID:       memberID,
		MemberName:     f.MemberName.String(),
		MemberPhone:    f.MemberPhone.String(),
		MemberEmail:    f.MemberEmail.String(),
		Gym:            f.Gym.String(),
		DropDate:       airtable.ParseTime(f.DropDate),
		ReadyAt:        airtable.ParseTime(f.ReadyAt),
		PickupDeadline: airtable.ParseTime(f.PickupDeadline),
		CollectedAt:    airtable.ParseTime(f.CollectedAt),
		LaundryPartner: f.LaundryPartner,
		ScanLog:        parseScanLog(f.ScanLog),
		Notes:          f.Notes,
		CreatedAt:      rec.CreatedTime,
	}, nil
}

// NewDrop holds the columns written when a drop is created.
type NewDrop struct {
	BagNumber   string
	MemberID    string
	MemberName  string
	MemberPhone string
	MemberEmail string
	Gym         string
	DropDate    time.Time
	Notes       string
	ScanLog     []ScanEntry
}

func (n NewDrop) fields() (map[string]any, error) {
	log, err := encodeScanLog(n.ScanLog)
	if err != nil {
		return nil, err
	}
	f := map[string]any{
		fieldBagNumber: n.BagNumber,
		fieldStatus:    string(enums.DropStatusDropped),
		fieldDropDate:  airtable.FormatTime(n.DropDate),
		fieldScanLog:   log,
	}
	if n.MemberID != "" {
		f[fieldMember] = []string{n.MemberID}
		f[fieldMemberID] = n.MemberID
	}
	setIf(f, fieldMemberName, n.MemberName)
	setIf(f, fieldMemberPhone, n.MemberPhone)
	setIf(f, fieldMemberEmail, n.MemberEmail)
	setIf(f, fieldGym, n.Gym)
	setIf(f, fieldNotes, n.Notes)
	return f, nil
}

// StatusWrite is the single PATCH issued by a status change.
type StatusWrite struct {
	Status         enums.DropStatus
	ScanLog        []ScanEntry
	LaundryPartner string
	ReadyAt        *time.Time
	PickupDeadline *time.Time
	CollectedAt    *time.Time
}

func (w StatusWrite) fields() (map[string]any, error) {
	log, err := encodeScanLog(w.ScanLog)
	if err != nil {
		return nil, err
	}
	f := map[string]any{
		fieldStatus:  string(w.Status),
		fieldScanLog: log,
	}
	setIf(f, fieldLaundryPartner, w.LaundryPartner)
	if w.ReadyAt != nil {
		f[fieldReadyAt] = airtable.FormatTime(*w.ReadyAt)
	}
	if w.PickupDeadline != nil {
		f[fieldPickupDeadline] = airtable.FormatTime(*w.PickupDeadline)
	}
	if w.CollectedAt != nil {
		f[fieldCollectedAt] = airtable.FormatTime(*w.CollectedAt)
	}
	return f, nil
}

func setIf(f map[string]any, key, value string) {
	if value != "" {
		f[key] = value
	}
}
