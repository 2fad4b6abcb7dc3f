package members

import (
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

// Member is a subscriber. Login material never leaves the service.
type Member struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	Phone                string             `json:"phone"`
	Email                string             `json:"email,omitempty"`
	Gym                  string             `json:"gym"`
	Tier                 string             `json:"tier"`
	Status               enums.MemberStatus `json:"status"`
	DropsRemaining       int                `json:"drops_remaining"`
	StripeCustomerID     string             `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string             `json:"stripe_subscription_id,omitempty"`
	Joined               *time.Time         `json:"joined,omitempty"`
	CancelsAt            *time.Time         `json:"cancels_at,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`

	LoginToken  string     `json:"-"`
	TokenExpiry *time.Time `json:"-"`
}

// HasSubscription reports whether billing actions can reach the provider.
func (m Member) HasSubscription() bool {
	return strings.TrimSpace(m.StripeSubscriptionID) != ""
}

// Airtable column names used in formulas.
const (
	FieldName                 = "Name"
	FieldPhone                = "Phone"
	FieldEmail                = "Email"
	FieldGym                  = "Gym"
	FieldTier                 = "Tier"
	FieldStatus               = "Status"
	FieldDropsRemaining       = "Drops Remaining"
	FieldLoginToken           = "Login Token"
	FieldTokenExpiry          = "Token Expiry"
	FieldStripeCustomerID     = "Stripe Customer ID"
	FieldStripeSubscriptionID = "Stripe Subscription ID"
	FieldJoined               = "Joined"
	FieldCancelsAt            = "Cancels At"
)

type memberFields struct {
	Name                 string  `json:"Name"`
	Phone                string  `json:"Phone"`
	Email                string  `json:"Email"`
	Gym                  string  `json:"Gym"`
	Tier                 string  `json:"Tier"`
	Status               string  `json:"Status"`
	DropsRemaining       float64 `json:"Drops Remaining"`
	LoginToken           string  `json:"Login Token"`
	TokenExpiry          string  `json:"Token Expiry"`
	StripeCustomerID     string  `json:"Stripe Customer ID"`
	StripeSubscriptionID string  `json:"Stripe Subscription ID"`
	Joined               string  `json:"Joined"`
	CancelsAt            string  `json:"Cancels At"`
}

func memberFromRecord(rec airtable.Record) (Member, error) {
	var f memberFields
	if err := rec.Decode(&f); err != nil {
		return Member{}, err
	}
	return Member{
		ID:                   rec.ID,
		Name:                 strings.TrimSpace(f.Name),
		Phone:                strings.TrimSpace(f.Phone),
		Email:                strings.TrimSpace(f.Email),
		Gym:                  strings.TrimSpace(f.Gym),
		Tier:                 strings.TrimSpace(f.Tier),
		Status:               enums.MemberStatus(f.Status),
		DropsRemaining:       int(f.DropsRemaining),
		LoginToken:           f.LoginToken,
		TokenExpiry:          airtable.ParseTime(f.TokenExpiry),
		StripeCustomerID:     f.StripeCustomerID,
		StripeSubscriptionID: f.StripeSubscriptionID,
		Joined:               airtable.ParseTime(f.Joined),
		CancelsAt:            airtable.ParseTime(f.CancelsAt),
		CreatedAt:            rec.CreatedTime,
	}, nil
}

// NewMember holds the columns written when a member row is created.
type NewMember struct {
	Name                 string
	Phone                string
	Email                string
	Gym                  string
	Tier                 string
	Status               enums.MemberStatus
	DropsRemaining       int
	StripeCustomerID     string
	StripeSubscriptionID string
	Joined               time.Time
}

func (n NewMember) fields() map[string]any {
	f := map[string]any{
		FieldName:           n.Name,
		FieldPhone:          n.Phone,
		FieldStatus:         string(n.Status),
		FieldDropsRemaining: n.DropsRemaining,
	}
	optional(f, FieldEmail, n.Email)
	optional(f, FieldGym, n.Gym)
	optional(f, FieldTier, n.Tier)
	optional(f, FieldStripeCustomerID, n.StripeCustomerID)
	optional(f, FieldStripeSubscriptionID, n.StripeSubscriptionID)
	if !n.Joined.IsZero() {
		f[FieldJoined] = airtable.FormatTime(n.Joined)
	}
	return f
}

// Update is a partial write; nil pointers leave the column untouched.
type Update struct {
	Name                 *string
	Phone                *string
	Email                *string
	Gym                  *string
	Tier                 *string
	Status               *enums.MemberStatus
	DropsRemaining       *int
	StripeCustomerID     *string
	StripeSubscriptionID *string
	LoginToken           *string
	TokenExpiry          *time.Time
	CancelsAt            *time.Time
	ClearLoginToken      bool
	ClearCancelsAt       bool
}

// IsEmpty reports whether the update would write nothing.
func (u Update) IsEmpty() bool {
	return len(u.fields()) == 0
}

func (u Update) fields() map[string]any {
	f := map[string]any{}
	setString(f, FieldName, u.Name)
	setString(f, FieldPhone, u.Phone)
	setString(f, FieldEmail, u.Email)
	setString(f, FieldGym, u.Gym)
	setString(f, FieldTier, u.Tier)
	setString(f, FieldStripeCustomerID, u.StripeCustomerID)
	setString(f, FieldStripeSubscriptionID, u.StripeSubscriptionID)
	if u.Status != nil {
		f[FieldStatus] = string(*u.Status)
	}
	if u.DropsRemaining != nil {
		f[FieldDropsRemaining] = *u.DropsRemaining
	}
	setString(f, FieldLoginToken, u.LoginToken)
	if u.TokenExpiry != nil {
		f[FieldTokenExpiry] = airtable.FormatTime(*u.TokenExpiry)
	}
	if u.ClearLoginToken {
		f[FieldLoginToken] = nil
		f[FieldTokenExpiry] = nil
	}
	if u.CancelsAt != nil {
		f[FieldCancelsAt] = airtable.FormatTime(*u.CancelsAt)
	}
	if u.ClearCancelsAt {
		f[FieldCancelsAt] = nil
	}
	return f
}

func setString(f map[string]any, key string, value *string) {
	if value != nil {
		f[key] = strings.TrimSpace(*value)
	}
}

func optional(f map[string]any, key, value string) {
	if strings.TrimSpace(value) != "" {
		f[key] = strings.TrimSpace(value)
	}
}
