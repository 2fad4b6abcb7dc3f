package gyms

import (
	"strings"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

// Gym is a partner location where members drop and collect bags.
type Gym struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Address        string          `json:"address,omitempty"`
	CollectionDays []string        `json:"collection_days,omitempty"`
	Status         enums.GymStatus `json:"status"`
}

// IsActive reports whether the gym currently takes drops.
func (g Gym) IsActive() bool {
	return g.Status == enums.GymStatusActive
}

const (
	fieldCode   = "Code"
	fieldName   = "Name"
	fieldStatus = "Status"
)

type gymFields struct {
	Code           string `json:"Code"`
	Name           string `json:"Name"`
	Address        string `json:"Address"`
	CollectionDays any    `json:"Collection Days"`
	Status         string `json:"Status"`
}

func gymFromRecord(rec airtable.Record) (Gym, error) {
	var f gymFields
	if err := rec.Decode(&f); err != nil {
		return Gym{}, err
	}
	return Gym{
		ID:             rec.ID,
		Code:           strings.TrimSpace(f.Code),
		Name:           f.Name,
		Address:        f.Address,
		CollectionDays: collectionDays(f.CollectionDays),
		Status:         enums.GymStatus(f.Status),
	}, nil
}

// Collection Days is a multi-select in most bases but plain text in older ones.
func collectionDays(raw any) []string {
	var out []string
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
