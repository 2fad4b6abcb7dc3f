package audit

import (
	"encoding/json"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
)

// Entry is one row of the audit log.
type Entry struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
}

const (
	fieldTimestamp  = "Timestamp"
	fieldEntityType = "Entity Type"
	fieldEntityID   = "Entity ID"
)

type entryFields struct {
	Timestamp  string `json:"Timestamp,omitempty"`
	Actor      string `json:"Actor,omitempty"`
	Action     string `json:"Action,omitempty"`
	EntityType string `json:"Entity Type,omitempty"`
	EntityID   string `json:"Entity ID,omitempty"`
	Details    string `json:"Details,omitempty"`
}

func entryFromRecord(rec airtable.Record) (Entry, error) {
	var f entryFields
	if err := rec.Decode(&f); err != nil {
		return Entry{}, err
	}
	entry := Entry{
		ID:         rec.ID,
		Actor:      f.Actor,
		Action:     f.Action,
		EntityType: f.EntityType,
		EntityID:   f.EntityID,
	}
	if ts := airtable.ParseTime(f.Timestamp); ts != nil {
		entry.Timestamp = *ts
	} else {
		entry.Timestamp = rec.CreatedTime
	}
	if f.Details != "" {
		// Rows edited by hand may hold free text.
		if err := json.Unmarshal([]byte(f.Details), &entry.Details); err != nil {
			entry.Details = map[string]any{"raw": f.Details}
		}
	}
	return entry, nil
}

func fieldsFromEntry(entry Entry) (entryFields, error) {
	f := entryFields{
		Timestamp:  airtable.FormatTime(entry.Timestamp),
		Actor:      entry.Actor,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
	}
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return entryFields{}, err
		}
		f.Details = string(raw)
	}
	return f, nil
}
