package drops

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/enums"
)

const (
	ScanActionDropped      = "dropped"
	ScanActionStatusUpdate = "status_update"
	ScanActionBulkCheckIn  = "bulk_check_in"
	scanActionLegacy       = "legacy_note"
)

// ScanEntry is one line of a drop's history, stored as a JSON array in the Scan Log column.
type ScanEntry struct {
	Timestamp      time.Time        `json:"timestamp"`
	Action         string           `json:"action"`
	Operator       string           `json:"operator"`
	LaundryPartner string           `json:"laundry_partner,omitempty"`
	From           enums.DropStatus `json:"from,omitempty"`
	To             enums.DropStatus `json:"to"`
	Correction     bool             `json:"correction,omitempty"`
	Note           string           `json:"note,omitempty"`
}

// parseScanLog reads the column. Hand-edited text that is not a JSON array is
// kept as a single legacy entry so the next write does not lose it.
func parseScanLog(raw string) []ScanEntry {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []ScanEntry{}
	}
	var entries []ScanEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return []ScanEntry{{Action: scanActionLegacy, Note: raw}}
	}
	if entries == nil {
		entries = []ScanEntry{}
	}
	return entries
}

func encodeScanLog(entries []ScanEntry) (string, error) {
	if entries == nil {
		entries = []ScanEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func appendEntry(log []ScanEntry, entry ScanEntry) []ScanEntry {
	out := make([]ScanEntry, 0, len(log)+1)
	out = append(out, log...)
	return append(out, entry)
}
