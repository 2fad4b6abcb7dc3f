package airtable

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
)

const dateLayout = "2006-01-02"

// ParseTime reads a date or dateTime cell. Blank or malformed cells yield nil.
func ParseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, dateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// FormatTime renders t for a dateTime cell.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatDate renders the calendar date of t in loc for a date-only cell.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}

// FirstLink returns the first record id of a linked-record cell.
func FirstLink(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// MapError converts a client error into a typed service error.
func MapError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return pkgerrors.NotFound(entity)
	}
	if errors.Is(err, ErrInvalidOffset) {
		return pkgerrors.New(pkgerrors.CodeValidation, "cursor is invalid or has expired")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Dependency(providerAirtable, err)
}

// Text decodes a cell that may be plain text, a number, or a lookup array
// (lookup columns arrive as arrays; the first value wins).
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Text(firstText(raw))
	return nil
}

func (t Text) String() string {
	return strings.TrimSpace(string(t))
}

func firstText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		for _, item := range v {
			if s := firstText(item); s != "" {
				return s
			}
		}
	}
	return ""
}
