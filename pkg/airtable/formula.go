package airtable

import (
	"strconv"
	"strings"
	"time"
)

var stringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote renders s as a formula string literal. Every caller-supplied value
// must pass through Quote before it lands in a formula.
func Quote(s string) string {
	return `"` + stringEscaper.Replace(s) + `"`
}

// Field renders a field reference.
func Field(name string) string {
	return "{" + strings.NewReplacer("{", "", "}", "").Replace(name) + "}"
}

// Eq compares a field against a string value.
func Eq(field, value string) string {
	return Field(field) + "=" + Quote(value)
}

// NotEq is the negation of Eq.
func NotEq(field, value string) string {
	return Field(field) + "!=" + Quote(value)
}

// EqNumber compares a numeric field.
func EqNumber(field string, value int) string {
	return Field(field) + "=" + strconv.Itoa(value)
}

// In matches any of values; an empty set matches nothing.
func In(field string, values ...string) string {
	if len(values) == 0 {
		return "FALSE()"
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, Eq(field, v))
	}
	return Or(parts...)
}

// Search performs a case-insensitive substring match.
func Search(field, needle string) string {
	return "SEARCH(LOWER(" + Quote(needle) + "),LOWER(" + Field(field) + "&\"\"))"
}

// Before matches dates strictly earlier than t.
func Before(field string, t time.Time) string {
	return "IS_BEFORE(" + Field(field) + "," + Quote(t.UTC().Format(time.RFC3339)) + ")"
}

func And(parts ...string) string { return join("AND", parts) }

func Or(parts ...string) string { return join("OR", parts) }

func Not(part string) string { return "NOT(" + part + ")" }

func join(op string, parts []string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			clean = append(clean, p)
		}
	}
	switch len(clean) {
	case 0:
		return ""
	case 1:
		return clean[0]
	}
	return op + "(" + strings.Join(clean, ",") + ")"
}

// EqFold compares a text field case-insensitively.
func EqFold(field, value string) string {
	return "LOWER(" + Field(field) + "&\"\")=" + Quote(strings.ToLower(value))
}
