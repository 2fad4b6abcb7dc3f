package content

import (
	"strings"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/markdown"
)

// Section is one editable block of a marketing page.
type Section struct {
	Key       string `json:"key"`
	Title     string `json:"title,omitempty"`
	Body      string `json:"body"`
	HTML      string `json:"html"`
	SortOrder int    `json:"sort_order"`
}

// Page groups the active sections of one page.
type Page struct {
	Page     string    `json:"page"`
	Sections []Section `json:"sections"`
	// Fallback is set when the sections are the built-in copy rather than the live table.
	Fallback bool `json:"fallback"`
}

const (
	fieldPage      = "Page"
	fieldActive    = "Active"
	fieldSortOrder = "Sort Order"
)

type sectionFields struct {
	Key       string  `json:"Key"`
	Page      string  `json:"Page"`
	Title     string  `json:"Title"`
	Body      string  `json:"Body"`
	Active    bool    `json:"Active"`
	SortOrder float64 `json:"Sort Order"`
}

func sectionFromRecord(rec airtable.Record) (Section, error) {
	var f sectionFields
	if err := rec.Decode(&f); err != nil {
		return Section{}, err
	}
	return newSection(strings.TrimSpace(f.Key), f.Title, f.Body, int(f.SortOrder)), nil
}

func newSection(key, title, body string, order int) Section {
	return Section{
		Key:       key,
		Title:     title,
		Body:      body,
		HTML:      markdown.ToHTML(body),
		SortOrder: order,
	}
}
