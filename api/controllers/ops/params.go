package ops

import (
	"net/http"
	"strings"

	"github.com/freshkit/freshkit-backend/api/validators"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/pagination"
)

const (
	maxSearchLen = 120
	maxCursorLen = 256
)

func parseLimit(r *http.Request) (int, error) {
	limit, err := pagination.ParseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
			WithDetails(map[string]any{"field": "limit"})
	}
	return limit, nil
}

// parseCursor reads ?cursor, the next_cursor of a previous page.
func parseCursor(r *http.Request) (string, error) {
	cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
	if len(cursor) > maxCursorLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cursor is invalid or has expired").
			WithDetails(map[string]any{"field": "cursor"})
	}
	return cursor, nil
}

// parseList splits a comma separated query value, e.g. ?status=Ready,At Laundry.
func parseList[T any](r *http.Request, key string, parse func(string) (T, error)) ([]T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	var out []T
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := parse(part)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key).
				WithDetails(map[string]any{"field": key, "value": part})
		}
		out = append(out, value)
	}
	return out, nil
}

func queryText(r *http.Request, key string) string {
	return validators.SanitizeString(r.URL.Query().Get(key), maxSearchLen)
}
