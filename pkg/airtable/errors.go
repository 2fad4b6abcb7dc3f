package airtable

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// The API returns either {"error":"NOT_FOUND"} or {"error":{"type":..,"message":..}}.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func newAPIError(resp *resty.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode()}
	env, ok := resp.Error().(*errorEnvelope)
	if !ok || env == nil || len(env.Error) == 0 {
		apiErr.Type = http.StatusText(apiErr.Status)
		return apiErr
	}
	var body errorBody
	if err := json.Unmarshal(env.Error, &body); err == nil {
		apiErr.Type, apiErr.Message = body.Type, body.Message
		return apiErr
	}
	var plain string
	if err := json.Unmarshal(env.Error, &plain); err == nil {
		apiErr.Type = plain
	}
	return apiErr
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d: %s", e.Status, e.Type)
	}
	return fmt.Sprintf("status %d: %s: %s", e.Status, e.Type, e.Message)
}

func (e *APIError) StatusCode() int { return e.Status }

func (e *APIError) Provider() string { return providerAirtable }

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrInvalidOffset:
		return e.Status == http.StatusUnprocessableEntity &&
			(e.Type == "LIST_RECORDS_ITERATOR_NOT_AVAILABLE" || e.Type == "INVALID_OFFSET_VALUE")
	}
	return false
}
