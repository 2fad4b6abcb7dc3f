package errors

import (
	"errors"
	"fmt"
)

// upstreamError is implemented by provider client errors that carry an HTTP status.
type upstreamError interface {
	error
	StatusCode() int
	Provider() string
}

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	Provider       string `json:"provider,omitempty"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	UpstreamError  string `json:"upstream_error,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var up upstreamError
	if errors.As(err, &up) {
		d.Provider = up.Provider()
		d.UpstreamStatus = up.StatusCode()
		d.UpstreamError = up.Error()
	}

	return d
}
