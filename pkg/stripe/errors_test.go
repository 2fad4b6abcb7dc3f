package stripe

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stripe/stripe-go/v84"
)

func TestIsNotFound(t *testing.T) {
	missing := &stripe.Error{HTTPStatusCode: http.StatusNotFound}
	if !IsNotFound(fmt.Errorf("get session: %w", missing)) {
		t.Fatal("expected wrapped 404 to be not found")
	}
	if !IsNotFound(&stripe.Error{Code: stripe.ErrorCodeResourceMissing, HTTPStatusCode: http.StatusBadRequest}) {
		t.Fatal("expected resource_missing to be not found")
	}
	if IsNotFound(&stripe.Error{HTTPStatusCode: http.StatusPaymentRequired}) {
		t.Fatal("402 is not a missing object")
	}
	if IsNotFound(errors.New("boom")) {
		t.Fatal("plain errors are not stripe errors")
	}
}
