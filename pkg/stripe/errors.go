package stripe

import (
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v84"
)

// IsNotFound reports whether Stripe rejected the call because the object does not exist.
func IsNotFound(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing
}
