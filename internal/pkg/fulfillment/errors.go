package fulfillment

import "errors"

// Non-retryable logical errors: they indicate a misconfigured checkout, not
// a transient failure, so redelivering the same event can never succeed.
var (
	ErrMissingSessionID     = errors.New("checkout session id is required")
	ErrMissingCustomerEmail = errors.New("checkout session has no customer email")
	ErrMissingUserMetadata  = errors.New("checkout session metadata has no user_id")
	ErrMissingProductData   = errors.New("checkout session metadata has no product_id")
	ErrProductNotFound      = errors.New("purchased product does not exist")
)

// IsNonRetryable reports whether the error is a logical fulfillment failure
// that redelivery cannot fix.
func IsNonRetryable(err error) bool {
	return errors.Is(err, ErrMissingSessionID) ||
		errors.Is(err, ErrMissingCustomerEmail) ||
		errors.Is(err, ErrMissingUserMetadata) ||
		errors.Is(err, ErrMissingProductData) ||
		errors.Is(err, ErrProductNotFound)
}
