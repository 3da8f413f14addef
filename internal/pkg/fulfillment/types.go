package fulfillment

// Metadata keys the checkout flow must attach to every session.
const (
	MetadataKeyUserID    = "user_id"
	MetadataKeyProductID = "product_id"
)

// CheckoutSession is the provider-agnostic shape of a completed checkout
// session as the fulfillment pipeline consumes it. Amounts are minor
// currency units, already resolved by the provider.
type CheckoutSession struct {
	SessionID     string
	PaymentID     string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	CustomerName  string
	// Metadata carries the user_id and product_id the checkout flow attached
	// when creating the session. product_id may be a comma-separated list
	// for multi-product checkouts.
	Metadata map[string]string
}

// RefundEvent is the provider-agnostic shape of a charge refund.
type RefundEvent struct {
	PaymentID      string
	AmountRefunded int64
	Currency       string
}
