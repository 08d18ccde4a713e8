package enums

// PaymentEventType is the event type reported by the payment intent webhook.
type PaymentEventType string

const (
	PaymentEventSucceeded PaymentEventType = "payment_intent.succeeded"
	PaymentEventFailed    PaymentEventType = "payment_intent.failed"
	PaymentEventRejected  PaymentEventType = "payment_intent.rejected"
)

// IsSuccess reports whether the event confirms the payment.
func (t PaymentEventType) IsSuccess() bool {
	return t == PaymentEventSucceeded
}

// IsFailure reports whether the event reports a failed or rejected payment.
func (t PaymentEventType) IsFailure() bool {
	return t == PaymentEventFailed || t == PaymentEventRejected
}
