package domain

import "fmt"

// RejectReason classifies an order rejection returned by the exchange.
// The engine branches on the reason instead of inspecting error strings.
type RejectReason string

const (
	// RejectTakerPrevention: the requested price would have crossed the
	// spread and filled as a taker. The controller only rests maker
	// liquidity, so this is expected, benign, and skipped.
	RejectTakerPrevention RejectReason = "taker_prevention"
	// RejectOther is any other rejection. Fatal for the remaining batch.
	RejectOther RejectReason = "other"
)

// OrderRejectedError is returned by the exchange adapter when an order is
// refused with a well-formed rejection rather than a transport failure.
type OrderRejectedError struct {
	Reason  RejectReason
	Code    string
	Message string
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected (%s): %s: %s", e.Reason, e.Code, e.Message)
}

// Benign reports whether the rejection may be skipped without aborting the
// rest of the placement batch.
func (e *OrderRejectedError) Benign() bool {
	return e.Reason == RejectTakerPrevention
}
