package contracts

import "errors"

// Error taxonomy shared by every backend and the dispatcher. Concrete errors
// wrap one of these so callers can use errors.Is.
var (
	// ErrDeviceUnavailable is returned by Open when the requested device or engine cannot be found or initialized.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrMalformedRequest is returned by Open when the request itself is invalid.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrInvalidState is returned when an operation is called outside the state that allows it.
	ErrInvalidState = errors.New("invalid state")
	// ErrDeliveryFailure marks an error raised while translating or forwarding a single message.
	ErrDeliveryFailure = errors.New("delivery failure")
)
