package payload

import "errors"

// Sentinel kinds for payload validation failures.
var (
	ErrEmptyPayload  = errors.New("empty payload")
	ErrMalformedURL  = errors.New("malformed label url")
	ErrInvalidFormat = errors.New("invalid equipment id format")
)
