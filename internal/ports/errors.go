package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these.
var (
	// General errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Provider-specific errors
	ErrExchangeUnavailable = errors.New("exchange API is unavailable")
	ErrConnectionFailed    = errors.New("failed to connect to the exchange")
	ErrRateLimited         = errors.New("API rate limit exceeded")
	ErrMalformedResponse   = errors.New("malformed provider response")

	// Storage-specific errors
	ErrStoreFailed = errors.New("failed to persist candle series")
)
