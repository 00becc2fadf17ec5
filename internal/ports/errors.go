package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown         = errors.New("unknown error occurred")
	ErrInvalidRequest  = errors.New("invalid request parameters or format")
	ErrNotFound        = errors.New("resource not found")
	ErrTimeout         = errors.New("operation timed out")
	ErrContextCanceled = errors.New("operation canceled via context")
	ErrUnknownAsset    = errors.New("asset is not configured")

	// Market Data / Webhook Errors
	ErrProviderUnavailable = errors.New("data provider is unavailable")
	ErrConnectionFailed    = errors.New("failed to connect to remote endpoint")
	ErrRateLimited         = errors.New("API rate limit exceeded")
	ErrMalformedResponse   = errors.New("response payload could not be decoded")
	ErrAnalysisFailed      = errors.New("analysis webhook request failed")

	// Storage Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
	ErrDeleteFailed = errors.New("database delete failed")
)
