package core

import "errors"

var (
	// ErrInvalidInput is returned for requests rejected at the boundary
	ErrInvalidInput = errors.New("invalid input")
	// ErrBulkLimitExceeded is returned when a bulk request is above the configured cap
	ErrBulkLimitExceeded = errors.New("bulk request exceeds maximum size")
	// ErrReputationFailed is returned when no completed reputation verdict could be obtained
	ErrReputationFailed = errors.New("reputation check failed")
	// ErrFetchFailed is returned when page content could not be retrieved or parsed
	ErrFetchFailed = errors.New("content fetch failed")
	// ErrRationaleFailed is returned when the rationale provider produced nothing usable
	ErrRationaleFailed = errors.New("rationale generation failed")
)
