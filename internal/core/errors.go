package core

import "errors"

var (
	ErrExtractionFailed  = errors.New("could not extract text from document")
	ErrIndexingFailed    = errors.New("indexing failed")
	ErrFetchFailed       = errors.New("fetch failed")
	ErrJobTimeout        = errors.New("job timed out")
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrUnsupportedType   = errors.New("unsupported document type")
	ErrQueueClosed       = errors.New("worker pool is closed")
	ErrBankUnavailable   = errors.New("question bank not configured")
	ErrInvalidRequest    = errors.New("invalid request")
)
