package domain

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned for an unknown product or anomaly id
	ErrNotFound = errors.New("not found")
	// ErrInvalidRange marks an input outside its allowed bounds
	ErrInvalidRange = errors.New("value out of range")
	// ErrUpstreamUnavailable means no trained forecaster exists for the product
	ErrUpstreamUnavailable = errors.New("forecast model unavailable")
	// ErrPersistence wraps store read/write failures
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidTransition rejects an anomaly status change not allowed from its current status
	ErrInvalidTransition = errors.New("invalid anomaly status transition")
	// ErrConfirmationRequired guards the destructive full re-detection
	ErrConfirmationRequired = errors.New("confirmation required")
)
