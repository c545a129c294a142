package pipeline

import "errors"

// Common errors for the pipeline.
var (
	// Registry errors
	ErrNotRegistered = errors.New("no implementation registered for capability")
	ErrWrongType     = errors.New("registered implementation has the wrong type")
	ErrNotConfigured = errors.New("pipeline is not fully configured")

	// Run errors
	ErrProcessingActive = errors.New("processing already in progress")
	ErrNothingToCancel  = errors.New("no processing in progress to cancel")
	ErrCancelled        = errors.New("processing cancelled")
	ErrEmptyInput       = errors.New("empty input text")

	// Data-integrity errors
	ErrNoSegments        = errors.New("no segments produced")
	ErrUnresolvedSpeaker = errors.New("segment speaker has no voice assignment")
)
