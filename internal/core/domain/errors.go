package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoCompletedRun indicates no run has completed yet, so there is
	// no summary to export. This is an expected condition, not a fault.
	ErrNoCompletedRun = errors.New("no completed run")

	// ErrRunNotFound indicates an unknown or already-finished run ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Delegated query rewriting degrades to the heuristic path.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEngineUnavailable indicates the retrieval-and-answer engine is
	// not configured. Runs cannot be submitted without one.
	ErrEngineUnavailable = errors.New("answer engine unavailable")
)
