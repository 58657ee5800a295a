package rowqueue

import "errors"

// Common errors
var (
	// ErrInvalidState is returned when a state is not one of the five defined values
	ErrInvalidState = errors.New("state must be one of created, waiting, working, finished, canceled")

	// ErrAttemptsOutOfRange is returned when attempts does not fit the single status digit
	ErrAttemptsOutOfRange = errors.New("attempts must be a single digit between 0 and 9")

	// ErrMomentOutOfRange is returned when a moment cannot be rendered as a 17-digit priority
	ErrMomentOutOfRange = errors.New("moment is outside the representable priority range")

	// ErrMalformedStatus is returned when an integer does not decode to a valid status
	ErrMalformedStatus = errors.New("status does not decode to a valid state, moment, and attempts")

	// ErrRetryOutOfRange is returned when the retry budget exceeds the attempts digit
	ErrRetryOutOfRange = errors.New("retry must be between 0 and 8")

	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrActionNil is returned when a nil action is provided
	ErrActionNil = errors.New("action cannot be nil")

	// ErrRunnerNil is returned when a nil runner is provided to a worker
	ErrRunnerNil = errors.New("runner cannot be nil")

	// ErrNoRecordToClaim is returned by Run when no record is eligible.
	// It signals an empty queue, not a failure, and callers are expected
	// to back off and poll again.
	ErrNoRecordToClaim = errors.New("no record to claim")

	// ErrRecordNotFound is returned by store implementations when a status
	// range contains no records
	ErrRecordNotFound = errors.New("no record in the requested status range")

	// ErrForeignRecord is returned when a record is saved to a store that
	// did not produce it
	ErrForeignRecord = errors.New("record does not belong to this store")
)
