package types

import "errors"

var (
	ErrInvalidTransition = errors.New("operation is not legal for the current session status")
	ErrOutOfOrderSample  = errors.New("sample timestamp is not after the last accepted sample")
	ErrSessionNotActive  = errors.New("session is not accepting samples")

	ErrNoActiveSession  = errors.New("no active session")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSnapshotNotFound = errors.New("no persisted session snapshot")

	ErrDatabaseFailed          = errors.New("database operation failed")
	ErrFailedToPublishSummary  = errors.New("failed to publish session summary")
	ErrInvalidSampleCoordinate = errors.New("latitude must be in [-90, 90] and longitude in [-180, 180]")
)
