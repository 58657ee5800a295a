package mongo

import "errors"

var (
	// ErrFailedToConnectToMongo is returned when all connection attempts are exhausted
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")

	// ErrHealthcheckFailed is returned when the server does not answer a ping
	ErrHealthcheckFailed = errors.New("healthcheck failed, connection is not available")

	// ErrCollectionNil is returned when a nil collection is provided
	ErrCollectionNil = errors.New("collection cannot be nil")

	// ErrTransactionFailed is returned when a session transaction cannot run
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrUnexpectedStatusType is returned when the status field does not hold an integer
	ErrUnexpectedStatusType = errors.New("status field does not hold an integer value")
)
