package redis

import "errors"

var (
	// ErrFailedToParseRedisConnString is returned when the connection URL is invalid
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")

	// ErrRedisNotReady is returned when all connection attempts are exhausted
	ErrRedisNotReady = errors.New("redis server is not ready")

	// ErrHealthcheckFailed is returned when the server does not answer a ping
	ErrHealthcheckFailed = errors.New("healthcheck failed, connection is not available")

	// ErrClientNil is returned when a nil client is provided
	ErrClientNil = errors.New("redis client cannot be nil")

	// ErrKeyNotSet is returned when the sorted set key is empty
	ErrKeyNotSet = errors.New("queue key cannot be empty")

	// ErrTooMuchContention is returned when an optimistic transaction keeps
	// losing against concurrent writers
	ErrTooMuchContention = errors.New("optimistic transaction retries exhausted")

	// ErrMalformedMember is returned when a sorted set member does not follow
	// the "<status>:<id>" layout
	ErrMalformedMember = errors.New("sorted set member is not in status:id form")
)
