package store

import "errors"

var (
	// ErrCacheReadFailed marks a primary-store read that failed or timed out.
	// Callers treat it as a cache miss and fall through to the system of
	// record; the engine never fabricates data on a read error.
	ErrCacheReadFailed = errors.New("cache read failed")

	// ErrCacheWriteFailed marks a primary-store write that failed or timed
	// out. Population writes propagate it; realtime score writes are
	// intercepted by the aggregator and redirected to the fallback store.
	ErrCacheWriteFailed = errors.New("cache write failed")

	// ErrInvalidTierOperation marks an operation a tier's structure cannot
	// support, such as writing a ranked ID list for the realtime tier.
	ErrInvalidTierOperation = errors.New("invalid operation for tier")
)
