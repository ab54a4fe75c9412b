package hotrank

import (
	"github.com/goboard/hotrank/internal/store"
	"github.com/goboard/hotrank/internal/tier"
)

// Error taxonomy. Match with errors.Is; wrapped errors carry operation and
// key context.
var (
	ErrCacheReadFailed      = store.ErrCacheReadFailed
	ErrCacheWriteFailed     = store.ErrCacheWriteFailed
	ErrInvalidTierOperation = store.ErrInvalidTierOperation
	ErrUnknownKeyPattern    = tier.ErrUnknownKeyPattern
)
