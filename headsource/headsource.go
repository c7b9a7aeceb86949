package headsource

import (
	"context"

	"github.com/tonwatch/liteserver-tracker/domain/blocks"
)

// Source supplies the current masterchain head to a consumer. A Source
// value carries per-consumer wait state, so each consumer should hold
// its own (implementations hand them out cheaply).
type Source interface {
	// Current returns the latest known head, with ok=false if none has
	// been observed yet.
	Current() (*blocks.ChainHead, bool)

	// WaitForUpdate blocks until a head this consumer has not seen yet
	// is available, or ctx ends. May be called repeatedly.
	WaitForUpdate(ctx context.Context) (*blocks.ChainHead, error)
}
