package liteserver

import (
	"context"
	"time"

	"github.com/tonwatch/liteserver-tracker/domain/blocks"
)

// Client is the narrow slice of the liteserver protocol the trackers
// need. Wire encoding, connection handling and request/response
// correlation all live behind this interface. Implementations should
// enforce a per-call timeout: nothing above bounds the duration of a
// single call.
type Client interface {
	// GetMasterchainInfo returns the current masterchain head.
	GetMasterchainInfo(ctx context.Context) (*blocks.ChainHead, error)

	// WaitMasterchainSeqno blocks server-side until the masterchain
	// reaches the given seqno, then returns the head. Returns
	// ErrTimeout once the given timeout elapses first.
	WaitMasterchainSeqno(ctx context.Context, seqno uint32, timeout time.Duration) (*blocks.ChainHead, error)

	// LookupBlock resolves a chain coordinate into the full block id
	// and fetches its header. ErrNotFound when the block is pruned.
	LookupBlock(ctx context.Context, id blocks.BlockID) (*blocks.Header, error)

	// GetBlockHeader fetches the header of an exactly identified block.
	GetBlockHeader(ctx context.Context, id blocks.BlockIDExt) (*blocks.Header, error)
}
