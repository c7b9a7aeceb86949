package firstblock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tonwatch/liteserver-tracker/domain/blocks"
	"github.com/tonwatch/liteserver-tracker/liteserver"
	"github.com/tonwatch/liteserver-tracker/support/tolerance"
	"github.com/tonwatch/liteserver-tracker/util"
)

// SearchBounds narrows where the oldest stored block is expected to
// lie. Low is the lowest seqno that might still be stored (usually the
// previous round's result), High is where fetchability is expected to
// begin at the latest. A wrong hint costs extra probes but never a
// wrong answer.
type SearchBounds struct {
	Low  uint32
	High uint32
}

type FinderOptions struct {
	// ProbeAttempts is the total number of tries a single probe gets
	// before its transient error aborts the round.
	ProbeAttempts int
	// RetryDelay is the pause between tries of the same probe.
	RetryDelay time.Duration
}

func (o *FinderOptions) WithDefaults() *FinderOptions {
	if o == nil {
		o = &FinderOptions{}
	}
	if o.ProbeAttempts == 0 {
		o.ProbeAttempts = 3
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = time.Millisecond * 500
	}
	return o
}

// FindFirstBlock locates the oldest masterchain block the server still
// stores and returns its header. anchor must be a block known to
// exist, typically the current head. The search keeps the invariant
// lo < boundary <= hi: lo is unfetchable (or the pre-genesis
// sentinel), hi is known fetchable.
//
// A pruned answer narrows the search; a transient or protocol failure
// is retried per probe and, once the budget is spent, aborts the whole
// round with lo/hi state discarded. The caller retries the round.
func FindFirstBlock(ctx context.Context, client liteserver.Client, anchor blocks.BlockIDExt, bounds *SearchBounds, opts *FinderOptions) (*blocks.Header, error) {
	opts = opts.WithDefaults()

	lo := int64(-1)
	hi := int64(anchor.Seqno)
	var best *blocks.Header

	if bounds != nil {
		// A hint above the head would read as pruned and poison lo.
		high := bounds.High
		if high > anchor.Seqno {
			high = anchor.Seqno
		}
		hdr, err := probe(ctx, client, anchor, high, opts)
		switch {
		case err == nil:
			if int64(high) <= hi {
				hi = int64(high)
				best = hdr
			}
			if int64(bounds.Low)-1 > lo {
				lo = int64(bounds.Low) - 1
			}
		case liteserver.IsPruned(err):
			// The whole window is below the boundary.
			if int64(bounds.Low) > lo {
				lo = int64(bounds.Low)
			}
		default:
			return nil, fmt.Errorf("hint probe at seqno %d: %w", high, err)
		}
		if lo >= hi {
			lo = hi - 1
		}
	}

	for hi-lo > 1 {
		mid := uint32(lo + (hi-lo)/2)
		hdr, err := probe(ctx, client, anchor, mid, opts)
		switch {
		case err == nil:
			hi = int64(mid)
			best = hdr
		case liteserver.IsPruned(err):
			lo = int64(mid)
		default:
			return nil, fmt.Errorf("probe at seqno %d (lo=%d, hi=%d): %w", mid, lo, hi, err)
		}
	}

	if best == nil || int64(best.ID.Seqno) != hi {
		hdr, err := probe(ctx, client, anchor, uint32(hi), opts)
		if err != nil {
			return nil, fmt.Errorf("final lookup at seqno %d: %w", hi, err)
		}
		best = hdr
	}

	return best, nil
}

// probe checks whether the block at the given seqno is still stored,
// retrying transient failures in place. Pruned answers come back as-is
// so the caller can classify them.
func probe(ctx context.Context, client liteserver.Client, anchor blocks.BlockIDExt, seqno uint32, opts *FinderOptions) (*blocks.Header, error) {
	id := blocks.BlockID{Workchain: anchor.Workchain, Shard: anchor.Shard, Seqno: seqno}
	tol := tolerance.NewTolerance(opts.ProbeAttempts - 1)

	for {
		hdr, err := client.LookupBlock(ctx, id)
		if err == nil {
			return hdr, nil
		}
		if liteserver.IsPruned(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, liteserver.ErrProtocol) {
			logrus.WithField("component", "firstblock").
				Errorf("protocol error probing %s: %v", id, err)
		}
		if !tol.Tolerate(1) {
			return nil, fmt.Errorf("gave up after %d attempts: %w", opts.ProbeAttempts, err)
		}
		if !util.CtxSleep(ctx, opts.RetryDelay) {
			return nil, ctx.Err()
		}
	}
}
