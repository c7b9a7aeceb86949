package firstblock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonwatch/liteserver-tracker/liteserver"
	"github.com/tonwatch/liteserver-tracker/liteserver/litefake"
)

func fastFinder() *FinderOptions {
	return &FinderOptions{
		ProbeAttempts: 3,
		RetryDelay:    time.Millisecond,
	}
}

func TestFindsBoundaryWithoutHint(t *testing.T) {
	server := litefake.New(640, 1000)

	hdr, err := FindFirstBlock(context.Background(), server, litefake.BlockID(1000), nil, fastFinder())
	require.NoError(t, err)

	assert.Equal(t, uint32(640), hdr.ID.Seqno)
	assert.LessOrEqual(t, server.Probes(), 10)
}

func TestBoundaryAtAnchor(t *testing.T) {
	// Server keeps only the head block itself.
	server := litefake.New(1000, 1000)

	hdr, err := FindFirstBlock(context.Background(), server, litefake.BlockID(1000), nil, fastFinder())
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), hdr.ID.Seqno)
}

func TestNothingPrunedYet(t *testing.T) {
	server := litefake.New(0, 10)

	hdr, err := FindFirstBlock(context.Background(), server, litefake.BlockID(10), nil, fastFinder())
	require.NoError(t, err)
	assert.Equal(t, uint32(0), hdr.ID.Seqno)
}

func TestHintShortcut(t *testing.T) {
	server := litefake.New(655, 1050)

	hdr, err := FindFirstBlock(
		context.Background(), server, litefake.BlockID(1050),
		&SearchBounds{Low: 640, High: 672},
		fastFinder(),
	)
	require.NoError(t, err)

	assert.Equal(t, uint32(655), hdr.ID.Seqno)
	// Hint probe plus a search over a 33-seqno window, nowhere near
	// the ~11 probes a full-range search would take.
	assert.LessOrEqual(t, server.Probes(), 8)
}

func TestHintWithUnmovedBoundary(t *testing.T) {
	server := litefake.New(640, 1050)

	hdr, err := FindFirstBlock(
		context.Background(), server, litefake.BlockID(1050),
		&SearchBounds{Low: 640, High: 672},
		fastFinder(),
	)
	require.NoError(t, err)
	assert.Equal(t, uint32(640), hdr.ID.Seqno)
}

func TestHintBelowBoundary(t *testing.T) {
	// The boundary ran away past the whole hint window.
	server := litefake.New(900, 1050)

	hdr, err := FindFirstBlock(
		context.Background(), server, litefake.BlockID(1050),
		&SearchBounds{Low: 640, High: 672},
		fastFinder(),
	)
	require.NoError(t, err)
	assert.Equal(t, uint32(900), hdr.ID.Seqno)
}

func TestTransientProbeRetried(t *testing.T) {
	server := litefake.New(640, 1000)

	// First midpoint of the [-1, 1000] search.
	server.ScriptLookup(499,
		fmt.Errorf("conn reset: %w", liteserver.ErrTimeout),
		fmt.Errorf("conn reset: %w", liteserver.ErrTimeout),
	)

	hdr, err := FindFirstBlock(context.Background(), server, litefake.BlockID(1000), nil, fastFinder())
	require.NoError(t, err)
	assert.Equal(t, uint32(640), hdr.ID.Seqno)
}

func TestTransientBudgetAbortsRound(t *testing.T) {
	server := litefake.New(640, 1000)
	server.ScriptLookup(499,
		fmt.Errorf("conn reset: %w", liteserver.ErrTimeout),
		fmt.Errorf("conn reset: %w", liteserver.ErrTimeout),
		fmt.Errorf("conn reset: %w", liteserver.ErrTimeout),
	)

	_, err := FindFirstBlock(context.Background(), server, litefake.BlockID(1000), nil, fastFinder())
	require.Error(t, err)
	assert.ErrorIs(t, err, liteserver.ErrTimeout)

	// The aborted round left nothing behind; a fresh one succeeds.
	hdr, err := FindFirstBlock(context.Background(), server, litefake.BlockID(1000), nil, fastFinder())
	require.NoError(t, err)
	assert.Equal(t, uint32(640), hdr.ID.Seqno)
}

func TestProtocolErrorsRetriedLikeTransient(t *testing.T) {
	server := litefake.New(640, 1000)
	server.ScriptLookup(499,
		fmt.Errorf("bad frame: %w", liteserver.ErrProtocol),
		fmt.Errorf("bad frame: %w", liteserver.ErrProtocol),
	)

	hdr, err := FindFirstBlock(context.Background(), server, litefake.BlockID(1000), nil, fastFinder())
	require.NoError(t, err)
	assert.Equal(t, uint32(640), hdr.ID.Seqno)
}

func TestHintProbeTransientAbortsRound(t *testing.T) {
	server := litefake.New(655, 1050)
	server.ScriptLookup(672,
		fmt.Errorf("conn reset: %w", liteserver.ErrTimeout),
		fmt.Errorf("conn reset: %w", liteserver.ErrTimeout),
		fmt.Errorf("conn reset: %w", liteserver.ErrTimeout),
	)

	_, err := FindFirstBlock(
		context.Background(), server, litefake.BlockID(1050),
		&SearchBounds{Low: 640, High: 672},
		fastFinder(),
	)
	assert.ErrorIs(t, err, liteserver.ErrTimeout)
}

func TestCancelledDuringProbe(t *testing.T) {
	server := litefake.New(640, 1000)
	release := server.HoldLookups()
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(time.Millisecond * 20)
		cancel()
	}()

	_, err := FindFirstBlock(ctx, server, litefake.BlockID(1000), nil, fastFinder())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Eventually(t, func() bool { return server.InFlight() == 0 }, time.Second, time.Millisecond*10)
}
