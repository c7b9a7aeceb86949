package firstblock

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonwatch/liteserver-tracker/domain/blocks"
	"github.com/tonwatch/liteserver-tracker/headsource"
	"github.com/tonwatch/liteserver-tracker/liteserver"
	"github.com/tonwatch/liteserver-tracker/liteserver/litefake"
	"github.com/tonwatch/liteserver-tracker/support/watch"
)

func fastTracker(cooldown time.Duration) *Options {
	return &Options{
		Cooldown: cooldown,
		Finder:   fastFinder(),
	}
}

func headOf(seqno uint32) *blocks.ChainHead {
	return &blocks.ChainHead{Last: litefake.BlockID(seqno)}
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)
	return ctx
}

func TestPublishesFirstDiscovery(t *testing.T) {
	server := litefake.New(640, 1000)
	cell := watch.NewCell[*blocks.ChainHead]()

	tracker := Start(server, headsource.FromCell(cell), fastTracker(time.Hour))
	defer tracker.Stop()

	sub := tracker.Subscribe()
	_, ok := sub.Current()
	assert.False(t, ok)

	cell.Set(headOf(1000))

	hdr, ok, err := sub.NextChange(waitCtx(t))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(640), hdr.ID.Seqno)
}

func TestPublishedSeqnosNeverDecrease(t *testing.T) {
	server := litefake.New(640, 1000)
	cell := watch.NewCell[*blocks.ChainHead]()

	tracker := Start(server, headsource.FromCell(cell), fastTracker(time.Millisecond*20))
	defer tracker.Stop()

	sub := tracker.Subscribe()
	cell.Set(headOf(1000))

	hdr, _, err := sub.NextChange(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, uint32(640), hdr.ID.Seqno)

	// The server prunes further and produces more blocks; the next
	// published value must not go backwards.
	server.AdvanceHead(1050)
	server.SetBoundary(655)
	cell.Set(headOf(1050))

	for {
		hdr, _, err = sub.NextChange(waitCtx(t))
		require.NoError(t, err)
		require.GreaterOrEqual(t, hdr.ID.Seqno, uint32(640))
		if hdr.ID.Seqno == 655 {
			break
		}
	}
}

func TestLateSubscriberSeesLatestOnly(t *testing.T) {
	server := litefake.New(640, 1000)
	cell := watch.NewCell[*blocks.ChainHead]()

	tracker := Start(server, headsource.FromCell(cell), fastTracker(time.Hour))
	defer tracker.Stop()

	early := tracker.Subscribe()
	cell.Set(headOf(1000))
	_, _, err := early.NextChange(waitCtx(t))
	require.NoError(t, err)

	late := tracker.Subscribe()
	hdr, ok := late.Current()
	require.True(t, ok)
	assert.Equal(t, uint32(640), hdr.ID.Seqno)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*100)
	defer cancel()
	_, _, err = late.NextChange(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type flakyHeads struct {
	failuresLeft int32
	inner        headsource.Source
}

func (f *flakyHeads) Current() (*blocks.ChainHead, bool) {
	return f.inner.Current()
}

func (f *flakyHeads) WaitForUpdate(ctx context.Context) (*blocks.ChainHead, error) {
	if atomic.AddInt32(&f.failuresLeft, -1) >= 0 {
		return nil, errors.New("masterchain info temporarily unavailable")
	}
	return f.inner.WaitForUpdate(ctx)
}

func TestStaysAwaitingHeadThroughFailures(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	server := litefake.New(640, 1000)
	cell := watch.NewCell[*blocks.ChainHead]()
	heads := &flakyHeads{failuresLeft: 2, inner: headsource.FromCell(cell)}

	tracker := Start(server, heads, fastTracker(time.Hour))
	defer tracker.Stop()

	sub := tracker.Subscribe()
	cell.Set(headOf(1000))

	hdr, _, err := sub.NextChange(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, uint32(640), hdr.ID.Seqno)

	unavailable := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && strings.Contains(entry.Message, "chain head unavailable") {
			unavailable++
		}
	}
	assert.Equal(t, 2, unavailable)
}

// regressingClient pretends pruning went backwards, which a real
// server must never do. The tracker has to notice and refuse the
// regressed result.
type regressingClient struct {
	*litefake.Server
	boundary int64
}

func (c *regressingClient) LookupBlock(ctx context.Context, id blocks.BlockID) (*blocks.Header, error) {
	if int64(id.Seqno) < atomic.LoadInt64(&c.boundary) {
		return nil, &liteserver.ServerError{Code: 651, Message: "block is not in db"}
	}
	return &blocks.Header{ID: litefake.BlockID(id.Seqno)}, nil
}

func TestDiscardsRegressedRound(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	client := &regressingClient{Server: litefake.New(0, 0), boundary: 640}
	cell := watch.NewCell[*blocks.ChainHead]()

	tracker := Start(client, headsource.FromCell(cell), fastTracker(time.Millisecond*20))
	defer tracker.Stop()

	sub := tracker.Subscribe()
	cell.Set(headOf(1000))

	hdr, _, err := sub.NextChange(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, uint32(640), hdr.ID.Seqno)

	// History grows back and the head moves below the published seqno.
	atomic.StoreInt64(&client.boundary, 300)
	cell.Set(headOf(600))

	assert.Eventually(t, func() bool {
		for _, entry := range hook.AllEntries() {
			if strings.Contains(entry.Message, "discarding first block seqno") {
				return true
			}
		}
		return false
	}, time.Second*5, time.Millisecond*10)

	hdr, ok := sub.Current()
	require.True(t, ok)
	assert.Equal(t, uint32(640), hdr.ID.Seqno)
}

func TestStopDuringRoundPublishesNothing(t *testing.T) {
	server := litefake.New(640, 1000)
	release := server.HoldLookups()
	defer release()

	cell := watch.NewCell[*blocks.ChainHead]()
	tracker := Start(server, headsource.FromCell(cell), fastTracker(time.Hour))

	sub := tracker.Subscribe()
	cell.Set(headOf(1000))

	// Let the actor get stuck inside a probe, then cancel it.
	assert.Eventually(t, func() bool { return server.InFlight() > 0 }, time.Second, time.Millisecond*5)
	tracker.Stop()

	_, ok := sub.Current()
	assert.False(t, ok)
	assert.Equal(t, int32(0), server.InFlight())
}

func TestStopIsIdempotent(t *testing.T) {
	server := litefake.New(640, 1000)
	cell := watch.NewCell[*blocks.ChainHead]()

	tracker := Start(server, headsource.FromCell(cell), fastTracker(time.Hour))
	tracker.Stop()
	tracker.Stop()
	assert.NoError(t, tracker.Close())
}
