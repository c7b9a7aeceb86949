package firstblock

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/tonwatch/liteserver-tracker/domain/blocks"
	"github.com/tonwatch/liteserver-tracker/headsource"
	"github.com/tonwatch/liteserver-tracker/liteserver"
	"github.com/tonwatch/liteserver-tracker/support/watch"
	"github.com/tonwatch/liteserver-tracker/util"
)

type Options struct {
	// HintWindow is how far above the previous result the next
	// boundary is optimistically expected; the hint window for round
	// n+1 is [prev, prev+HintWindow].
	HintWindow uint32
	// Cooldown is the pause after a successful round. Failed rounds
	// retry immediately.
	Cooldown time.Duration
	Finder   *FinderOptions
	// Registerer for tracker metrics; nil disables them.
	Registerer prometheus.Registerer
	LogTag     string
}

func (o *Options) WithDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.HintWindow == 0 {
		o.HintWindow = 32
	}
	if o.Cooldown == 0 {
		o.Cooldown = time.Second * 30
	}
	o.Finder = o.Finder.WithDefaults()
	if len(o.LogTag) == 0 {
		o.LogTag = "unnamed"
	}
	return o
}

// actor states. Cancellation is not a state of its own here: the
// context ending wins over any phase and is checked at every
// suspension point.
type actorState int

const (
	stateAwaitingHead actorState = iota
	stateDiscovering
	stateIdle
)

// Tracker keeps a live view of the oldest masterchain block the
// server still stores. One background goroutine repeatedly runs
// FindFirstBlock against the current chain head and publishes each
// result; published seqnos never decrease.
type Tracker struct {
	log    *logrus.Entry
	client liteserver.Client
	heads  headsource.Source
	cell   *watch.Cell[*blocks.Header]
	m      *trackerMetrics
	opts   *Options
	job    *util.Job
}

// Start spawns the tracker's actor. Stop (or Close) releases it.
func Start(client liteserver.Client, heads headsource.Source, opts *Options) *Tracker {
	opts = opts.WithDefaults()

	t := &Tracker{
		log: logrus.
			WithField("component", "firstblock").
			WithField("tag", opts.LogTag),
		client: client,
		heads:  heads,
		cell:   watch.NewCell[*blocks.Header](),
		m:      newTrackerMetrics(opts.Registerer),
		opts:   opts,
	}
	t.job = util.StartJob(context.Background(), t.run)
	return t
}

// Subscribe returns an independent view of the latest discovered first
// block. Late subscribers see only the current value, never history.
func (t *Tracker) Subscribe() *watch.Subscription[*blocks.Header] {
	return t.cell.Subscribe()
}

// Current is a shorthand for reading the latest value without a
// subscription, with ok=false before the first successful round.
func (t *Tracker) Current() (*blocks.Header, bool) {
	return t.cell.Get()
}

// Stop cancels the actor and waits for it to exit. Idempotent.
// Subscriptions stay readable but never wake again.
func (t *Tracker) Stop() {
	t.job.Stop(context.Background())
}

// Close makes Tracker usable where an io.Closer is expected.
func (t *Tracker) Close() error {
	t.Stop()
	return nil
}

func (t *Tracker) run(ctx context.Context) error {
	defer t.log.Warnf("stopping")

	var head *blocks.ChainHead
	var prev *blocks.Header
	state := stateAwaitingHead

	for ctx.Err() == nil {
		switch state {
		case stateAwaitingHead:
			h, err := t.heads.WaitForUpdate(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				t.log.Errorf("chain head unavailable: %v", err)
				continue
			}
			head = h
			state = stateDiscovering

		case stateDiscovering:
			// A head published during the cooldown is picked up here;
			// it never preempts a sleeping or searching round.
			if h, ok := t.heads.Current(); ok {
				head = h
			}

			var bounds *SearchBounds
			if prev != nil {
				bounds = &SearchBounds{
					Low:  prev.ID.Seqno,
					High: prev.ID.Seqno + t.opts.HintWindow,
				}
			}

			hdr, err := FindFirstBlock(ctx, t.client, head.Last, bounds, t.opts.Finder)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				t.m.roundFailed()
				t.log.Errorf("discovery round failed (anchor seqno %d): %v", head.Last.Seqno, err)
				continue
			}

			if prev != nil && hdr.ID.Seqno < prev.ID.Seqno {
				// The boundary only ever moves forward. A regression
				// means the round's answer can't be trusted.
				t.m.roundDiscarded()
				t.log.Errorf(
					"discarding first block seqno %d: below previously published %d",
					hdr.ID.Seqno, prev.ID.Seqno,
				)
				state = stateIdle
				continue
			}

			prev = hdr
			t.cell.Set(hdr)
			t.m.roundOK(hdr.ID.Seqno)
			t.log.Infof("first stored block: seqno %d", hdr.ID.Seqno)
			state = stateIdle

		case stateIdle:
			util.CtxSleep(ctx, t.opts.Cooldown)
			state = stateDiscovering
		}
	}

	return nil
}
