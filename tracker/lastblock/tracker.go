package lastblock

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
	// PollTimeout is the server-side long-poll duration per
	// WaitMasterchainSeqno call. A timed-out poll is simply reissued.
	PollTimeout time.Duration
	// RetryDelay is the pause after a failed call.
	RetryDelay time.Duration
	// Registerer for the head seqno gauge; nil disables it.
	Registerer prometheus.Registerer
	LogTag     string
}

func (o *Options) WithDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.PollTimeout == 0 {
		o.PollTimeout = time.Second * 10
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = time.Second
	}
	if len(o.LogTag) == 0 {
		o.LogTag = "unnamed"
	}
	return o
}

// Tracker follows the masterchain head by long-polling a liteserver
// and publishes every new head into a watch cell.
type Tracker struct {
	log       *logrus.Entry
	client    liteserver.Client
	cell      *watch.Cell[*blocks.ChainHead]
	headGauge prometheus.Gauge
	opts      *Options
	job       *util.Job
}

func Start(client liteserver.Client, opts *Options) *Tracker {
	opts = opts.WithDefaults()

	t := &Tracker{
		log: logrus.
			WithField("component", "lastblock").
			WithField("tag", opts.LogTag),
		client: client,
		cell:   watch.NewCell[*blocks.ChainHead](),
		opts:   opts,
	}
	if opts.Registerer != nil {
		t.headGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tonwatch",
			Subsystem: "last_block",
			Name:      "seqno",
			Help:      "Seqno of the newest known masterchain block",
		})
		opts.Registerer.MustRegister(t.headGauge)
	}
	t.job = util.StartJobLoop(context.Background(), t.runIteration)
	return t
}

// Source returns an independent consumer view of the tracked head.
func (t *Tracker) Source() headsource.Source {
	return headsource.FromCell(t.cell)
}

func (t *Tracker) Subscribe() *watch.Subscription[*blocks.ChainHead] {
	return t.cell.Subscribe()
}

func (t *Tracker) Stop() {
	t.job.Stop(context.Background())
}

func (t *Tracker) runIteration(ctx context.Context) error {
	var head *blocks.ChainHead
	var err error

	if cur, ok := t.cell.Get(); ok {
		head, err = t.client.WaitMasterchainSeqno(ctx, cur.Last.Seqno+1, t.opts.PollTimeout)
		if err != nil && liteserver.IsTransient(err) {
			// Poll expired or hiccuped, go straight into the next one.
			return nil
		}
	} else {
		head, err = t.client.GetMasterchainInfo(ctx)
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		t.log.Errorf("can't fetch masterchain head: %v", err)
		util.CtxSleep(ctx, t.opts.RetryDelay)
		return nil
	}

	if cur, ok := t.cell.Get(); ok && head.Last.Seqno <= cur.Last.Seqno {
		return nil
	}

	t.cell.Set(head)
	if t.headGauge != nil {
		t.headGauge.Set(float64(head.Last.Seqno))
	}
	t.log.Debugf("masterchain head: seqno %d", head.Last.Seqno)
	return nil
}
