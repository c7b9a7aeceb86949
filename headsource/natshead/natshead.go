package natshead

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/tonwatch/liteserver-tracker/domain/announcements"
	"github.com/tonwatch/liteserver-tracker/domain/blocks"
	"github.com/tonwatch/liteserver-tracker/headsource"
	"github.com/tonwatch/liteserver-tracker/support/watch"
	"github.com/tonwatch/liteserver-tracker/transport"
)

type Options struct {
	Transport *transport.Options
	// Subject carrying masterchain head announcements.
	Subject string
	LogTag  string
}

// Feed turns head announcements on a NATS subject into a chain-head
// source. Stale and undecodable announcements are dropped.
type Feed struct {
	log  *logrus.Entry
	conn *transport.Connection
	sub  *nats.Subscription
	cell *watch.Cell[*blocks.ChainHead]
}

func Start(opts *Options) (*Feed, error) {
	if len(opts.Subject) == 0 {
		return nil, fmt.Errorf("head feed needs a subject")
	}

	f := &Feed{
		log: logrus.
			WithField("component", "natshead").
			WithField("subject", opts.Subject).
			WithField("tag", opts.LogTag),
		cell: watch.NewCell[*blocks.ChainHead](),
	}

	var err error
	if f.conn, err = transport.Connect(opts.Transport); err != nil {
		return nil, fmt.Errorf("can't connect head feed: %w", err)
	}

	if f.sub, err = f.conn.Conn().Subscribe(opts.Subject, f.handleMsg); err != nil {
		_ = f.conn.Drain()
		return nil, fmt.Errorf("can't subscribe to '%s': %w", opts.Subject, err)
	}

	f.log.Infof("started")
	return f, nil
}

// Source returns an independent consumer view of the feed.
func (f *Feed) Source() headsource.Source {
	return headsource.FromCell(f.cell)
}

func (f *Feed) Stop() {
	if f.sub != nil {
		_ = f.sub.Unsubscribe()
	}
	if f.conn != nil {
		_ = f.conn.Drain()
	}
}

// handleMsg runs on the subscription goroutine, one message at a time.
func (f *Feed) handleMsg(msg *nats.Msg) {
	a, err := announcements.Decode(msg.Data)
	if err != nil {
		f.log.Warnf("dropping undecodable announcement: %v", err)
		return
	}

	head, err := a.ToChainHead()
	if err != nil {
		f.log.Warnf("dropping invalid announcement: %v", err)
		return
	}
	if head.Last.Workchain != blocks.MasterchainID {
		return
	}

	if cur, ok := f.cell.Get(); ok && head.Last.Seqno <= cur.Last.Seqno {
		return
	}
	f.cell.Set(head)
}
