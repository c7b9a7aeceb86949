package transport

import (
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Connection wraps a NATS connection with logging handlers and the
// reconnect policy the announcement feeds expect.
type Connection struct {
	log  *logrus.Entry
	opts *Options
	conn *nats.Conn
}

func Connect(opts *Options) (*Connection, error) {
	c := &Connection{
		log: logrus.
			WithField("component", "nats").
			WithField("tag", opts.WithDefaults().LogTag),
		opts: opts,
	}

	options := []nats.Option{
		nats.Name(opts.Name),
		nats.ReconnectWait(time.Second / 5),
		nats.PingInterval(time.Duration(opts.PingIntervalMs) * time.Millisecond),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.MaxPingsOutstanding(opts.MaxPingsOutstanding),
		nats.Timeout(time.Duration(opts.TimeoutMs) * time.Millisecond),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			c.log.Errorf("async error: %v", err)
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				c.log.Warnf("disconnected due to: %v, will try reconnecting", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.log.Infof("reconnected [%v]", nc.ConnectedUrl())
		}),
	}
	if len(opts.Creds) > 0 {
		options = append(options, nats.UserCredentials(opts.Creds))
	}

	var err error
	c.conn, err = nats.Connect(strings.Join(opts.Endpoints, ", "), options...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) Conn() *nats.Conn {
	return c.conn
}

func (c *Connection) Drain() error {
	c.log.Info("draining NATS connection...")
	if err := c.conn.Drain(); err != nil {
		c.log.Errorf("error when draining NATS connection: %v", err)
		return err
	}
	return nil
}
