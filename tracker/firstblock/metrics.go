package firstblock

import (
	"github.com/prometheus/client_golang/prometheus"
)

type trackerMetrics struct {
	firstSeqno   prometheus.Gauge
	roundsOK     prometheus.Counter
	roundsFailed prometheus.Counter
	discarded    prometheus.Counter
}

// newTrackerMetrics registers the tracker's metrics on reg; nil reg
// disables metrics entirely (all methods are nil-safe).
func newTrackerMetrics(reg prometheus.Registerer) *trackerMetrics {
	if reg == nil {
		return nil
	}

	m := &trackerMetrics{
		firstSeqno: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tonwatch",
			Subsystem: "first_block",
			Name:      "seqno",
			Help:      "Seqno of the oldest masterchain block the server still stores",
		}),
		roundsOK: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tonwatch",
			Subsystem: "first_block",
			Name:      "rounds_ok_total",
			Help:      "Discovery rounds that published a result",
		}),
		roundsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tonwatch",
			Subsystem: "first_block",
			Name:      "rounds_failed_total",
			Help:      "Discovery rounds aborted by errors",
		}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tonwatch",
			Subsystem: "first_block",
			Name:      "rounds_discarded_total",
			Help:      "Discovery rounds discarded for violating seqno monotonicity",
		}),
	}
	reg.MustRegister(m.firstSeqno, m.roundsOK, m.roundsFailed, m.discarded)
	return m
}

func (m *trackerMetrics) roundOK(seqno uint32) {
	if m == nil {
		return
	}
	m.firstSeqno.Set(float64(seqno))
	m.roundsOK.Inc()
}

func (m *trackerMetrics) roundFailed() {
	if m == nil {
		return
	}
	m.roundsFailed.Inc()
}

func (m *trackerMetrics) roundDiscarded() {
	if m == nil {
		return
	}
	m.discarded.Inc()
}
