package monitor

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsServer struct {
	opts       *Options
	stdoutStop chan struct{}
}

func NewMetricsServer(opts *Options) *MetricsServer {
	return &MetricsServer{
		opts:       opts.WithDefaults(),
		stdoutStop: make(chan struct{}),
	}
}

// Serve exposes /metrics for Prometheus to scrape. With a nonzero
// StdoutIntervalSeconds it also periodically dumps the registered
// metrics to stdout until Stop is called.
func (m *MetricsServer) Serve() {
	if m.opts.StdoutIntervalSeconds > 0 {
		go m.dumpLoop()
	}

	http.Handle("/metrics", promhttp.Handler())
	_ = http.ListenAndServe(m.opts.ListenAddress, nil)
}

func (m *MetricsServer) dumpLoop() {
	ticker := time.NewTicker(time.Duration(m.opts.StdoutIntervalSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.stdoutStop:
			return
		case <-ticker.C:
			m.spewStdout()
		}
	}
}

func (m *MetricsServer) Stop() {
	close(m.stdoutStop)
}

func (m *MetricsServer) spewStdout() {
	table := tablewriter.NewWriter(os.Stdout)

	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		panic(err)
	}

	for _, mf := range metricFamilies {
		if strings.HasPrefix(mf.GetName(), "go_") {
			// It's a default metric about go stuff, skip it.
			continue
		}
		for _, metric := range mf.GetMetric() {
			table.Append([]string{mf.GetName(), metric.String()})
		}
	}

	table.Render()
}
