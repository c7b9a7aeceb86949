package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tonwatch/liteserver-tracker/configs"
	"github.com/tonwatch/liteserver-tracker/liteserver/litefake"
	"github.com/tonwatch/liteserver-tracker/monitor"
	"github.com/tonwatch/liteserver-tracker/tracker/firstblock"
	"github.com/tonwatch/liteserver-tracker/tracker/lastblock"
	"github.com/tonwatch/liteserver-tracker/util"
)

type SimulateConfig struct {
	Monitor *monitor.Options

	HeadIntervalMs  uint64
	PruneIntervalMs uint64
	PruneStep       uint32
	CooldownSeconds uint64
	HintWindow      uint32
}

func (c *SimulateConfig) withDefaults() *SimulateConfig {
	if c.HeadIntervalMs == 0 {
		c.HeadIntervalMs = 200
	}
	if c.PruneIntervalMs == 0 {
		c.PruneIntervalMs = 1000
	}
	if c.PruneStep == 0 {
		c.PruneStep = 3
	}
	if c.CooldownSeconds == 0 {
		c.CooldownSeconds = 2
	}
	return c
}

// simulateCmd runs the whole pipeline against an in-memory liteserver
// that keeps producing and pruning blocks. Handy for eyeballing the
// tracker's behavior and for scraping its metrics locally.
func simulateCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the trackers against a simulated pruning liteserver",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := &SimulateConfig{}
			if len(configFile) > 0 {
				configs.ReadTo(configFile, config)
			}
			return runSimulation(cmd.Context(), config.withDefaults())
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "JSON config file")
	return cmd
}

func runSimulation(ctx context.Context, config *SimulateConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := litefake.New(1, 100)

	metrics := monitor.NewMetricsServer(config.Monitor)
	go metrics.Serve()
	defer metrics.Stop()

	producer := util.StartJobLoop(ctx, func(ctx context.Context) error {
		if !util.CtxSleep(ctx, time.Duration(config.HeadIntervalMs)*time.Millisecond) {
			return nil
		}
		server.AdvanceHead(mustHead(ctx, server) + 1)
		return nil
	})
	defer producer.Stop(util.FinishedContext())

	boundary := uint32(1)
	pruner := util.StartJobLoop(ctx, func(ctx context.Context) error {
		if !util.CtxSleep(ctx, time.Duration(config.PruneIntervalMs)*time.Millisecond) {
			return nil
		}
		if next := boundary + config.PruneStep; next < mustHead(ctx, server) {
			boundary = next
			server.SetBoundary(boundary)
		}
		return nil
	})
	defer pruner.Stop(util.FinishedContext())

	heads := lastblock.Start(server, &lastblock.Options{
		Registerer: prometheus.DefaultRegisterer,
		LogTag:     "simulate",
	})
	defer heads.Stop()

	tracker := firstblock.Start(server, heads.Source(), &firstblock.Options{
		HintWindow: config.HintWindow,
		Cooldown:   time.Duration(config.CooldownSeconds) * time.Second,
		Registerer: prometheus.DefaultRegisterer,
		LogTag:     "simulate",
	})
	defer tracker.Stop()

	sub := tracker.Subscribe()
	for {
		hdr, _, err := sub.NextChange(ctx)
		if err != nil {
			logrus.Info("simulation interrupted")
			return nil
		}
		logrus.Infof("oldest stored block: %s", hdr.ID)
	}
}

func mustHead(ctx context.Context, server *litefake.Server) uint32 {
	info, _ := server.GetMasterchainInfo(ctx)
	return info.Last.Seqno
}
