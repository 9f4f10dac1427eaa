// Command agentsight drives the AgentSight pipeline: spawn one or more
// probe Runners, thread their events through the analyzer chain, and
// persist/serve the result, dispatched by subcommand the way the
// teacher's cmd/* binaries each own a flag.FlagSet rather than sharing a
// cobra command tree.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/analyzer/console"
	"github.com/agentsight/agentsight/internal/broadcast"
	"github.com/agentsight/agentsight/internal/config"
	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/extractor"
	"github.com/agentsight/agentsight/internal/logging"
	"github.com/agentsight/agentsight/internal/logstore"
	"github.com/agentsight/agentsight/internal/otelinit"
	"github.com/agentsight/agentsight/internal/server"
)

const (
	exitSuccess = 0
	exitRuntime = 1
	exitUsage   = 2
	exitSignal  = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitUsage
	}

	subcommand := args[0]
	switch subcommand {
	case "ssl", "process", "trace", "record", "system":
	default:
		usage()
		return exitUsage
	}

	f, err := parseCommonFlags(subcommand, args[1:])
	if err != nil {
		return exitUsage
	}
	if subcommand == "record" {
		// The opinionated composite always logs and serves.
		f.server = true
		if f.logFile == "" {
			f.logFile = "agentsight.log"
		}
	}

	logger := logging.New(logging.LevelFromEnv(os.Getenv("AGENTSIGHT_LOG_LEVEL")))
	logging.SetGlobal(logger)

	clock, err := event.NewClock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentsight: %v\n", err)
		return exitRuntime
	}

	ext, err := extractor.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentsight: %v\n", err)
		return exitRuntime
	}

	children, err := buildChildRunners(subcommand, f, ext, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentsight: %v\n", err)
		ext.Release()
		return exitUsage
	}

	chain, filters, err := buildChain(f, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentsight: %v\n", err)
		ext.Release()
		return exitRuntime
	}

	res := &pipelineResources{extractor: ext}
	defer res.Close()

	if f.logFile != "" {
		store, err := logstore.Open(logstore.Options{BasePath: f.logFile}, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "agentsight: %v\n", err)
			return exitRuntime
		}
		res.logStore = store
	}
	res.ring = broadcast.NewRing(config.BroadcastRingCapacity, logger)

	tel, err := otelinit.New(context.Background(), otelinit.Config{ServiceName: "agentsight"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentsight: telemetry init: %v\n", err)
		return exitRuntime
	}
	res.telemetry = tel
	if err := tel.RegisterSubscriberGauge(func() int64 { return int64(res.ring.SubscriberCount()) }); err != nil {
		logger.Warn("subscriber_gauge_registration_failed", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.server {
		srv := server.New(server.Options{
			Addr:      fmt.Sprintf("127.0.0.1:%d", f.serverPort),
			Ring:      res.ring,
			LogStore:  res.logStore,
			Filters:   filters,
			Telemetry: tel,
			Logger:    logger,
		})
		res.srv = srv
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("server_failed", "error", err.Error())
			}
		}()
	}

	errs := make(chan *agentsighterr.Error, 64)
	go drainErrors(ctx, errs, logger)

	normalize := subcommand != "system"
	src := buildSource(ctx, children, normalize, clock, logger, errs)
	out := chain.Run(ctx, src, errs)

	consoleAnalyzer := console.New(console.Options{Pretty: false, Color: true})
	sink := consoleAnalyzer.Process(ctx, out, errs)

	for ev := range sink {
		if res.logStore != nil {
			res.logStore.WriteEvent(ev)
		}
		res.ring.Publish(ev)
	}

	select {
	case <-ctx.Done():
		return exitSignal
	default:
		return exitSuccess
	}
}

func drainErrors(ctx context.Context, errs <-chan *agentsighterr.Error, logger *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-errs:
			if !ok {
				return
			}
			logger.Warn("pipeline_error", "kind", string(e.Kind), "correlation_id", e.CorrelationID, "message", e.Message)
		}
	}
}
