package main

import (
	"context"
	"fmt"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/analyzer"
	"github.com/agentsight/agentsight/internal/analyzer/filter"
	"github.com/agentsight/agentsight/internal/analyzer/sanitize"
	"github.com/agentsight/agentsight/internal/broadcast"
	"github.com/agentsight/agentsight/internal/config"
	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/extractor"
	"github.com/agentsight/agentsight/internal/logging"
	"github.com/agentsight/agentsight/internal/logstore"
	"github.com/agentsight/agentsight/internal/otelinit"
	"github.com/agentsight/agentsight/internal/reassemble"
	"github.com/agentsight/agentsight/internal/runner"
	"github.com/agentsight/agentsight/internal/runner/agent"
	"github.com/agentsight/agentsight/internal/runner/sysmetrics"
	"github.com/agentsight/agentsight/internal/server"
)

// resolveBinary returns the probe binary path to exec: an explicit
// --binary-path override, or the named probe extracted from the embedded
// set. Probe binaries themselves are out of scope for this repo (they
// are black-box eBPF programs); the embedded set ships empty, so a run
// without --binary-path fails fast with a usage error rather than a
// confusing spawn failure deep in the pipeline.
func resolveBinary(f *commonFlags, ext *extractor.Extractor, probeName string) (string, error) {
	if f.binaryPath != "" {
		return f.binaryPath, nil
	}
	path, err := ext.PathOf(probeName)
	if err != nil {
		return "", fmt.Errorf("no %s probe binary available; pass --binary-path: %w", probeName, err)
	}
	return path, nil
}

func probeArgs(f *commonFlags) []string {
	var args []string
	if f.comm != "" {
		args = append(args, "--comm", f.comm)
	}
	if f.pid != 0 {
		args = append(args, "--pid", fmt.Sprint(f.pid))
	}
	return args
}

// buildChildRunners constructs the Runner set a subcommand drives: a
// single Runner for "ssl"/"process"/"system", or the ssl+process(+system
// for "record") set for the composite subcommands.
func buildChildRunners(subcommand string, f *commonFlags, ext *extractor.Extractor, logger *logging.Logger) ([]runner.Runner, error) {
	opts := config.RunnerOptions{}.WithDefaults()

	newSSL := func() (runner.Runner, error) {
		path, err := resolveBinary(f, ext, "ssl_probe")
		if err != nil {
			return nil, err
		}
		return runner.NewSSL(path, probeArgs(f), nil, opts, logger), nil
	}
	newProcess := func() (runner.Runner, error) {
		path, err := resolveBinary(f, ext, "process_probe")
		if err != nil {
			return nil, err
		}
		return runner.NewProcess(path, probeArgs(f), nil, opts, logger), nil
	}
	newSystem := func() runner.Runner {
		var pids []int32
		if f.pid != 0 {
			pids = []int32{int32(f.pid)}
		}
		return sysmetrics.New(sysmetrics.Options{PIDs: pids})
	}

	switch subcommand {
	case "ssl":
		r, err := newSSL()
		if err != nil {
			return nil, err
		}
		return []runner.Runner{r}, nil
	case "process":
		r, err := newProcess()
		if err != nil {
			return nil, err
		}
		return []runner.Runner{r}, nil
	case "system":
		return []runner.Runner{newSystem()}, nil
	case "trace":
		ssl, err := newSSL()
		if err != nil {
			return nil, err
		}
		proc, err := newProcess()
		if err != nil {
			return nil, err
		}
		return []runner.Runner{ssl, proc}, nil
	case "record":
		ssl, err := newSSL()
		if err != nil {
			return nil, err
		}
		proc, err := newProcess()
		if err != nil {
			return nil, err
		}
		return []runner.Runner{ssl, proc, newSystem()}, nil
	default:
		return nil, fmt.Errorf("unknown subcommand %q", subcommand)
	}
}

// buildSource wraps the child Runner set (composing them via the agent
// Runner when there is more than one) and, unless normalize is false (the
// "system" subcommand, which already emits epoch-ms), applies the
// timestamp normalizer.
func buildSource(ctx context.Context, children []runner.Runner, normalize bool, clock *event.Clock, logger *logging.Logger, errs chan<- *agentsighterr.Error) <-chan event.Event {
	var src runner.Runner
	if len(children) == 1 {
		src = children[0]
	} else {
		src = agent.New(children, logger)
	}

	raw := src.Run(ctx)
	if !normalize {
		return raw
	}
	return analyzer.NewTimestampNormalizer(clock).Process(ctx, raw, errs)
}

// buildChain assembles the C7-C10 analyzer stages: reassembly, the
// configured filters, and header/query sanitization. The constructed
// filters are also returned so the embedded server can expose their
// per-filter counters on /metrics.
func buildChain(f *commonFlags, logger *logging.Logger) (*analyzer.Chain, []*filter.Filter, error) {
	var stages []analyzer.Analyzer
	var filters []*filter.Filter

	stages = append(stages, reassemble.New(config.ReassemblyIdleTimeout, config.ReassemblyMaxBufferBytes, logger))

	if f.sslFilter != "" {
		sf, err := filter.New("ssl_filter", f.sslFilter)
		if err != nil {
			return nil, nil, err
		}
		stages = append(stages, sf)
		filters = append(filters, sf)
	}
	if f.httpFilter != "" {
		hf, err := filter.New("http_filter", f.httpFilter)
		if err != nil {
			return nil, nil, err
		}
		stages = append(stages, hf)
		filters = append(filters, hf)
	}

	stages = append(stages, sanitize.New())

	return analyzer.NewChain(stages...), filters, nil
}

// pipelineResources bundles the long-lived resources a run owns, so
// main can defer their cleanup in one place regardless of which
// subcommand was invoked.
type pipelineResources struct {
	extractor *extractor.Extractor
	logStore  *logstore.Store
	ring      *broadcast.Ring
	telemetry *otelinit.Telemetry
	srv       *server.Server
}

func (r *pipelineResources) Close() {
	if r.srv != nil {
		r.srv.Shutdown(context.Background())
	}
	if r.logStore != nil {
		r.logStore.Close()
	}
	if r.telemetry != nil {
		r.telemetry.Shutdown(context.Background())
	}
	r.extractor.Release()
}
