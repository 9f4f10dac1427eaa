package main

import (
	"flag"
	"fmt"
	"os"
)

// commonFlags holds the flag set shared by every subcommand, grounded on
// the teacher's per-binary flag.String/flag.Int/flag.Duration style —
// one flag.FlagSet per subcommand, no shared cobra command tree.
type commonFlags struct {
	comm       string
	pid        int
	binaryPath string
	logFile    string
	server     bool
	serverPort int
	sslFilter  string
	httpFilter string
	sseMerge   bool
}

func parseCommonFlags(subcommand string, args []string) (*commonFlags, error) {
	fs := flag.NewFlagSet(subcommand, flag.ContinueOnError)
	f := &commonFlags{}

	fs.StringVar(&f.comm, "comm", "", "filter events to this process short name")
	fs.IntVar(&f.pid, "pid", 0, "filter events to this pid (0 = no filter)")
	fs.StringVar(&f.binaryPath, "binary-path", "", "path to an externally built probe binary (overrides the embedded one)")
	fs.StringVar(&f.logFile, "log-file", "", "path to the NDJSON log file (empty disables file logging)")
	fs.BoolVar(&f.server, "server", false, "start the embedded live server")
	fs.IntVar(&f.serverPort, "server-port", 7395, "embedded live server port (bound to 127.0.0.1)")
	fs.StringVar(&f.sslFilter, "ssl-filter", "", "filter expression applied to ssl-sourced events")
	fs.StringVar(&f.httpFilter, "http-filter", "", "filter expression applied to reassembled http events")
	fs.BoolVar(&f.sseMerge, "sse-merge", false, "accepted but has no effect: SSE data blocks are never merged into one body")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: agentsight <ssl|process|trace|record|system> [flags]")
}
