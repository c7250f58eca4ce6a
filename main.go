// ════════════════════════════════════════════════════════════════════════════════════════════════
// Token Ring Benchmark - Main Entry Point
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: CLI & process-family dispatch
//
// Description:
//   Passes a single token around a ring of participants and reports how long the ring took.
//   The same binary also serves as the participant program of the process executor: when
//   started with a participant spec in its environment it runs that participant and exits
//   before any flag is parsed.
//
// Output:
//   One "Time elapsed: <seconds> seconds" line per run, optionally followed by a throughput
//   report and a JSON record; afterwards the stored history and a per-configuration summary
//   when requested.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"tokenring/bench"
	"tokenring/constants"
	"tokenring/control"
	"tokenring/debug"
	"tokenring/proc"
	"tokenring/results"
	"tokenring/slot"
	"tokenring/utils"
)

// cliOptions is everything the command line controls.
type cliOptions struct {
	cfg     bench.Config
	repeat  int
	jsonOut bool
	dbPath  string
	summary bool
	report  bool
	history int
	procs   int
}

func main() {
	if proc.IsChild() {
		os.Exit(proc.Main())
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// FLAGS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	fs := flag.NewFlagSet("tokenring", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		o         cliOptions
		transport string
		executor  string
	)
	def := bench.DefaultConfig()
	fs.IntVar(&o.cfg.RingSize, "p", def.RingSize, "number of participants in the ring")
	fs.IntVar(&o.cfg.Rounds, "r", def.Rounds, "rounds each participant forwards the token")
	fs.BoolVar(&o.cfg.Debug, "d", false, "trace every hop to stderr")
	fs.StringVar(&transport, "t", def.Transport.String(), "slot transport: sem, spin or pipe")
	fs.StringVar(&executor, "x", def.Executor.String(), "executor: goroutine, thread or process")
	fs.BoolVar(&o.cfg.Pinned, "pin", false, "pin participant i to CPU i mod NumCPU")
	fs.IntVar(&o.repeat, "n", constants.DefaultRepeat, "number of runs")
	fs.BoolVar(&o.jsonOut, "json", false, "also print each run as a JSON record")
	fs.StringVar(&o.dbPath, "db", constants.DefaultDBPath, "sqlite file to append run records to")
	fs.BoolVar(&o.summary, "summary", false, "print per-configuration statistics after the runs")
	fs.BoolVar(&o.report, "report", false, "print a throughput report after each run")
	fs.IntVar(&o.history, "history", 0, "print the last n stored runs as JSON after the runs")
	fs.IntVar(&o.procs, "procs", 0, "GOMAXPROCS override (0 keeps the runtime default)")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	var err error
	if o.cfg.Transport, err = slot.ParseKind(transport); err != nil {
		return o, err
	}
	if o.cfg.Executor, err = bench.ParseExecutor(executor); err != nil {
		return o, err
	}
	if o.repeat < 1 {
		return o, fmt.Errorf("-n must be at least 1, got %d", o.repeat)
	}
	if o.history < 0 {
		return o, fmt.Errorf("-history must not be negative, got %d", o.history)
	}
	return o, o.cfg.Validate()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// RUN LOOP
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// run executes the CLI and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		debug.DropError("CONFIG", err)
		return 2
	}

	if o.procs > 0 {
		runtime.GOMAXPROCS(o.procs)
	}

	var store *results.Store
	if o.dbPath != "" || o.summary || o.history > 0 {
		path := o.dbPath
		if path == "" {
			path = ":memory:"
		}
		if store, err = results.Open(path); err != nil {
			debug.DropError("RESULTS", err)
			return 1
		}
		defer store.Close()
	}

	sw := control.NewSwitch()
	stopSignals := setupSignalHandling(sw)
	defer stopSignals()

	for i := 0; i < o.repeat && sw.Alive(); i++ {
		res, err := bench.Run(o.cfg, bench.WithSwitch(sw))
		if err != nil {
			debug.DropError("RUN "+utils.Itoa(i+1), err)
			return 1
		}
		if !res.FinalOK && sw.Alive() {
			debug.DropMessage("RUN "+utils.Itoa(i+1), "no token left in slot 0")
		}

		fmt.Fprintf(stdout, "Time elapsed: %f seconds\n", res.Seconds())

		rec := results.NewRecord(res)
		if o.report {
			if err := results.WriteRun(stdout, rec); err != nil {
				debug.DropError("REPORT", err)
				return 1
			}
		}
		if o.jsonOut {
			b, err := rec.JSON()
			if err != nil {
				debug.DropError("JSON", err)
				return 1
			}
			fmt.Fprintf(stdout, "%s\n", b)
		}
		if store != nil {
			if _, err := store.Save(rec); err != nil {
				debug.DropError("RESULTS", err)
				return 1
			}
		}
	}

	if o.history > 0 {
		recent, err := store.Recent(o.history)
		if err != nil {
			debug.DropError("HISTORY", err)
			return 1
		}
		for _, rec := range recent {
			b, err := rec.JSON()
			if err != nil {
				debug.DropError("HISTORY", err)
				return 1
			}
			fmt.Fprintf(stdout, "%s\n", b)
		}
	}

	if o.summary {
		sums, err := store.Summaries()
		if err == nil {
			err = results.WriteSummary(stdout, sums)
		}
		if err != nil {
			debug.DropError("SUMMARY", err)
			return 1
		}
	}
	return 0
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SYSTEM LIFECYCLE MANAGEMENT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// setupSignalHandling trips sw on SIGINT or SIGTERM. Participants stop at
// their next hop; child processes are killed by the run's shutdown hook.
// The returned func detaches the handler.
func setupSignalHandling(sw *control.Switch) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigChan:
			debug.DropMessage("SIGNAL", "Received interrupt, shutting down...")
			sw.Shutdown()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}
