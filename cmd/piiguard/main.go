// Package main is the entry point for piiguard.
//
// Usage:
//
//	piiguard [-config FILE] scan <input.csv> [-o output.csv]
//	piiguard [-config FILE] serve
//	piiguard [-config FILE] watch [-in DIR] [-out DIR]
//	piiguard -version
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"piiguard/config"
	"piiguard/internal/app"
	"piiguard/internal/logging"
	"piiguard/internal/version"
)

// DefaultScanOutput is written by scan when -o is not given.
const DefaultScanOutput = "redacted_output.csv"

const shutdownTimeout = 30 * time.Second

const usage = `usage:
  piiguard [-config FILE] scan <input.csv> [-o output.csv]
  piiguard [-config FILE] serve
  piiguard [-config FILE] watch [-in DIR] [-out DIR]
  piiguard -version
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("piiguard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	versionFlag := fs.Bool("version", false, "Print version information")
	configPath := fs.String("config", "", "Path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *versionFlag {
		fmt.Fprintln(stdout, version.Info())
		return 0
	}

	if fs.NArg() == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "scan":
		return runScan(*configPath, cmdArgs, stdout, stderr)
	case "serve":
		return runServe(*configPath, stderr)
	case "watch":
		return runWatch(*configPath, cmdArgs, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", cmd, usage)
		return 1
	}
}

func runScan(configPath string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	output := fs.String("o", DefaultScanOutput, "Path of the redacted CSV")

	inputs, err := parseInterspersed(fs, args)
	if err != nil {
		return 2
	}
	if len(inputs) != 1 {
		fmt.Fprint(stderr, usage)
		return 1
	}
	input := inputs[0]

	a, code := setup(configPath, stderr, nil)
	if a == nil {
		return code
	}
	defer shutdown(a)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := a.ScanFile(ctx, input, *output)
	if err != nil {
		slog.Error("scan failed", "input", input, "error", err)
		return 1
	}

	fmt.Fprintf(stdout, "scanned %d records, %d with PII\n", b.Summary.Total, b.Summary.PII)
	fmt.Fprintf(stdout, "output - %s\n", *output)
	return 0
}

func runServe(configPath string, stderr io.Writer) int {
	a, code := setup(configPath, stderr, nil)
	if a == nil {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Start(":" + a.Config().Server.Port)
	}()

	select {
	case err := <-errCh:
		shutdown(a)
		if err != nil {
			slog.Error("server failed", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
		slog.Info("shutting down server...")
		shutdown(a)
		return 0
	}
}

func runWatch(configPath string, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	inbox := fs.String("in", "", "Directory to watch for input CSV files")
	outbox := fs.String("out", "", "Directory to write redacted CSV files to")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	a, code := setup(configPath, stderr, func(cfg *config.Config) {
		if *inbox != "" {
			cfg.Watch.Inbox = *inbox
		}
		if *outbox != "" {
			cfg.Watch.Outbox = *outbox
		}
	})
	if a == nil {
		return code
	}
	defer shutdown(a)

	w, err := a.NewWatcher()
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil {
		slog.Error("watcher failed", "error", err)
		return 1
	}
	return 0
}

// setup loads configuration, installs the logger and builds the application.
// On failure it returns a nil App and the exit code to use.
func setup(configPath string, stderr io.Writer, override func(*config.Config)) (*app.App, int) {
	result, err := config.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return nil, 1
	}
	if override != nil {
		override(result.Config)
	}

	if err := logging.Setup(logging.Options{
		Level:  result.Config.Logging.Level,
		Format: result.Config.Logging.Format,
	}); err != nil {
		fmt.Fprintf(stderr, "failed to set up logging: %v\n", err)
		return nil, 1
	}

	slog.Info("starting piiguard",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	a, err := app.New(context.Background(), app.Config{AppConfig: result})
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		return nil, 1
	}
	return a, 0
}

func shutdown(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// parseInterspersed parses fs over args, allowing flags after positional
// arguments, and returns the positional arguments in order.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		args = fs.Args()
		positional = append(positional, args[0])
		args = args[1:]
		if len(args) == 0 {
			return positional, nil
		}
	}
}
