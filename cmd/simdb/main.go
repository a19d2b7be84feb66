// Command simdb is the line-oriented driver for the replicated
// snapshot-isolation key/value simulator: it reads a directive transcript
// from a file or stdin and writes the deterministic textual report to
// stdout (spec §6).
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sharedcode/simdb"
	"github.com/sharedcode/simdb/sim"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("simdb", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to a JSON or YAML configuration file (optional)")
	logLevel := fs.String("log-level", "", "Override log level: DEBUG, INFO, WARN, ERROR")
	showVersion := fs.Bool("version", false, "Show version and exit")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *showVersion {
		fmt.Fprintf(stdout, "simdb v%s\n", simdb.Version)
		return 0
	}

	simdb.ConfigureLogging()

	var cfg simdb.Configuration
	if *configPath != "" {
		loaded, err := simdb.LoadConfiguration(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "failed to load config: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	switch level {
	case "DEBUG":
		simdb.SetLogLevel(slog.LevelDebug)
	case "WARN":
		simdb.SetLogLevel(slog.LevelWarn)
	case "ERROR":
		simdb.SetLogLevel(slog.LevelError)
	}

	path := fs.Arg(0)
	if path == "" {
		path = cfg.DefaultScript
	}
	if path == "" {
		fmt.Fprintln(stderr, "usage: simdb [-config path] [-log-level LEVEL] <file>|-")
		return 1
	}

	var in *os.File
	if path == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(stderr, "failed to open %s: %v\n", path, err)
			return 1
		}
		defer f.Close()
		in = f
	}

	if err := sim.Run(in, stdout); err != nil {
		fmt.Fprintf(stderr, "failed to process input: %v\n", err)
		return 1
	}
	return 0
}
