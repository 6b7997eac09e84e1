package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Archdale/RandomWriter/pkg/markov"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/natefinch/atomic"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const (
	usage   = "Usage: randomwriter [flags] <sample size> <length> [file ...]"
	minArgs = 2
)

func main() {
	// A missing .env file is normal.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "randomwriter: failed to load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one learn-and-generate cycle and returns the process exit code.
// The phrase is the only thing ever written to stdout.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("randomwriter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a JSON or YAML config file, created with defaults if missing")
	seed := fs.Uint64("seed", 0, "seed for the random source (0 picks one at random)")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn or error")
	scratchDB := fs.Bool("scratch-db", false, "keep the pattern table in a temporary SQLite database")
	dumpPath := fs.String("dump", "", "write the learned pattern table as JSON to this path")
	outPath := fs.String("o", "", "write the phrase to this file instead of standard output")
	showVersion := fs.Bool("version", false, "print version information and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if *showVersion {
		fmt.Fprintf(stdout, "randomwriter %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		return 0
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "randomwriter: %v\n", err)
		return 1
	}
	if err = config.ApplyEnv(os.LookupEnv); err != nil {
		fmt.Fprintf(stderr, "randomwriter: %v\n", err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			config.Seed = *seed
		case "log-level":
			config.LogLevel = *logLevel
		case "scratch-db":
			config.ScratchDB = *scratchDB
		case "dump":
			config.DumpPath = *dumpPath
		}
	})

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: config.Level()})).
		With(slog.String("run_id", uuid.NewString()))

	fail := func(err error) int {
		fmt.Fprintf(stderr, "randomwriter: %v\n", err)
		if errors.Is(err, markov.ErrInvalidArgument) || errors.Is(err, ErrFileUnreadable) {
			fs.Usage()
		}
		return 1
	}

	sampleSize, length, paths, err := parseArgs(fs.Args())
	if err != nil {
		return fail(err)
	}

	streams, totalSize, closeInputs, err := openInputs(paths, stdin)
	if err != nil {
		return fail(err)
	}
	defer closeInputs()

	if len(paths) == 0 {
		if f, ok := stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			logger.Warn("Reading training text from the terminal, end input with Ctrl-D")
		}
	} else {
		logger.Debug("Training files opened",
			slog.Int("files", len(paths)),
			slog.String("total_size", humanize.Bytes(uint64(totalSize))),
		)
	}

	var table markov.Table
	if config.ScratchDB {
		sqlTable, closeTable, err := openScratchTable(ctx, config.ScratchDir, logger)
		if err != nil {
			return fail(err)
		}
		defer closeTable()
		table = sqlTable
	} else {
		table = markov.NewPatternTable()
	}

	learner, err := markov.NewLearner(sampleSize)
	if err != nil {
		return fail(err)
	}
	learner.SetLogger(logger)

	if err = learner.LearnInto(ctx, table, streams...); err != nil {
		return fail(fmt.Errorf("learning failed: %w", err))
	}

	if logger.Enabled(ctx, slog.LevelInfo) {
		stats, err := markov.ComputeStats(ctx, table)
		if err != nil {
			return fail(fmt.Errorf("could not compute table stats: %w", err))
		}
		logger.InfoContext(ctx, "Pattern table ready",
			slog.String("contexts", humanize.Comma(int64(stats.Contexts))),
			slog.String("observations", humanize.Comma(int64(stats.Observations))),
			slog.Int("alphabet", stats.Alphabet),
			slog.Int("max_followers", stats.MaxFollowers),
			slog.String("busiest_context", strconv.Quote(stats.BusiestContext)),
		)
	}

	if config.DumpPath != "" {
		var buf bytes.Buffer
		if err = markov.Export(ctx, table, sampleSize, &buf); err != nil {
			return fail(fmt.Errorf("could not export pattern table: %w", err))
		}
		if err = atomic.WriteFile(config.DumpPath, &buf); err != nil {
			return fail(fmt.Errorf("could not write pattern table dump: %w", err))
		}
		logger.Info("Pattern table dumped", "path", config.DumpPath)
	}

	var opts []markov.Option
	if config.Seed != 0 {
		opts = append(opts, markov.WithSeed(config.Seed))
	}
	generator := markov.NewGenerator(opts...)
	generator.SetLogger(logger)

	phrase, err := generator.Generate(ctx, table, length)
	if err != nil {
		return fail(fmt.Errorf("generation failed: %w", err))
	}

	if *outPath != "" {
		if err = atomic.WriteFile(*outPath, strings.NewReader(phrase)); err != nil {
			return fail(fmt.Errorf("could not write phrase: %w", err))
		}
		return 0
	}
	if _, err = io.WriteString(stdout, phrase); err != nil {
		return fail(fmt.Errorf("could not write phrase: %w", err))
	}
	return 0
}

// parseArgs validates the positional arguments: sample size, length and the
// optional list of training files.
func parseArgs(args []string) (sampleSize, length int, paths []string, err error) {
	if len(args) < minArgs {
		return 0, 0, nil, fmt.Errorf("%w: not enough arguments", markov.ErrInvalidArgument)
	}
	if sampleSize, err = parsePositive(args[0]); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: sample size %q is not a valid positive integer", markov.ErrInvalidArgument, args[0])
	}
	if length, err = parsePositive(args[1]); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: length %q is not a valid positive integer", markov.ErrInvalidArgument, args[1])
	}
	return sampleSize, length, args[minArgs:], nil
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}
