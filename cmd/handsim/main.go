// Runs scripted hand scenarios headless and prints what each hand did.
package main

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"time"

	"autohand/internal/config"
	"autohand/internal/logging"
	"autohand/internal/sim"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultTicks = 900

func main() {
	configPath := flag.String("config", "", "simulation config file (YAML)")
	ticks := flag.Int("ticks", 0, "ticks to run, overriding each scenario")
	level := flag.String("log-level", "", "debug, info, warn or error")
	verbose := flag.Bool("events", false, "print every grab event")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] scenario.yaml...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*configPath, *level, *ticks, *verbose, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "handsim: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, levelFlag string, ticks int, verbose bool, paths []string) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return err
		}
	}
	if levelFlag != "" {
		cfg.Log.Level = levelFlag
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.New(level)
	defer logger.Sync()

	if err := cfg.Sentry.Init(); err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := make([]result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			r, err := runScenario(ctx, cfg, logger, path, ticks)
			results[i] = r
			return err
		})
	}
	err = g.Wait()

	for _, r := range results {
		if r.summary.Name == "" {
			continue
		}
		fmt.Println(r.summary)
		for _, hand := range slices.Sorted(maps.Keys(r.summary.Held)) {
			if held := r.summary.Held[hand]; held != "" {
				fmt.Printf("  %s holds %s\n", hand, held)
			}
		}
		if verbose {
			for _, e := range r.events {
				fmt.Printf("  %s\n", e)
			}
		}
	}
	return err
}

type result struct {
	summary sim.Summary
	events  []sim.Event
}

// runScenario gives each scenario its own world and Sentry hub so a panic
// in one run is reported with its file name and does not stop the others.
func runScenario(ctx context.Context, cfg *config.Config, logger *zap.Logger, path string, ticks int) (r result, err error) {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("scenario", path)
	})
	defer func() {
		if p := recover(); p != nil {
			hub.Recover(p)
			err = fmt.Errorf("%s: panic: %v", path, p)
		}
	}()

	s, err := sim.LoadFile(path)
	if err != nil {
		return r, err
	}
	log := logger.With(zap.String("scenario", s.Name))
	w, err := s.Build(cfg, log)
	if err != nil {
		return r, fmt.Errorf("%s: %w", path, err)
	}

	n := ticks
	if n <= 0 {
		n = s.Ticks
	}
	if n <= 0 {
		n = defaultTicks
	}
	start := time.Now()
	for i := 0; i < n; i++ {
		if i%90 == 0 && ctx.Err() != nil {
			return r, ctx.Err()
		}
		w.Step()
		w.Frame(w.FixedDelta())
	}
	log.Info("scenario finished",
		zap.Int("ticks", n),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("events", len(w.Events().All())))
	return result{summary: w.Summarize(s.Name), events: w.Events().All()}, nil
}
