// cmd/fritzlog/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/signalnine/fritzlog/internal/config"
	"github.com/signalnine/fritzlog/internal/fritz"
	"github.com/signalnine/fritzlog/internal/journal"
	"github.com/signalnine/fritzlog/internal/logfile"
	"github.com/signalnine/fritzlog/internal/pipeline"
)

var (
	settingsFile string
	debug        bool
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

var rootCmd = &cobra.Command{
	Use:           "fritzlog",
	Short:         "Collects FRITZ!Box event logs into a JSON Lines file",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one collect cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		p, cfg, err := buildPipeline(log)
		if err != nil {
			return err
		}

		jdb, err := openJournal(cfg, log)
		if err != nil {
			return err
		}
		defer closeJournal(jdb)

		return runOnce(cmd.Context(), p, jdb, log)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Collect on an interval or cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		p, cfg, err := buildPipeline(log)
		if err != nil {
			return err
		}

		if cfg.Schedule != "" {
			if _, err := cronParser.Parse(cfg.Schedule); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
			}
		}

		jdb, err := openJournal(cfg, log)
		if err != nil {
			return err
		}
		defer closeJournal(jdb)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return watch(ctx, p, cfg, jdb, log)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Log in, fetch, and print what a run would append (writes nothing)",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		p, _, err := buildPipeline(log)
		if err != nil {
			return err
		}

		records, stats, err := p.Preview(cmd.Context())
		if err != nil {
			return err
		}

		for _, rec := range records {
			fmt.Printf("%s %s  [%s]  %s\n", rec.Date, rec.Time, rec.Level, rec.Message)
		}
		log.Info().
			Int("fetched", stats.Fetched).
			Int("parse_failures", stats.ParseFailures).
			Int("excluded", stats.Excluded).
			Int("would_append", len(records)).
			Msg("check complete")
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent collect cycles from the run journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(settingsFile)
		if err != nil {
			return err
		}
		if cfg.JournalPath == "" {
			return fmt.Errorf("journal_path is not configured in %s", settingsFile)
		}

		jdb, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer jdb.Close()

		runs, err := jdb.Recent(historyLimit)
		if err != nil {
			return err
		}

		for _, r := range runs {
			line := fmt.Sprintf("%s  %-5s  fetched=%d parse_failures=%d excluded=%d appended=%d",
				r.StartedAt.Format(time.RFC3339), r.Status,
				r.Fetched, r.ParseFailures, r.Excluded, r.Appended)
			if r.Error != "" {
				line += "  error=" + r.Error
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&settingsFile, "settings", "s", "settings.yaml", "path to settings file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func buildPipeline(log zerolog.Logger) (*pipeline.Pipeline, *config.Config, error) {
	cfg, err := config.Load(settingsFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log.Debug().
		Str("url", cfg.URL).
		Str("username", cfg.Username).
		Int("password_length", len(cfg.Password)).
		Str("logpath", cfg.LogPath).
		Msg("settings loaded")

	client := fritz.NewClient(cfg, log)
	store := logfile.NewFile(cfg.LogPath)
	classifier := pipeline.NewClassifier(pipeline.DefaultRules(), cfg.Exclude)

	return pipeline.New(client, store, classifier, log), cfg, nil
}

func openJournal(cfg *config.Config, log zerolog.Logger) (*journal.DB, error) {
	if cfg.JournalPath == "" {
		return nil, nil
	}
	jdb, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	log.Debug().Str("journal", cfg.JournalPath).Msg("run journal enabled")
	return jdb, nil
}

func closeJournal(jdb *journal.DB) {
	if jdb != nil {
		jdb.Close()
	}
}

// runOnce executes one cycle and journals its outcome. The cycle error
// is returned after journaling so the process still exits non-zero.
func runOnce(ctx context.Context, p *pipeline.Pipeline, jdb *journal.DB, log zerolog.Logger) error {
	started := time.Now()
	stats, err := p.Run(ctx)

	if jdb != nil {
		run := &journal.Run{
			StartedAt:     started,
			FinishedAt:    time.Now(),
			Fetched:       stats.Fetched,
			ParseFailures: stats.ParseFailures,
			Excluded:      stats.Excluded,
			Appended:      stats.Appended,
			Status:        "ok",
		}
		if err != nil {
			run.Status = "error"
			run.Error = err.Error()
		}
		if jerr := jdb.Insert(run); jerr != nil {
			log.Warn().Err(jerr).Msg("journal insert failed")
		}
	}

	if err != nil {
		log.Error().Err(err).Msg("cycle failed")
	}
	return err
}

// watch runs cycles until the context is cancelled. Cycles are strictly
// serialized: the next wait starts only after the previous cycle has
// finished, so two runs can never race on the output file. A failed
// cycle is logged and journaled; the next tick retries.
func watch(ctx context.Context, p *pipeline.Pipeline, cfg *config.Config, jdb *journal.DB, log zerolog.Logger) error {
	log.Info().
		Str("url", cfg.URL).
		Dur("interval", cfg.Interval).
		Str("schedule", cfg.Schedule).
		Msg("watch starting")

	// Run immediately on start
	runOnce(ctx, p, jdb, log)

	for {
		wait := cfg.Interval
		if cfg.Schedule != "" {
			wait = nextCronDuration(cfg.Schedule)
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("watch shutting down")
			return nil
		case <-time.After(wait):
			runOnce(ctx, p, jdb, log)
		}
	}
}

// nextCronDuration returns the duration until the schedule's next fire
// time. The expression is validated at startup, so a parse error here
// only means an immediate retry.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	d := time.Until(sched.Next(time.Now()))
	if d < 0 {
		return 0
	}
	return d
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
