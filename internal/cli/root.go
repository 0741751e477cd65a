// Package cli implements the recall command line interface. The CLI is
// a host around the engine: it owns the sqlite repository, feeds page
// context from flags and files instead of a live browser tab, and
// persists engine state between invocations.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/config"
	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/engine"
	"github.com/runger/recall/internal/feedback"
	"github.com/runger/recall/internal/learning"
	"github.com/runger/recall/internal/rank"
	"github.com/runger/recall/internal/relevance"
	"github.com/runger/recall/internal/session"
	"github.com/runger/recall/internal/store"
	"github.com/runger/recall/internal/timing"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "resurface saved content when it becomes relevant again",
	Long: `recall scores your saved pages against what you are reading now and
decides when each match is worth bringing back:
  recall analyze --url ... → score the corpus against a page
  recall stats             → engagement analytics and trend`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.recall/config.yaml)")
}

// runtime bundles everything a command needs: validated config, the
// sqlite store, and an engine with its persisted state restored.
type runtime struct {
	cfg    config.Config
	store  *store.Store
	engine *engine.Engine
}

func (r *runtime) close() {
	r.store.Close()
}

// saveState exports the engine state back into the store. Called after
// any command that mutates engine state.
func (r *runtime) saveState(ctx context.Context) error {
	doc, err := r.engine.ExportJSON()
	if err != nil {
		return fmt.Errorf("failed to export state: %w", err)
	}
	return r.store.SaveState(ctx, doc)
}

// openRuntime loads config, opens the store, builds the engine, and
// restores persisted state. source may be nil for commands that never
// analyze; a stub source is installed so engine construction succeeds.
func openRuntime(ctx context.Context, source engine.PageContentSource) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Log.Level)

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	if source == nil {
		source = noSource{}
	}
	eng, err := engine.New(engine.Deps{
		Source:     source,
		Repository: st,
		PromptFn: func(suggestionID, itemID string) {
			fmt.Printf("suggestion %s dismissed without a reason (item %s)\n", suggestionID, itemID)
		},
	}, engineOptions(cfg, logger))
	if err != nil {
		st.Close()
		return nil, err
	}

	doc, err := st.LoadState(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	if doc != nil {
		if err := eng.ImportJSON(doc); err != nil {
			logger.Warn("discarding unreadable engine state", "error", err)
		}
	}

	return &runtime{cfg: cfg, store: st, engine: eng}, nil
}

// engineOptions maps the file configuration onto component options.
func engineOptions(cfg config.Config, logger *slog.Logger) engine.Options {
	return engine.Options{
		Scorer: relevance.Config{
			Weights: relevance.Weights{
				URL:      cfg.Scoring.WeightURL,
				Category: cfg.Scoring.WeightCategory,
				Keywords: cfg.Scoring.WeightKeywords,
				Concepts: cfg.Scoring.WeightConcepts,
				Content:  cfg.Scoring.WeightContent,
			},
			Logger: logger,
		},
		Ranker: rank.Config{
			MinScore:       cfg.Ranking.MinScore,
			MaxResults:     cfg.Ranking.MaxResults,
			RecencyWindow:  time.Duration(cfg.Ranking.RecencyWindowDays) * 24 * time.Hour,
			HighImportance: cfg.Ranking.HighImportance,
			FrequentAccess: cfg.Ranking.FrequentAccess,
			Logger:         logger,
		},
		Timing: timing.Config{
			MinInterval:     cfg.Timing.MinInterval(),
			ImmediateDelay:  time.Duration(cfg.Timing.ImmediateDelaySec) * time.Second,
			DelayedFallback: time.Duration(cfg.Timing.DelayedFallbackHr) * time.Hour,
			BackgroundDelay: time.Duration(cfg.Timing.BackgroundDelayHr) * time.Hour,
			Logger:          logger,
		},
		Learner: learning.Config{
			MaxBoost:   cfg.Learning.MaxBoost,
			MinSamples: cfg.Learning.MinSamples,
			Logger:     logger,
		},
		Feedback: feedback.Config{
			Capacity:      cfg.Feedback.HistoryCap,
			TrendWindow:   time.Duration(cfg.Feedback.TrendDays) * 24 * time.Hour,
			TrendDeadZone: cfg.Feedback.TrendDeadZone,
			Logger:        logger,
		},
		Session: session.Config{
			HistoryCap:     cfg.Session.HistoryCap,
			MaxSuggestions: cfg.Session.MaxSuggestions,
			Timeout:        cfg.Session.SessionTimeout(),
			Logger:         logger,
		},
		Delivery: engine.DeliveryOptions{
			Style:         engine.DisplayStyle(cfg.Delivery.Style),
			MaxConcurrent: cfg.Delivery.MaxConcurrent,
		},
		Logger: logger,
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// noSource is installed for commands that never run an analysis.
type noSource struct{}

func (noSource) ExtractContext(context.Context, engine.ExtractOptions) (content.BrowsingContext, error) {
	return content.BrowsingContext{}, &content.ExtractionError{Reason: "no page context available"}
}
