package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/lobeboard/internal/config"
	"github.com/soyeahso/lobeboard/internal/dashboard"
	"github.com/soyeahso/lobeboard/internal/domain"
	"github.com/soyeahso/lobeboard/internal/gateway"
	"github.com/soyeahso/lobeboard/internal/layout"
	"github.com/soyeahso/lobeboard/internal/logging"
	"github.com/soyeahso/lobeboard/internal/probe"
	"github.com/soyeahso/lobeboard/internal/store"
)

func newServeCmd() *cobra.Command {
	var channel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if issues := config.Validate(&cfg); len(issues) > 0 {
				for _, issue := range issues {
					log.Warn().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config has %d validation issue(s)", len(issues))
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			log = logging.New(logging.Options{Level: cfg.Logging.Level, Style: cfg.Logging.Style})
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, channel)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "bus channel to follow (default all)")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, channel string) error {
	db, err := store.Open(paths.LayoutDB(), log)
	if err != nil {
		return err
	}
	defer db.Close()

	agg := probe.NewAggregator(probe.Options{
		CheckTimeout:     time.Duration(cfg.Status.CheckTimeoutSeconds) * time.Second,
		HealthyThreshold: cfg.Status.HealthyThreshold,
		Log:              log,
	})
	agg.RegisterProbes(buildProbeSpecs(cfg))

	tracker := probe.NewActivityTracker(buildAgents(cfg), buildActivityPolicy(cfg))

	layoutMgr := layout.NewManager(store.NewBlobStore(db), layout.Options{
		Debounce: time.Duration(cfg.Layout.DebounceMillis) * time.Millisecond,
		Log:      log,
	})
	defer layoutMgr.Close()

	panels := dashboard.NewPanelState()
	ctrl := dashboard.NewController(dashboard.Options{
		Panels:     panels,
		Layout:     layoutMgr,
		Probes:     agg,
		Activity:   tracker,
		Bus:        newBusClient(cfg),
		Memory:     newMemoryClient(cfg),
		Defaults:   defaultLayout(cfg.Layout),
		LocalAgent: cfg.Agents.Local,
		Channel:    channel,
		Log:        log,
	})
	ctrl.Init()
	defer ctrl.Teardown()

	srv := gateway.NewServer(cfg.Gateway, ctrl, agg, tracker, log)
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	pollInterval := time.Duration(cfg.Status.PollSeconds) * time.Second
	agg.Start(ctx, pollInterval)
	defer agg.Stop()

	// Refresh the activity model on the same cadence as the probes and
	// push each fresh summary to connected views.
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	srv.BroadcastSummary(ctrl.Refresh(ctx))
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return nil
		case <-ticker.C:
			srv.BroadcastSummary(ctrl.Refresh(ctx))
		}
	}
}

// defaultLayout maps the configured default arrangement into panel specs.
func defaultLayout(cfg config.LayoutConfig) dashboard.DefaultLayout {
	anchor := domain.PanelSpec{ID: cfg.Anchor.ID, Title: cfg.Anchor.Title, Kind: cfg.Anchor.Kind}
	satellites := make([]domain.PanelSpec, 0, len(cfg.Satellites))
	for _, entry := range cfg.Satellites {
		direction := entry.Direction
		if direction == "" {
			direction = "right"
		}
		satellites = append(satellites, domain.PanelSpec{
			ID:       entry.ID,
			Title:    entry.Title,
			Kind:     entry.Kind,
			Position: &domain.PanelPosition{RelativeTo: anchor.ID, Direction: direction},
		})
	}
	return dashboard.DefaultLayout{Anchor: anchor, Satellites: satellites}
}
