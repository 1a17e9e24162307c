package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/lobeboard/internal/config"
	"github.com/soyeahso/lobeboard/internal/probe"
	"github.com/soyeahso/lobeboard/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check all configured probes once and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("lobeboard %s (commit %s)\n\n", version.Version, version.Commit)
			fmt.Printf("Config:  %s\n", paths.Config)

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:  error loading: %v\n", err)
				return nil
			}

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			agg := probe.NewAggregator(probe.Options{
				CheckTimeout:     time.Duration(cfg.Status.CheckTimeoutSeconds) * time.Second,
				HealthyThreshold: cfg.Status.HealthyThreshold,
				Log:              log,
			})
			agg.RegisterProbes(buildProbeSpecs(cfg))

			fmt.Println()
			for _, p := range agg.CheckAll(cmd.Context()) {
				line := fmt.Sprintf("%-16s %-13s %s", p.ID, p.Status, p.Endpoint)
				if p.LastError != "" {
					line += "  (" + p.LastError + ")"
				}
				fmt.Println(line)
			}

			summary := agg.Summary()
			healthy := "healthy"
			if !summary.Healthy {
				healthy = "unhealthy"
			}
			fmt.Printf("\n%d/%d connected, %s\n", summary.ConnectedCount, summary.TotalCount, healthy)
			return nil
		},
	}

	return cmd
}

// cmdContext returns a bounded context for one-shot commands.
func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
