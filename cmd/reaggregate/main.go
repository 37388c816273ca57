package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meur/sharehub/internal/app"
)

var (
	configFile string
	dryRun     bool

	changedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9aa5b1"))
)

var rootCmd = &cobra.Command{
	Use:          "sharehub-reaggregate",
	Short:        "Recompute every item's rating from its reviews",
	SilenceUsage: true,
	RunE:         runReaggregate,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default ./sharehub.yaml if present)")
	flags.String("db", "./sharehub.db", "database URL or SQLite path")
	flags.BoolVar(&dryRun, "dry-run", false, "only report items whose stored rating is stale")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func runReaggregate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	v := viper.New()
	_ = v.BindPFlag("database.url", cmd.Flags().Lookup("db"))
	a, err := app.Bootstrap(ctx, v, configFile)
	if err != nil {
		return err
	}
	defer a.Close()

	stale, err := a.Catalog.StaleRatings(ctx)
	if err != nil {
		return err
	}
	for _, s := range stale {
		line := fmt.Sprintf("%-36s %.1f/%d -> %.1f/%d", s.Item.ID,
			s.Item.Rating, s.Item.ReviewCount, s.Summary.Rating, s.Summary.ReviewCount)
		if dryRun {
			fmt.Println(mutedStyle.Render(line))
			continue
		}
		if _, err := a.Catalog.Reaggregate(ctx, s.Item.ID); err != nil {
			return err
		}
		fmt.Println(changedStyle.Render(line))
	}

	a.Logger.Info("reaggregation finished", zap.Int("stale", len(stale)), zap.Bool("dry_run", dryRun))
	fmt.Println(mutedStyle.Render(fmt.Sprintf("%d stale ratings", len(stale))))
	return nil
}
