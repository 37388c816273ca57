package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meur/sharehub/internal/app"
	"github.com/meur/sharehub/internal/seed"
)

var (
	configFile string

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	labelStyle = lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color("#9aa5b1"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
)

var rootCmd = &cobra.Command{
	Use:   "sharehub-import [dump.json]",
	Short: "Import items and reviews from a browser localStorage dump",
	Long: `Reads the chrome_store_extensions and chrome_store_reviews keys of a
localStorage export, upgrades the records to the current schema and writes
them to the configured database. Records that already exist are skipped.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runImport,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default ./sharehub.yaml if present)")
	flags.String("db", "./sharehub.db", "database URL or SQLite path")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	dump, err := seed.LoadLegacy(f)
	if err != nil {
		return err
	}

	v := viper.New()
	_ = v.BindPFlag("database.url", cmd.Flags().Lookup("db"))
	a, err := app.Bootstrap(cmd.Context(), v, configFile)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := seed.ImportLegacy(cmd.Context(), a.Catalog, dump, a.Logger)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Imported %s", args[0])))
	fmt.Println(labelStyle.Render("items"), res.Items)
	fmt.Println(labelStyle.Render("reviews"), res.Reviews)
	fmt.Println(labelStyle.Render("skipped"), res.Skipped)
	if res.Orphaned > 0 || res.Rejected > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("%d orphaned reviews, %d rejected records (see log)", res.Orphaned, res.Rejected)))
	}
	return nil
}
