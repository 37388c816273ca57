package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meur/sharehub/internal/app"
	"github.com/meur/sharehub/internal/seed"
)

var (
	configFile  string
	fixtureFile string

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	labelStyle = lipgloss.NewStyle().Width(12).Foreground(lipgloss.Color("#9aa5b1"))
)

var rootCmd = &cobra.Command{
	Use:          "sharehub-seed",
	Short:        "Load demo catalog data",
	Long:         "Writes categories, tabs, items, reviews and home settings from a YAML fixture. Existing records are skipped.",
	SilenceUsage: true,
	RunE:         runSeed,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default ./sharehub.yaml if present)")
	flags.StringVar(&fixtureFile, "file", "", "fixture YAML (default: built-in demo catalog)")
	flags.String("db", "./sharehub.db", "database URL or SQLite path")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	_ = v.BindPFlag("database.url", cmd.Flags().Lookup("db"))

	ctx := cmd.Context()
	a, err := app.Bootstrap(ctx, v, configFile)
	if err != nil {
		return err
	}
	defer a.Close()

	fixture, err := loadFixture()
	if err != nil {
		return err
	}

	session, err := a.AdminSession()
	if err != nil {
		return err
	}
	defer a.Gate.Logout(session)

	res, err := seed.Apply(ctx, a.Catalog, session, fixture, time.Now(), a.Logger)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Seeding complete"))
	for _, row := range []struct {
		label string
		n     int
	}{
		{"categories", res.Categories},
		{"tabs", res.Tabs},
		{"items", res.Items},
		{"reviews", res.Reviews},
		{"skipped", res.Skipped},
	} {
		fmt.Println(labelStyle.Render(row.label), row.n)
	}
	if fixture.Home != nil && !res.Home {
		fmt.Println(labelStyle.Render("home"), "kept existing settings")
	}
	return nil
}

func loadFixture() (seed.Fixture, error) {
	if fixtureFile == "" {
		return seed.Default()
	}
	f, err := os.Open(fixtureFile)
	if err != nil {
		return seed.Fixture{}, err
	}
	defer f.Close()
	return seed.Load(f)
}
