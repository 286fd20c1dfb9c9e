package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	applog "finanzas/internal/log"
)

// App is the finanzas-cli command tree. The runtime is built lazily before
// every command and closed after it.
type App struct {
	rootCmd    *cobra.Command
	version    string
	configFile string
	rt         *Runtime
	now        func() time.Time
}

func NewApp(version string) *App {
	app := &App{version: version, now: time.Now}

	rootCmd := &cobra.Command{
		Use:           "finanzas-cli",
		Short:         "Monthly balances and savings from the finance API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return app.teardown()
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "finanzas-cli version: %s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVarP(&app.configFile, "config", "C", "", "Path to a TOML, YAML, or JSON configuration file")

	rootCmd.AddCommand(
		app.balancesCmd(),
		app.savingsCmd(),
		app.currenciesCmd(),
		app.closeOutCmd(),
		app.finalizeCmd(),
		app.deleteSavingCmd(),
		app.browseCmd(),
		app.exportCmd(),
		app.journalCmd(),
		app.whoamiCmd(),
	)

	app.rootCmd = rootCmd
	return app
}

// Execute runs the CLI application.
func (app *App) Execute() error {
	return app.rootCmd.Execute()
}

// Root exposes the command tree, mainly for tests.
func (app *App) Root() *cobra.Command {
	return app.rootCmd
}

func (app *App) setup(cmd *cobra.Command) error {
	cfg, err := LoadConfig(app.configFile)
	if err != nil {
		return err
	}
	// Logs go to stderr so tables on stdout stay pipeable.
	logger := SetupLogger(cfg, applog.ComponentCLI, cmd.ErrOrStderr())
	rt, err := NewRuntime(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	app.rt = rt
	return nil
}

func (app *App) teardown() error {
	if app.rt == nil {
		return nil
	}
	err := app.rt.Close()
	app.rt = nil
	return err
}

// Main runs the app and exits non-zero on failure.
func Main(version string) {
	app := NewApp(version)
	if err := app.Execute(); err != nil {
		_ = app.teardown()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
