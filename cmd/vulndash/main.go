package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vulndash/vulndash/pkg/api"
	"github.com/vulndash/vulndash/pkg/logger"
	"github.com/vulndash/vulndash/pkg/pentest"
	"github.com/vulndash/vulndash/pkg/tui"
	"github.com/vulndash/vulndash/pkg/userconfig"
)

// Version info - set by build flags
var (
	Version   = "0.3.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

var (
	apiURL   string
	logLevel string

	cfg *userconfig.UserConfig
)

var rootCmd = &cobra.Command{
	Use:   "vulndash",
	Short: "vulndash: browse scan findings and drive pentest runs",
	Long: `vulndash is a terminal dashboard for a vulnerability scanning backend.
It lists projects and their findings, filters them by severity and status,
and asks the pentest agent to try exploiting the selected findings.

QUICK START
  vulndash                     Open the dashboard on the project list
  vulndash open /projects/new  Open the dashboard on any route
  vulndash list <project>      Print a project's findings as a table

EXAMPLES
  # Test two findings and wait for the results
  $ vulndash test 6650c1 v1 v2

  # Export findings to a spreadsheet
  $ vulndash export 6650c1 --format xlsx -o findings.xlsx

  # Run a local stand-in backend
  $ vulndash mock serve seed.yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := userconfig.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
		if cmd.Flags().Changed("api-url") {
			cfg.APIURL = apiURL
		}

		if err := logger.Init(logToFile(cmd)); err != nil {
			return fmt.Errorf("initialising log: %w", err)
		}
		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		logger.SetLevelFromString(level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(tui.ProjectsPath)
	},
}

// logToFile decides the log sink. The dashboard owns the terminal and the
// mock backend is a foreground server.
func logToFile(cmd *cobra.Command) bool {
	switch cmd.CommandPath() {
	case "vulndash", "vulndash open":
		return true
	case "vulndash mock serve":
		return false
	}
	return *cfg.LogToFile
}

// newClient builds an API client from the loaded config
func newClient() (*api.Client, error) {
	return api.NewClient(api.Config{
		BaseURL: cfg.APIURL,
		Timeout: time.Duration(cfg.RequestTimeout),
	})
}

func pollConfig() pentest.PollConfig {
	return pentest.PollConfig{
		Interval: time.Duration(cfg.PollInterval),
		Attempts: cfg.PollAttempts,
	}
}

func runDashboard(path string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	if !tui.IsInteractive() {
		return fmt.Errorf("the dashboard needs an interactive terminal; try 'vulndash list'")
	}
	return tui.Run(client, tui.Options{
		Poll:             pollConfig(),
		IndexingInterval: time.Duration(cfg.IndexingInterval),
	}, path)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (overrides api_url)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
