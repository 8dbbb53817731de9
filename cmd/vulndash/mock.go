package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vulndash/vulndash/pkg/mock"
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run a local stand-in backend",
	Long: `Run a development backend that serves the project, vulnerability and
pentest agent endpoints from an in-memory store, with a simulated agent
that moves tests through queued, pending and completed.

COMMANDS
  vulndash mock serve     Start the mock backend`,
}

var (
	mockPort       int
	mockConfigFile string
	mockLatency    string
	mockWatch      bool
	mockStepDelay  time.Duration
)

var mockServeCmd = &cobra.Command{
	Use:   "serve [seed-file]",
	Short: "Start the mock backend",
	Example: `  vulndash mock serve
  vulndash mock serve seed.yaml --watch
  vulndash mock serve --config mock.yaml --latency 150ms`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := mock.DefaultConfig()
		if mockConfigFile != "" {
			loaded, err := mock.LoadConfig(mockConfigFile)
			if err != nil {
				return err
			}
			config = loaded
		}

		// Flags override the file
		if cmd.Flags().Changed("port") || mockConfigFile == "" {
			config.Port = mockPort
		}
		if len(args) > 0 {
			config.SeedFile = args[0]
		}
		if cmd.Flags().Changed("watch") {
			config.WatchSeed = mockWatch
		}
		if cmd.Flags().Changed("step-delay") {
			config.Agent.StepDelay = mockStepDelay
		}
		if mockLatency != "" {
			d, err := time.ParseDuration(mockLatency)
			if err != nil {
				return fmt.Errorf("invalid latency: %w", err)
			}
			config.Latency.Fixed = d
		}
		if err := config.Validate(); err != nil {
			return err
		}

		server, err := mock.NewServer(config)
		if err != nil {
			return err
		}

		// Handle shutdown
		go func() {
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			<-c
			fmt.Println("\nStopping mock backend...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}()

		fmt.Printf("🚀 Mock backend on http://localhost:%d\n", config.Port)
		fmt.Printf("   Point the dashboard at it with: vulndash --api-url http://localhost:%d\n", config.Port)
		return server.Start()
	},
}

func init() {
	mockServeCmd.Flags().IntVarP(&mockPort, "port", "p", 8000, "Port to listen on")
	mockServeCmd.Flags().StringVarP(&mockConfigFile, "config", "c", "", "YAML config file")
	mockServeCmd.Flags().StringVarP(&mockLatency, "latency", "l", "", "Simulate fixed latency (e.g. 100ms)")
	mockServeCmd.Flags().BoolVarP(&mockWatch, "watch", "w", false, "Reload the seed file when it changes")
	mockServeCmd.Flags().DurationVar(&mockStepDelay, "step-delay", 3*time.Second, "Time between test status transitions")

	mockCmd.AddCommand(mockServeCmd)
	rootCmd.AddCommand(mockCmd)
}
