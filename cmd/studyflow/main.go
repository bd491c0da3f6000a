package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/studyflow-ai/studyflow"
	"github.com/studyflow-ai/studyflow/pkg/config"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "studyflow",
		Short: "Blackboard-coordinated autonomous study planning system",
		Long: `StudyFlow runs a team of autonomous agents over a shared blackboard to
plan study schedules, track progress, watch deadlines and coach study
behavior, with an HTTP API for human-initiated requests.`,
	}

	var configPath string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the agents and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := studyflow.New(ctx, cfg)
			if err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}
	serve.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("studyflow %s\n", version)
		},
	}

	root.AddCommand(serve, versionCmd)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(path)
}
