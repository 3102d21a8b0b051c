package main

import (
	"fmt"
	"os"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/app"
	"github.com/spf13/cobra"
)

const programName = "waitlist"

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Pre-launch waitlist service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(adminTokenCommand())
	rootCmd.AddCommand(versionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and housekeeping worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(app.LoadConfig())
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run()
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.LoadConfig()
			logger := app.NewLogger(cfg, cmd.ErrOrStderr())

			db, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			logger.Info("database migrations applied successfully", "driver", cfg.DBDriver)
			return db.Close()
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.BuildVersion)
		},
	}
}
