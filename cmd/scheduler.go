package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the attendance job scheduler",
	Long:  `Run reminders, summaries, reports and cleanup jobs on their schedules without serving HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		app, err := newApplication(cfg)
		if err != nil {
			return err
		}
		defer app.close()

		s, err := app.newScheduler()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s.Start(ctx)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := app.bus.Wait(shutdownCtx); err != nil {
			app.logger.Warn("event handlers still running at shutdown", "error", err)
		}
		return nil
	},
}
