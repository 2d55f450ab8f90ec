// Command cron runs the premium sweeps, either on an in-process schedule or
// as a single invocation for an external scheduler.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nextbud/premium/internal/app"
	"github.com/nextbud/premium/internal/app/jobs"
)

func main() {
	root := &cobra.Command{
		Use:           "cron",
		Short:         "Run premium expiry and pending-activation sweeps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(scheduleCmd(), runCmd())

	if err := root.Execute(); err != nil {
		zap.NewExample().Sugar().Errorf("cron: %v", err)
		os.Exit(1)
	}
}

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run both sweeps on their configured cron schedules until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := fx.New(app.CronModule)
			startCtx, cancel := context.WithTimeout(cmd.Context(), app.DefaultStartTimeout)
			defer cancel()
			if err := a.Start(startCtx); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}

			<-a.Done()

			stopCtx, cancel2 := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
			defer cancel2()
			return a.Stop(stopCtx)
		},
	}
}

func runCmd() *cobra.Command {
	names := make([]string, 0, len(jobs.Jobs))
	for _, j := range jobs.Jobs {
		names = append(names, string(j))
	}
	return &cobra.Command{
		Use:       "run <job>",
		Short:     "Run one sweep invocation and print its summary",
		Long:      "Run one sweep invocation and exit. Jobs: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := jobs.ParseJob(args[0])
			if err != nil {
				return err
			}

			var runner *jobs.Runner
			a := fx.New(app.RunOnceModule, fx.Populate(&runner), fx.NopLogger)
			startCtx, cancel := context.WithTimeout(cmd.Context(), app.DefaultStartTimeout)
			defer cancel()
			if err := a.Start(startCtx); err != nil {
				return fmt.Errorf("start: %w", err)
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
				defer cancel()
				_ = a.Stop(stopCtx)
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			res, err := runner.Run(ctx, job)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}
