package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foodrescue/food-robot/cmd/cli/commands"
	"github.com/foodrescue/food-robot/internal/config"
	"github.com/foodrescue/food-robot/pkg/postgres"
	"github.com/foodrescue/food-robot/pkg/utils/logging"
)

var (
	env    string
	dryRun bool
	app    = &commands.AppContext{Ctx: context.Background()}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "food-robot",
		Short: "Food Robot - generate pickup logs and chase volunteers for data",
		Long: `A CLI for the food rescue pickup schedule: generates each day's pickup logs
from the schedule chains, reminds volunteers to enter their data, and sends
region admins a weekly summary.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Database != nil {
				app.Database.Close()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print emails instead of sending them")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.GenerateLogsCmd(app))
	rootCmd.AddCommand(commands.CoverAbsenceCmd(app))
	rootCmd.AddCommand(commands.SendRemindersCmd(app))
	rootCmd.AddCommand(commands.SendWeeklySummaryCmd(app))
	rootCmd.AddCommand(commands.ScheduleCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app, os.Stdin))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config and database. Gmail is only authenticated
// when a command first needs to send.
func initApp(cmd *cobra.Command) error {
	var err error
	app.Env = env

	app.Logger, err = logging.InitLogger(env, cmd.Name())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting food robot", zap.String("environment", env), zap.String("command", cmd.Name()))

	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.DryRun = dryRun || app.Cfg.DryRun
	app.Logger.Debug("Configuration loaded",
		zap.String("time_zone", app.Cfg.TimeZone),
		zap.Bool("dry_run", app.DryRun))

	app.Logger.Info("Connecting to database")
	database, err := postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Database = database
	app.Logger.Debug("Database connected")

	return nil
}
