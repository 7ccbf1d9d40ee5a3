package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foodrescue/food-robot/pkg/core/services"
)

// SendRemindersCmd creates the sendReminders command
func SendRemindersCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sendReminders",
		Short: "Remind volunteers about overdue and upcoming pickups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := reminderOptions(app)
			if cmd.Flags().Changed("n") {
				opts.N, _ = cmd.Flags().GetInt("n")
			}
			if cmd.Flags().Changed("r") {
				opts.R, _ = cmd.Flags().GetInt("r")
			}
			if opts.N < 0 || opts.R < 1 {
				return fmt.Errorf("n must be at least 0 and r at least 1")
			}

			sent, err := runSendReminders(app, opts)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Reminders sent to %d volunteers\n\n", sent)
			return nil
		},
	}

	cmd.Flags().Int("n", 2, "Days past a pickup before reminding (default from config)")
	cmd.Flags().Int("r", 3, "Reminder count at which admins are told (default from config)")

	return cmd
}

func reminderOptions(app *AppContext) services.ReminderOptions {
	n, r := app.Cfg.ReminderThresholds()
	return services.ReminderOptions{N: n, R: r}
}

func runSendReminders(app *AppContext, opts services.ReminderOptions) (int, error) {
	ntf, sender, err := app.Notifications()
	if err != nil {
		return 0, err
	}
	return services.SendReminders(app.Ctx, app.Database, ntf, sender, app.Logger, app.Today(), opts)
}

// SendWeeklySummaryCmd creates the sendWeeklySummary command
func SendWeeklySummaryCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sendWeeklySummary",
		Short: "Email each region's admin a summary of the past week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ntf, sender, err := app.Notifications()
			if err != nil {
				return err
			}

			summaries, err := services.SendWeeklySummary(app.Ctx, app.Database, ntf, sender, app.Logger, app.Today())
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Weekly summaries sent for %d regions\n\n", len(summaries))
			for _, s := range summaries {
				fmt.Printf("  %-20s %8.1f lbs  %3d logs  %3d entered\n", s.Region.Name, s.Pounds, s.NumLogs, s.NumEntered)
			}
			fmt.Println()

			return nil
		},
	}
}

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Database.RunMigrations(app.Ctx); err != nil {
				return err
			}
			fmt.Println("\n✓ Database is up to date")
			return nil
		},
	}
}
