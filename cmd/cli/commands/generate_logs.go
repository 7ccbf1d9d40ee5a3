package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foodrescue/food-robot/pkg/core/model"
	"github.com/foodrescue/food-robot/pkg/core/services"
)

// GenerateLogsCmd creates the generateLogs command
func GenerateLogsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generateLogs [date]",
		Short: "Generate the day's pickup logs from the schedule (defaults to today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDay(app, args)
			if err != nil {
				return err
			}

			absenceID, _ := cmd.Flags().GetString("absence")
			var absence *model.Absence
			if absenceID != "" {
				absence, err = app.Database.GetAbsence(app.Ctx, absenceID)
				if err != nil {
					return err
				}
			}

			result, err := services.GenerateLogs(app.Ctx, app.Database, app.Cfg, app.Logger, date, absence)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Logs generated for %s\n\n", date.Format("Mon 2006-01-02"))
			fmt.Printf("Created: %d\n", result.Created)
			fmt.Printf("Skipped: %d\n\n", result.Skipped)

			return nil
		},
	}

	cmd.Flags().String("absence", "", "Absence ID to reroute coverage for")

	return cmd
}

// CoverAbsenceCmd creates the coverAbsence command
func CoverAbsenceCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "coverAbsence <absence_id>",
		Short: "Reroute an absent volunteer's logs for the rest of the absence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.CoverAbsence(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], app.Today())
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Absence %s covered\n\n", args[0])
			fmt.Printf("Logs needing cover: %d\n\n", result.Created)

			return nil
		},
	}
}
