package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foodrescue/food-robot/pkg/core/services"
)

// ScheduleCmd creates the schedule command
func ScheduleCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the daily and weekly jobs on their configured cron schedules",
		Long: `Runs in the foreground until interrupted. schedule.daily generates today's
logs and then sends reminders; schedule.weekly sends the weekly summary.
Both specs are evaluated in the configured time zone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := newScheduler(app)
			if err != nil {
				return err
			}

			c.Start()
			for _, e := range c.Entries() {
				app.Logger.Info("Scheduled job", zap.Int("entry_id", int(e.ID)), zap.Time("next", e.Next))
			}
			fmt.Println("Scheduler running, press Ctrl+C to stop")

			<-ctx.Done()
			app.Logger.Info("Stopping scheduler")
			<-c.Stop().Done()

			return nil
		},
	}
}

// newScheduler registers the configured jobs. A job still running when its
// next tick fires is skipped rather than overlapped.
func newScheduler(app *AppContext) (*cron.Cron, error) {
	cronLogger := zapCronLogger{app.Logger}
	c := cron.New(
		cron.WithLocation(app.Cfg.Location()),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	if app.Cfg.Schedule.Daily == "" && app.Cfg.Schedule.Weekly == "" {
		return nil, fmt.Errorf("no jobs configured, set schedule.daily and/or schedule.weekly")
	}

	if spec := app.Cfg.Schedule.Daily; spec != "" {
		if _, err := c.AddFunc(spec, func() { runJob(app, "daily", dailyJob) }); err != nil {
			return nil, fmt.Errorf("invalid schedule.daily: %w", err)
		}
	}

	if spec := app.Cfg.Schedule.Weekly; spec != "" {
		if _, err := c.AddFunc(spec, func() { runJob(app, "weekly", weeklyJob) }); err != nil {
			return nil, fmt.Errorf("invalid schedule.weekly: %w", err)
		}
	}

	return c, nil
}

func runJob(app *AppContext, name string, job func(ctx context.Context, app *AppContext) error) {
	logger := app.Logger.With(zap.String("job", name))
	logger.Info("Job started")
	if err := job(app.Ctx, app); err != nil {
		logger.Error("Job failed", zap.Error(err))
		return
	}
	logger.Info("Job finished")
}

func dailyJob(ctx context.Context, app *AppContext) error {
	today := app.Today()
	if _, err := services.GenerateLogs(ctx, app.Database, app.Cfg, app.Logger, today, nil); err != nil {
		return err
	}
	_, err := runSendReminders(app, reminderOptions(app))
	return err
}

func weeklyJob(ctx context.Context, app *AppContext) error {
	ntf, sender, err := app.Notifications()
	if err != nil {
		return err
	}
	_, err = services.SendWeeklySummary(ctx, app.Database, ntf, sender, app.Logger, app.Today())
	return err
}

// zapCronLogger adapts zap to cron.Logger
type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
