package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foodrescue/food-robot/pkg/core/model"
	"github.com/foodrescue/food-robot/pkg/notifier"
)

// ReminderOptions sets when reminders start and when admins hear about them
type ReminderOptions struct {
	N int // Days past a log's date before volunteers are reminded
	R int // Reminder count at which the log is escalated to the region admin
}

// DefaultReminderOptions remind after 2 days and escalate on the third reminder
func DefaultReminderOptions() ReminderOptions {
	return ReminderOptions{N: 2, R: 3}
}

// SendRemindersStore defines the database operations needed for sending reminders
type SendRemindersStore interface {
	GetIncompleteLogs(ctx context.Context) ([]model.Log, error)
	UpdateLog(ctx context.Context, log *model.Log) error
	GetRegions(ctx context.Context) ([]model.Region, error)
}

// SendReminders scans incomplete logs and sends past-due reminders,
// pre-reminders for tomorrow, uncovered pickup alerts and escalations.
// Every qualifying past-due log has its reminder count bumped, so reruns are
// not idempotent. Returns the number of volunteer emails sent; SMS variants
// and admin messages aren't counted.
func SendReminders(
	ctx context.Context,
	store SendRemindersStore,
	ntf *notifier.Notifier,
	sender notifier.Sender,
	logger *zap.Logger,
	today time.Time,
	opts ReminderOptions,
) (int, error) {
	logger.Debug("Starting sendReminders",
		zap.String("today", today.Format(model.DateLayout)),
		zap.Int("n", opts.N),
		zap.Int("r", opts.R))

	logs, err := store.GetIncompleteLogs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch incomplete logs: %w", err)
	}
	logger.Debug("Found incomplete logs", zap.Int("count", len(logs)))

	pastDue := newVolunteerBatches()
	preReminders := newVolunteerBatches()
	shortTermCover := newRegionLogs()
	escalations := newRegionLogs()

	for i := range logs {
		log := &logs[i]
		daysFuture := model.DaysBetween(today, log.When)

		if daysFuture == 1 && len(log.Volunteers) > 0 {
			for _, v := range log.Volunteers {
				if v.PreRemindersToo {
					preReminders.add(v, *log)
				}
			}
			continue
		} else if (daysFuture == 1 || daysFuture == 2) && len(log.Volunteers) == 0 {
			shortTermCover.add(*log)
		}

		if len(log.Volunteers) == 0 {
			continue
		}

		if daysPast := -daysFuture; daysPast < opts.N {
			continue
		}

		reminders := log.IncrementReminders()
		if err := store.UpdateLog(ctx, log); err != nil {
			return 0, fmt.Errorf("failed to save reminder count for log %s: %w", log.ID, err)
		}

		for _, v := range log.Volunteers {
			pastDue.add(v, *log)
		}

		if reminders >= opts.R {
			escalations.add(*log)
		}
	}

	sent := 0

	n, err := sendVolunteerBatches(ctx, sender, logger, pastDue.list(), ntf.VolunteerLogReminder, ntf.VolunteerLogSMSReminder)
	sent += n
	if err != nil {
		return sent, err
	}

	n, err = sendVolunteerBatches(ctx, sender, logger, preReminders.list(), ntf.VolunteerLogPreReminder, ntf.VolunteerLogSMSPreReminder)
	sent += n
	if err != nil {
		return sent, err
	}

	if !shortTermCover.empty() || !escalations.empty() {
		regions, err := store.GetRegions(ctx)
		if err != nil {
			return sent, fmt.Errorf("failed to fetch regions: %w", err)
		}
		region := regionsByID(regions)

		if err := sendRegionSummaries(ctx, sender, region, shortTermCover, ntf.AdminShortTermCoverSummary); err != nil {
			return sent, err
		}
		if err := sendRegionSummaries(ctx, sender, region, escalations, ntf.AdminReminderSummary); err != nil {
			return sent, err
		}
	}

	logger.Info("Sent reminders",
		zap.Int("sent", sent),
		zap.Int("short_term_cover_regions", len(shortTermCover.order)),
		zap.Int("escalation_regions", len(escalations.order)))

	return sent, nil
}

type volunteerMessage func(v model.Volunteer, logs []model.Log) (*notifier.Message, error)

type regionMessage func(r model.Region, logs []model.Log) (*notifier.Message, error)

// sendVolunteerBatches sends one email per batch, plus the SMS variant for
// volunteers who opted in. Returns the number of emails sent.
func sendVolunteerBatches(
	ctx context.Context,
	sender notifier.Sender,
	logger *zap.Logger,
	batches []volunteerBatch,
	email, sms volunteerMessage,
) (int, error) {
	sent := 0
	for _, b := range batches {
		if b.Volunteer.Email == "" {
			logger.Warn("Volunteer has no email address", zap.String("volunteer_id", b.Volunteer.ID))
		} else {
			m, err := email(b.Volunteer, b.Logs)
			if err != nil {
				return sent, err
			}
			if err := sender.Send(ctx, m); err != nil {
				return sent, err
			}
			sent++
		}

		if b.Volunteer.CanSMS() {
			m, err := sms(b.Volunteer, b.Logs)
			if err != nil {
				return sent, err
			}
			if err := sender.Send(ctx, m); err != nil {
				return sent, err
			}
		}
	}
	return sent, nil
}

func sendRegionSummaries(
	ctx context.Context,
	sender notifier.Sender,
	region func(id string) model.Region,
	groups *regionLogs,
	build regionMessage,
) error {
	for _, id := range groups.order {
		m, err := build(region(id), groups.logs[id])
		if err != nil {
			return err
		}
		if err := sender.Send(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
