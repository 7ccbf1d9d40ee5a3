package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foodrescue/food-robot/pkg/core/model"
	"github.com/foodrescue/food-robot/pkg/notifier"
)

// WeeklySummaryStore defines the database operations needed for the weekly summary
type WeeklySummaryStore interface {
	GetRegions(ctx context.Context) ([]model.Region, error)
	CountCompleteLogs(ctx context.Context, regionID string, after, before time.Time) (int, error)
	SumLogParts(ctx context.Context, regionID string, after, before time.Time) ([]model.LogTotals, error)
	GetLog(ctx context.Context, id string) (*model.Log, error)
}

// SendWeeklySummary reports each region's complete logs from the six days
// strictly between a week ago and today. Regions with nothing to report are
// skipped. Returns the summaries that were sent.
func SendWeeklySummary(
	ctx context.Context,
	store WeeklySummaryStore,
	ntf *notifier.Notifier,
	sender notifier.Sender,
	logger *zap.Logger,
	today time.Time,
) ([]notifier.WeeklySummary, error) {
	after := today.AddDate(0, 0, -7)
	logger.Debug("Starting sendWeeklySummary",
		zap.String("after", after.Format(model.DateLayout)),
		zap.String("before", today.Format(model.DateLayout)))

	regions, err := store.GetRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch regions: %w", err)
	}

	var summaries []notifier.WeeklySummary
	for _, region := range regions {
		summary, ok, err := summarizeRegion(ctx, store, region, after, today)
		if err != nil {
			return summaries, err
		}
		if !ok {
			logger.Debug("Nothing to report", zap.String("region", region.Name))
			continue
		}

		m, err := ntf.AdminWeeklySummary(summary)
		if err != nil {
			return summaries, err
		}
		if err := sender.Send(ctx, m); err != nil {
			return summaries, err
		}

		logger.Info("Sent weekly summary",
			zap.String("region", region.Name),
			zap.Float64("pounds", summary.Pounds),
			zap.Int("logs", summary.NumLogs))
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// summarizeRegion builds the region's summary. ok is false when the region
// had no complete logs in the window.
func summarizeRegion(ctx context.Context, store WeeklySummaryStore, region model.Region, after, before time.Time) (notifier.WeeklySummary, bool, error) {
	summary := notifier.WeeklySummary{Region: region}

	numLogs, err := store.CountCompleteLogs(ctx, region.ID, after, before)
	if err != nil {
		return summary, false, fmt.Errorf("failed to count logs for region %s: %w", region.Name, err)
	}
	if numLogs == 0 {
		return summary, false, nil
	}
	summary.NumLogs = numLogs

	totals, err := store.SumLogParts(ctx, region.ID, after, before)
	if err != nil {
		return summary, false, fmt.Errorf("failed to total logs for region %s: %w", region.Name, err)
	}
	if len(totals) == 0 {
		return summary, false, nil
	}

	var flagged, zero []string
	biggest := totals[0]
	for _, t := range totals {
		summary.Pounds += t.WeightSum
		summary.NumEntered++
		if t.Zero() {
			zero = append(zero, t.LogID)
		}
		if t.FlagForAdmin {
			flagged = append(flagged, t.LogID)
		}
		if t.WeightSum > biggest.WeightSum {
			biggest = t
		}
	}

	cache := make(map[string]model.Log)
	load := func(ids []string) ([]model.Log, error) {
		logs := make([]model.Log, 0, len(ids))
		for _, id := range ids {
			if l, ok := cache[id]; ok {
				logs = append(logs, l)
				continue
			}
			l, err := store.GetLog(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch log %s: %w", id, err)
			}
			cache[id] = *l
			logs = append(logs, *l)
		}
		return logs, nil
	}

	big, err := load([]string{biggest.LogID})
	if err != nil {
		return summary, false, err
	}
	summary.Biggest = big[0]
	summary.BiggestPounds = biggest.WeightSum

	if summary.Flagged, err = load(flagged); err != nil {
		return summary, false, err
	}
	if summary.ZeroLogs, err = load(zero); err != nil {
		return summary, false, err
	}

	return summary, true, nil
}
