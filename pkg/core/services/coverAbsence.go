package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foodrescue/food-robot/internal/config"
	"github.com/foodrescue/food-robot/pkg/core/model"
)

// CoverAbsenceStore defines the database operations needed for covering an absence
type CoverAbsenceStore interface {
	GenerateLogsStore
	GetAbsence(ctx context.Context, id string) (*model.Absence, error)
}

// CoverAbsence reroutes the absent volunteer's logs for every remaining day
// of the absence, from today (or its start, if later) to its stop date
func CoverAbsence(
	ctx context.Context,
	store CoverAbsenceStore,
	cfg *config.Config,
	logger *zap.Logger,
	absenceID string,
	today time.Time,
) (*GenerateResult, error) {
	absence, err := store.GetAbsence(ctx, absenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch absence: %w", err)
	}

	from := absence.StartDate
	if from.Before(today) {
		from = today
	}
	from = model.Date(from.Year(), from.Month(), from.Day())
	to := model.Date(absence.StopDate.Year(), absence.StopDate.Month(), absence.StopDate.Day())

	logger.Info("Covering absence",
		zap.String("absence_id", absence.ID),
		zap.String("volunteer_id", absence.VolunteerID),
		zap.String("from", from.Format(model.DateLayout)),
		zap.String("to", to.Format(model.DateLayout)))

	total := &GenerateResult{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		result, err := GenerateLogs(ctx, store, cfg, logger, d, absence)
		if err != nil {
			return nil, err
		}
		total.add(result)
	}

	return total, nil
}
