package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foodrescue/food-robot/internal/config"
	"github.com/foodrescue/food-robot/pkg/core/model"
)

// GenerateResult counts what a generation run did
type GenerateResult struct {
	Created int
	Skipped int
}

func (r *GenerateResult) add(other *GenerateResult) {
	r.Created += other.Created
	r.Skipped += other.Skipped
}

// GenerateLogsStore defines the database operations needed for generating logs
type GenerateLogsStore interface {
	GetLogsForDate(ctx context.Context, date time.Time) ([]model.Log, error)
	GetRegularScheduleChains(ctx context.Context) ([]model.ScheduleChain, error)
	GetVolunteerScheduleChains(ctx context.Context, volunteerID string) ([]model.ScheduleChain, error)
	InsertLog(ctx context.Context, log *model.Log) error
	GetLog(ctx context.Context, id string) (*model.Log, error)
	UpdateLog(ctx context.Context, log *model.Log) error
}

// GenerateLogs creates the day's logs from the current schedule chains.
//
// Without an absence every non-irregular chain is considered and logs that
// already exist for a (chain, location) pair are skipped, so reruns create
// nothing new. With an absence only the absent volunteer's chains are
// considered; existing logs have the volunteer removed and the absence
// recorded, and count as created because they now need cover.
func GenerateLogs(
	ctx context.Context,
	store GenerateLogsStore,
	cfg *config.Config,
	logger *zap.Logger,
	date time.Time,
	absence *model.Absence,
) (*GenerateResult, error) {
	date = model.Date(date.Year(), date.Month(), date.Day())
	logger = logger.With(zap.String("date", date.Format(model.DateLayout)))
	if absence != nil {
		logger = logger.With(zap.String("absence_id", absence.ID), zap.String("volunteer_id", absence.VolunteerID))
	}
	logger.Debug("Starting generateLogs")

	result := &GenerateResult{}

	if reason, closed := cfg.ClosedOn(date); closed {
		logger.Info("Skipping generation on closure", zap.String("reason", reason))
		return result, nil
	}

	// Step 1: Index the logs already generated for the date
	existing, err := store.GetLogsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs for %s: %w", date.Format(model.DateLayout), err)
	}
	done := make(map[model.LogKey]string, len(existing))
	for _, l := range existing {
		done[l.Key()] = l.ID
	}
	logger.Debug("Found existing logs", zap.Int("count", len(existing)))

	// Step 2: Pick candidate chains
	var chains []model.ScheduleChain
	if absence == nil {
		chains, err = store.GetRegularScheduleChains(ctx)
	} else {
		chains, err = store.GetVolunteerScheduleChains(ctx, absence.VolunteerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule chains: %w", err)
	}
	logger.Debug("Found candidate chains", zap.Int("count", len(chains)))

	// Step 3: Walk each chain that runs today
	for _, chain := range chains {
		if !chain.Functional() {
			logger.Debug("Skipping non-functional chain", zap.String("chain_id", chain.ID))
			continue
		}
		if !chain.RunsOn(date) {
			continue
		}

		logger.Debug("Schedule chain", zap.String("chain_id", chain.ID), zap.String("path", chain.Path()))

		last := len(chain.Stops) - 1
		for i, stop := range chain.Stops {
			// A hub is a donor mid-chain but a recipient at the end of one
			if !stop.IsPickupStop || stop.Location == nil || (i == last && stop.Location.Hub) {
				continue
			}

			key := model.LogKey{ChainID: chain.ID, LocationID: stop.Location.ID}
			logID, ok := done[key]

			if !ok {
				log := newLogFromStop(chain, i, date, absence)
				if err := store.InsertLog(ctx, log); err != nil {
					return nil, fmt.Errorf("failed to insert log for %s: %w", key, err)
				}
				done[key] = log.ID
				result.Created++
				logger.Debug("Created log", zap.String("log_id", log.ID), zap.Stringer("key", key))
				continue
			}

			if absence == nil {
				result.Skipped++
				continue
			}

			log, err := store.GetLog(ctx, logID)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch log %s: %w", logID, err)
			}
			log.RemoveVolunteer(absence.VolunteerID)
			log.AddAbsence(*absence)
			if err := store.UpdateLog(ctx, log); err != nil {
				return nil, fmt.Errorf("failed to update log %s: %w", logID, err)
			}
			result.Created++
			logger.Debug("Recorded absence on existing log", zap.String("log_id", logID), zap.Stringer("key", key))
		}
	}

	logger.Info("Generated logs", zap.Int("created", result.Created), zap.Int("skipped", result.Skipped))

	return result, nil
}

// newLogFromStop builds the log for the pickup at chain.Stops[i]. Recipients
// are the drop-off locations after the stop, plus a terminal hub. The absent
// volunteer, if any, is left off the log.
func newLogFromStop(chain model.ScheduleChain, i int, date time.Time, absence *model.Absence) *model.Log {
	stop := chain.Stops[i]

	regionID := stop.Location.RegionID
	if regionID == "" {
		regionID = chain.RegionID
	}

	log := &model.Log{
		ID:              uuid.NewString(),
		ScheduleChainID: chain.ID,
		DonorID:         stop.Location.ID,
		DonorName:       stop.Location.Name,
		RegionID:        regionID,
		When:            date,
	}

	last := len(chain.Stops) - 1
	seen := make(map[string]bool)
	for j := i + 1; j <= last; j++ {
		s := chain.Stops[j]
		if s.Location == nil || seen[s.Location.ID] {
			continue
		}
		if !s.IsPickupStop || (j == last && s.Location.Hub) {
			seen[s.Location.ID] = true
			log.RecipientIDs = append(log.RecipientIDs, s.Location.ID)
		}
	}

	for _, v := range chain.Volunteers {
		if absence != nil && v.ID == absence.VolunteerID {
			continue
		}
		log.Volunteers = append(log.Volunteers, v)
	}

	if absence != nil {
		log.AddAbsence(*absence)
	}

	return log
}
