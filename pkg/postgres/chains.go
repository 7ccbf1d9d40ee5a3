package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/foodrescue/food-robot/pkg/core/model"
)

// stopRow is a schedule stop joined to its (optional) location
type stopRow struct {
	ChainID      string
	StopID       string
	Position     int
	IsPickupStop bool
	LocationID   *string
	LocationName *string
	RegionID     *string
	Hub          *bool
}

type chainVolunteerRow struct {
	ChainID   string
	Volunteer model.Volunteer
}

// GetRegularScheduleChains returns every chain that isn't irregular
func (d *DB) GetRegularScheduleChains(ctx context.Context) ([]model.ScheduleChain, error) {
	return d.loadChains(ctx, `
		SELECT id, region_id, frequency, day_of_week, detailed_date
		FROM schedule_chains
		WHERE frequency <> 'irregular'
		ORDER BY id
	`)
}

// GetVolunteerScheduleChains returns the chains a volunteer is assigned to,
// irregular ones included
func (d *DB) GetVolunteerScheduleChains(ctx context.Context, volunteerID string) ([]model.ScheduleChain, error) {
	return d.loadChains(ctx, `
		SELECT c.id, c.region_id, c.frequency, c.day_of_week, c.detailed_date
		FROM schedule_chains c
		JOIN schedule_chain_volunteers cv ON cv.schedule_chain_id = c.id
		WHERE cv.volunteer_id = $1
		ORDER BY c.id
	`, volunteerID)
}

func (d *DB) loadChains(ctx context.Context, query string, args ...any) ([]model.ScheduleChain, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule chains: %w", err)
	}

	chains, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ScheduleChain, error) {
		var c model.ScheduleChain
		var frequency string
		var dayOfWeek *int16
		var detailedDate *time.Time
		if err := row.Scan(&c.ID, &c.RegionID, &frequency, &dayOfWeek, &detailedDate); err != nil {
			return c, err
		}
		c.Frequency = model.Frequency(frequency)
		if dayOfWeek != nil {
			wd := time.Weekday(*dayOfWeek)
			c.DayOfWeek = &wd
		}
		if detailedDate != nil {
			dd := detailedDate.UTC()
			c.DetailedDate = &dd
		}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule chains: %w", err)
	}
	if len(chains) == 0 {
		return nil, nil
	}

	ids := make([]string, len(chains))
	for i, c := range chains {
		ids[i] = c.ID
	}

	rows, err = d.pool.Query(ctx, `
		SELECT s.schedule_chain_id, s.id, s.position, s.is_pickup_stop,
		       l.id, l.name, l.region_id, l.is_hub
		FROM schedule_stops s
		LEFT JOIN locations l ON l.id = s.location_id
		WHERE s.schedule_chain_id = ANY($1)
		ORDER BY s.schedule_chain_id, s.position
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule stops: %w", err)
	}
	stops, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (stopRow, error) {
		var s stopRow
		err := row.Scan(&s.ChainID, &s.StopID, &s.Position, &s.IsPickupStop,
			&s.LocationID, &s.LocationName, &s.RegionID, &s.Hub)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule stops: %w", err)
	}

	rows, err = d.pool.Query(ctx, `
		SELECT cv.schedule_chain_id, v.id, v.name, v.email, v.sms_email, v.pre_reminders_too, v.sms_too
		FROM schedule_chain_volunteers cv
		JOIN volunteers v ON v.id = cv.volunteer_id
		WHERE cv.schedule_chain_id = ANY($1)
		ORDER BY v.name, v.id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query chain volunteers: %w", err)
	}
	volunteers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chainVolunteerRow, error) {
		var r chainVolunteerRow
		v := &r.Volunteer
		err := row.Scan(&r.ChainID, &v.ID, &v.Name, &v.Email, &v.SMSEmail, &v.PreRemindersToo, &v.SMSToo)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan chain volunteers: %w", err)
	}

	assembleChains(chains, stops, volunteers)
	return chains, nil
}

// assembleChains attaches stops (already in position order) and volunteers
// to their chains. Rows for unknown chains are ignored.
func assembleChains(chains []model.ScheduleChain, stops []stopRow, volunteers []chainVolunteerRow) {
	index := make(map[string]int, len(chains))
	for i, c := range chains {
		index[c.ID] = i
	}

	for _, s := range stops {
		i, ok := index[s.ChainID]
		if !ok {
			continue
		}
		stop := model.ScheduleStop{
			ID:           s.StopID,
			Position:     s.Position,
			IsPickupStop: s.IsPickupStop,
		}
		if s.LocationID != nil {
			stop.Location = &model.Location{ID: *s.LocationID}
			if s.LocationName != nil {
				stop.Location.Name = *s.LocationName
			}
			if s.RegionID != nil {
				stop.Location.RegionID = *s.RegionID
			}
			if s.Hub != nil {
				stop.Location.Hub = *s.Hub
			}
		}
		chains[i].Stops = append(chains[i].Stops, stop)
	}

	for _, r := range volunteers {
		if i, ok := index[r.ChainID]; ok {
			chains[i].Volunteers = append(chains[i].Volunteers, r.Volunteer)
		}
	}
}
