package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/foodrescue/food-robot/pkg/core/model"
)

const selectLogs = `
	SELECT l.id, l.schedule_chain_id, l.donor_id, loc.name, l.region_id,
	       l."when", l.complete, l.num_reminders, l.flag_for_admin
	FROM logs l
	JOIN locations loc ON loc.id = l.donor_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (model.Log, error) {
	var l model.Log
	var chainID *string
	if err := row.Scan(&l.ID, &chainID, &l.DonorID, &l.DonorName, &l.RegionID,
		&l.When, &l.Complete, &l.NumReminders, &l.FlagForAdmin); err != nil {
		return l, err
	}
	if chainID != nil {
		l.ScheduleChainID = *chainID
	}
	l.When = l.When.UTC()
	return l, nil
}

func (d *DB) queryLogs(ctx context.Context, query string, args ...any) ([]model.Log, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var logs []model.Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}

	return logs, nil
}

// GetLogsForDate returns the logs already generated for a date, without associations
func (d *DB) GetLogsForDate(ctx context.Context, date time.Time) ([]model.Log, error) {
	return d.queryLogs(ctx, selectLogs+` WHERE l."when" = $1 ORDER BY l.created_at, l.id`, date)
}

// GetIncompleteLogs returns every log not yet marked complete, oldest first,
// with volunteers and absences loaded
func (d *DB) GetIncompleteLogs(ctx context.Context) ([]model.Log, error) {
	logs, err := d.queryLogs(ctx, selectLogs+` WHERE NOT l.complete ORDER BY l."when", l.id`)
	if err != nil {
		return nil, err
	}
	if err := d.loadAssociations(ctx, logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// GetLog returns a log with its volunteers, absences and recipients
func (d *DB) GetLog(ctx context.Context, id string) (*model.Log, error) {
	l, err := scanLog(d.pool.QueryRow(ctx, selectLogs+` WHERE l.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("log %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get log %s: %w", id, err)
	}

	logs := []model.Log{l}
	if err := d.loadAssociations(ctx, logs); err != nil {
		return nil, err
	}
	return &logs[0], nil
}

// loadAssociations fills in volunteers, absences and recipients in place
func (d *DB) loadAssociations(ctx context.Context, logs []model.Log) error {
	if len(logs) == 0 {
		return nil
	}

	ids := make([]string, len(logs))
	index := make(map[string]int, len(logs))
	for i, l := range logs {
		ids[i] = l.ID
		index[l.ID] = i
	}

	rows, err := d.pool.Query(ctx, `
		SELECT lv.log_id, v.id, v.name, v.email, v.sms_email, v.pre_reminders_too, v.sms_too
		FROM log_volunteers lv
		JOIN volunteers v ON v.id = lv.volunteer_id
		WHERE lv.log_id = ANY($1)
		ORDER BY v.name, v.id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query log volunteers: %w", err)
	}
	err = forEachRow(rows, func(row pgx.Rows) error {
		var logID string
		var v model.Volunteer
		if err := row.Scan(&logID, &v.ID, &v.Name, &v.Email, &v.SMSEmail, &v.PreRemindersToo, &v.SMSToo); err != nil {
			return fmt.Errorf("failed to scan log volunteer: %w", err)
		}
		logs[index[logID]].Volunteers = append(logs[index[logID]].Volunteers, v)
		return nil
	})
	if err != nil {
		return err
	}

	rows, err = d.pool.Query(ctx, `
		SELECT la.log_id, a.id, a.volunteer_id, a.start_date, a.stop_date, a.comments
		FROM log_absences la
		JOIN absences a ON a.id = la.absence_id
		WHERE la.log_id = ANY($1)
		ORDER BY a.start_date, a.id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query log absences: %w", err)
	}
	err = forEachRow(rows, func(row pgx.Rows) error {
		var logID string
		var a model.Absence
		if err := row.Scan(&logID, &a.ID, &a.VolunteerID, &a.StartDate, &a.StopDate, &a.Comments); err != nil {
			return fmt.Errorf("failed to scan log absence: %w", err)
		}
		logs[index[logID]].Absences = append(logs[index[logID]].Absences, a)
		return nil
	})
	if err != nil {
		return err
	}

	rows, err = d.pool.Query(ctx, `
		SELECT log_id, recipient_id
		FROM log_recipients
		WHERE log_id = ANY($1)
		ORDER BY position
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query log recipients: %w", err)
	}
	return forEachRow(rows, func(row pgx.Rows) error {
		var logID, recipientID string
		if err := row.Scan(&logID, &recipientID); err != nil {
			return fmt.Errorf("failed to scan log recipient: %w", err)
		}
		logs[index[logID]].RecipientIDs = append(logs[index[logID]].RecipientIDs, recipientID)
		return nil
	})
}

func forEachRow(rows pgx.Rows, fn func(row pgx.Rows) error) error {
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// InsertLog inserts a new log together with its associations
func (d *DB) InsertLog(ctx context.Context, log *model.Log) error {
	err := d.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO logs (id, schedule_chain_id, donor_id, region_id, "when", complete, num_reminders, flag_for_admin)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
		`, log.ID, log.ScheduleChainID, log.DonorID, log.RegionID, log.When, log.Complete, log.NumReminders, log.FlagForAdmin)
		if err != nil {
			return err
		}

		for i, recipientID := range log.RecipientIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO log_recipients (log_id, recipient_id, position)
				VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING
			`, log.ID, recipientID, i); err != nil {
				return err
			}
		}

		return syncLogMembers(ctx, tx, log)
	})
	if err != nil {
		return fmt.Errorf("failed to insert log: %w", err)
	}
	return nil
}

// UpdateLog saves a log's flags and reminder count. Volunteers no longer on
// the log are removed; absences are only ever added.
func (d *DB) UpdateLog(ctx context.Context, log *model.Log) error {
	err := d.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE logs SET complete = $2, num_reminders = $3, flag_for_admin = $4
			WHERE id = $1
		`, log.ID, log.Complete, log.NumReminders, log.FlagForAdmin)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("log %s not found", log.ID)
		}

		volunteerIDs := make([]string, len(log.Volunteers))
		for i, v := range log.Volunteers {
			volunteerIDs[i] = v.ID
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM log_volunteers
			WHERE log_id = $1 AND NOT (volunteer_id = ANY($2))
		`, log.ID, volunteerIDs); err != nil {
			return err
		}

		return syncLogMembers(ctx, tx, log)
	})
	if err != nil {
		return fmt.Errorf("failed to update log %s: %w", log.ID, err)
	}
	return nil
}

func syncLogMembers(ctx context.Context, tx pgx.Tx, log *model.Log) error {
	for _, v := range log.Volunteers {
		if _, err := tx.Exec(ctx, `
			INSERT INTO log_volunteers (log_id, volunteer_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, log.ID, v.ID); err != nil {
			return err
		}
	}
	for _, a := range log.Absences {
		if _, err := tx.Exec(ctx, `
			INSERT INTO log_absences (log_id, absence_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, log.ID, a.ID); err != nil {
			return err
		}
	}
	return nil
}

// CountCompleteLogs counts a region's complete logs strictly between after and before
func (d *DB) CountCompleteLogs(ctx context.Context, regionID string, after, before time.Time) (int, error) {
	var n int
	err := d.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM logs
		WHERE region_id = $1 AND complete AND "when" > $2 AND "when" < $3
	`, regionID, after, before).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count complete logs: %w", err)
	}
	return n, nil
}

// SumLogParts totals weight and count per complete log strictly between after
// and before. Logs without any parts total zero.
func (d *DB) SumLogParts(ctx context.Context, regionID string, after, before time.Time) ([]model.LogTotals, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT l.id, l.flag_for_admin,
		       COALESCE(SUM(p.weight), 0)::float8,
		       COALESCE(SUM(p.count), 0)::float8
		FROM logs l
		LEFT JOIN log_parts p ON p.log_id = l.id
		WHERE l.region_id = $1 AND l.complete AND l."when" > $2 AND l."when" < $3
		GROUP BY l.id, l.flag_for_admin, l."when"
		ORDER BY l."when", l.id
	`, regionID, after, before)
	if err != nil {
		return nil, fmt.Errorf("failed to sum log parts: %w", err)
	}

	totals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LogTotals, error) {
		var t model.LogTotals
		err := row.Scan(&t.LogID, &t.FlagForAdmin, &t.WeightSum, &t.CountSum)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan log totals: %w", err)
	}
	return totals, nil
}
