package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/foodrescue/food-robot/pkg/core/model"
)

// GetAbsence returns an absence with its volunteer
func (d *DB) GetAbsence(ctx context.Context, id string) (*model.Absence, error) {
	var a model.Absence
	var v model.Volunteer
	err := d.pool.QueryRow(ctx, `
		SELECT a.id, a.volunteer_id, a.start_date, a.stop_date, a.comments,
		       v.id, v.name, v.email, v.sms_email, v.pre_reminders_too, v.sms_too
		FROM absences a
		JOIN volunteers v ON v.id = a.volunteer_id
		WHERE a.id = $1
	`, id).Scan(&a.ID, &a.VolunteerID, &a.StartDate, &a.StopDate, &a.Comments,
		&v.ID, &v.Name, &v.Email, &v.SMSEmail, &v.PreRemindersToo, &v.SMSToo)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("absence %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get absence %s: %w", id, err)
	}

	a.StartDate = a.StartDate.UTC()
	a.StopDate = a.StopDate.UTC()
	a.Volunteer = &v
	return &a, nil
}
