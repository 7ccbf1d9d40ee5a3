package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/foodrescue/food-robot/pkg/core/model"
)

// GetRegions returns all regions ordered by name
func (d *DB) GetRegions(ctx context.Context) ([]model.Region, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, admin_email
		FROM regions
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query regions: %w", err)
	}

	regions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Region, error) {
		var r model.Region
		err := row.Scan(&r.ID, &r.Name, &r.AdminEmail)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan regions: %w", err)
	}
	return regions, nil
}
