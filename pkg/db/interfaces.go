package db

import (
	"context"
	"time"

	"github.com/foodrescue/food-robot/pkg/core/model"
)

// LogStore defines the log operations shared by every batch job
type LogStore interface {
	GetLog(ctx context.Context, id string) (*model.Log, error)
	UpdateLog(ctx context.Context, log *model.Log) error
}

// Database defines the interface for all database operations.
// postgres.DB implements it; each service declares the subset it uses.
type Database interface {
	LogStore

	// Generation
	GetLogsForDate(ctx context.Context, date time.Time) ([]model.Log, error)
	GetRegularScheduleChains(ctx context.Context) ([]model.ScheduleChain, error)
	GetVolunteerScheduleChains(ctx context.Context, volunteerID string) ([]model.ScheduleChain, error)
	InsertLog(ctx context.Context, log *model.Log) error
	GetAbsence(ctx context.Context, id string) (*model.Absence, error)

	// Reminders
	GetIncompleteLogs(ctx context.Context) ([]model.Log, error)
	GetRegions(ctx context.Context) ([]model.Region, error)

	// Weekly summary, both bounds exclusive
	CountCompleteLogs(ctx context.Context, regionID string, after, before time.Time) (int, error)
	SumLogParts(ctx context.Context, regionID string, after, before time.Time) ([]model.LogTotals, error)

	RunMigrations(ctx context.Context) error
	Close()
}
