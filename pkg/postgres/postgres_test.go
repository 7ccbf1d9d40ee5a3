package postgres

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrescue/food-robot/pkg/core/model"
	"github.com/foodrescue/food-robot/pkg/db"
)

var _ db.Database = (*DB)(nil)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_log_parts.sql": {Data: []byte("SELECT 2")},
		"migrations/001_init.sql":      {Data: []byte("SELECT 1")},
		"migrations/003_regions.sql":   {Data: []byte("SELECT 3")},
		"migrations/README.md":         {Data: []byte("notes")},
	}

	pending, err := pendingMigrations(fsys, map[string]bool{"001_init.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_log_parts.sql", "003_regions.sql"}, pending)

	pending, err = pendingMigrations(fsys, map[string]bool{})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_log_parts.sql", "003_regions.sql"}, pending)
}

func TestPendingMigrations_Embedded(t *testing.T) {
	pending, err := pendingMigrations(migrationsFS, nil)
	require.NoError(t, err)
	assert.Contains(t, pending, "001_init.sql")
}

func TestAssembleChains(t *testing.T) {
	str := func(s string) *string { return &s }
	hub := true
	monday := time.Monday

	chains := []model.ScheduleChain{
		{ID: "c1", Frequency: model.FrequencyWeekly, DayOfWeek: &monday},
		{ID: "c2", Frequency: model.FrequencyIrregular},
	}
	stops := []stopRow{
		{ChainID: "c1", StopID: "s1", Position: 0, IsPickupStop: true, LocationID: str("loc-1"), LocationName: str("Bakery"), RegionID: str("r1")},
		{ChainID: "c1", StopID: "s2", Position: 1, IsPickupStop: false},
		{ChainID: "c1", StopID: "s3", Position: 2, IsPickupStop: false, LocationID: str("hub-1"), LocationName: str("Warehouse"), RegionID: str("r1"), Hub: &hub},
		{ChainID: "missing", StopID: "s9", Position: 0},
	}
	volunteers := []chainVolunteerRow{
		{ChainID: "c2", Volunteer: model.Volunteer{ID: "v1", Name: "Ada"}},
	}

	assembleChains(chains, stops, volunteers)

	require.Len(t, chains[0].Stops, 3)
	assert.Equal(t, &model.Location{ID: "loc-1", Name: "Bakery", RegionID: "r1"}, chains[0].Stops[0].Location)
	assert.Nil(t, chains[0].Stops[1].Location)
	assert.True(t, chains[0].Stops[2].Location.Hub)
	assert.Equal(t, "Dloc-1 -> Rhub-1", chains[0].Path())
	assert.Empty(t, chains[0].Volunteers)

	assert.Empty(t, chains[1].Stops)
	assert.Equal(t, []model.Volunteer{{ID: "v1", Name: "Ada"}}, chains[1].Volunteers)
}
