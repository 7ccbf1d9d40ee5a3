package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foodrescue/food-robot/internal/config"
	"github.com/foodrescue/food-robot/pkg/core/model"
)

var monday = model.Date(2024, 3, 4)

func donorIDs(logs []model.Log) []string {
	ids := make([]string, len(logs))
	for i, l := range logs {
		ids[i] = l.DonorID
	}
	return ids
}

func TestGenerateLogs_DedupsByChainAndLocation(t *testing.T) {
	store := newMemStore()
	ada := volunteer("vol-ada", "Ada")
	// D1 -> D2 -> R1 -> D3 -> R2
	store.chains = []model.ScheduleChain{
		weeklyChain("chain-1", time.Monday, []model.Volunteer{ada},
			pickup(location("d1")), pickup(location("d2")), drop(location("r1")), pickup(location("d3")), drop(location("r2"))),
	}

	result, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 0, result.Skipped)

	logs := store.allLogs()
	require.Len(t, logs, 3)
	assert.Equal(t, []string{"d1", "d2", "d3"}, donorIDs(logs))

	assert.Equal(t, []string{"r1", "r2"}, logs[0].RecipientIDs)
	assert.Equal(t, []string{"r1", "r2"}, logs[1].RecipientIDs)
	assert.Equal(t, []string{"r2"}, logs[2].RecipientIDs)

	for _, l := range logs {
		assert.Equal(t, "chain-1", l.ScheduleChainID)
		assert.Equal(t, "boulder", l.RegionID)
		assert.Equal(t, monday, l.When)
		assert.False(t, l.Complete)
		assert.Nil(t, l.NumReminders)
		assert.Equal(t, []model.Volunteer{ada}, l.Volunteers)
		assert.Empty(t, l.Absences)
	}
}

func TestGenerateLogs_AllDonorsToOneRecipient(t *testing.T) {
	store := newMemStore()
	// D1 -> D2 -> D3 -> D4 -> R1
	store.chains = []model.ScheduleChain{
		weeklyChain("chain-1", time.Monday, nil,
			pickup(location("d1")), pickup(location("d2")), pickup(location("d3")), pickup(location("d4")), drop(location("r1"))),
	}

	result, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Created)
	for _, l := range store.allLogs() {
		assert.Equal(t, []string{"r1"}, l.RecipientIDs)
	}
}

func TestGenerateLogs_IsIdempotent(t *testing.T) {
	store := newMemStore()
	store.chains = []model.ScheduleChain{
		weeklyChain("chain-1", time.Monday, []model.Volunteer{volunteer("vol-ada", "Ada")},
			pickup(location("d1")), pickup(location("d2")), drop(location("r1")), pickup(location("d3")), drop(location("r2"))),
		weeklyChain("chain-2", time.Monday, nil,
			pickup(location("d1")), drop(location("r3"))),
	}

	first, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Created)
	before := store.allLogs()

	second, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 4, second.Skipped)
	assert.Equal(t, before, store.allLogs())
	assert.Equal(t, 0, store.updates)
}

func TestGenerateLogs_SameLocationTwiceInChain(t *testing.T) {
	store := newMemStore()
	d1 := location("d1")
	store.chains = []model.ScheduleChain{
		weeklyChain("chain-1", time.Monday, nil, pickup(d1), pickup(location("d2")), pickup(d1), drop(location("r1"))),
	}

	result, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []string{"d1", "d2"}, donorIDs(store.allLogs()))
}

func TestGenerateLogs_HubTerminalExclusion(t *testing.T) {
	store := newMemStore()
	store.chains = []model.ScheduleChain{
		// The warehouse ends the chain, so it's a recipient only
		weeklyChain("chain-1", time.Monday, nil, pickup(location("d1")), pickup(hub("warehouse"))),
	}

	result, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	logs := store.allLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "d1", logs[0].DonorID)
	assert.Equal(t, []string{"warehouse"}, logs[0].RecipientIDs)
}

func TestGenerateLogs_HubMidChainIsDonor(t *testing.T) {
	store := newMemStore()
	store.chains = []model.ScheduleChain{
		weeklyChain("chain-1", time.Monday, nil, pickup(location("d1")), pickup(hub("warehouse")), drop(location("r1"))),
	}

	result, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, []string{"d1", "warehouse"}, donorIDs(store.allLogs()))
}

func TestGenerateLogs_SkipsChainsNotDueOrMalformed(t *testing.T) {
	store := newMemStore()
	wrongDate := model.Date(2024, 3, 5)
	rightDate := monday

	oneTimeOther := weeklyChain("one-time-other", time.Monday, nil, pickup(location("d2")), drop(location("r1")))
	oneTimeOther.Frequency = model.FrequencyOneTime
	oneTimeOther.DetailedDate = &wrongDate

	oneTimeToday := weeklyChain("one-time-today", time.Monday, nil, pickup(location("d3")), drop(location("r1")))
	oneTimeToday.Frequency = model.FrequencyOneTime
	oneTimeToday.DetailedDate = &rightDate

	irregular := weeklyChain("irregular", time.Monday, nil, pickup(location("d4")), drop(location("r1")))
	irregular.Frequency = model.FrequencyIrregular

	store.chains = []model.ScheduleChain{
		weeklyChain("tuesday", time.Tuesday, nil, pickup(location("d1")), drop(location("r1"))),
		oneTimeOther,
		oneTimeToday,
		irregular,
		weeklyChain("single-stop", time.Monday, nil, pickup(location("d5"))),
		weeklyChain("unassigned-donor", time.Monday, nil, pickup(nil), drop(location("r1"))),
		weeklyChain("no-recipient", time.Monday, nil, pickup(location("d6")), pickup(location("d7"))),
	}

	result, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, []string{"d3"}, donorIDs(store.allLogs()))
}

func TestGenerateLogs_SkipsUnassignedStops(t *testing.T) {
	store := newMemStore()
	store.chains = []model.ScheduleChain{
		weeklyChain("chain-1", time.Monday, nil, pickup(location("d1")), pickup(nil), drop(location("r1"))),
	}

	result, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}

func TestGenerateLogs_AbsenceReroutesExistingLog(t *testing.T) {
	store := newMemStore()
	ada := volunteer("vol-ada", "Ada")
	bo := volunteer("vol-bo", "Bo")
	store.chains = []model.ScheduleChain{
		weeklyChain("chain-1", time.Monday, []model.Volunteer{ada, bo}, pickup(location("d1")), drop(location("r1"))),
	}

	_, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, nil)
	require.NoError(t, err)
	original := store.allLogs()
	require.Len(t, original, 1)

	absence := &model.Absence{ID: "abs-1", VolunteerID: ada.ID, Volunteer: &ada, StartDate: monday, StopDate: monday}
	result, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, absence)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Skipped)

	logs := store.allLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, original[0].ID, logs[0].ID)
	assert.Equal(t, []model.Volunteer{bo}, logs[0].Volunteers)
	require.Len(t, logs[0].Absences, 1)
	assert.Equal(t, "abs-1", logs[0].Absences[0].ID)

	// Rerunning the same absence keeps a single absence record
	_, err = GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, absence)
	require.NoError(t, err)
	logs = store.allLogs()
	assert.Len(t, logs[0].Absences, 1)
	assert.Equal(t, []model.Volunteer{bo}, logs[0].Volunteers)
}

func TestGenerateLogs_AbsenceOnlyTouchesVolunteersChains(t *testing.T) {
	store := newMemStore()
	ada := volunteer("vol-ada", "Ada")
	bo := volunteer("vol-bo", "Bo")
	store.chains = []model.ScheduleChain{
		weeklyChain("ada-chain", time.Monday, []model.Volunteer{ada, bo}, pickup(location("d1")), drop(location("r1"))),
		weeklyChain("bo-chain", time.Monday, []model.Volunteer{bo}, pickup(location("d2")), drop(location("r1"))),
	}

	absence := &model.Absence{ID: "abs-1", VolunteerID: ada.ID, Volunteer: &ada}
	result, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, absence)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	logs := store.allLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "d1", logs[0].DonorID)
	assert.Equal(t, []model.Volunteer{bo}, logs[0].Volunteers)
	require.Len(t, logs[0].Absences, 1)
	assert.Equal(t, "abs-1", logs[0].Absences[0].ID)
}

func TestGenerateLogs_Closure(t *testing.T) {
	cfg := &config.Config{
		TimeZone:    "UTC",
		DatabaseURL: "postgres://robot@localhost/food_robot",
		GmailUserID: "robot@example.com",
		AdminEmail:  "admin@example.com",
		BaseURL:     "https://robot.example.com",
		Closures:    []config.Closure{{RRule: "FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=4", Reason: "Inventory day"}},
	}
	require.NoError(t, config.Validate(cfg))

	store := newMemStore()
	store.chains = []model.ScheduleChain{
		weeklyChain("chain-1", time.Monday, nil, pickup(location("d1")), drop(location("r1"))),
	}

	result, err := GenerateLogs(context.Background(), store, cfg, zap.NewNop(), monday, nil)
	require.NoError(t, err)
	assert.Equal(t, &GenerateResult{}, result)
	assert.Empty(t, store.allLogs())

	nextMonday := monday.AddDate(0, 0, 7)
	result, err = GenerateLogs(context.Background(), store, cfg, zap.NewNop(), nextMonday, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}

func TestGenerateLogs_StoreErrors(t *testing.T) {
	chain := weeklyChain("chain-1", time.Monday, nil, pickup(location("d1")), pickup(location("d2")), drop(location("r1")))

	t.Run("fetching existing logs", func(t *testing.T) {
		store := newMemStore()
		store.getLogsForDateErr = fmt.Errorf("connection refused")

		_, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch logs for 2024-03-04")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("inserting a log", func(t *testing.T) {
		store := newMemStore()
		store.chains = []model.ScheduleChain{chain}
		store.insertErr = fmt.Errorf("disk full")

		_, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert log for chain-1:d1")
	})
}

func TestGenerateLogs_NormalizesDate(t *testing.T) {
	store := newMemStore()
	store.chains = []model.ScheduleChain{
		weeklyChain("chain-1", time.Monday, nil, pickup(location("d1")), drop(location("r1"))),
	}

	_, err := GenerateLogs(context.Background(), store, nil, zap.NewNop(), monday.Add(15*time.Hour), nil)
	require.NoError(t, err)

	logs := store.allLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, monday, logs[0].When)
}

func TestCoverAbsence_GeneratesRemainingDays(t *testing.T) {
	store := newMemStore()
	ada := volunteer("vol-ada", "Ada")
	bo := volunteer("vol-bo", "Bo")
	store.chains = []model.ScheduleChain{
		weeklyChain("chain-1", time.Monday, []model.Volunteer{ada, bo}, pickup(location("d1")), drop(location("r1"))),
	}
	store.absences["abs-1"] = &model.Absence{
		ID:          "abs-1",
		VolunteerID: ada.ID,
		Volunteer:   &ada,
		StartDate:   model.Date(2024, 2, 26),
		StopDate:    model.Date(2024, 3, 11),
	}

	// The 26th has passed, so only the 4th and 11th are covered
	result, err := CoverAbsence(context.Background(), store, nil, zap.NewNop(), "abs-1", monday)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Skipped)

	logs := store.allLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, monday, logs[0].When)
	assert.Equal(t, model.Date(2024, 3, 11), logs[1].When)
	for _, l := range logs {
		assert.Equal(t, []model.Volunteer{bo}, l.Volunteers)
		require.Len(t, l.Absences, 1)
	}
}

func TestCoverAbsence_FutureStart(t *testing.T) {
	store := newMemStore()
	ada := volunteer("vol-ada", "Ada")
	store.chains = []model.ScheduleChain{
		weeklyChain("chain-1", time.Monday, []model.Volunteer{ada}, pickup(location("d1")), drop(location("r1"))),
	}
	store.absences["abs-1"] = &model.Absence{
		ID:          "abs-1",
		VolunteerID: ada.ID,
		StartDate:   model.Date(2024, 3, 12),
		StopDate:    model.Date(2024, 3, 18),
	}

	result, err := CoverAbsence(context.Background(), store, nil, zap.NewNop(), "abs-1", monday)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, model.Date(2024, 3, 18), store.allLogs()[0].When)
}

func TestCoverAbsence_NotFound(t *testing.T) {
	_, err := CoverAbsence(context.Background(), newMemStore(), nil, zap.NewNop(), "missing", monday)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absence missing not found")
}
