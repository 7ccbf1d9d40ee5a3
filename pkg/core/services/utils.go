package services

import (
	"github.com/foodrescue/food-robot/pkg/core/model"
)

// volunteerBatch is one volunteer's logs for a single message
type volunteerBatch struct {
	Volunteer model.Volunteer
	Logs      []model.Log
}

// volunteerBatches groups logs by volunteer, keeping first-seen order
type volunteerBatches struct {
	order   []string
	batches map[string]*volunteerBatch
}

func newVolunteerBatches() *volunteerBatches {
	return &volunteerBatches{batches: make(map[string]*volunteerBatch)}
}

func (b *volunteerBatches) add(v model.Volunteer, log model.Log) {
	batch, ok := b.batches[v.ID]
	if !ok {
		batch = &volunteerBatch{Volunteer: v}
		b.batches[v.ID] = batch
		b.order = append(b.order, v.ID)
	}
	batch.Logs = append(batch.Logs, log)
}

func (b *volunteerBatches) list() []volunteerBatch {
	out := make([]volunteerBatch, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.batches[id])
	}
	return out
}

// regionLogs groups logs by region id, keeping first-seen order
type regionLogs struct {
	order []string
	logs  map[string][]model.Log
}

func newRegionLogs() *regionLogs {
	return &regionLogs{logs: make(map[string][]model.Log)}
}

func (r *regionLogs) add(log model.Log) {
	if _, ok := r.logs[log.RegionID]; !ok {
		r.order = append(r.order, log.RegionID)
	}
	r.logs[log.RegionID] = append(r.logs[log.RegionID], log)
}

func (r *regionLogs) empty() bool {
	return len(r.order) == 0
}

// regionsByID indexes regions, falling back to a bare region for unknown ids
func regionsByID(regions []model.Region) func(id string) model.Region {
	byID := make(map[string]model.Region, len(regions))
	for _, r := range regions {
		byID[r.ID] = r
	}
	return func(id string) model.Region {
		if r, ok := byID[id]; ok {
			return r
		}
		return model.Region{ID: id, Name: id}
	}
}
