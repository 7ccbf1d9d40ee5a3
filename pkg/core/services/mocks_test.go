package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/foodrescue/food-robot/pkg/core/model"
	"github.com/foodrescue/food-robot/pkg/notifier"
)

type logPart struct {
	weight float64
	count  float64
}

// memStore is an in-memory implementation of every service store
type memStore struct {
	logs     map[string]*model.Log
	logOrder []string
	parts    map[string][]logPart
	chains   []model.ScheduleChain
	absences map[string]*model.Absence
	regions  []model.Region

	inserts int
	updates int

	getLogsForDateErr error
	insertErr         error
	updateErr         error
}

func newMemStore() *memStore {
	return &memStore{
		logs:     make(map[string]*model.Log),
		parts:    make(map[string][]logPart),
		absences: make(map[string]*model.Absence),
	}
}

func cloneLog(l *model.Log) *model.Log {
	c := *l
	if l.NumReminders != nil {
		n := *l.NumReminders
		c.NumReminders = &n
	}
	c.Volunteers = slices.Clone(l.Volunteers)
	c.Absences = slices.Clone(l.Absences)
	c.RecipientIDs = slices.Clone(l.RecipientIDs)
	return &c
}

// addLog seeds a log directly, bypassing InsertLog accounting
func (s *memStore) addLog(l model.Log, parts ...logPart) {
	s.logs[l.ID] = cloneLog(&l)
	s.logOrder = append(s.logOrder, l.ID)
	if len(parts) > 0 {
		s.parts[l.ID] = parts
	}
}

func (s *memStore) allLogs() []model.Log {
	out := make([]model.Log, 0, len(s.logOrder))
	for _, id := range s.logOrder {
		out = append(out, *cloneLog(s.logs[id]))
	}
	return out
}

func (s *memStore) GetLogsForDate(ctx context.Context, date time.Time) ([]model.Log, error) {
	if s.getLogsForDateErr != nil {
		return nil, s.getLogsForDateErr
	}
	var out []model.Log
	for _, l := range s.allLogs() {
		if model.SameDay(l.When, date) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memStore) GetRegularScheduleChains(ctx context.Context) ([]model.ScheduleChain, error) {
	var out []model.ScheduleChain
	for _, c := range s.chains {
		if !c.Irregular() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) GetVolunteerScheduleChains(ctx context.Context, volunteerID string) ([]model.ScheduleChain, error) {
	var out []model.ScheduleChain
	for _, c := range s.chains {
		for _, v := range c.Volunteers {
			if v.ID == volunteerID {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) InsertLog(ctx context.Context, log *model.Log) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.logs[log.ID]; ok {
		return fmt.Errorf("duplicate log id %s", log.ID)
	}
	s.inserts++
	s.logs[log.ID] = cloneLog(log)
	s.logOrder = append(s.logOrder, log.ID)
	return nil
}

func (s *memStore) GetLog(ctx context.Context, id string) (*model.Log, error) {
	l, ok := s.logs[id]
	if !ok {
		return nil, fmt.Errorf("log %s not found", id)
	}
	return cloneLog(l), nil
}

func (s *memStore) UpdateLog(ctx context.Context, log *model.Log) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.logs[log.ID]; !ok {
		return fmt.Errorf("log %s not found", log.ID)
	}
	s.updates++
	s.logs[log.ID] = cloneLog(log)
	return nil
}

func (s *memStore) GetAbsence(ctx context.Context, id string) (*model.Absence, error) {
	a, ok := s.absences[id]
	if !ok {
		return nil, fmt.Errorf("absence %s not found", id)
	}
	c := *a
	return &c, nil
}

func (s *memStore) GetIncompleteLogs(ctx context.Context) ([]model.Log, error) {
	var out []model.Log
	for _, l := range s.allLogs() {
		if !l.Complete {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memStore) GetRegions(ctx context.Context) ([]model.Region, error) {
	return s.regions, nil
}

func (s *memStore) completeLogsBetween(regionID string, after, before time.Time) []model.Log {
	var out []model.Log
	for _, l := range s.allLogs() {
		if l.RegionID == regionID && l.Complete && l.When.After(after) && l.When.Before(before) {
			out = append(out, l)
		}
	}
	return out
}

func (s *memStore) CountCompleteLogs(ctx context.Context, regionID string, after, before time.Time) (int, error) {
	return len(s.completeLogsBetween(regionID, after, before)), nil
}

func (s *memStore) SumLogParts(ctx context.Context, regionID string, after, before time.Time) ([]model.LogTotals, error) {
	var out []model.LogTotals
	for _, l := range s.completeLogsBetween(regionID, after, before) {
		t := model.LogTotals{LogID: l.ID, FlagForAdmin: l.FlagForAdmin}
		for _, p := range s.parts[l.ID] {
			t.WeightSum += p.weight
			t.CountSum += p.count
		}
		out = append(out, t)
	}
	return out, nil
}

// recordingSender implements notifier.Sender for testing
type recordingSender struct {
	sent []*notifier.Message
	err  error
}

func (r *recordingSender) Send(ctx context.Context, m *notifier.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, m)
	return nil
}

func (r *recordingSender) ofKind(kind notifier.Kind) []*notifier.Message {
	var out []*notifier.Message
	for _, m := range r.sent {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Fixture helpers

func location(id string) *model.Location {
	return &model.Location{ID: id, Name: "Location " + id, RegionID: "boulder"}
}

func hub(id string) *model.Location {
	l := location(id)
	l.Hub = true
	return l
}

func pickup(loc *model.Location) model.ScheduleStop {
	return model.ScheduleStop{IsPickupStop: true, Location: loc}
}

func drop(loc *model.Location) model.ScheduleStop {
	return model.ScheduleStop{Location: loc}
}

func weeklyChain(id string, day time.Weekday, volunteers []model.Volunteer, stops ...model.ScheduleStop) model.ScheduleChain {
	for i := range stops {
		stops[i].ID = fmt.Sprintf("%s-stop-%d", id, i)
		stops[i].Position = i
	}
	return model.ScheduleChain{
		ID:         id,
		RegionID:   "boulder",
		Frequency:  model.FrequencyWeekly,
		DayOfWeek:  &day,
		Stops:      stops,
		Volunteers: volunteers,
	}
}

func volunteer(id, name string) model.Volunteer {
	return model.Volunteer{ID: id, Name: name, Email: id + "@example.com"}
}

func reminders(n int) *int {
	return &n
}

func newTestNotifier() *notifier.Notifier {
	n, err := notifier.New(notifier.Options{BaseURL: "https://robot.example.com", AdminEmail: "admin@example.com"}, nil)
	if err != nil {
		panic(err)
	}
	return n
}
