package model

import (
	"fmt"
	"strings"
	"time"
)

// Frequency describes how often a schedule chain runs
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyOneTime   Frequency = "one_time"
	FrequencyIrregular Frequency = "irregular"
)

func (f Frequency) IsValid() bool {
	return f == FrequencyWeekly || f == FrequencyOneTime || f == FrequencyIrregular
}

// Region groups locations and logs for reporting
type Region struct {
	ID         string
	Name       string
	AdminEmail string // Empty string falls back to the configured admin address
}

// Location is a donor, recipient or hub site
type Location struct {
	ID       string
	Name     string
	RegionID string
	Hub      bool
}

// Volunteer represents a pickup volunteer
type Volunteer struct {
	ID              string
	Name            string
	Email           string
	SMSEmail        string // Email-to-SMS gateway address, empty if none
	PreRemindersToo bool
	SMSToo          bool
}

// CanSMS reports whether the volunteer wants and can receive SMS variants
func (v Volunteer) CanSMS() bool {
	return v.SMSToo && v.SMSEmail != ""
}

// Absence is a volunteer's declared unavailability
type Absence struct {
	ID          string
	VolunteerID string
	Volunteer   *Volunteer
	StartDate   time.Time
	StopDate    time.Time
	Comments    string
}

// ScheduleStop is one hop in a schedule chain
type ScheduleStop struct {
	ID           string
	Position     int
	Location     *Location // nil when the stop is unassigned
	IsPickupStop bool
}

// Label renders the stop as D<id> or R<id>, or "" when unassigned
func (s ScheduleStop) Label() string {
	if s.Location == nil {
		return ""
	}
	if s.IsPickupStop {
		return "D" + s.Location.ID
	}
	return "R" + s.Location.ID
}

// ScheduleChain is an ordered route of pickup and drop-off stops
type ScheduleChain struct {
	ID           string
	RegionID     string
	Frequency    Frequency
	DayOfWeek    *time.Weekday
	DetailedDate *time.Time
	Stops        []ScheduleStop
	Volunteers   []Volunteer
}

func (c ScheduleChain) Irregular() bool { return c.Frequency == FrequencyIrregular }
func (c ScheduleChain) OneTime() bool   { return c.Frequency == FrequencyOneTime }
func (c ScheduleChain) Weekly() bool    { return c.Frequency == FrequencyWeekly }

// Functional reports whether the chain is well formed enough to generate logs from
func (c ScheduleChain) Functional() bool {
	if !c.Frequency.IsValid() || len(c.Stops) < 2 {
		return false
	}
	if c.Weekly() && (c.DayOfWeek == nil || *c.DayOfWeek < time.Sunday || *c.DayOfWeek > time.Saturday) {
		return false
	}
	if c.OneTime() && c.DetailedDate == nil {
		return false
	}

	first := c.Stops[0]
	if !first.IsPickupStop || first.Location == nil {
		return false
	}

	last := c.Stops[len(c.Stops)-1]
	if last.Location == nil {
		return false
	}
	if last.Location.Hub {
		return true
	}

	for _, s := range c.Stops {
		if !s.IsPickupStop && s.Location != nil {
			return true
		}
	}
	return false
}

// RunsOn reports whether the chain is due on the given date
func (c ScheduleChain) RunsOn(date time.Time) bool {
	if c.OneTime() && (c.DetailedDate == nil || !SameDay(*c.DetailedDate, date)) {
		return false
	}
	if c.Weekly() && (c.DayOfWeek == nil || *c.DayOfWeek != date.Weekday()) {
		return false
	}
	return true
}

// Path renders the chain as "D1 -> R2", leaving out unassigned stops
func (c ScheduleChain) Path() string {
	labels := make([]string, 0, len(c.Stops))
	for _, s := range c.Stops {
		if l := s.Label(); l != "" {
			labels = append(labels, l)
		}
	}
	return strings.Join(labels, " -> ")
}

// LogKey identifies the single log allowed per chain and location on a day
type LogKey struct {
	ChainID    string
	LocationID string
}

func (k LogKey) String() string {
	return fmt.Sprintf("%s:%s", k.ChainID, k.LocationID)
}

// Log is the record of one stop's pickup on one calendar date
type Log struct {
	ID              string
	ScheduleChainID string
	DonorID         string // Location id of the pickup stop
	DonorName       string
	RegionID        string
	When            time.Time
	Complete        bool
	NumReminders    *int
	FlagForAdmin    bool
	Volunteers      []Volunteer
	Absences        []Absence
	RecipientIDs    []string
}

func (l *Log) Key() LogKey {
	return LogKey{ChainID: l.ScheduleChainID, LocationID: l.DonorID}
}

// Reminders returns the reminder count, treating unset as zero
func (l Log) Reminders() int {
	if l.NumReminders == nil {
		return 0
	}
	return *l.NumReminders
}

// IncrementReminders bumps the reminder counter and returns the new value
func (l *Log) IncrementReminders() int {
	n := l.Reminders() + 1
	l.NumReminders = &n
	return n
}

// RemoveVolunteer drops the volunteer from the log. Removing a volunteer that
// isn't assigned is a no-op.
func (l *Log) RemoveVolunteer(volunteerID string) bool {
	for i, v := range l.Volunteers {
		if v.ID == volunteerID {
			l.Volunteers = append(l.Volunteers[:i:i], l.Volunteers[i+1:]...)
			return true
		}
	}
	return false
}

// AddAbsence appends the absence to the log's history once
func (l *Log) AddAbsence(a Absence) {
	for _, existing := range l.Absences {
		if existing.ID == a.ID {
			return
		}
	}
	l.Absences = append(l.Absences, a)
}

// LogTotals is the grouped sum of a log's weight and count line items
type LogTotals struct {
	LogID        string
	FlagForAdmin bool
	WeightSum    float64
	CountSum     float64
}

// Zero reports whether nothing was recorded against the log
func (t LogTotals) Zero() bool {
	return t.WeightSum == 0 && t.CountSum == 0
}
