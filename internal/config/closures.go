package config

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// closureEpoch anchors closure rules that don't carry their own DTSTART
var closureEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

type closureRule struct {
	rule   *rrule.RRule
	reason string
}

func parseClosures(closures []Closure) ([]closureRule, error) {
	rules := make([]closureRule, 0, len(closures))
	for i, c := range closures {
		opt, err := rrule.StrToROption(c.RRule)
		if err != nil {
			return nil, fmt.Errorf("invalid rrule in closures[%d]: %w", i, err)
		}
		if opt.Dtstart.IsZero() {
			opt.Dtstart = closureEpoch
		}
		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil, fmt.Errorf("invalid rrule in closures[%d]: %w", i, err)
		}
		rules = append(rules, closureRule{rule: r, reason: c.Reason})
	}
	return rules, nil
}

// ClosedOn reports whether a configured closure falls on the given calendar
// day, and the closure's reason
func (c *Config) ClosedOn(date time.Time) (string, bool) {
	if c == nil {
		return "", false
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)
	for _, cr := range c.closures {
		if len(cr.rule.Between(start, end, true)) > 0 {
			reason := cr.reason
			if reason == "" {
				reason = "closed"
			}
			return reason, true
		}
	}
	return "", false
}
