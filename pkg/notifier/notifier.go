package notifier

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/foodrescue/food-robot/pkg/core/model"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Options configures how messages are addressed and linked
type Options struct {
	BaseURL    string // Prefix for log links, e.g. https://robot.example.com
	AdminEmail string // Used for regions without their own admin address
}

// WeeklySummary is the payload of the admin weekly summary
type WeeklySummary struct {
	Region        model.Region
	Pounds        float64
	Flagged       []model.Log
	Biggest       model.Log
	BiggestPounds float64
	NumLogs       int
	NumEntered    int
	ZeroLogs      []model.Log
}

// Notifier renders the robot's notification kinds into messages
type Notifier struct {
	opts      Options
	mailer    Mailer
	templates *template.Template
}

// New parses the embedded templates. mailer may be nil when only printing.
func New(opts Options, mailer Mailer) (*Notifier, error) {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	funcs := template.FuncMap{
		"date": func(t time.Time) string { return t.Format("Mon Jan 2") },
		"pounds": func(f float64) string {
			return fmt.Sprintf("%.1f", f)
		},
		"logURL": func(l model.Log) string {
			return fmt.Sprintf("%s/logs/%s/edit", opts.BaseURL, l.ID)
		},
		"names": func(vs []model.Volunteer) string {
			names := make([]string, len(vs))
			for i, v := range vs {
				names[i] = v.Name
			}
			return strings.Join(names, ", ")
		},
	}

	tmpl, err := template.New("notifier").Funcs(funcs).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification templates: %w", err)
	}

	return &Notifier{opts: opts, mailer: mailer, templates: tmpl}, nil
}

type volunteerPayload struct {
	Volunteer model.Volunteer
	Logs      []model.Log
}

type regionPayload struct {
	Region model.Region
	Logs   []model.Log
}

// VolunteerLogReminder asks a volunteer to enter data for overdue pickups
func (n *Notifier) VolunteerLogReminder(v model.Volunteer, logs []model.Log) (*Message, error) {
	subject := fmt.Sprintf("[Food Robot] Please enter data for %s", plural(len(logs), "pickup"))
	return n.render(KindVolunteerLogReminder, []string{v.Email}, subject, volunteerPayload{v, logs})
}

// VolunteerLogSMSReminder is the short form of VolunteerLogReminder sent to the SMS gateway
func (n *Notifier) VolunteerLogSMSReminder(v model.Volunteer, logs []model.Log) (*Message, error) {
	return n.render(KindVolunteerLogSMSReminder, []string{v.SMSEmail}, "Food Robot", volunteerPayload{v, logs})
}

// VolunteerLogPreReminder reminds a volunteer of tomorrow's pickups
func (n *Notifier) VolunteerLogPreReminder(v model.Volunteer, logs []model.Log) (*Message, error) {
	subject := fmt.Sprintf("[Food Robot] Reminder: %s tomorrow", plural(len(logs), "pickup"))
	return n.render(KindVolunteerLogPreReminder, []string{v.Email}, subject, volunteerPayload{v, logs})
}

// VolunteerLogSMSPreReminder is the short form of VolunteerLogPreReminder
func (n *Notifier) VolunteerLogSMSPreReminder(v model.Volunteer, logs []model.Log) (*Message, error) {
	return n.render(KindVolunteerLogSMSPreReminder, []string{v.SMSEmail}, "Food Robot", volunteerPayload{v, logs})
}

// AdminShortTermCoverSummary tells a region's admin about pickups in the next
// two days that nobody is scheduled for
func (n *Notifier) AdminShortTermCoverSummary(r model.Region, logs []model.Log) (*Message, error) {
	subject := fmt.Sprintf("[Food Robot] %s: %s need cover", r.Name, plural(len(logs), "pickup"))
	return n.render(KindAdminShortTermCoverSummary, n.adminTo(r), subject, regionPayload{r, logs})
}

// AdminReminderSummary lists a region's chronically overdue logs
func (n *Notifier) AdminReminderSummary(r model.Region, logs []model.Log) (*Message, error) {
	subject := fmt.Sprintf("[Food Robot] %s: %s still not entered", r.Name, plural(len(logs), "log"))
	return n.render(KindAdminReminderSummary, n.adminTo(r), subject, regionPayload{r, logs})
}

// AdminWeeklySummary reports a region's last week of pickups
func (n *Notifier) AdminWeeklySummary(s WeeklySummary) (*Message, error) {
	subject := fmt.Sprintf("[Food Robot] %s weekly summary: %s lbs", s.Region.Name, fmt.Sprintf("%.1f", s.Pounds))
	return n.render(KindAdminWeeklySummary, n.adminTo(s.Region), subject, s)
}

func (n *Notifier) adminTo(r model.Region) []string {
	if r.AdminEmail != "" {
		return []string{r.AdminEmail}
	}
	return []string{n.opts.AdminEmail}
}

func (n *Notifier) render(kind Kind, to []string, subject string, data interface{}) (*Message, error) {
	var body bytes.Buffer
	if err := n.templates.ExecuteTemplate(&body, string(kind)+".tmpl", data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", kind, err)
	}

	return &Message{
		Kind:    kind,
		To:      to,
		Subject: subject,
		Body:    body.String(),
		mailer:  n.mailer,
	}, nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
