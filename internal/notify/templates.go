package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/iliyamo/reeltime/internal/queue"
)

var funcs = template.FuncMap{
	"join":  strings.Join,
	"money": func(cents int64) string { return fmt.Sprintf("%d.%02d", cents/100, cents%100) },
}

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New("subject").Funcs(funcs).Parse(subject)),
		body:    template.Must(template.New("body").Funcs(funcs).Parse(body)),
	}
}

var templates = map[queue.Kind]messageTemplate{
	queue.KindConfirmation: mustTemplate(
		`Reservation Confirmed - {{.MovieTitle}}`,
		`Hello {{.Greeting}},

Your movie reservation has been confirmed!

Reservation Details:
Movie: {{.MovieTitle}}
Cinema: {{.CinemaName}}
Date: {{.Date}}
Showtime: {{.Showtime}}
Number of Seats: {{.NumberOfSeats}}
Seats: {{join .SeatDisplay ", "}}
Total: {{money .TotalCostCents}}
Reservation Code: {{.Code}}

Show the attached QR code at the entrance.

Thank you for choosing ReelTime!
`),
	queue.KindReminder: mustTemplate(
		`Movie Reminder - {{.MovieTitle}} tomorrow!`,
		`Hello {{.Greeting}},

This is a friendly reminder about your movie reservation tomorrow!

Your Reservation:
Movie: {{.MovieTitle}}
Cinema: {{.CinemaName}}
Date: {{.Date}}
Showtime: {{.Showtime}}
Seats: {{join .SeatDisplay ", "}}

Please arrive at least 15 minutes before the showtime.

Enjoy your movie!
`),
	queue.KindCancellation: mustTemplate(
		`Reservation Cancelled - {{.MovieTitle}}`,
		`Hello {{.Greeting}},

Your movie reservation has been cancelled.

Cancelled Reservation:
Movie: {{.MovieTitle}}
Cinema: {{.CinemaName}}
Date: {{.Date}}
Showtime: {{.Showtime}}
Seats: {{join .SeatDisplay ", "}}

We hope to see you again soon.
`),
}

type view struct {
	queue.NotificationEvent
	Greeting    string
	SeatDisplay []string
}

// Render builds the subject and body for ev.
func Render(ev queue.NotificationEvent) (subject, body string, err error) {
	t, ok := templates[ev.Kind]
	if !ok {
		return "", "", fmt.Errorf("%w: unknown kind %q", queue.ErrMalformed, ev.Kind)
	}
	v := view{NotificationEvent: ev, Greeting: ev.Name, SeatDisplay: ev.SeatLabels}
	if v.Greeting == "" {
		v.Greeting = ev.Email
	}
	if len(v.SeatDisplay) == 0 {
		v.SeatDisplay = ev.Seats
	}
	var sb, bb bytes.Buffer
	if err := t.subject.Execute(&sb, v); err != nil {
		return "", "", err
	}
	if err := t.body.Execute(&bb, v); err != nil {
		return "", "", err
	}
	return sb.String(), bb.String(), nil
}
