// Package notify renders reservation notifications and sends them by email.
package notify

import (
	"context"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/iliyamo/reeltime/internal/queue"
)

// SentMarker records that a message went out, so reminders are not sent
// twice by the daily job.
type SentMarker interface {
	MarkConfirmationSent(ctx context.Context, id uint64) error
	MarkReminderSent(ctx context.Context, id uint64) error
}

// Dispatcher is the queue.Handler that turns events into emails.
type Dispatcher struct {
	mailer Mailer
	marker SentMarker
	log    *zap.Logger
}

func NewDispatcher(m Mailer, marker SentMarker, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{mailer: m, marker: marker, log: log}
}

func (d *Dispatcher) Handle(ctx context.Context, ev queue.NotificationEvent) error {
	if ev.Email == "" {
		return fmt.Errorf("%w: no recipient", queue.ErrMalformed)
	}
	subject, body, err := Render(ev)
	if err != nil {
		return err
	}
	msg := Message{To: ev.Email, Subject: subject, Body: body}
	if ev.Kind == queue.KindConfirmation && ev.Code != "" {
		png, err := qrcode.Encode(ev.Code, qrcode.Medium, 256)
		if err != nil {
			d.log.Warn("qr code generation failed", zap.Uint64("reservation_id", ev.ReservationID), zap.Error(err))
		} else {
			msg.Attachments = append(msg.Attachments, Attachment{Name: "reservation-" + ev.Code + ".png", Data: png})
		}
	}

	if err := d.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", ev.Kind, err)
	}

	// A failed mark only means a possible duplicate later, never a lost mail.
	switch ev.Kind {
	case queue.KindConfirmation:
		err = d.marker.MarkConfirmationSent(ctx, ev.ReservationID)
	case queue.KindReminder:
		err = d.marker.MarkReminderSent(ctx, ev.ReservationID)
	}
	if err != nil {
		d.log.Warn("could not record sent notification", zap.String("kind", string(ev.Kind)), zap.Uint64("reservation_id", ev.ReservationID), zap.Error(err))
	}
	d.log.Info("notification sent", zap.String("kind", string(ev.Kind)), zap.Uint64("reservation_id", ev.ReservationID))
	return nil
}
