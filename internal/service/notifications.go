package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/reeltime/internal/model"
	"github.com/iliyamo/reeltime/internal/queue"
)

const publishTimeout = 5 * time.Second

// EventFor builds the self-contained notification payload for a reservation.
func EventFor(kind queue.Kind, v model.ReservationView, at time.Time) queue.NotificationEvent {
	return queue.NotificationEvent{
		Kind:           kind,
		ReservationID:  v.ID,
		Code:           v.Code,
		UserID:         v.UserID,
		Email:          v.UserEmail,
		Name:           v.UserName,
		MovieTitle:     v.MovieTitle,
		CinemaName:     v.CinemaName,
		Date:           v.SelectedDate.Format("2006-01-02"),
		Showtime:       v.SelectedShowtime,
		Seats:          []string(v.Seats),
		SeatLabels:     v.SeatLabels,
		NumberOfSeats:  v.NumberOfSeats,
		TotalCostCents: v.TotalCostCents,
		OccurredAt:     at.UTC(),
	}
}

// notify queues an event.  Failures are logged; the reservation change that
// triggered it stands.
func (s *ReservationService) notify(ctx context.Context, kind queue.Kind, v model.ReservationView) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err := s.publisher.Publish(ctx, EventFor(kind, v, s.now()))
	s.metrics.Notification(string(kind), err == nil)
	if err != nil {
		s.log.Error("notification not queued",
			zap.String("kind", string(kind)),
			zap.Uint64("reservation_id", v.ID),
			zap.Error(err))
		return false
	}
	return true
}

// SendReminders queues a reminder for every confirmed reservation of the
// day after today whose reminder has not gone out.  It returns how many
// were queued.
func (s *ReservationService) SendReminders(ctx context.Context, today time.Time) (int, error) {
	tomorrow := model.DateOf(today).AddDate(0, 0, 1)
	due, err := s.store.ListDueReminders(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("list due reminders: %w", err)
	}
	queued := 0
	for i := range due {
		s.label(&due[i])
		if s.notify(ctx, queue.KindReminder, due[i]) {
			queued++
		}
	}
	s.log.Info("reminders queued", zap.String("date", tomorrow.Format("2006-01-02")), zap.Int("queued", queued), zap.Int("due", len(due)))
	return queued, nil
}

// ResendConfirmations re-queues confirmations that were never marked sent
// and are older than grace.  It covers publishes lost while the broker was
// down.
func (s *ReservationService) ResendConfirmations(ctx context.Context, grace time.Duration, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	pending, err := s.store.ListUnsentConfirmations(ctx, s.now().Add(-grace), limit)
	if err != nil {
		return 0, fmt.Errorf("list unsent confirmations: %w", err)
	}
	queued := 0
	for i := range pending {
		s.label(&pending[i])
		if s.notify(ctx, queue.KindConfirmation, pending[i]) {
			queued++
		}
	}
	if queued > 0 {
		s.log.Info("confirmations re-queued", zap.Int("queued", queued))
	}
	return queued, nil
}
