// Package service holds the reservation ledger and the catalogue
// operations.  Every operation takes the caller as an explicit
// model.Principal.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/reeltime/internal/model"
	"github.com/iliyamo/reeltime/internal/queue"
	"github.com/iliyamo/reeltime/internal/repository"
)

// ReservationStore is what the ledger needs from persistence.
// *repository.ReservationRepo implements it.
type ReservationStore interface {
	InTx(ctx context.Context, fn func(w repository.ReservationWriter) error) error
	Get(ctx context.Context, id uint64) (model.ReservationView, error)
	ListForUser(ctx context.Context, userID uint64, from time.Time) ([]model.ReservationView, error)
	ListForAdmin(ctx context.Context, adminID uint64, from time.Time) ([]model.ReservationView, error)
	ListDueReminders(ctx context.Context, date time.Time) ([]model.ReservationView, error)
	ListUnsentConfirmations(ctx context.Context, olderThan time.Time, limit int) ([]model.ReservationView, error)
	ActiveForShowing(ctx context.Context, s model.Showing) ([]model.Reservation, error)
	ActiveForDate(ctx context.Context, detailID uint64, date time.Time) ([]model.Reservation, error)
}

// DetailReader loads movie details outside any transaction.
type DetailReader interface {
	GetByID(ctx context.Context, id uint64) (model.MovieDetail, error)
}

// HallReader loads the hall a detail plays in.
type HallReader interface {
	GetByID(ctx context.Context, id uint64) (model.Hall, error)
}

// Publisher queues notification events.  *queue.Publisher implements it.
type Publisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// RemainingCache caches remaining-seat counts per showing key.
// *cache.SeatCache and cache.Nop implement it.
type RemainingCache interface {
	GetRemaining(ctx context.Context, showing string) (int, error)
	// Generation is read before counting; Invalidate moves it on.
	Generation(ctx context.Context, showing string) (int64, error)
	// SetRemaining stores n only while the generation is still gen.
	SetRemaining(ctx context.Context, showing string, gen int64, n int) error
	Invalidate(ctx context.Context, showing string) error
	InvalidateDetail(ctx context.Context, detailID uint64) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.NotificationEvent) error { return nil }
