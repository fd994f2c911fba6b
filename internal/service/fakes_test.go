package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/reeltime/internal/cache"
	"github.com/iliyamo/reeltime/internal/inventory"
	"github.com/iliyamo/reeltime/internal/model"
	"github.com/iliyamo/reeltime/internal/queue"
	"github.com/iliyamo/reeltime/internal/repository"
)

// memStore keeps reservations in memory and mirrors the seat index of the
// MySQL schema: a seat of a showing may belong to one active reservation.
type memStore struct {
	mu      sync.Mutex
	nextID  uint64
	rows    map[uint64]model.Reservation
	seats   map[string]uint64
	details map[uint64]model.MovieDetail
	layouts map[uint64]model.HallLayout
	emails  map[uint64]string
	now     func() time.Time
}

func newMemStore(details ...model.MovieDetail) *memStore {
	s := &memStore{
		rows:    map[uint64]model.Reservation{},
		seats:   map[string]uint64{},
		details: map[uint64]model.MovieDetail{},
		layouts: map[uint64]model.HallLayout{},
		emails:  map[uint64]string{},
		now:     time.Now,
	}
	for _, d := range details {
		s.details[d.ID] = d
	}
	return s
}

func seatKey(r model.Reservation, seat string) string {
	return showingOf(r).Key() + "|" + seat
}

func sameShowing(r model.Reservation, sh model.Showing) bool {
	return r.MovieDetailID == sh.MovieDetailID &&
		model.DateOf(r.SelectedDate).Equal(model.DateOf(sh.Date)) &&
		r.SelectedShowtime == sh.Showtime
}

func (s *memStore) view(r model.Reservation) model.ReservationView {
	d := s.details[r.MovieDetailID]
	return model.ReservationView{
		Reservation: r,
		MovieTitle:  d.MovieTitle,
		UserEmail:   s.emails[r.UserID],
		AdminID:     d.AdminID,
		PriceCents:  d.PriceCents,
		HallLayout:  s.layouts[r.MovieDetailID],
	}
}

func (s *memStore) InTx(ctx context.Context, fn func(w repository.ReservationWriter) error) error {
	return fn(memTx{s})
}

func (s *memStore) Get(ctx context.Context, id uint64) (model.ReservationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return model.ReservationView{}, repository.ErrReservationNotFound
	}
	return s.view(r), nil
}

func (s *memStore) list(match func(model.ReservationView) bool) []model.ReservationView {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ReservationView
	for _, r := range s.rows {
		if v := s.view(r); match(v) {
			out = append(out, v)
		}
	}
	return out
}

func (s *memStore) ListForUser(ctx context.Context, userID uint64, from time.Time) ([]model.ReservationView, error) {
	return s.list(func(v model.ReservationView) bool {
		return v.UserID == userID && !v.SelectedDate.Before(model.DateOf(from))
	}), nil
}

func (s *memStore) ListForAdmin(ctx context.Context, adminID uint64, from time.Time) ([]model.ReservationView, error) {
	return s.list(func(v model.ReservationView) bool {
		return v.AdminID == adminID && !v.SelectedDate.Before(model.DateOf(from))
	}), nil
}

func (s *memStore) ListDueReminders(ctx context.Context, date time.Time) ([]model.ReservationView, error) {
	return s.list(func(v model.ReservationView) bool {
		return v.Status == inventory.StatusConfirmed && !v.ReminderSent && v.SelectedDate.Equal(model.DateOf(date))
	}), nil
}

func (s *memStore) ListUnsentConfirmations(ctx context.Context, olderThan time.Time, limit int) ([]model.ReservationView, error) {
	out := s.list(func(v model.ReservationView) bool {
		return v.Status == inventory.StatusConfirmed && !v.ConfirmationSent && v.CreatedAt.Before(olderThan)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) ActiveForShowing(ctx context.Context, sh model.Showing) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.rows {
		if r.Status.Active() && sameShowing(r, sh) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) ActiveForDate(ctx context.Context, detailID uint64, date time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.rows {
		if r.Status.Active() && r.MovieDetailID == detailID && r.SelectedDate.Equal(model.DateOf(date)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) HeldPerShowtime(ctx context.Context, detailID uint64, from time.Time) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	perDay := map[string]int{}
	out := map[string]int{}
	for _, r := range s.rows {
		if !r.Status.Active() || r.MovieDetailID != detailID || r.SelectedDate.Before(model.DateOf(from)) {
			continue
		}
		k := showingOf(r).Key()
		perDay[k] += r.NumberOfSeats
		if perDay[k] > out[r.SelectedShowtime] {
			out[r.SelectedShowtime] = perDay[k]
		}
	}
	return out, nil
}

func (s *memStore) byStatus(st inventory.Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.Status == st {
			n++
		}
	}
	return n
}

type memTx struct{ s *memStore }

func (t memTx) ActiveForShowing(ctx context.Context, sh model.Showing) ([]model.Reservation, error) {
	return t.s.ActiveForShowing(ctx, sh)
}

func (t memTx) LockDetail(ctx context.Context, id uint64) (model.MovieDetail, model.HallLayout, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	d, ok := t.s.details[id]
	if !ok {
		return d, nil, repository.ErrMovieDetailNotFound
	}
	return d, t.s.layouts[id], nil
}

func (t memTx) GetForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, ok := t.s.rows[id]
	if !ok {
		return r, repository.ErrReservationNotFound
	}
	return r, nil
}

func (t memTx) Insert(ctx context.Context, r *model.Reservation) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, seat := range r.Seats {
		if _, taken := t.s.seats[seatKey(*r, seat)]; taken {
			return repository.ErrSeatTaken
		}
	}
	t.s.nextID++
	r.ID = t.s.nextID
	r.CreatedAt = t.s.now()
	r.UpdatedAt = r.CreatedAt
	for _, seat := range r.Seats {
		t.s.seats[seatKey(*r, seat)] = r.ID
	}
	t.s.rows[r.ID] = *r
	return nil
}

func (t memTx) ReplaceSeats(ctx context.Context, r *model.Reservation) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, seat := range r.Seats {
		if owner, taken := t.s.seats[seatKey(*r, seat)]; taken && owner != r.ID {
			return repository.ErrSeatTaken
		}
	}
	t.s.releaseLocked(r.ID)
	for _, seat := range r.Seats {
		t.s.seats[seatKey(*r, seat)] = r.ID
	}
	t.s.rows[r.ID] = *r
	return nil
}

func (t memTx) SetStatus(ctx context.Context, id uint64, st inventory.Status) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, ok := t.s.rows[id]
	if !ok {
		return repository.ErrReservationNotFound
	}
	r.Status = st
	t.s.rows[id] = r
	if !st.Active() {
		t.s.releaseLocked(id)
	}
	return nil
}

func (t memTx) Delete(ctx context.Context, id uint64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.rows[id]; !ok {
		return repository.ErrReservationNotFound
	}
	t.s.releaseLocked(id)
	delete(t.s.rows, id)
	return nil
}

func (s *memStore) releaseLocked(id uint64) {
	for k, owner := range s.seats {
		if owner == id {
			delete(s.seats, k)
		}
	}
}

func (s *memStore) GetByID(ctx context.Context, id uint64) (model.MovieDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.details[id]
	if !ok {
		return d, repository.ErrMovieDetailNotFound
	}
	return d, nil
}

type hallReader map[uint64]model.Hall

func (h hallReader) GetByID(ctx context.Context, id uint64) (model.Hall, error) {
	hall, ok := h[id]
	if !ok {
		return hall, repository.ErrHallNotFound
	}
	return hall, nil
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, ev queue.NotificationEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// mapCache is an in-memory RemainingCache with the same generation rule as
// the Redis one.
type mapCache struct {
	mu   sync.Mutex
	m    map[string]int
	gens map[string]int64
}

func newMapCache() *mapCache { return &mapCache{m: map[string]int{}, gens: map[string]int64{}} }

func (c *mapCache) GetRemaining(ctx context.Context, k string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.m[k]
	if !ok {
		return 0, cache.ErrCacheMiss
	}
	return n, nil
}

func (c *mapCache) Generation(ctx context.Context, k string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.gens[k]
	c.gens[k] = g
	return g, nil
}

func (c *mapCache) SetRemaining(ctx context.Context, k string, gen int64, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[k] == gen {
		c.m[k] = n
	}
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context, k string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[k]++
	delete(c.m, k)
	return nil
}

func (c *mapCache) InvalidateDetail(ctx context.Context, id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := fmt.Sprintf("%d:", id)
	for k := range c.gens {
		if strings.HasPrefix(k, prefix) {
			c.gens[k]++
		}
	}
	for k := range c.m {
		if strings.HasPrefix(k, prefix) {
			delete(c.m, k)
		}
	}
	return nil
}

var errBroker = errors.New("broker unreachable")
