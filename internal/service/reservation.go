package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/reeltime/internal/cache"
	"github.com/iliyamo/reeltime/internal/inventory"
	"github.com/iliyamo/reeltime/internal/lock"
	"github.com/iliyamo/reeltime/internal/metrics"
	"github.com/iliyamo/reeltime/internal/model"
	"github.com/iliyamo/reeltime/internal/queue"
	"github.com/iliyamo/reeltime/internal/repository"
)

// ReservationDeps wires a ReservationService.  Reservations, Details and
// Locker are required; the rest fall back to no-ops.
type ReservationDeps struct {
	Reservations ReservationStore
	Details      DetailReader
	Halls        HallReader
	Locker       lock.Locker
	Cache        RemainingCache
	Publisher    Publisher
	Metrics      *metrics.Metrics
	Policy       inventory.Policy
	MaxSeats     int
	Log          *zap.Logger
	Now          func() time.Time
}

// ReservationService runs every seat write for a showing inside the
// showing's lock and a transaction that re-reads the active reservations,
// so two writers can never both pass the capacity and conflict checks.
type ReservationService struct {
	store     ReservationStore
	details   DetailReader
	halls     HallReader
	locker    lock.Locker
	cache     RemainingCache
	publisher Publisher
	metrics   *metrics.Metrics
	policy    inventory.Policy
	maxSeats  int
	log       *zap.Logger
	now       func() time.Time
	newCode   func() string
}

// NewReservationService panics without a store, detail reader or locker.
// Optional dependencies fall back to no-ops.
func NewReservationService(d ReservationDeps) *ReservationService {
	if d.Reservations == nil || d.Details == nil || d.Locker == nil {
		panic("service: reservation store, detail reader and locker are required")
	}
	s := &ReservationService{
		store:     d.Reservations,
		details:   d.Details,
		halls:     d.Halls,
		locker:    d.Locker,
		cache:     d.Cache,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		policy:    d.Policy,
		maxSeats:  d.MaxSeats,
		log:       d.Log,
		now:       d.Now,
		newCode:   uuid.NewString,
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	if s.maxSeats <= 0 {
		s.maxSeats = 10
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateInput is a new reservation request.  NumberOfSeats is optional;
// when set it must equal len(Seats).  UserID books for another user and is
// honoured only for the admin of the movie detail; zero means the caller.
type CreateInput struct {
	UserID        uint64
	MovieDetailID uint64
	Date          time.Time
	Showtime      string
	Seats         []string
	NumberOfSeats int
}

// EditInput replaces the seats of a reservation.
type EditInput struct {
	Seats []string
}

// ShowtimeAvailability is one showtime of a date, with the seats taken.
type ShowtimeAvailability struct {
	Time      string   `json:"time"`
	Capacity  int      `json:"capacity"`
	Remaining int      `json:"remaining"`
	Taken     []string `json:"taken"`
}

// Availability is the seat map data for one movie detail on one date.
type Availability struct {
	MovieDetailID uint64                 `json:"movie_detail_id"`
	Date          string                 `json:"date"`
	PriceCents    int64                  `json:"price_cents"`
	Layout        model.HallLayout       `json:"layout"`
	Showtimes     []ShowtimeAvailability `json:"showtimes"`
}

// Remaining reports capacity minus seats held by active reservations.  An
// unknown showtime has no capacity and yields 0.  Counts are served from
// the cache when present; a count is cached only if no write invalidated
// the showing while it was being read.
func (s *ReservationService) Remaining(ctx context.Context, detailID uint64, date time.Time, showtime string) (int, error) {
	showing := model.Showing{MovieDetailID: detailID, Date: date, Showtime: showtime}
	key := showing.Key()
	if n, err := s.cache.GetRemaining(ctx, key); err == nil {
		s.metrics.CacheLookup(true)
		return n, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("remaining cache read failed", zap.String("showing", key), zap.Error(err))
	}
	s.metrics.CacheLookup(false)

	gen, genErr := s.cache.Generation(ctx, key)
	if genErr != nil {
		s.log.Warn("remaining cache generation read failed", zap.String("showing", key), zap.Error(genErr))
	}
	detail, err := s.details.GetByID(ctx, detailID)
	if err != nil {
		return 0, err
	}
	active, err := s.store.ActiveForShowing(ctx, showing)
	if err != nil {
		return 0, fmt.Errorf("load reservations: %w", err)
	}
	n := inventory.Remaining(detail.Showtimes, showtime, holdings(active))
	if genErr != nil {
		return n, nil
	}
	if err := s.cache.SetRemaining(ctx, key, gen, n); err != nil {
		s.log.Warn("remaining cache write failed", zap.String("showing", key), zap.Error(err))
	}
	return n, nil
}

// Availability lists every showtime of the detail on date with its
// remaining count and the seats already taken.
func (s *ReservationService) Availability(ctx context.Context, detailID uint64, date time.Time) (Availability, error) {
	detail, err := s.details.GetByID(ctx, detailID)
	if err != nil {
		return Availability{}, err
	}
	layout, err := s.layoutOf(ctx, detail)
	if err != nil {
		return Availability{}, err
	}
	active, err := s.store.ActiveForDate(ctx, detailID, date)
	if err != nil {
		return Availability{}, fmt.Errorf("load reservations: %w", err)
	}
	byShowtime := map[string][]inventory.Holding{}
	for _, r := range active {
		byShowtime[r.SelectedShowtime] = append(byShowtime[r.SelectedShowtime], r.Holding())
	}

	out := Availability{
		MovieDetailID: detailID,
		Date:          model.DateOf(date).Format("2006-01-02"),
		PriceCents:    detail.PriceCents,
		Layout:        layout,
		Showtimes:     make([]ShowtimeAvailability, 0, len(detail.Showtimes)),
	}
	for _, def := range detail.Showtimes {
		held := byShowtime[def.Time]
		out.Showtimes = append(out.Showtimes, ShowtimeAvailability{
			Time:      def.Time,
			Capacity:  def.Capacity,
			Remaining: inventory.Remaining(detail.Showtimes, def.Time, held),
			Taken:     inventory.TakenList(held),
		})
	}
	return out, nil
}

// Create books seats for the caller, or for in.UserID when the caller
// administers the movie detail.  The detail and its hall are re-read under
// a shared lock inside the transaction, so a concurrent showtime or layout
// change is either fully seen or waits.  The reservation is written
// pending and confirmed in the same transaction; the confirmation email is
// queued after commit and a queueing failure does not undo the booking.
func (s *ReservationService) Create(ctx context.Context, p model.Principal, in CreateInput) (model.ReservationView, error) {
	const op = "create"
	if err := s.checkSeatCount(in.Seats, in.NumberOfSeats); err != nil {
		s.metrics.Reservation(op, outcome(err))
		return model.ReservationView{}, err
	}
	detail, err := s.details.GetByID(ctx, in.MovieDetailID)
	if err != nil {
		return model.ReservationView{}, err
	}
	if !detail.Runs(in.Date) {
		s.metrics.Reservation(op, "invalid")
		return model.ReservationView{}, ErrNotShowing
	}
	if start, err := s.policy.ShowingStart(in.Date, in.Showtime); err == nil && !start.After(s.now()) {
		s.metrics.Reservation(op, "cutoff")
		return model.ReservationView{}, fmt.Errorf("%w: the showing has already started", inventory.ErrCutoffPassed)
	}
	owner := p.UserID
	if in.UserID != 0 && in.UserID != p.UserID {
		if !p.Administers(detail.AdminID) {
			s.metrics.Reservation(op, "forbidden")
			return model.ReservationView{}, ErrOnBehalf
		}
		owner = in.UserID
	}

	showing := model.Showing{MovieDetailID: detail.ID, Date: in.Date, Showtime: in.Showtime}
	var id uint64
	err = s.withShowing(ctx, showing, func() error {
		return s.store.InTx(ctx, func(w repository.ReservationWriter) error {
			locked, layout, err := w.LockDetail(ctx, detail.ID)
			if err != nil {
				return err
			}
			if !locked.Runs(in.Date) {
				return ErrNotShowing
			}
			active, err := w.ActiveForShowing(ctx, showing)
			if err != nil {
				return err
			}
			adm, err := inventory.Admit(inventory.Request{
				Showtimes: locked.Showtimes,
				Showtime:  in.Showtime,
				Layout:    layout,
				Seats:     in.Seats,
			}, holdings(active))
			if err != nil {
				return err
			}
			inventory.SortSeats(adm.Seats)
			res := model.Reservation{
				UserID:           owner,
				MovieDetailID:    locked.ID,
				CinemaName:       locked.CinemaName,
				SelectedDate:     model.DateOf(in.Date),
				SelectedShowtime: in.Showtime,
				Seats:            inventory.SeatStrings(adm.Seats),
				NumberOfSeats:    len(adm.Seats),
				Status:           inventory.StatusPending,
				TotalCostCents:   inventory.TotalCost(locked.PriceCents, len(adm.Seats)),
				Code:             s.newCode(),
			}
			if err := w.Insert(ctx, &res); err != nil {
				return seatWriteErr(err)
			}
			status, err := inventory.Transition(res.Status, inventory.StatusConfirmed)
			if err != nil {
				return err
			}
			id = res.ID
			return w.SetStatus(ctx, res.ID, status)
		})
	})
	s.metrics.Reservation(op, outcome(err))
	if err != nil {
		return model.ReservationView{}, err
	}
	s.invalidate(ctx, showing)

	view, err := s.store.Get(ctx, id)
	if err != nil {
		return model.ReservationView{}, err
	}
	s.label(&view)
	s.notify(ctx, queue.KindConfirmation, view)
	s.log.Info("reservation created",
		zap.Uint64("reservation_id", view.ID),
		zap.Uint64("user_id", owner),
		zap.Uint64("by", p.UserID),
		zap.String("showing", showing.Key()),
		zap.Int("seats", view.NumberOfSeats))
	return view, nil
}

// Edit replaces the seats of an active reservation.  The new selection may
// not be larger than the current one; conflicts are checked against every
// other active reservation of the showing.  Only the admin of the movie
// detail edits past the cutoff.
func (s *ReservationService) Edit(ctx context.Context, p model.Principal, id uint64, in EditInput) (model.ReservationView, error) {
	const op = "edit"
	view, err := s.authorize(ctx, p, id)
	if err != nil {
		return model.ReservationView{}, err
	}
	elevated := p.Administers(view.AdminID)
	if err := s.policy.CheckEdit(view.Change(elevated), s.now()); err != nil {
		s.metrics.Reservation(op, outcome(err))
		return model.ReservationView{}, err
	}

	showing := showingOf(view.Reservation)
	err = s.withShowing(ctx, showing, func() error {
		return s.store.InTx(ctx, func(w repository.ReservationWriter) error {
			detail, layout, err := w.LockDetail(ctx, view.MovieDetailID)
			if err != nil {
				return err
			}
			cur, err := w.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if err := s.policy.CheckEdit(cur.Change(elevated), s.now()); err != nil {
				return err
			}
			if len(in.Seats) == 0 || len(in.Seats) > cur.NumberOfSeats {
				return fmt.Errorf("%w: select between 1 and %d seats", inventory.ErrSeatCount, cur.NumberOfSeats)
			}
			active, err := w.ActiveForShowing(ctx, showing)
			if err != nil {
				return err
			}
			adm, err := inventory.Admit(inventory.Request{
				Showtimes: detail.Showtimes,
				Showtime:  cur.SelectedShowtime,
				Layout:    layout,
				Seats:     in.Seats,
				Exclude:   cur.ID,
			}, holdings(active))
			if err != nil {
				return err
			}
			inventory.SortSeats(adm.Seats)
			cur.Seats = inventory.SeatStrings(adm.Seats)
			cur.NumberOfSeats = len(adm.Seats)
			cur.TotalCostCents = inventory.TotalCost(detail.PriceCents, cur.NumberOfSeats)
			return seatWriteErr(w.ReplaceSeats(ctx, &cur))
		})
	})
	s.metrics.Reservation(op, outcome(err))
	if err != nil {
		return model.ReservationView{}, err
	}
	s.invalidate(ctx, showing)

	view, err = s.store.Get(ctx, id)
	if err != nil {
		return model.ReservationView{}, err
	}
	s.label(&view)
	return view, nil
}

// Cancel releases the reservation's seats.  Cancellation is final.  Only
// the admin of the movie detail cancels past the cutoff.
func (s *ReservationService) Cancel(ctx context.Context, p model.Principal, id uint64) (model.ReservationView, error) {
	const op = "cancel"
	view, err := s.authorize(ctx, p, id)
	if err != nil {
		return model.ReservationView{}, err
	}
	elevated := p.Administers(view.AdminID)
	if err := s.policy.CheckCancel(view.Change(elevated), s.now()); err != nil {
		s.metrics.Reservation(op, outcome(err))
		return model.ReservationView{}, err
	}

	showing := showingOf(view.Reservation)
	err = s.withShowing(ctx, showing, func() error {
		return s.store.InTx(ctx, func(w repository.ReservationWriter) error {
			cur, err := w.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if err := s.policy.CheckCancel(cur.Change(elevated), s.now()); err != nil {
				return err
			}
			return w.SetStatus(ctx, id, inventory.StatusCancelled)
		})
	})
	s.metrics.Reservation(op, outcome(err))
	if err != nil {
		return model.ReservationView{}, err
	}
	s.invalidate(ctx, showing)

	view.Status = inventory.StatusCancelled
	s.label(&view)
	s.notify(ctx, queue.KindCancellation, view)
	s.log.Info("reservation cancelled", zap.Uint64("reservation_id", id), zap.Uint64("by", p.UserID))
	return view, nil
}

// Delete removes a reservation outright.  Only the admin who published the
// movie detail may do so.
func (s *ReservationService) Delete(ctx context.Context, p model.Principal, id uint64) error {
	const op = "delete"
	view, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !p.Administers(view.AdminID) {
		return ErrAdminOnly
	}
	showing := showingOf(view.Reservation)
	err = s.withShowing(ctx, showing, func() error {
		return s.store.InTx(ctx, func(w repository.ReservationWriter) error {
			return w.Delete(ctx, id)
		})
	})
	s.metrics.Reservation(op, outcome(err))
	if err != nil {
		return err
	}
	s.invalidate(ctx, showing)
	s.log.Info("reservation deleted", zap.Uint64("reservation_id", id), zap.Uint64("by", p.UserID))
	return nil
}

// Get returns one reservation the caller may see.
func (s *ReservationService) Get(ctx context.Context, p model.Principal, id uint64) (model.ReservationView, error) {
	view, err := s.authorize(ctx, p, id)
	if err != nil {
		return model.ReservationView{}, err
	}
	s.label(&view)
	return view, nil
}

// List returns reservations from today on: the caller's own, or for an
// admin those made against their movie details.  Confirmed come first,
// then pending, then cancelled; within a status by date and showtime.
func (s *ReservationService) List(ctx context.Context, p model.Principal) ([]model.ReservationView, error) {
	today := s.today()
	var (
		views []model.ReservationView
		err   error
	)
	if p.IsAdmin {
		views, err = s.store.ListForAdmin(ctx, p.UserID, today)
	} else {
		views, err = s.store.ListForUser(ctx, p.UserID, today)
	}
	if err != nil {
		return nil, err
	}
	SortReservations(views)
	for i := range views {
		s.label(&views[i])
	}
	return views, nil
}

// SortReservations orders by status rank, then date, then showtime.
func SortReservations(views []model.ReservationView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if ra, rb := a.Status.Rank(), b.Status.Rank(); ra != rb {
			return ra < rb
		}
		if !a.SelectedDate.Equal(b.SelectedDate) {
			return a.SelectedDate.Before(b.SelectedDate)
		}
		if c := inventory.CompareShowtimes(a.SelectedShowtime, b.SelectedShowtime); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

func (s *ReservationService) authorize(ctx context.Context, p model.Principal, id uint64) (model.ReservationView, error) {
	view, err := s.store.Get(ctx, id)
	if err != nil {
		return model.ReservationView{}, err
	}
	if !p.Owns(view.UserID, view.AdminID) {
		return model.ReservationView{}, repository.ErrForbidden
	}
	return view, nil
}

// withShowing holds the showing's lock for the duration of fn, renewing it
// while fn runs.
func (s *ReservationService) withShowing(ctx context.Context, showing model.Showing, fn func() error) error {
	start := time.Now()
	lease, err := s.locker.Acquire(ctx, "showing:"+showing.Key())
	s.metrics.LockWaited(time.Since(start), err == nil)
	if err != nil {
		if lock.IsContention(err) {
			return ErrBusy
		}
		return fmt.Errorf("acquire showing lock: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("showing lock release failed", zap.String("showing", showing.Key()), zap.Error(err))
		}
	}()
	stop := lock.KeepAlive(ctx, lease, func(err error) {
		s.log.Warn("showing lock renewal failed", zap.String("showing", showing.Key()), zap.Error(err))
	})
	defer stop()
	return fn()
}

func (s *ReservationService) checkSeatCount(seats []string, declared int) error {
	if len(seats) == 0 {
		return fmt.Errorf("%w: no seats selected", inventory.ErrSeatCount)
	}
	if len(seats) > s.maxSeats {
		return fmt.Errorf("%w: at most %d seats per reservation", inventory.ErrSeatCount, s.maxSeats)
	}
	if declared != 0 && declared != len(seats) {
		return fmt.Errorf("%w: number of seats does not match the selection", inventory.ErrSeatCount)
	}
	return nil
}

func (s *ReservationService) layoutOf(ctx context.Context, d model.MovieDetail) (model.HallLayout, error) {
	if d.HallID == nil || s.halls == nil {
		return nil, nil
	}
	h, err := s.halls.GetByID(ctx, *d.HallID)
	if errors.Is(err, repository.ErrHallNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h.Layout, nil
}

// label fills SeatLabels.  Seats the layout cannot place are left out and
// logged.
func (s *ReservationService) label(v *model.ReservationView) {
	if len(v.HallLayout) == 0 {
		v.SeatLabels = []string{}
		return
	}
	labels, skipped := inventory.NewLabeler(v.HallLayout.Cells()).Labels(v.Seats)
	if len(skipped) > 0 {
		s.log.Warn("seats missing from hall layout", zap.Uint64("reservation_id", v.ID), zap.Strings("seats", skipped))
	}
	v.SeatLabels = labels
}

func (s *ReservationService) invalidate(ctx context.Context, showing model.Showing) {
	if err := s.cache.Invalidate(ctx, showing.Key()); err != nil {
		s.log.Warn("remaining cache invalidate failed", zap.String("showing", showing.Key()), zap.Error(err))
	}
}

// Today is the current calendar date in the policy's location.
func (s *ReservationService) Today() time.Time { return s.today() }

func (s *ReservationService) today() time.Time {
	loc := s.policy.Location
	if loc == nil {
		loc = time.UTC
	}
	return model.DateOf(s.now().In(loc))
}

func holdings(rs []model.Reservation) []inventory.Holding {
	out := make([]inventory.Holding, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Holding())
	}
	return out
}

func showingOf(r model.Reservation) model.Showing {
	return model.Showing{MovieDetailID: r.MovieDetailID, Date: r.SelectedDate, Showtime: r.SelectedShowtime}
}

// seatWriteErr turns a seat index violation into the conflict the checks
// would have reported.
func seatWriteErr(err error) error {
	if errors.Is(err, repository.ErrSeatTaken) {
		return inventory.ErrSeatConflict
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, inventory.ErrSeatConflict):
		return "conflict"
	case errors.Is(err, inventory.ErrCapacityExceeded):
		return "capacity"
	case errors.Is(err, inventory.ErrCutoffPassed), errors.Is(err, inventory.ErrInvalidTransition):
		return "cutoff"
	case errors.Is(err, inventory.ErrSeatCount), errors.Is(err, inventory.ErrMalformedSeatID), errors.Is(err, ErrNotShowing):
		return "invalid"
	case errors.Is(err, ErrBusy):
		return "lock_failed"
	}
	return "error"
}
