package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/reeltime/internal/config"
	"github.com/iliyamo/reeltime/internal/inventory"
	"github.com/iliyamo/reeltime/internal/lock"
	"github.com/iliyamo/reeltime/internal/logger"
	"github.com/iliyamo/reeltime/internal/queue"
	"github.com/iliyamo/reeltime/internal/repository"
	"github.com/iliyamo/reeltime/internal/service"
)

// newService builds a reservation service on an in-process lock.  The CLI
// never writes seats, so nothing needs cross-instance locking here.
func newService(cfg config.Config, repo *repository.ReservationRepo, details *repository.MovieDetailRepo, halls *repository.HallRepo, pub service.Publisher) *service.ReservationService {
	policy := inventory.DefaultPolicy()
	policy.CancelCutoff = cfg.Policy.CancelCutoff
	policy.EditCutoff = cfg.Policy.EditCutoff
	policy.Location = cfg.Location()
	return service.NewReservationService(service.ReservationDeps{
		Reservations: repo,
		Details:      details,
		Halls:        halls,
		Locker:       lock.NewLocal(),
		Publisher:    pub,
		Policy:       policy,
		MaxSeats:     cfg.Policy.MaxSeats,
		Log:          logger.Get(),
	})
}

func remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Reminder emails",
	}
	send := &cobra.Command{
		Use:   "send",
		Short: "Queue reminders for tomorrow's confirmed reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := env()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			pub := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, logger.Get())
			defer pub.Close()

			svc := newService(cfg, repository.NewReservationRepo(db), repository.NewMovieDetailRepo(db), repository.NewHallRepo(db), pub)
			n, err := svc.SendReminders(cmd.Context(), svc.Today())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d reminder(s)\n", n)
			return nil
		},
	}
	cmd.AddCommand(send)
	return cmd
}
