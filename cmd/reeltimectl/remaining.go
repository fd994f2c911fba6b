package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/iliyamo/reeltime/internal/repository"
	"github.com/iliyamo/reeltime/internal/service"
)

func remainingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remaining",
		Short: "Show remaining seats per showtime of a movie detail",
		RunE: func(cmd *cobra.Command, args []string) error {
			detailID, _ := cmd.Flags().GetUint64("detail")
			dateFlag, _ := cmd.Flags().GetString("date")
			if detailID == 0 {
				return fmt.Errorf("--detail is required")
			}

			cfg := env()
			date := time.Now().In(cfg.Location())
			if dateFlag != "" {
				d, err := time.Parse("2006-01-02", dateFlag)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", dateFlag)
				}
				date = d
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := newService(cfg, repository.NewReservationRepo(db), repository.NewMovieDetailRepo(db), repository.NewHallRepo(db), nil)
			av, err := svc.Availability(cmd.Context(), detailID, date)
			if err != nil {
				return err
			}
			renderAvailability(cmd.OutOrStdout(), av)
			return nil
		},
	}
	cmd.Flags().Uint64("detail", 0, "movie detail id")
	cmd.Flags().String("date", "", "showing date (YYYY-MM-DD), defaults to today")
	return cmd
}

func renderAvailability(w io.Writer, av service.Availability) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("movie detail %d on %s", av.MovieDetailID, av.Date))
	t.AppendHeader(table.Row{"Showtime", "Capacity", "Remaining", "Taken"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 40},
	})
	for _, st := range av.Showtimes {
		t.AppendRow(table.Row{st.Time, st.Capacity, st.Remaining, strings.Join(st.Taken, " ")})
	}
	t.Style().Options.SeparateRows = true
	t.Render()
}
