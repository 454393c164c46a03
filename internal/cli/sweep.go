package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitman711/parkinglot/internal/clock"
	"github.com/hitman711/parkinglot/internal/config"
	"github.com/hitman711/parkinglot/internal/queue"
	"github.com/hitman711/parkinglot/internal/repository"
	"github.com/hitman711/parkinglot/internal/service"
)

// sweeper is what the sweep command runs; tests swap in a fake.
type sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

var newSweeper = func(lookbackDays int, publish bool) (sweeper, func(), error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	var events service.EventPublisher = queue.Discard{}
	closers := []func() error{db.Close}
	if publish {
		pub := queue.NewPublisher(config.LoadQueueConfig().URL)
		events = pub
		closers = append([]func() error{pub.Close}, closers...)
	}
	m := service.NewStatusMachine(repository.NewReservationRepo(db), events, clock.NewSystem(), lookbackDays)
	return m, func() {
		for _, c := range closers {
			_ = c()
		}
	}, nil
}

func sweepCmd() *cobra.Command {
	var (
		lookback int
		publish  bool
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Advance reservation statuses once (pending to active, active to overdue)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lookback < 0 {
				return fmt.Errorf("--lookback-days must not be negative")
			}
			m, closeFn, err := newSweeper(lookback, publish)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := m.Sweep(ctx)
			if outputJSON {
				if werr := writeJSON(cmd.OutOrStdout(), res); werr != nil {
					return werr
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d activated=%d overdue=%d skipped=%d failed=%d\n",
					res.Scanned, res.Activated, res.Overdue, res.Skipped, res.Failed)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&lookback, "lookback-days", config.LoadSweepConfig().LookbackDays, "Also scan bookings that started this many days before today")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish reservation.overdue events to RabbitMQ")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Abort the sweep after this long")
	return cmd
}
