package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/neline/marketplace-backend/internal/transactions"
	"github.com/neline/marketplace-backend/pkg/enums"
	"github.com/neline/marketplace-backend/pkg/logger"
)

const (
	defaultExpiryWindow = 15 * time.Minute
	defaultSweepBatch   = 100
)

// ReservationSweepJobParams configure the stale reservation sweeper.
type ReservationSweepJobParams struct {
	Logger       *logger.Logger
	Expirer      staleExpirer
	ExpiryWindow time.Duration
	BatchSize    int
}

type staleExpirer interface {
	ExpireStale(ctx context.Context, kind enums.BuyerKind, cutoff time.Time, limit int) (transactions.SweepResult, error)
}

// NewReservationSweepJob builds the job that cancels CREATED transactions
// at least the expiry window old. The batch is split evenly between buyer kinds.
func NewReservationSweepJob(params ReservationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("stale transaction expirer required")
	}
	window := params.ExpiryWindow
	if window <= 0 {
		window = defaultExpiryWindow
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &reservationSweepJob{
		logg:    params.Logger,
		expirer: params.Expirer,
		window:  window,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type reservationSweepJob struct {
	logg    *logger.Logger
	expirer staleExpirer
	window  time.Duration
	batch   int
	now     func() time.Time
}

func (j *reservationSweepJob) Name() string { return "reservation-sweep" }

func (j *reservationSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	perKind := j.batch / len(enums.BuyerKinds)
	if perKind < 1 {
		perKind = 1
	}

	var errs []error
	var total transactions.SweepResult
	for _, kind := range enums.BuyerKinds {
		result, err := j.expirer.ExpireStale(ctx, kind, cutoff, perKind)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep %s transactions: %w", kind, err))
			continue
		}
		total.Canceled += result.Canceled
		total.ReleasedUnits += result.ReleasedUnits
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"canceled":       total.Canceled,
		"released_units": total.ReleasedUnits,
	})
	j.logg.Info(logCtx, "reservation sweep complete")
	return multierr.Combine(errs...)
}
