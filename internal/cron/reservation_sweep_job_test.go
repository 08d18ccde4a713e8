package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neline/marketplace-backend/internal/transactions"
	"github.com/neline/marketplace-backend/pkg/enums"
	"github.com/neline/marketplace-backend/pkg/logger"
)

type expireCall struct {
	kind   enums.BuyerKind
	cutoff time.Time
	limit  int
}

type fakeExpirer struct {
	calls  []expireCall
	errFor enums.BuyerKind
}

func (f *fakeExpirer) ExpireStale(ctx context.Context, kind enums.BuyerKind, cutoff time.Time, limit int) (transactions.SweepResult, error) {
	f.calls = append(f.calls, expireCall{kind: kind, cutoff: cutoff, limit: limit})
	if kind == f.errFor {
		return transactions.SweepResult{}, errors.New("db down")
	}
	return transactions.SweepResult{Canceled: 1, ReleasedUnits: 2}, nil
}

func newSweepJob(t *testing.T, expirer staleExpirer, batch int) *reservationSweepJob {
	t.Helper()
	jobIface, err := NewReservationSweepJob(ReservationSweepJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		Expirer:      expirer,
		ExpiryWindow: 15 * time.Minute,
		BatchSize:    batch,
	})
	if err != nil {
		t.Fatalf("NewReservationSweepJob: %v", err)
	}
	job, ok := jobIface.(*reservationSweepJob)
	if !ok {
		t.Fatalf("expected reservationSweepJob, got %T", jobIface)
	}
	return job
}

func TestReservationSweepJob_splitsBatchAcrossBuyerKinds(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expirer := &fakeExpirer{}
	job := newSweepJob(t, expirer, 100)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.calls) != 2 {
		t.Fatalf("expected one call per buyer kind, got %d", len(expirer.calls))
	}
	wantCutoff := now.Add(-15 * time.Minute)
	for i, kind := range enums.BuyerKinds {
		call := expirer.calls[i]
		if call.kind != kind {
			t.Fatalf("call %d: expected kind %s, got %s", i, kind, call.kind)
		}
		if !call.cutoff.Equal(wantCutoff) {
			t.Fatalf("call %d: expected cutoff %s, got %s", i, wantCutoff, call.cutoff)
		}
		if call.limit != 50 {
			t.Fatalf("call %d: expected limit 50, got %d", i, call.limit)
		}
	}
}

func TestReservationSweepJob_continuesAfterKindFailure(t *testing.T) {
	expirer := &fakeExpirer{errFor: enums.BuyerKindRegistered}
	job := newSweepJob(t, expirer, 1)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	if len(expirer.calls) != 2 {
		t.Fatalf("expected guest sweep to still run, got %d calls", len(expirer.calls))
	}
	if expirer.calls[1].limit != 1 {
		t.Fatalf("expected minimum per-kind limit of 1, got %d", expirer.calls[1].limit)
	}
}

func TestNewReservationSweepJob_requiresDeps(t *testing.T) {
	if _, err := NewReservationSweepJob(ReservationSweepJobParams{Expirer: &fakeExpirer{}}); err == nil {
		t.Fatal("expected logger error")
	}
	if _, err := NewReservationSweepJob(ReservationSweepJobParams{Logger: logger.New(logger.Options{ServiceName: "test"})}); err == nil {
		t.Fatal("expected expirer error")
	}
}
