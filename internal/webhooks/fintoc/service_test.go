package fintocwebhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neline/marketplace-backend/pkg/db/models"
	"github.com/neline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
	"github.com/neline/marketplace-backend/pkg/logger"
)

type resolveCall struct {
	paymentID string
	succeeded bool
}

type fakeResolver struct {
	calls []resolveCall
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, paymentID string, succeeded bool) (*models.Transaction, error) {
	f.calls = append(f.calls, resolveCall{paymentID: paymentID, succeeded: succeeded})
	return &models.Transaction{PaymentID: paymentID}, f.err
}

func newTestService(t *testing.T, r resolver) *Service {
	t.Helper()
	svc, err := NewService(r, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return svc
}

func TestHandleEventMapsTypes(t *testing.T) {
	cases := []struct {
		eventType enums.PaymentEventType
		succeeded bool
	}{
		{enums.PaymentEventSucceeded, true},
		{enums.PaymentEventFailed, false},
		{enums.PaymentEventRejected, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.eventType), func(t *testing.T) {
			resolver := &fakeResolver{}
			svc := newTestService(t, resolver)

			require.NoError(t, svc.HandleEvent(context.Background(), Event{ID: " pi_123 ", Type: tc.eventType}))
			require.Equal(t, []resolveCall{{paymentID: "pi_123", succeeded: tc.succeeded}}, resolver.calls)
		})
	}
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	resolver := &fakeResolver{}
	svc := newTestService(t, resolver)

	require.NoError(t, svc.HandleEvent(context.Background(), Event{ID: "pi_123", Type: "payment_intent.created"}))
	require.Empty(t, resolver.calls)
}

func TestHandleEventRequiresPaymentID(t *testing.T) {
	svc := newTestService(t, &fakeResolver{})

	err := svc.HandleEvent(context.Background(), Event{Type: enums.PaymentEventSucceeded})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestHandleEventPropagatesResolverErrors(t *testing.T) {
	resolver := &fakeResolver{err: pkgerrors.New(pkgerrors.CodeValidation, "transaction already resolved")}
	svc := newTestService(t, resolver)

	err := svc.HandleEvent(context.Background(), Event{ID: "pi_123", Type: enums.PaymentEventSucceeded})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
