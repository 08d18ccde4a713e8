// Package fintocwebhook maps payment intent webhooks onto transaction resolution.
package fintocwebhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/neline/marketplace-backend/pkg/db/models"
	"github.com/neline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
	"github.com/neline/marketplace-backend/pkg/logger"
)

// Event is the verified webhook body. ID carries the payment intent id.
type Event struct {
	ID   string                 `json:"id"`
	Type enums.PaymentEventType `json:"type"`
}

type resolver interface {
	Resolve(ctx context.Context, paymentID string, succeeded bool) (*models.Transaction, error)
}

type Service struct {
	resolver resolver
	logg     *logger.Logger
}

func NewService(resolver resolver, logg *logger.Logger) (*Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("transaction resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{resolver: resolver, logg: logg}, nil
}

// HandleEvent resolves the referenced transaction. Event types other than
// succeeded, failed and rejected are acknowledged without effect.
func (s *Service) HandleEvent(ctx context.Context, event Event) error {
	paymentID := strings.TrimSpace(event.ID)
	if paymentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id required").
			WithDetails(map[string]string{"id": "is required"})
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_id": paymentID,
		"event_type": string(event.Type),
	})

	switch {
	case event.Type.IsSuccess():
		_, err := s.resolver.Resolve(ctx, paymentID, true)
		return err
	case event.Type.IsFailure():
		_, err := s.resolver.Resolve(ctx, paymentID, false)
		return err
	default:
		s.logg.Info(ctx, "webhook.event_ignored")
		return nil
	}
}
