// Package coupons administers single-use percentage discount coupons.
package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neline/marketplace-backend/pkg/db"
	"github.com/neline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
	"github.com/neline/marketplace-backend/pkg/logger"
)

const MaxMassCreate = 1000

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput describes a hand-named coupon.
type CreateInput struct {
	Name               string
	Code               string
	DiscountPercentage float64
}

// MassCreateInput describes a batch of generated coupons sharing a name and discount.
type MassCreateInput struct {
	Name               string
	DiscountPercentage float64
	Quantity           int
}

// Service exposes coupon administration plus the checks used at checkout.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Coupon, error)
	MassCreate(ctx context.Context, input MassCreateInput) ([]models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Activate(ctx context.Context, id uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ValidateCode(ctx context.Context, code string) (*models.Coupon, error)
	CheckUsable(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	LockUsable(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Coupon, error)
	Consume(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Coupon, error) {
	name := strings.TrimSpace(input.Name)
	code := strings.TrimSpace(input.Code)
	details := map[string]string{}
	if name == "" {
		details["name"] = "name is required"
	}
	if code == "" {
		details["code"] = "code is required"
	}
	if msg := validatePercentage(input.DiscountPercentage); msg != "" {
		details["discount_percentage"] = msg
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon").WithDetails(details)
	}

	coupon := &models.Coupon{Name: name, Code: code, DiscountPercentage: input.DiscountPercentage, Active: true}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create coupon")
	}
	s.logg.Info(s.logg.WithField(ctx, "coupon_id", coupon.ID.String()), "coupon.created")
	return coupon, nil
}

func (s *service) MassCreate(ctx context.Context, input MassCreateInput) ([]models.Coupon, error) {
	name := strings.TrimSpace(input.Name)
	details := map[string]string{}
	if name == "" {
		details["name"] = "name is required"
	}
	if msg := validatePercentage(input.DiscountPercentage); msg != "" {
		details["discount_percentage"] = msg
	}
	if input.Quantity < 1 || input.Quantity > MaxMassCreate {
		details["quantity"] = fmt.Sprintf("quantity must be between 1 and %d", MaxMassCreate)
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon batch").WithDetails(details)
	}

	codes, err := generateCodes(input.Quantity, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate coupon codes")
	}
	batch := make([]models.Coupon, 0, len(codes))
	for _, code := range codes {
		batch = append(batch, models.Coupon{Name: name, Code: code, DiscountPercentage: input.DiscountPercentage, Active: true})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateBatch(ctx, batch)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "generated coupon code collided, retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create coupon batch")
	}
	s.logg.Info(s.logg.WithField(ctx, "coupon_count", len(batch)), "coupon.mass_created")
	return batch, nil
}

func (s *service) List(ctx context.Context) ([]models.Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list coupons")
	}
	return coupons, nil
}

func (s *service) Activate(ctx context.Context, id uuid.UUID) error {
	used, err := s.repo.IsUsed(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check coupon usage")
	}
	if used {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
	}
	return s.setActive(ctx, id, true)
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, false)
}

func (s *service) setActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update coupon")
	}
	return nil
}

// Delete refuses coupons already attached to a transaction.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	used, err := s.repo.IsUsed(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check coupon usage")
	}
	if used {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete coupon")
	}
	return nil
}

func (s *service) ValidateCode(ctx context.Context, code string) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find coupon")
	}
	if err := s.ensureUsable(ctx, s.repo, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// CheckUsable runs before any inventory lock is taken.
func (s *service) CheckUsable(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, couponLookupError(err)
	}
	if err := s.ensureUsable(ctx, s.repo, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// LockUsable re-checks the coupon under a row lock inside tx so two
// concurrent checkouts cannot both claim it.
func (s *service) LockUsable(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Coupon, error) {
	repo := s.repo.WithTx(tx)
	coupon, err := repo.LockByID(ctx, id)
	if err != nil {
		return nil, couponLookupError(err)
	}
	if err := s.ensureUsable(ctx, repo, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Consume deactivates a coupon attached to a transaction being persisted in tx.
func (s *service) Consume(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if err := s.repo.WithTx(tx).SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("deactivate coupon %s: %w", id, err)
	}
	return nil
}

func (s *service) ensureUsable(ctx context.Context, repo Repository, coupon *models.Coupon) error {
	if !coupon.Active {
		return couponError("coupon is not active")
	}
	used, err := repo.IsUsed(ctx, coupon.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check coupon usage")
	}
	if used {
		return couponError("coupon already used")
	}
	return nil
}

func couponLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return couponError("coupon does not exist")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find coupon")
}

func couponError(msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon").
		WithDetails(map[string]string{"coupon_id": msg})
}

func validatePercentage(pct float64) string {
	if pct <= 0 || pct > 100 {
		return "discount percentage must be greater than 0 and at most 100"
	}
	return ""
}
