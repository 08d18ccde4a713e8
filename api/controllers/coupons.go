package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/neline/marketplace-backend/api/responses"
	"github.com/neline/marketplace-backend/api/validators"
	"github.com/neline/marketplace-backend/internal/coupons"
	"github.com/neline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
	"github.com/neline/marketplace-backend/pkg/logger"
)

type couponService interface {
	Create(ctx context.Context, input coupons.CreateInput) (*models.Coupon, error)
	MassCreate(ctx context.Context, input coupons.MassCreateInput) ([]models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Activate(ctx context.Context, id uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ValidateCode(ctx context.Context, code string) (*models.Coupon, error)
}

type couponResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Code               string    `json:"code"`
	DiscountPercentage float64   `json:"discount_percentage"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
}

func newCouponResponse(c models.Coupon) couponResponse {
	return couponResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Code:               c.Code,
		DiscountPercentage: c.DiscountPercentage,
		Active:             c.Active,
		CreatedAt:          c.CreatedAt,
	}
}

func newCouponListResponse(list []models.Coupon) []couponResponse {
	out := make([]couponResponse, 0, len(list))
	for _, c := range list {
		out = append(out, newCouponResponse(c))
	}
	return out
}

// ValidateCoupon lets a buyer check a code before checking out.
func ValidateCoupon(svc couponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		code, err := validators.RequiredParam(r, "code")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.ValidateCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"id":                  coupon.ID,
			"discount_percentage": coupon.DiscountPercentage,
		})
	}
}

func ListCoupons(svc couponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCouponListResponse(list))
	}
}

type createCouponRequest struct {
	Name               string  `json:"name" validate:"required,max=120"`
	Code               string  `json:"code" validate:"required,max=64"`
	DiscountPercentage float64 `json:"discount_percentage" validate:"required,gt=0,lte=100"`
}

func CreateCoupon(svc couponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		var payload createCouponRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.Create(r.Context(), coupons.CreateInput{
			Name:               payload.Name,
			Code:               payload.Code,
			DiscountPercentage: payload.DiscountPercentage,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(*coupon))
	}
}

type massCreateCouponRequest struct {
	Name               string  `json:"name" validate:"required,max=120"`
	DiscountPercentage float64 `json:"discount_percentage" validate:"required,gt=0,lte=100"`
	Quantity           int     `json:"quantity" validate:"required,min=1"`
}

// MassCreateCoupons generates a batch of single-use codes.
func MassCreateCoupons(svc couponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		var payload massCreateCouponRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batch, err := svc.MassCreate(r.Context(), coupons.MassCreateInput{
			Name:               payload.Name,
			DiscountPercentage: payload.DiscountPercentage,
			Quantity:           payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponListResponse(batch))
	}
}

func ActivateCoupon(svc couponService, logg *logger.Logger) http.HandlerFunc {
	return couponAction(svc, logg, func(ctx context.Context, id uuid.UUID) error {
		return svc.Activate(ctx, id)
	})
}

func DeactivateCoupon(svc couponService, logg *logger.Logger) http.HandlerFunc {
	return couponAction(svc, logg, func(ctx context.Context, id uuid.UUID) error {
		return svc.Deactivate(ctx, id)
	})
}

// DeleteCoupon removes a coupon no transaction references.
func DeleteCoupon(svc couponService, logg *logger.Logger) http.HandlerFunc {
	return couponAction(svc, logg, func(ctx context.Context, id uuid.UUID) error {
		return svc.Delete(ctx, id)
	})
}

func couponAction(svc couponService, logg *logger.Logger, action func(context.Context, uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := action(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
