package transactions

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/neline/marketplace-backend/pkg/db/models"
	"github.com/neline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
)

// Buyer identifies who pays for a checkout.
type Buyer interface {
	Kind() enums.BuyerKind
	apply(txn *models.Transaction)
}

// RegisteredBuyer is an authenticated user shipping to one of their addresses.
type RegisteredBuyer struct {
	UserID            uuid.UUID
	ShippingAddressID uuid.UUID
}

func (RegisteredBuyer) Kind() enums.BuyerKind { return enums.BuyerKindRegistered }

func (b RegisteredBuyer) apply(txn *models.Transaction) {
	userID, addressID := b.UserID, b.ShippingAddressID
	txn.BuyerID = &userID
	txn.ShippingAddressID = &addressID
}

// GuestBuyer checks out without an account. Email is optional.
type GuestBuyer struct {
	Name     string `json:"buyer_name" validate:"required,max=120"`
	LastName string `json:"buyer_lastname" validate:"required,max=120"`
	Phone    string `json:"phone_number" validate:"required,max=20"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Address  string `json:"address" validate:"required,max=255"`
	Region   string `json:"region" validate:"required,max=120"`
	Commune  string `json:"commune" validate:"required,max=120"`
}

func (GuestBuyer) Kind() enums.BuyerKind { return enums.BuyerKindGuest }

func (b GuestBuyer) apply(txn *models.Transaction) {
	txn.Guest = models.GuestContact{
		Name:     b.Name,
		LastName: b.LastName,
		Phone:    b.Phone,
		Email:    b.Email,
		Address:  b.Address,
		Region:   b.Region,
		Commune:  b.Commune,
	}
}

func (b GuestBuyer) normalized() GuestBuyer {
	return GuestBuyer{
		Name:     strings.TrimSpace(b.Name),
		LastName: strings.TrimSpace(b.LastName),
		Phone:    strings.TrimSpace(b.Phone),
		Email:    strings.TrimSpace(b.Email),
		Address:  strings.TrimSpace(b.Address),
		Region:   strings.TrimSpace(b.Region),
		Commune:  strings.TrimSpace(b.Commune),
	}
}

var contactValidator = newContactValidator()

func newContactValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

func validateGuest(b GuestBuyer) error {
	err := contactValidator.Struct(b)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid guest contact")
	}
	details := map[string]string{}
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "email":
			details[fe.Field()] = "must be a valid email"
		case "max":
			details[fe.Field()] = "must be at most " + fe.Param() + " characters"
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid guest contact").WithDetails(details)
}
