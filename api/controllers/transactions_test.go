package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/neline/marketplace-backend/api/middleware"
	"github.com/neline/marketplace-backend/internal/transactions"
	"github.com/neline/marketplace-backend/pkg/db/models"
	"github.com/neline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
)

type stubCheckoutService struct {
	input  transactions.CheckoutInput
	result *transactions.CheckoutResult
	err    error
	calls  int
}

func (s *stubCheckoutService) Checkout(_ context.Context, input transactions.CheckoutInput) (*transactions.CheckoutResult, error) {
	s.calls++
	s.input = input
	return s.result, s.err
}

type stubTransactionQueries struct {
	purchases []models.Transaction
	sales     []models.TransactionPointer
	gotID     uuid.UUID
}

func (s *stubTransactionQueries) ListPurchases(_ context.Context, buyerID uuid.UUID) ([]models.Transaction, error) {
	s.gotID = buyerID
	return s.purchases, nil
}

func (s *stubTransactionQueries) ListSales(_ context.Context, sellerID uuid.UUID) ([]models.TransactionPointer, error) {
	s.gotID = sellerID
	return s.sales, nil
}

func TestCheckoutUsesAuthenticatedBuyer(t *testing.T) {
	userID := uuid.New()
	addressID := uuid.New()
	svc := &stubCheckoutService{result: &transactions.CheckoutResult{PaymentID: "pi_1", WidgetToken: "wt_1", Amount: 500}}

	body := `{"shipping_address_id":"` + addressID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/checkout", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	resp := httptest.NewRecorder()
	Checkout(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	buyer, ok := svc.input.Buyer.(transactions.RegisteredBuyer)
	if !ok {
		t.Fatalf("expected registered buyer, got %T", svc.input.Buyer)
	}
	if buyer.UserID != userID || buyer.ShippingAddressID != addressID {
		t.Fatalf("unexpected buyer %+v", buyer)
	}
	var envelope struct {
		Data checkoutResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.PaymentID != "pi_1" || envelope.Data.WidgetToken != "wt_1" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestCheckoutRequiresAuthentication(t *testing.T) {
	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/checkout", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Checkout(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service should not be called")
	}
}

func TestGuestCheckoutMapsLines(t *testing.T) {
	itemID := uuid.New()
	couponID := uuid.New()
	svc := &stubCheckoutService{result: &transactions.CheckoutResult{PaymentID: "pi_guest"}}

	body := `{
		"buyer_name":"Ana","buyer_lastname":"Rojas","phone_number":"+56911111111",
		"email":"ana@example.com","region":"RM","commune":"Santiago","address":"Calle 1",
		"publication_items_list":[{"id":"` + itemID.String() + `","amount":3}],
		"coupon_id":"` + couponID.String() + `"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/checkout/guest", strings.NewReader(body))
	resp := httptest.NewRecorder()
	GuestCheckout(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	guest, ok := svc.input.Buyer.(transactions.GuestBuyer)
	if !ok {
		t.Fatalf("expected guest buyer, got %T", svc.input.Buyer)
	}
	if guest.Email != "ana@example.com" || guest.Commune != "Santiago" {
		t.Fatalf("unexpected guest %+v", guest)
	}
	if len(svc.input.Lines) != 1 || svc.input.Lines[0].PublicationItemID != itemID || svc.input.Lines[0].Quantity != 3 {
		t.Fatalf("unexpected lines %+v", svc.input.Lines)
	}
	if svc.input.CouponID == nil || *svc.input.CouponID != couponID {
		t.Fatalf("expected coupon %s", couponID)
	}
}

func TestGuestCheckoutRejectsEmptyLines(t *testing.T) {
	svc := &stubCheckoutService{}
	body := `{"buyer_name":"Ana","buyer_lastname":"Rojas","phone_number":"1","region":"RM","commune":"S","address":"A","publication_items_list":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/checkout/guest", strings.NewReader(body))
	resp := httptest.NewRecorder()
	GuestCheckout(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service should not be called")
	}
}

func TestCheckoutSurfacesReservationDetails(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeReservation, "reservation failed").
		WithDetails(map[string][]string{"publication_x": {"insufficient units available"}})}
	body := `{"shipping_address_id":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/checkout", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
	resp := httptest.NewRecorder()
	Checkout(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "insufficient units available") {
		t.Fatalf("expected per-line details, got %s", resp.Body.String())
	}
}

func TestPurchasesListsCallerTransactions(t *testing.T) {
	userID := uuid.New()
	svc := &stubTransactionQueries{purchases: []models.Transaction{{
		ID:        uuid.New(),
		PaymentID: "pi_9",
		Status:    enums.TransactionStatusSucceeded,
		Amount:    900,
		Pointers:  []models.TransactionPointer{{Amount: 3, PricePerUnit: 300}},
	}}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/purchases", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	resp := httptest.NewRecorder()
	Purchases(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.gotID != userID {
		t.Fatalf("expected lookup by caller")
	}
	var envelope struct {
		Data []purchaseResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].Pointers[0].Subtotal != 900 {
		t.Fatalf("unexpected purchases %+v", envelope.Data)
	}
}

func TestSalesRequiresAuthentication(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/sales", nil)
	resp := httptest.NewRecorder()
	Sales(&stubTransactionQueries{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
