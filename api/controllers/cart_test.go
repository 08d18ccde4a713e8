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
	"github.com/neline/marketplace-backend/internal/cart"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
)

type stubCartService struct {
	lines   []cart.Line
	owner   uuid.UUID
	item    uuid.UUID
	amount  int64
	cleared bool
	err     error
}

func (s *stubCartService) List(_ context.Context, ownerID uuid.UUID) ([]cart.Line, error) {
	s.owner = ownerID
	return s.lines, s.err
}

func (s *stubCartService) Put(_ context.Context, ownerID, itemID uuid.UUID, amount int64) error {
	s.owner, s.item, s.amount = ownerID, itemID, amount
	return s.err
}

func (s *stubCartService) Remove(_ context.Context, ownerID, itemID uuid.UUID) error {
	s.owner, s.item = ownerID, itemID
	return s.err
}

func (s *stubCartService) Clear(_ context.Context, ownerID uuid.UUID) error {
	s.owner, s.cleared = ownerID, true
	return s.err
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func TestCartListTotals(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{lines: []cart.Line{
		{PublicationItemID: uuid.New(), Amount: 2, PricePerUnit: 1000},
		{PublicationItemID: uuid.New(), Amount: 1, PricePerUnit: 500},
	}}
	resp := httptest.NewRecorder()
	CartList(svc, testLogger())(resp, authedRequest(http.MethodGet, "/api/v1/cart", "", userID))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Items []cart.Line `json:"items"`
			Total int64       `json:"total"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Total != 2500 || len(envelope.Data.Items) != 2 {
		t.Fatalf("unexpected cart %+v", envelope.Data)
	}
	if svc.owner != userID {
		t.Fatal("expected caller-scoped lookup")
	}
}

func TestCartPut(t *testing.T) {
	userID, itemID := uuid.New(), uuid.New()
	svc := &stubCartService{}
	req := authedRequest(http.MethodPut, "/api/v1/cart/"+itemID.String(), `{"amount":4}`, userID)
	req = withURLParams(req, map[string]string{"publicationItemId": itemID.String()})
	resp := httptest.NewRecorder()
	CartPut(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if svc.item != itemID || svc.amount != 4 || svc.owner != userID {
		t.Fatalf("unexpected call %+v", svc)
	}
}

func TestCartPutRejectsZeroAmount(t *testing.T) {
	itemID := uuid.New()
	req := authedRequest(http.MethodPut, "/api/v1/cart/"+itemID.String(), `{"amount":0}`, uuid.New())
	req = withURLParams(req, map[string]string{"publicationItemId": itemID.String()})
	resp := httptest.NewRecorder()
	CartPut(&stubCartService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCartRemoveMissingItem(t *testing.T) {
	itemID := uuid.New()
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")}
	req := authedRequest(http.MethodDelete, "/api/v1/cart/"+itemID.String(), "", uuid.New())
	req = withURLParams(req, map[string]string{"publicationItemId": itemID.String()})
	resp := httptest.NewRecorder()
	CartRemove(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestCartClear(t *testing.T) {
	svc := &stubCartService{}
	resp := httptest.NewRecorder()
	CartClear(svc, testLogger())(resp, authedRequest(http.MethodDelete, "/api/v1/cart", "", uuid.New()))

	if resp.Code != http.StatusNoContent || !svc.cleared {
		t.Fatalf("expected cleared cart, got %d", resp.Code)
	}
}
