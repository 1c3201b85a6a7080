package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medislot/medislot/pkg/pagination"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc := newTestService()
	return NewHandler(svc), svc, echo.New()
}

func TestHandler_CreateCenter(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"name":"Thimphu General","district":"Thimphu","province":"West","opens_at":"08:00","closes_at":"17:00"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateCenter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var got HealthCenter
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID == uuid.Nil || !got.Active {
		t.Errorf("center = %+v", got)
	}
}

func TestHandler_CreateCenter_BadHours(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"name":"Bad Hours","opens_at":"8am"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreateCenter(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetCenter_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.GetCenter(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_ListCenters_OpenAtFilter(t *testing.T) {
	h, svc, e := newTestHandler()
	ctx := context.Background()

	day, night := "08:00", "17:00"
	if err := svc.CreateCenter(ctx, &HealthCenter{Name: "Day Clinic", OpensAt: &day, ClosesAt: &night}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/?open_at=09:30", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListCenters(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp pagination.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}

func TestHandler_ListCenters_InvalidOpenAt(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/?open_at=noon", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ListCenters(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_CreateTest(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"name":"Complete Blood Count","category":"hematology","base_price":450}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateTest(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_AddOffering_DuplicateConflict(t *testing.T) {
	h, svc, e := newTestHandler()
	ctx := context.Background()

	center := &HealthCenter{Name: "Clinic"}
	if err := svc.CreateCenter(ctx, center); err != nil {
		t.Fatalf("seed center: %v", err)
	}
	test := &DiagnosticTest{Name: "CBC", BasePrice: 400}
	if err := svc.CreateTest(ctx, test); err != nil {
		t.Fatalf("seed test: %v", err)
	}
	if err := svc.AddOffering(ctx, &Offering{CenterID: center.ID, TestID: test.ID}); err != nil {
		t.Fatalf("seed offering: %v", err)
	}

	body := `{"test_id":"` + test.ID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(center.ID.String())

	err := h.AddOffering(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_RemoveOffering_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.RemoveOffering(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
