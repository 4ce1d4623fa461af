package company

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/caretrack/caretrack/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	h := NewHandler(newTestService())
	e := echo.New()
	return h, e
}

func TestCreateCompanyHandler(t *testing.T) {
	h, e := newTestHandler()
	body := `{"name":"Harbor Care","city":"Sydney"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.CreateCompany(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var result Company
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.ID == 0 || result.Name != "Harbor Care" {
		t.Errorf("unexpected response: %+v", result)
	}
}

func TestGetCompanyHandler_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	err := h.GetCompany(c)
	if err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}

func TestUserSegmentsHandler(t *testing.T) {
	h, e := newTestHandler()
	companyID := int64(1)
	h.svc.CreateSegment(context.Background(), &Segment{Name: "North", CompanyID: companyID})

	req := httptest.NewRequest(http.MethodGet, "/user/segments", nil)
	p := &auth.Principal{UserID: 5, Role: auth.RoleUser, CompanyID: &companyID}
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.UserSegments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var segs []Segment
	json.Unmarshal(rec.Body.Bytes(), &segs)
	if len(segs) != 1 || segs[0].Name != "North" {
		t.Errorf("unexpected segments: %v", segs)
	}
}

func TestListSegmentsHandler_FiltersByCompany(t *testing.T) {
	h, e := newTestHandler()
	h.svc.CreateSegment(context.Background(), &Segment{Name: "A", CompanyID: 1})
	h.svc.CreateSegment(context.Background(), &Segment{Name: "B", CompanyID: 2})

	req := httptest.NewRequest(http.MethodGet, "/segments?companyId=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.ListSegments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var segs []Segment
	json.Unmarshal(rec.Body.Bytes(), &segs)
	if len(segs) != 1 || segs[0].Name != "B" {
		t.Errorf("expected only company 2 segments, got %v", segs)
	}
}
