package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/internal/platform/auth"
	"github.com/caretrack/caretrack/internal/platform/tenancy"
)

func newHandlerFixture(t *testing.T) (*Handler, *mockUserRepo, *echo.Echo) {
	t.Helper()
	svc, repo, _ := newTestService(t)
	return NewHandler(svc), repo, echo.New()
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestLoginHandler_Success(t *testing.T) {
	h, repo, e := newHandlerFixture(t)
	seedUser(t, repo, "carol", auth.RoleUser, nil)

	c, rec := postJSON(e, "/auth/login", `{"username":"carol","password":"`+testPassword+`"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result LoginResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Error("expected tokens in response")
	}
	if strings.Contains(rec.Body.String(), "password_hash") || strings.Contains(rec.Body.String(), "passwordHash") {
		t.Error("password hash leaked into response")
	}
}

func TestLoginHandler_MissingFields(t *testing.T) {
	h, _, e := newHandlerFixture(t)
	c, _ := postJSON(e, "/auth/login", `{"username":"carol"}`)
	err := h.Login(c)
	apiErr, ok := err.(*apierror.ApiError)
	if !ok || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestLoginHandler_BadCredentials(t *testing.T) {
	h, repo, e := newHandlerFixture(t)
	seedUser(t, repo, "carol", auth.RoleUser, nil)

	c, _ := postJSON(e, "/auth/login", `{"username":"carol","password":"nope"}`)
	err := h.Login(c)
	apiErr, ok := err.(*apierror.ApiError)
	if !ok || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestCreateUserHandler(t *testing.T) {
	h, _, e := newHandlerFixture(t)
	body := `{"username":"dave","password":"` + testPassword + `","name":"Dave","role":"user"}`
	c, rec := postJSON(e, "/users", body)
	if err := h.CreateUser(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("password material leaked into response")
	}
}

// stubSegmentLister stands in for the company service when wiring the
// tenancy middleware.
type stubSegmentLister struct{}

func (stubSegmentLister) ListSegmentIDsByCompany(_ context.Context, _ int64) ([]int64, error) {
	return []int64{1}, nil
}

// Account self-service lives outside the segment-scoped group: a user with
// no company assignment can still change their own password, while
// record-level routes keep rejecting them.
func TestAccountRoutesReachableWithoutCompany(t *testing.T) {
	svc, repo, _ := newTestService(t)
	u := seedUser(t, repo, "carol", auth.RoleUser, nil)
	h := NewHandler(svc)

	secret := []byte("0123456789abcdef0123456789abcdef")
	issuer := auth.NewTokenIssuer(secret, 15*time.Minute, 168*time.Hour)
	token, err := issuer.IssueAccessToken(&auth.Principal{UserID: u.ID, Username: u.Username, Role: u.Role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	e := echo.New()
	api := e.Group("/api/v1")
	authed := api.Group("", auth.JWTMiddleware(secret))
	h.RegisterRoutes(authed)
	scoped := authed.Group("", tenancy.SegmentFilter(stubSegmentLister{}))
	scoped.GET("/person-info", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	body := `{"currentPassword":"` + testPassword + `","newPassword":"N3w!Passw0rdXyz"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/change-password", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("change-password for company-less user: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/person-info", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("scoped route for company-less user: expected 403, got %d", rec.Code)
	}
}
