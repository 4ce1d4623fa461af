// Package tenancy implements segment-based data scoping. Every client-facing
// record optionally belongs to a segment; a segment belongs to exactly one
// company. A caller may only touch data in segments owned by their company.
// Admins without a company assignment are unrestricted.
package tenancy

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/caretrack/caretrack/internal/platform/auth"
)

type contextKey string

const scopeKey contextKey = "segment_scope"

// SegmentLister resolves the segment ids owned by a company. Implemented by
// the company repository.
type SegmentLister interface {
	ListSegmentIDsByCompany(ctx context.Context, companyID int64) ([]int64, error)
}

// Scope is the set of segments visible to the caller. Unrestricted scopes
// (super admins) see everything, including records with no segment.
type Scope struct {
	Unrestricted bool
	SegmentIDs   []int64
}

// Allows reports whether a record in the given segment (nil = global) is
// visible. Global records are visible to every scoped caller.
func (s *Scope) Allows(segmentID *int64) bool {
	if s == nil {
		return false
	}
	if s.Unrestricted {
		return true
	}
	if segmentID == nil {
		return true
	}
	for _, id := range s.SegmentIDs {
		if id == *segmentID {
			return true
		}
	}
	return false
}

// FilterIDs returns the segment id list for SQL filtering, or nil when the
// scope is unrestricted.
func (s *Scope) FilterIDs() []int64 {
	if s == nil || s.Unrestricted {
		return nil
	}
	return s.SegmentIDs
}

// SegmentFilter resolves the caller's visible segment set once per request
// and stores it in the context for handlers and repositories to filter by.
// Non-admin users without a company assignment are rejected outright.
func SegmentFilter(lister SegmentLister) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			p := auth.PrincipalFromContext(ctx)
			if p == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}

			if p.IsSuperAdmin() {
				c.SetRequest(c.Request().WithContext(WithScope(ctx, &Scope{Unrestricted: true})))
				return next(c)
			}

			if p.CompanyID == nil {
				return echo.NewHTTPError(http.StatusForbidden, "no company assigned")
			}

			ids, err := lister.ListSegmentIDsByCompany(ctx, *p.CompanyID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve segment access")
			}

			c.SetRequest(c.Request().WithContext(WithScope(ctx, &Scope{SegmentIDs: ids})))
			return next(c)
		}
	}
}

// RequireSegmentAccess rejects requests whose segmentId query parameter lies
// outside the caller's scope. Segment ids carried in request bodies are
// validated by the services through Scope.Allows.
func RequireSegmentAccess() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.QueryParam("segmentId")
			if raw == "" {
				return next(c)
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid segmentId")
			}
			scope := ScopeFromContext(c.Request().Context())
			if !scope.Allows(&id) {
				return echo.NewHTTPError(http.StatusForbidden, "segment access denied")
			}
			return next(c)
		}
	}
}

// ScopeFromContext returns the caller's segment scope, or nil when the
// SegmentFilter middleware did not run.
func ScopeFromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey).(*Scope)
	return s
}

// WithScope stores a scope in ctx. Used by middleware and tests.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}
