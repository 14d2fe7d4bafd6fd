package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/garageworks/repair-shop/internal/model"
)

func runRole(t *testing.T, role interface{}, allowed ...string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != nil {
		c.Set("role", role)
	}

	nextCalled := false
	h := RequireRole(allowed...)(func(c echo.Context) error {
		nextCalled = true
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec, nextCalled
}

func TestRequireRoleAllowed(t *testing.T) {
	rec, next := runRole(t, model.RoleAdmin, model.RoleAdmin, model.RoleTechnician)
	if !next || rec.Code != http.StatusOK {
		t.Fatalf("admin should pass: next=%v code=%d", next, rec.Code)
	}
}

func TestRequireRoleDenied(t *testing.T) {
	rec, next := runRole(t, model.RoleCustomer, model.RoleAdmin)
	if next {
		t.Fatal("customer must not pass an admin gate")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireRoleMissing(t *testing.T) {
	rec, next := runRole(t, nil, model.RoleAdmin)
	if next || rec.Code != http.StatusForbidden {
		t.Fatalf("missing role must be forbidden: next=%v code=%d", next, rec.Code)
	}
}

func TestRequireRoleWrongType(t *testing.T) {
	rec, next := runRole(t, 42, model.RoleAdmin)
	if next || rec.Code != http.StatusForbidden {
		t.Fatalf("non-string role must be forbidden: next=%v code=%d", next, rec.Code)
	}
}
