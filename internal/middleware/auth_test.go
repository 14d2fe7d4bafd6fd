package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/garageworks/repair-shop/internal/model"
	"github.com/garageworks/repair-shop/internal/repository"
	"github.com/garageworks/repair-shop/internal/utils"
)

type fakeUserStore struct {
	getFn    func(ctx context.Context, id uint64) (model.User, error)
	touched  []uint64
	touchErr error
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	if f.getFn == nil {
		return model.User{}, repository.ErrUserNotFound
	}
	return f.getFn(ctx, id)
}

func (f *fakeUserStore) TouchLastLogin(ctx context.Context, id uint64) error {
	f.touched = append(f.touched, id)
	return f.touchErr
}

const testSecret = "test-secret"

func runAuth(t *testing.T, authHeader string, users UserStore) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/repairs", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	nextCalled := false
	h := Auth(testSecret, 24, time.Hour, users)(func(c echo.Context) error {
		nextCalled = true
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec, c, nextCalled
}

func authCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body.Code
}

func validUser() model.User {
	return model.User{ID: 7, Name: "Jane", Username: "jane", Email: "jane@example.com", Role: model.RoleCustomer}
}

func tokenFor(t *testing.T, u model.User, ttlHours int) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, u.ID, u.Username, u.Role, ttlHours)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok.Token
}

func TestAuthMissingHeader(t *testing.T) {
	rec, _, next := runAuth(t, "", &fakeUserStore{})
	if next {
		t.Fatal("next handler should not run")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := authCode(t, rec); code != CodeNoAuthHeader {
		t.Errorf("expected code %s, got %s", CodeNoAuthHeader, code)
	}
}

func TestAuthEmptyBearer(t *testing.T) {
	rec, _, _ := runAuth(t, "Bearer ", &fakeUserStore{})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := authCode(t, rec); code != CodeNoToken {
		t.Errorf("expected code %s, got %s", CodeNoToken, code)
	}
}

func TestAuthInvalidToken(t *testing.T) {
	rec, _, _ := runAuth(t, "Bearer not-a-token", &fakeUserStore{})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := authCode(t, rec); code != CodeInvalidToken {
		t.Errorf("expected code %s, got %s", CodeInvalidToken, code)
	}
}

func TestAuthExpiredToken(t *testing.T) {
	u := validUser()
	rec, _, _ := runAuth(t, "Bearer "+tokenFor(t, u, -1), &fakeUserStore{})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := authCode(t, rec); code != CodeTokenExpired {
		t.Errorf("expected code %s, got %s", CodeTokenExpired, code)
	}
}

func TestAuthUserDeleted(t *testing.T) {
	u := validUser()
	store := &fakeUserStore{getFn: func(ctx context.Context, id uint64) (model.User, error) {
		return model.User{}, repository.ErrUserNotFound
	}}
	rec, _, _ := runAuth(t, "Bearer "+tokenFor(t, u, 24), store)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := authCode(t, rec); code != CodeUserNotFound {
		t.Errorf("expected code %s, got %s", CodeUserNotFound, code)
	}
}

func TestAuthLookupFailureStays401(t *testing.T) {
	u := validUser()
	store := &fakeUserStore{getFn: func(ctx context.Context, id uint64) (model.User, error) {
		return model.User{}, errors.New("connection refused")
	}}
	rec, _, _ := runAuth(t, "Bearer "+tokenFor(t, u, 24), store)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected failures must stay 401, got %d", rec.Code)
	}
	if code := authCode(t, rec); code != CodeAuthFailed {
		t.Errorf("expected code %s, got %s", CodeAuthFailed, code)
	}
}

func TestAuthSuccess(t *testing.T) {
	u := validUser()
	store := &fakeUserStore{getFn: func(ctx context.Context, id uint64) (model.User, error) {
		if id != u.ID {
			t.Errorf("expected lookup for id %d, got %d", u.ID, id)
		}
		return u, nil
	}}
	rec, c, next := runAuth(t, "Bearer "+tokenFor(t, u, 24), store)
	if !next {
		t.Fatal("next handler did not run")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got, ok := CurrentUser(c); !ok || got.ID != u.ID {
		t.Errorf("expected user %d in context, got %+v ok=%v", u.ID, got, ok)
	}
	if role, _ := c.Get("role").(string); role != model.RoleCustomer {
		t.Errorf("expected role in context, got %q", role)
	}
	// A fresh 24h token is far from the renewal window.
	if h := rec.Header().Get(RenewalHeader); h != "" {
		t.Errorf("unexpected renewal header on fresh token: %q", h)
	}
	if len(store.touched) != 1 || store.touched[0] != u.ID {
		t.Errorf("expected last-login touch for user %d, got %v", u.ID, store.touched)
	}
}

func TestAuthRenewalNearExpiry(t *testing.T) {
	u := validUser()
	store := &fakeUserStore{getFn: func(ctx context.Context, id uint64) (model.User, error) {
		return u, nil
	}}
	// A 1h token is already inside the 1h renewal window.
	rec, _, next := runAuth(t, "Bearer "+tokenFor(t, u, 1), store)
	if !next {
		t.Fatal("renewal must not block the request")
	}
	fresh := rec.Header().Get(RenewalHeader)
	if fresh == "" {
		t.Fatal("expected renewal header on near-expiry token")
	}
	claims, err := utils.ParseAccessToken(testSecret, fresh)
	if err != nil {
		t.Fatalf("replacement token does not parse: %v", err)
	}
	if remaining := time.Until(claims.ExpiresAt); remaining < 23*time.Hour {
		t.Errorf("replacement should carry a fresh 24h horizon, has %s", remaining)
	}
	if claims.UserID != u.ID || claims.Role != u.Role {
		t.Errorf("replacement claims mismatch: %+v", claims)
	}
}

func TestAuthTouchFailureIgnored(t *testing.T) {
	u := validUser()
	store := &fakeUserStore{
		getFn:    func(ctx context.Context, id uint64) (model.User, error) { return u, nil },
		touchErr: errors.New("write failed"),
	}
	rec, _, next := runAuth(t, "Bearer "+tokenFor(t, u, 24), store)
	if !next || rec.Code != http.StatusOK {
		t.Fatalf("last-login failure must not fail the request: next=%v code=%d", next, rec.Code)
	}
}
