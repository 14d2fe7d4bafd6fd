package middleware // middleware contains reusable HTTP middleware functions

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/garageworks/repair-shop/internal/model"
	"github.com/garageworks/repair-shop/internal/repository"
	"github.com/garageworks/repair-shop/internal/utils"
)

// Machine readable 401 codes. Clients key off these to decide whether to
// clear stored credentials and bounce to the login flow.
const (
	CodeNoAuthHeader = "NO_AUTH_HEADER"
	CodeNoToken      = "NO_TOKEN"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeUserNotFound = "USER_NOT_FOUND"
	CodeAuthFailed   = "AUTH_FAILED"
)

// RenewalHeader carries a replacement token when the presented one is
// close to expiry. Clients must persist it and drop the old token.
const RenewalHeader = "X-New-Token"

// UserStore is the slice of the user repository the auth middleware needs.
// Declared here so tests can substitute a fake.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	TouchLastLogin(ctx context.Context, id uint64) error
}

// Auth returns an Echo middleware that authenticates the request via a
// Bearer session token. On success it stores the resolved user under
// "user", plus "user_id" (uint64) and "role" (string) for cheaper access,
// and the raw credential under "token".
//
// Behaviour beyond plain verification:
//   - tokens with less than renewWithin of lifetime left get a fresh
//     replacement attached as the X-New-Token response header; issuing
//     the replacement never blocks or fails the request
//   - the user's last_login_at is stamped best-effort on every
//     authenticated request
//   - every failure is a 401 with a machine readable code; nothing on
//     this path is allowed to surface as a 500
func Auth(secret string, ttlHours int, renewWithin time.Duration, users UserStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" {
				return authError(c, CodeNoAuthHeader, "No authorization header found")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer"))
			if raw == "" {
				return authError(c, CodeNoToken, "No token provided")
			}

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					return authError(c, CodeTokenExpired, "Token has expired")
				}
				return authError(c, CodeInvalidToken, "Invalid token")
			}

			u, err := users.GetByID(c.Request().Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					return authError(c, CodeUserNotFound, "User not found")
				}
				// Unexpected lookup failure stays a 401, never a 500.
				return authError(c, CodeAuthFailed, "Authentication failed")
			}

			if utils.ShouldRenew(claims.ExpiresAt, renewWithin) {
				if fresh, err := utils.NewAccessToken(secret, u.ID, u.Username, u.Role, ttlHours); err == nil {
					c.Response().Header().Set(RenewalHeader, fresh.Token)
				}
			}

			// Best effort; a failed stamp must not fail the request.
			_ = users.TouchLastLogin(c.Request().Context(), u.ID)

			c.Set("user", u)
			c.Set("user_id", u.ID)
			c.Set("role", u.Role)
			c.Set("token", raw)
			return next(c)
		}
	}
}

func authError(c echo.Context, code, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "code": code})
}

// CurrentUser returns the authenticated user stored by Auth. The boolean
// is false when the middleware did not run (misconfigured route).
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get("user").(model.User)
	return u, ok
}
