package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Classified parse failures. Callers translate these into the machine
// readable 401 codes on the wire (TOKEN_EXPIRED vs INVALID_TOKEN).
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// AccessToken represents a signed session token along with its expiry.
// The Token field contains the JWT string. Exp stores the expiration
// timestamp. Tokens are stateless: nothing is persisted server-side and
// every request is verified by signature and expiry alone.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenClaims is the decoded view of a session token that the rest of the
// application works with. UserID comes from the standard `sub` claim;
// username and role are custom claims set at issue time.
type TokenClaims struct {
	UserID    uint64
	Username  string
	Role      string
	ExpiresAt time.Time
}

// NewAccessToken builds and signs an HS256 JWT for a user. It takes the
// signing secret, the user's id, username and role, and a TTL in hours.
// The JWT includes standard claims: subject (sub), expiration (exp) and
// issued at (iat), plus username and role. Pure function of its inputs
// and the clock; no side effects.
func NewAccessToken(secret string, userID uint64, username, role string, ttlHours int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlHours) * time.Hour)
	claims := jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"role":     role,
		"exp":      exp.Unix(),
		"iat":      time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of a raw token and
// returns its claims. Expired tokens are reported as ErrTokenExpired,
// every other failure (bad signature, wrong algorithm, malformed claims)
// as ErrTokenInvalid so callers can surface distinct error codes.
func ParseAccessToken(secret, raw string) (TokenClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Type assert the signing method to HMAC; reject others.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrTokenExpired
		}
		return TokenClaims{}, ErrTokenInvalid
	}
	if !tok.Valid {
		return TokenClaims{}, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrTokenInvalid
	}

	out := TokenClaims{}
	switch sub := claims["sub"].(type) {
	case float64:
		out.UserID = uint64(sub)
	default:
		return TokenClaims{}, ErrTokenInvalid
	}
	if v, ok := claims["username"].(string); ok {
		out.Username = v
	}
	if v, ok := claims["role"].(string); ok {
		out.Role = v
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	return out, nil
}

// ShouldRenew reports whether a token with the given expiry is inside the
// renewal window and needs a replacement attached to the response.
func ShouldRenew(expiresAt time.Time, within time.Duration) bool {
	return time.Until(expiresAt) < within
}
