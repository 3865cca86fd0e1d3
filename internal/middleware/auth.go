package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lamont703/XRWebsites-sub000/internal/identity"
)

const (
	localUserID  = "user_id"
	localIsAdmin = "is_admin"
)

// CallerClaims are the token claims this service consumes. Token issuance
// lives in the auth service; the ledger core only validates and extracts
// the caller identity.
type CallerClaims struct {
	Admin bool `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuth validates HS256 bearer tokens and stores the caller identity in
// request locals.
func JWTAuth(secret string) fiber.Handler {
	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}

	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		var claims CallerClaims
		token, err := jwt.ParseWithClaims(tokenStr, &claims, keyFunc,
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.Subject == "" {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(localUserID, claims.Subject)
		c.Locals(localIsAdmin, claims.Admin)
		return c.Next()
	}
}

// CallerFrom extracts the authenticated caller placed in locals by JWTAuth.
func CallerFrom(c *fiber.Ctx) identity.Caller {
	caller := identity.Caller{}
	caller.UserID, _ = c.Locals(localUserID).(string)
	caller.Admin, _ = c.Locals(localIsAdmin).(bool)
	return caller
}
