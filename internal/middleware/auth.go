package middleware

import (
	"errors"
	"strings"
	"time"

	"letsblog/internal/cache"
	"letsblog/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tokenIssuer   = "letsblog-api"
	tokenAudience = "letsblog-client"
)

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager returns a manager signing with secret. Tokens expire after ttl.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// SessionClaims are the verified claims of a session token.
type SessionClaims struct {
	Username  string
	ID        string
	ExpiresAt time.Time
}

// Generate signs a token for username.
func (m *TokenManager) Generate(username string) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"sub": username,
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": now.Add(m.ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse verifies the signature, issuer, audience and time claims of raw.
func (m *TokenManager) Parse(raw string) (*SessionClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthenticatedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthenticatedError("Invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, models.NewUnauthenticatedError("Invalid subject claim")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, models.NewUnauthenticatedError("Invalid expiration claim")
	}
	jti, _ := claims["jti"].(string)

	return &SessionClaims{Username: sub, ID: jti, ExpiresAt: exp.Time}, nil
}

// Revoke blacklists a token id until it would have expired anyway.
func (m *TokenManager) Revoke(c *fiber.Ctx, rdb *redis.Client) {
	if rdb == nil {
		return
	}
	jti, _ := c.Locals(LocalTokenID).(string)
	exp, _ := c.Locals(LocalTokenExp).(time.Time)
	if jti == "" {
		return
	}
	ttl := exp.Sub(m.now())
	if ttl <= 0 {
		return
	}
	rdb.Set(c.UserContext(), cache.BlacklistKey(jti), "1", ttl)
}

// SessionLookup returns the username of the store's active session, or "".
type SessionLookup func(c *fiber.Ctx) string

// AuthRequired rejects requests without a valid bearer token for the active
// session. Tokens of a logged-out or replaced session no longer pass.
func AuthRequired(tokens *TokenManager, rdb *redis.Client, active SessionLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authorization required"))
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		if claims.ID != "" && rdb != nil {
			revoked, err := rdb.Exists(c.UserContext(), cache.BlacklistKey(claims.ID)).Result()
			if err == nil && revoked > 0 {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthenticatedError("Token has been revoked"))
			}
		}

		if active(c) != claims.Username {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Session is no longer active"))
		}

		c.Locals(LocalUsername, claims.Username)
		c.Locals(LocalTokenID, claims.ID)
		c.Locals(LocalTokenExp, claims.ExpiresAt)
		c.SetUserContext(withLocals(c, c.UserContext()))
		return c.Next()
	}
}

// bearerToken reads the token from the Authorization header, falling back to
// the token query parameter used by websocket clients.
func bearerToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
