package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/erazemk/izposoja/internal/model"
)

// Claims identifies the user a session token was issued to.
type Claims struct {
	UserID int64      `json:"user_id"`
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor returns the claims as an acting identity.
func (c *Claims) Actor() model.Actor {
	return model.Actor{ID: c.UserID, Name: c.Name, Role: c.Role}
}

// TokenExpiry is the session lifetime. Office kiosks stay logged in for a
// working day.
const TokenExpiry = 12 * time.Hour

// GenerateToken signs a session token for a user with a unique JTI.
func GenerateToken(secret string, user *model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Name:   user.Name,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprintf("%d", user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a session token, returning its claims.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("invalid role %q", claims.Role)
	}

	return claims, nil
}
