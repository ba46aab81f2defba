package auth

import (
	"time"
	"vance/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the standard registered claims plus the user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

func GenerateToken(userID uuid.UUID, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID.String(),
	})

	return token.SignedString(secretKey)
}

// UserUUID returns the user id the token was issued for.
func (c *Claims) UserUUID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return uuid.Nil, common.ErrInvalidToken
	}
	return id, nil
}
