package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is what this service cares about from a bearer token: who the
// caller is and whether it is a human session or a service-to-service token.
// Token issuance lives in the account service; we only validate.
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

type Validator interface {
	ValidateToken(token string) (*TokenClaims, error)
}

type hmacValidator struct {
	secret []byte
}

func NewValidator(secret string) Validator {
	return &hmacValidator{secret: []byte(secret)}
}

func (v *hmacValidator) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}

	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return &TokenClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
	}, nil
}
