package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/persistence"
)

// tokenTTL is the fixed lifetime of an issued token.
const tokenTTL = 2 * time.Hour

// Claims is the token payload. Tokens are stateless: everything the request
// handlers need about the caller travels inside.
type Claims struct {
	ID    int64       `json:"id"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Auth verifies credentials and mints signed tokens.
type Auth struct {
	persistence persistence.Persistence
	secret      []byte
}

// NewAuth creates a new authentication service.
func NewAuth(persistence persistence.Persistence, secret string) *Auth {
	return &Auth{
		persistence: persistence,
		secret:      []byte(secret),
	}
}

// Login resolves the account by email, checks the password and returns a
// signed token together with the user. Unknown emails and wrong passwords
// are indistinguishable to the caller.
func (a *Auth) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := a.persistence.Users().GetByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	if user == nil {
		return "", nil, ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := a.mintToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (a *Auth) mintToken(user *models.User) (string, error) {
	now := time.Now()

	claims := Claims{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}

// VerifyToken parses and validates a token string and returns its claims.
func (a *Auth) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
