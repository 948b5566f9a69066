// Package auth issues and verifies faculty credentials: bcrypt password
// hashes and HS256 bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"faculty-availability-backend/config"
)

var (
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrPasswordMismatch is returned when a password does not match its hash.
	ErrPasswordMismatch = errors.New("password mismatch")
)

// Claims carries the authenticated faculty identity.
type Claims struct {
	FacultyID int64  `json:"id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Credentials hashes passwords and signs tokens for faculty members.
type Credentials struct {
	secret []byte
	issuer string
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

// NewCredentials builds a credential service from the auth configuration.
func NewCredentials(cfg *config.AuthConfig) *Credentials {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Credentials{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		cost:   cost,
		now:    time.Now,
	}
}

// HashPassword returns an opaque bcrypt hash.
func (c *Credentials) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a password against a hash produced by HashPassword.
func (c *Credentials) CheckPassword(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// Issue signs a bearer token for a faculty member.
func (c *Credentials) Issue(facultyID int64, email string) (string, error) {
	now := c.now()
	claims := Claims{
		FacultyID: facultyID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatInt(facultyID, 10),
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   c.issuer,
		},
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify parses a bearer token and returns its claims.
func (c *Credentials) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.FacultyID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
