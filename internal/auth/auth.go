package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtIssuer   = "oberfit-api"
	jwtAudience = "oberfit-users"

	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

type tokenUse string

const (
	useAccess  tokenUse = "access"
	useRefresh tokenUse = "refresh"
)

var (
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrEmptyJWTSecret   = errors.New("jwt secret cannot be empty")
)

// identityClaims carries an Identity in a signed token. The user ID travels
// as the standard subject claim.
type identityClaims struct {
	Role Role     `json:"role"`
	Use  tokenUse `json:"token_use"`
	jwt.RegisteredClaims
}

func (c *identityClaims) identity() (Identity, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil || id <= 0 || !c.Role.Valid() {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: id, Role: c.Role}, nil
}

func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func CheckPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

func sign(id Identity, use tokenUse, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptyJWTSecret
	}

	now := time.Now()
	claims := &identityClaims{
		Role: id.Role,
		Use:  use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(id.UserID),
			Issuer:    jwtIssuer,
			Audience:  jwt.ClaimStrings{jwtAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// IssueAccessToken signs a short-lived token that AuthMiddleware accepts.
func IssueAccessToken(id Identity, secret string) (string, error) {
	return sign(id, useAccess, secret, AccessTokenTTL)
}

// IssueRefreshToken signs a long-lived token that only ParseRefreshToken
// accepts.
func IssueRefreshToken(id Identity, secret string) (string, error) {
	return sign(id, useRefresh, secret, RefreshTokenTTL)
}

func IssueTokenPair(id Identity, accessSecret, refreshSecret string) (access, refresh string, err error) {
	access, err = IssueAccessToken(id, accessSecret)
	if err != nil {
		return "", "", err
	}

	refresh, err = IssueRefreshToken(id, refreshSecret)
	if err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

func ParseAccessToken(token, secret string) (Identity, error) {
	return parse(token, secret, useAccess)
}

func ParseRefreshToken(token, secret string) (Identity, error) {
	return parse(token, secret, useRefresh)
}

// parse verifies signature, issuer, audience and expiry, then rejects a
// token minted for a different use.
func parse(tokenString, secret string, want tokenUse) (Identity, error) {
	if secret == "" {
		return Identity{}, ErrEmptyJWTSecret
	}

	claims := &identityClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jwtIssuer),
		jwt.WithAudience(jwtAudience),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, ErrTokenExpired
	case err != nil:
		return Identity{}, ErrInvalidToken
	}

	if claims.Use != want {
		return Identity{}, ErrInvalidTokenType
	}
	return claims.identity()
}
