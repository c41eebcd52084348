package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"casper-backend/internal/config"
	"casper-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var ErrWrongTokenType = errors.New("wrong token type")

type Claims struct {
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func lifetime(cfg *config.Config, typ TokenType) time.Duration {
	if typ == RefreshToken {
		return cfg.RefreshTokenLifetime
	}
	return cfg.AccessTokenLifetime
}

func GenerateToken(cfg *config.Config, user *models.User, typ TokenType) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    user.ID,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime(cfg, typ))),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

func GeneratePair(cfg *config.Config, user *models.User) (*TokenPair, error) {
	access, err := GenerateToken(cfg, user, AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := GenerateToken(cfg, user, RefreshToken)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// ParseToken validates signature and expiry. want may be empty to accept either type.
func ParseToken(secret, tokenStr string, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if want != "" && claims.TokenType != want {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
