package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/deaglo/apigateway/internal/config"
	"github.com/deaglo/apigateway/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// MsgInvalidToken is shown to clients for every token failure.
const MsgInvalidToken = "Token is invalid or expired"

var ErrInvalidToken = errors.New("token is invalid or expired")

// Claims are carried by both token kinds. Level is the caller's role, e.g.
// PREMIUM_MEMBER, so clients can gate features without a profile call.
type Claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	Level     string `json:"level,omitempty"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(cfg.SecretKey),
		accessTTL:  time.Duration(cfg.AccessTTLDays) * 24 * time.Hour,
		refreshTTL: time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
		now:        time.Now,
	}
}

func (t *TokenIssuer) Issue(u *model.User) (TokenPair, error) {
	refresh, err := t.sign(u, TokenTypeRefresh, t.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	access, err := t.sign(u, TokenTypeAccess, t.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Refresh: refresh, Access: access}, nil
}

func (t *TokenIssuer) sign(u *model.User, tokenType string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		UserID:    u.ID.String(),
		TokenType: tokenType,
		Level:     u.Level(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Parse validates signature, expiry and kind and returns the claims.
func (t *TokenIssuer) Parse(raw, tokenType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
