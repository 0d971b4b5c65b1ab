// Package auth выпускает и проверяет токены доступа и хэширует пароли.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// TokenTTL: срок жизни токена доступа.
const TokenTTL = 30 * 24 * time.Hour

var errEmptySecret = errors.New("jwt secret must not be empty")

type claims struct {
	UserID  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// TokenManager подписывает токены отдельными секретами для пользователей и администраторов.
type TokenManager struct {
	userSecret  []byte
	adminSecret []byte
	ttl         time.Duration
	now         func() time.Time
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(userSecret, adminSecret string) (*TokenManager, error) {
	if userSecret == "" || adminSecret == "" {
		return nil, errEmptySecret
	}
	return &TokenManager{
		userSecret:  []byte(userSecret),
		adminSecret: []byte(adminSecret),
		ttl:         TokenTTL,
		now:         time.Now,
	}, nil
}

// TTL возвращает срок жизни выпускаемых токенов.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue подписывает HS256-токен секретом, соответствующим роли.
func (m *TokenManager) Issue(userID string, isAdmin bool) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(m.secretFor(isAdmin))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify проверяет токен сначала пользовательским, затем административным секретом.
// Роль берётся из секрета, которым токен подписан, а не только из claims.
func (m *TokenManager) Verify(raw string) (domain.Identity, error) {
	if raw == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}

	if c, err := m.parse(raw, m.userSecret); err == nil {
		return domain.Identity{UserID: c.UserID, IsAdmin: false}, nil
	}
	c, err := m.parse(raw, m.adminSecret)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return domain.Identity{UserID: c.UserID, IsAdmin: c.IsAdmin}, nil
}

func (m *TokenManager) parse(raw string, secret []byte) (*claims, error) {
	parsed := &claims{}
	_, err := jwt.ParseWithClaims(raw, parsed, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if parsed.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	return parsed, nil
}

func (m *TokenManager) secretFor(isAdmin bool) []byte {
	if isAdmin {
		return m.adminSecret
	}
	return m.userSecret
}
