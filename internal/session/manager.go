package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "libraryhub"

// claims carry only the session id and the account id; everything else
// about the account is read fresh on each request.
type claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue creates a session for userID and returns the signed token for it.
func (m *Manager) Issue(ctx context.Context, userID int64) (string, *Session, error) {
	now := m.now().UTC()
	s := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return "", nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
		SessionID: s.ID,
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		_ = m.store.Delete(ctx, s.ID)
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, s, nil
}

// Resolve verifies the token and returns its live session.
func (m *Manager) Resolve(ctx context.Context, tokenString string) (*Session, error) {
	c, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}
	s, err := m.store.Get(ctx, c.SessionID)
	if err != nil {
		return nil, err
	}
	if strconv.FormatInt(s.UserID, 10) != c.Subject {
		return nil, ErrInvalidToken
	}
	return s, nil
}

// Revoke deletes the session behind the token. Unknown sessions are not an error.
func (m *Manager) Revoke(ctx context.Context, tokenString string) error {
	c, err := m.parse(tokenString)
	if err != nil {
		return err
	}
	return m.store.Delete(ctx, c.SessionID)
}

func (m *Manager) parse(tokenString string) (*claims, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}
