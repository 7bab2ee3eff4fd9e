package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
	"libraryhub/internal/session"
)

// SessionManager is the part of session.Manager the auth flow needs.
type SessionManager interface {
	Issue(ctx context.Context, userID int64) (string, *session.Session, error)
	Resolve(ctx context.Context, token string) (*session.Session, error)
	Revoke(ctx context.Context, token string) error
}

type AuthService interface {
	// Register creates a regular account and opens a session for it.
	Register(ctx context.Context, in RegisterInput) (token string, user *models.User, err error)
	Login(ctx context.Context, username, password string) (token string, user *models.User, err error)
	Logout(ctx context.Context, token string) error
	// Authenticate resolves a token to its account, re-read from the store so
	// role changes and deletions apply to sessions that are already open.
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type authService struct {
	accounts AccountService
	store    repository.Store
	sessions SessionManager
	logger   *slog.Logger
}

func NewAuthService(accounts AccountService, store repository.Store, sessions SessionManager, logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{accounts: accounts, store: store, sessions: sessions, logger: logger}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (string, *models.User, error) {
	user, err := s.accounts.Register(ctx, in)
	if err != nil {
		return "", nil, err
	}
	token, _, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return "", nil, internalErr("issue session", err)
	}
	return token, user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.accounts.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	token, sess, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return "", nil, internalErr("issue session", err)
	}
	s.logger.Info("login", "user_id", user.ID, "session_id", sess.ID)
	return token, user, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	err := s.sessions.Revoke(ctx, token)
	if errors.Is(err, session.ErrInvalidToken) {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if err != nil {
		return internalErr("revoke session", err)
	}
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	sess, err := s.sessions.Resolve(ctx, token)
	if errors.Is(err, session.ErrInvalidToken) || errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if err != nil {
		return nil, internalErr("resolve session", err)
	}

	user, err := s.store.Users().FindByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrRecordNotFound) {
		// account deleted while the session was open
		_ = s.sessions.Revoke(ctx, token)
		return nil, fmt.Errorf("%w: account no longer exists", ErrUnauthorized)
	}
	if err != nil {
		return nil, internalErr("load session user", err)
	}
	return user, nil
}
