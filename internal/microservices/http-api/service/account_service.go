package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"libraryhub/internal/access"
	"libraryhub/internal/middleware/auth"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 6
	minFullNameLength = 2
	maxFullNameLength = 100
)

// ErrInvalidCredentials is returned for both unknown usernames and wrong passwords.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrUnauthorized)

type RegisterInput struct {
	Username string
	Password string
	FullName string
	Email    *string
}

// AccountUpdate is an admin edit of another account; nil fields are left untouched.
type AccountUpdate struct {
	Username *string
	FullName *string
	Email    *string
	IsAdmin  *bool
}

type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	// CreateAdmin registers an account with the admin flag set. Only the CLI reaches it.
	CreateAdmin(ctx context.Context, in RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id int64, in AccountUpdate) (*models.User, error)
	Delete(ctx context.Context, requester *access.Principal, id int64) error
}

type accountService struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewAccountService(store repository.Store, logger *slog.Logger) AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &accountService{store: store, logger: logger, now: time.Now}
}

func (s *accountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, false)
}

func (s *accountService) CreateAdmin(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, true)
}

func (s *accountService) create(ctx context.Context, in RegisterInput, admin bool) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = trimOptional(in.Email)

	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, validationErr("password must be at least %d characters", minPasswordLength)
	}
	if err := validateFullName(in.FullName); err != nil {
		return nil, err
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}

	if _, err := s.store.Users().FindByUsername(ctx, in.Username); err == nil {
		return nil, fmt.Errorf("%w: username %q is taken", ErrConflict, in.Username)
	} else if !errors.Is(err, repository.ErrRecordNotFound) {
		return nil, internalErr("check username", err)
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, internalErr("hash password", err)
	}

	user := &models.User{
		Username: in.Username,
		Password: hashed,
		FullName: in.FullName,
		Email:    in.Email,
		IsAdmin:  admin,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: username or email already in use", ErrConflict)
		}
		return nil, internalErr("create user", err)
	}

	s.logger.Info("account_registered", "user_id", user.ID, "username", user.Username, "is_admin", admin)
	return user, nil
}

// Authenticate runs one bcrypt comparison whether or not the username exists.
func (s *accountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.Users().FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrRecordNotFound) {
		auth.DummyVerify(password)
		s.logger.Info("login_failed", "username", username, "reason", "unknown_user")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, internalErr("find user", err)
	}
	if err := auth.VerifyPassword(user.Password, password); err != nil {
		s.logger.Info("login_failed", "username", username, "reason", "bad_password")
		return nil, ErrInvalidCredentials
	}

	at := s.now().UTC()
	if err := s.store.Users().TouchLastLogin(ctx, user.ID, at); err != nil {
		// not fatal for the login itself
		s.logger.Warn("touch_last_login_failed", "user_id", user.ID, "error", err)
	} else {
		user.LastLogin = &at
	}
	return user, nil
}

func (s *accountService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.store.Users().FindByID(ctx, id)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, internalErr("get user", err)
	}
	return user, nil
}

func (s *accountService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, internalErr("list users", err)
	}
	return users, nil
}

func (s *accountService) Update(ctx context.Context, id int64, in AccountUpdate) (*models.User, error) {
	var updated *models.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, id)
		if errors.Is(err, repository.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		if err != nil {
			return internalErr("load user", err)
		}

		if in.Username != nil {
			name := strings.TrimSpace(*in.Username)
			if err := validateUsername(name); err != nil {
				return err
			}
			if !strings.EqualFold(name, user.Username) {
				if _, err := tx.Users().FindByUsername(ctx, name); err == nil {
					return fmt.Errorf("%w: username %q is taken", ErrConflict, name)
				} else if !errors.Is(err, repository.ErrRecordNotFound) {
					return internalErr("check username", err)
				}
			}
			user.Username = name
		}
		if in.FullName != nil {
			name := strings.TrimSpace(*in.FullName)
			if err := validateFullName(name); err != nil {
				return err
			}
			user.FullName = name
		}
		if in.Email != nil {
			email := trimOptional(in.Email)
			if err := validateEmail(email); err != nil {
				return err
			}
			user.Email = email
		}
		if in.IsAdmin != nil {
			user.IsAdmin = *in.IsAdmin
		}

		if err := tx.Users().Update(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: username or email already in use", ErrConflict)
			}
			return internalErr("update user", err)
		}
		updated = user
		return nil
	})
	if err = surface("update user", err); err != nil {
		return nil, err
	}
	s.logger.Info("account_updated", "user_id", id)
	return updated, nil
}

// Delete removes an account that has never borrowed. Admins cannot delete
// themselves.
func (s *accountService) Delete(ctx context.Context, requester *access.Principal, id int64) error {
	if err := access.CanDeleteAccount(requester, id); err != nil {
		return err
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().FindByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %d", ErrNotFound, id)
			}
			return internalErr("load user", err)
		}
		refs, err := tx.Borrows().CountByUser(ctx, id)
		if err != nil {
			return internalErr("count borrows", err)
		}
		if refs > 0 {
			return fmt.Errorf("%w: user %d has %d ledger entries", ErrConflict, id, refs)
		}
		if err := tx.Users().Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %d", ErrNotFound, id)
			}
			return internalErr("delete user", err)
		}
		return nil
	})
	if err = surface("delete user", err); err != nil {
		return err
	}
	s.logger.Info("account_deleted", "user_id", id, "deleted_by", requester.UserID)
	return nil
}

func validateUsername(name string) error {
	if n := len(name); n < minUsernameLength || n > maxUsernameLength {
		return validationErr("username must be %d-%d characters", minUsernameLength, maxUsernameLength)
	}
	return nil
}

func validateFullName(name string) error {
	if n := len(name); n < minFullNameLength || n > maxFullNameLength {
		return validationErr("full name must be %d-%d characters", minFullNameLength, maxFullNameLength)
	}
	return nil
}

func validateEmail(email *string) error {
	if email == nil {
		return nil
	}
	if _, err := mail.ParseAddress(*email); err != nil {
		return validationErr("invalid email address")
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
