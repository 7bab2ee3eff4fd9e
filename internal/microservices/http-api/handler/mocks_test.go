package handler

import (
	"context"

	"libraryhub/internal/access"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"

	"github.com/stretchr/testify/mock"
)

// MockAuthService mocks the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in service.RegisterInput) (string, *models.User, error) {
	args := m.Called(in)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.User), args.Error(2)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	args := m.Called(username, password)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.User), args.Error(2)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *MockAuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockBookService mocks the BookService interface
type MockBookService struct {
	mock.Mock
}

func (m *MockBookService) List(ctx context.Context, search string) ([]models.Book, error) {
	args := m.Called(search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockBookService) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) Create(ctx context.Context, b *models.Book) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockBookService) Update(ctx context.Context, id int64, in service.BookUpdate) (*models.Book, error) {
	args := m.Called(id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) Delete(ctx context.Context, id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockLedgerService mocks the LedgerService interface
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Borrow(ctx context.Context, accountID, bookID int64) (*models.Borrow, error) {
	args := m.Called(accountID, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Borrow), args.Error(1)
}

func (m *MockLedgerService) Return(ctx context.Context, borrowID, requesterID int64, requesterIsAdmin bool) (*models.Borrow, error) {
	args := m.Called(borrowID, requesterID, requesterIsAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Borrow), args.Error(1)
}

func (m *MockLedgerService) ListForAccount(ctx context.Context, accountID int64) ([]models.Borrow, error) {
	args := m.Called(accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Borrow), args.Error(1)
}

func (m *MockLedgerService) ListActiveForAccount(ctx context.Context, accountID int64) ([]models.Borrow, error) {
	args := m.Called(accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Borrow), args.Error(1)
}

func (m *MockLedgerService) ListAll(ctx context.Context) ([]models.Borrow, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Borrow), args.Error(1)
}

func (m *MockLedgerService) Reconcile(ctx context.Context) ([]service.AvailabilityReport, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.AvailabilityReport), args.Error(1)
}

// MockAccountService mocks the AccountService interface
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Register(ctx context.Context, in service.RegisterInput) (*models.User, error) {
	args := m.Called(in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAccountService) CreateAdmin(ctx context.Context, in service.RegisterInput) (*models.User, error) {
	args := m.Called(in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	args := m.Called(username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAccountService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAccountService) List(ctx context.Context) ([]models.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockAccountService) Update(ctx context.Context, id int64, in service.AccountUpdate) (*models.User, error) {
	args := m.Called(id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAccountService) Delete(ctx context.Context, requester *access.Principal, id int64) error {
	args := m.Called(requester, id)
	return args.Error(0)
}
