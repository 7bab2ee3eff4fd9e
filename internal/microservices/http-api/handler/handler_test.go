package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"libraryhub/internal/access"
	"libraryhub/internal/microservices/http-api/dto"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testCookie = "libraryhub_session"

var (
	memberUser = &models.User{ID: 7, Username: "reader", FullName: "Ann Reader"}
	adminUser  = &models.User{ID: 1, Username: "admin", FullName: "Admin", IsAdmin: true}
)

type mocks struct {
	auth     *MockAuthService
	books    *MockBookService
	ledger   *MockLedgerService
	accounts *MockAccountService
}

func setupRouter() (*gin.Engine, *mocks) {
	gin.SetMode(gin.TestMode)
	m := &mocks{
		auth:     new(MockAuthService),
		books:    new(MockBookService),
		ledger:   new(MockLedgerService),
		accounts: new(MockAccountService),
	}
	m.auth.On("Authenticate", "member-token").Return(memberUser, nil).Maybe()
	m.auth.On("Authenticate", "admin-token").Return(adminUser, nil).Maybe()
	m.auth.On("Authenticate", "stale-token").Return(nil, service.ErrUnauthorized).Maybe()

	r := NewRouter(RouterDeps{
		Auth:     m.auth,
		Books:    m.books,
		Ledger:   m.ledger,
		Accounts: m.accounts,
		Cookie:   CookieOptions{Name: testCookie, TTL: time.Hour},
	})
	return r, m
}

func doRequest(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestCheckConn(t *testing.T) {
	r, _ := setupRouter()
	w := doRequest(r, http.MethodGet, "/check-conn", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "API is alive")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrUnavailable, http.StatusConflict},
		{service.ErrAlreadyBorrowed, http.StatusConflict},
		{service.ErrAlreadyReturned, http.StatusConflict},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrInvalidOperation, http.StatusBadRequest},
		{service.ErrValidation, http.StatusBadRequest},
		{service.ErrInternal, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestBooks_AnonymousCanBrowse(t *testing.T) {
	r, m := setupRouter()
	m.books.On("List", "").Return([]models.Book{{ID: 1, Title: "1984"}}, nil)
	m.books.On("List", "gatsby").Return([]models.Book{}, nil)

	w := doRequest(r, http.MethodGet, "/api/books", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1984")

	w = doRequest(r, http.MethodGet, "/api/books/search?q=gatsby", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
	m.books.AssertExpectations(t)
}

func TestBooks_GetNotFound(t *testing.T) {
	r, m := setupRouter()
	m.books.On("GetByID", int64(99)).Return(nil, service.ErrNotFound)

	w := doRequest(r, http.MethodGet, "/api/books/99", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodGet, "/api/books/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBooks_CreateGates(t *testing.T) {
	r, m := setupRouter()
	payload := gin.H{"title": "Dune", "author": "Frank Herbert", "isbn": "9780441013593", "total_copies": 2}

	w := doRequest(r, http.MethodPost, "/api/books", "", payload)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodPost, "/api/books", "stale-token", payload)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodPost, "/api/books", "member-token", payload)
	assert.Equal(t, http.StatusForbidden, w.Code)

	m.books.On("Create", mock.MatchedBy(func(b *models.Book) bool {
		return b.Title == "Dune" && b.TotalCopies == 2 && b.AvailableCopies == 2
	})).Return(nil)

	w = doRequest(r, http.MethodPost, "/api/books", "admin-token", payload)
	assert.Equal(t, http.StatusCreated, w.Code)
	m.books.AssertExpectations(t)
}

func TestBooks_CreateRejectsBadPayload(t *testing.T) {
	r, m := setupRouter()
	w := doRequest(r, http.MethodPost, "/api/books", "admin-token", gin.H{"title": "No author"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.books.AssertNotCalled(t, "Create", mock.Anything)
}

func TestBooks_UpdateValidationIs400(t *testing.T) {
	r, m := setupRouter()
	m.books.On("Update", int64(3), mock.AnythingOfType("service.BookUpdate")).
		Return(nil, service.ErrValidation)

	w := doRequest(r, http.MethodPatch, "/api/books/3", "admin-token", gin.H{"available_copies": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBooks_DeleteWithHistoryIsConflict(t *testing.T) {
	r, m := setupRouter()
	m.books.On("Delete", int64(3)).Return(service.ErrConflict)
	m.books.On("Delete", int64(4)).Return(nil)

	w := doRequest(r, http.MethodDelete, "/api/books/3", "admin-token", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(r, http.MethodDelete, "/api/books/4", "admin-token", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBorrow_RequiresAuthentication(t *testing.T) {
	r, m := setupRouter()
	w := doRequest(r, http.MethodPost, "/api/borrows", "", gin.H{"book_id": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	m.ledger.AssertNotCalled(t, "Borrow", mock.Anything, mock.Anything)
}

func TestBorrow_Created(t *testing.T) {
	r, m := setupRouter()
	now := time.Now().UTC()
	m.ledger.On("Borrow", memberUser.ID, int64(2)).Return(&models.Borrow{
		ID: 11, BookID: 2, UserID: memberUser.ID, BorrowDate: now, DueDate: now.Add(14 * 24 * time.Hour),
	}, nil)

	w := doRequest(r, http.MethodPost, "/api/borrows", "member-token", gin.H{"book_id": 2})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.BorrowResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(11), resp.ID)
	assert.Equal(t, models.BorrowStatusActive, resp.Status)
	assert.False(t, resp.IsOverdue)
	assert.Nil(t, resp.ReturnDate)
}

func TestBorrow_ErrorsMapToConflict(t *testing.T) {
	r, m := setupRouter()
	m.ledger.On("Borrow", memberUser.ID, int64(2)).Return(nil, service.ErrUnavailable)
	m.ledger.On("Borrow", memberUser.ID, int64(3)).Return(nil, service.ErrAlreadyBorrowed)
	m.ledger.On("Borrow", memberUser.ID, int64(4)).Return(nil, service.ErrNotFound)

	assert.Equal(t, http.StatusConflict, doRequest(r, http.MethodPost, "/api/borrows", "member-token", gin.H{"book_id": 2}).Code)
	assert.Equal(t, http.StatusConflict, doRequest(r, http.MethodPost, "/api/borrows", "member-token", gin.H{"book_id": 3}).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodPost, "/api/borrows", "member-token", gin.H{"book_id": 4}).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodPost, "/api/borrows", "member-token", gin.H{}).Code)
}

func TestBorrow_InternalErrorIsOpaque(t *testing.T) {
	r, m := setupRouter()
	m.ledger.On("Borrow", memberUser.ID, int64(2)).Return(nil, errors.New("pq: connection refused"))

	w := doRequest(r, http.MethodPost, "/api/borrows", "member-token", gin.H{"book_id": 2})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", errorBody(t, w))
}

func TestReturn_PassesRequester(t *testing.T) {
	r, m := setupRouter()
	returned := time.Now().UTC()
	m.ledger.On("Return", int64(11), memberUser.ID, false).Return(&models.Borrow{
		ID: 11, BookID: 2, UserID: memberUser.ID, IsReturned: true, ReturnDate: &returned,
	}, nil)
	m.ledger.On("Return", int64(12), memberUser.ID, false).Return(nil, service.ErrForbidden)
	m.ledger.On("Return", int64(13), memberUser.ID, false).Return(nil, service.ErrAlreadyReturned)

	w := doRequest(r, http.MethodPost, "/api/borrows/11/return", "member-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.BorrowResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.BorrowStatusReturned, resp.Status)

	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodPost, "/api/borrows/12/return", "member-token", nil).Code)
	assert.Equal(t, http.StatusConflict, doRequest(r, http.MethodPost, "/api/borrows/13/return", "member-token", nil).Code)
}

func TestListBorrows_AdminSeesWholeLedger(t *testing.T) {
	r, m := setupRouter()
	m.ledger.On("ListForAccount", memberUser.ID).Return([]models.Borrow{{ID: 1, UserID: memberUser.ID}}, nil)
	m.ledger.On("ListAll").Return([]models.Borrow{{ID: 1, UserID: memberUser.ID}, {ID: 2, UserID: 9}}, nil)
	m.ledger.On("ListActiveForAccount", adminUser.ID).Return([]models.Borrow{}, nil)

	var list []dto.BorrowResponse
	w := doRequest(r, http.MethodGet, "/api/borrows", "member-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = doRequest(r, http.MethodGet, "/api/borrows", "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	w = doRequest(r, http.MethodGet, "/api/borrows/active", "admin-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
	m.ledger.AssertExpectations(t)
}

func TestUsers_AdminOnly(t *testing.T) {
	r, m := setupRouter()
	m.accounts.On("List").Return([]models.User{*adminUser, *memberUser}, nil)

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, http.MethodGet, "/api/users", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodGet, "/api/users", "member-token", nil).Code)

	w := doRequest(r, http.MethodGet, "/api/users", "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestUsers_Delete(t *testing.T) {
	r, m := setupRouter()
	admin := &access.Principal{UserID: adminUser.ID, IsAdmin: true}
	m.accounts.On("Delete", admin, adminUser.ID).Return(service.ErrInvalidOperation)
	m.accounts.On("Delete", admin, memberUser.ID).Return(nil)
	m.accounts.On("Delete", admin, int64(5)).Return(service.ErrConflict)

	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodDelete, "/api/users/1", "admin-token", nil).Code)
	assert.Equal(t, http.StatusNoContent, doRequest(r, http.MethodDelete, "/api/users/7", "admin-token", nil).Code)
	assert.Equal(t, http.StatusConflict, doRequest(r, http.MethodDelete, "/api/users/5", "admin-token", nil).Code)
}

func TestUsers_Update(t *testing.T) {
	r, m := setupRouter()
	promoted := *memberUser
	promoted.IsAdmin = true
	m.accounts.On("Update", memberUser.ID, mock.MatchedBy(func(in service.AccountUpdate) bool {
		return in.IsAdmin != nil && *in.IsAdmin && in.Username == nil
	})).Return(&promoted, nil)

	w := doRequest(r, http.MethodPatch, "/api/users/7", "admin-token", gin.H{"is_admin": true})
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsAdmin)
}

func TestAuth_LoginSetsCookie(t *testing.T) {
	r, m := setupRouter()
	m.auth.On("Login", "reader", "secret123").Return("member-token", memberUser, nil)

	w := doRequest(r, http.MethodPost, "/api/login", "", gin.H{"username": "reader", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "member-token", resp.Token)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "reader", resp.User.Username)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookie, cookies[0].Name)
	assert.Equal(t, "member-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestAuth_LoginInvalidCredentials(t *testing.T) {
	r, m := setupRouter()
	m.auth.On("Login", "reader", "wrong-pass").Return("", nil, service.ErrInvalidCredentials)

	w := doRequest(r, http.MethodPost, "/api/login", "", gin.H{"username": "reader", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestAuth_RegisterCreated(t *testing.T) {
	r, m := setupRouter()
	m.auth.On("Register", mock.MatchedBy(func(in service.RegisterInput) bool {
		return in.Username == "newbie" && in.FullName == "New Bie"
	})).Return("member-token", memberUser, nil)
	m.auth.On("Register", mock.MatchedBy(func(in service.RegisterInput) bool {
		return in.Username == "taken"
	})).Return("", nil, service.ErrConflict)

	w := doRequest(r, http.MethodPost, "/api/register", "", gin.H{"username": "newbie", "password": "secret123", "full_name": "New Bie"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(r, http.MethodPost, "/api/register", "", gin.H{"username": "taken", "password": "secret123", "full_name": "Some One"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(r, http.MethodPost, "/api/register", "", gin.H{"username": "ab", "password": "123", "full_name": "X"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuth_CurrentUserAndCookieToken(t *testing.T) {
	r, _ := setupRouter()

	req, _ := http.NewRequest(http.MethodGet, "/api/user", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "member-token"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"reader"`)

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, http.MethodGet, "/api/user", "", nil).Code)
}

func TestAuth_LogoutClearsCookie(t *testing.T) {
	r, m := setupRouter()
	m.auth.On("Logout", "member-token").Return(nil)

	w := doRequest(r, http.MethodPost, "/api/logout", "member-token", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)

	w = doRequest(r, http.MethodPost, "/api/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	m.auth.AssertNumberOfCalls(t, "Logout", 1)
}
