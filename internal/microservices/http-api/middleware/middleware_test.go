package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"libraryhub/internal/access"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockAuthenticator mocks the Authenticator interface
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

const cookieName = "libraryhub_session"

func setupRouter(auth Authenticator, op access.Operation) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(auth, cookieName))
	r.GET("/gated", Require(op), func(c *gin.Context) {
		p := PrincipalFrom(c)
		if p == nil {
			c.JSON(http.StatusOK, gin.H{"user_id": 0})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": p.UserID})
	})
	return r
}

func doGet(r *gin.Engine, setup func(*http.Request)) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/gated", nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestAnonymousReachesOpenRoute(t *testing.T) {
	auth := new(MockAuthenticator)
	w := doGet(setupRouter(auth, access.OpListBooks), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	auth.AssertNotCalled(t, "Authenticate", mock.Anything)
}

func TestAnonymousBlockedFromGatedRoute(t *testing.T) {
	auth := new(MockAuthenticator)
	w := doGet(setupRouter(auth, access.OpBorrow), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerTokenAuthenticates(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("Authenticate", "good").Return(&models.User{ID: 7}, nil)

	w := doGet(setupRouter(auth, access.OpBorrow), bearer("good"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7}`, w.Body.String())
}

func TestCookieAuthenticates(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("Authenticate", "from-cookie").Return(&models.User{ID: 9}, nil)

	w := doGet(setupRouter(auth, access.OpCurrentUser), func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cookieName, Value: "from-cookie"})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":9}`, w.Body.String())
}

func TestInvalidTokenIsAnonymous(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("Authenticate", "stale").Return(nil, service.ErrUnauthorized)

	w := doGet(setupRouter(auth, access.OpBorrow), bearer("stale"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doGet(setupRouter(auth, access.OpGetBook), bearer("stale"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNonAdminForbiddenFromAdminRoute(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("Authenticate", "reader").Return(&models.User{ID: 2}, nil)
	auth.On("Authenticate", "admin").Return(&models.User{ID: 1, IsAdmin: true}, nil)

	r := setupRouter(auth, access.OpCreateBook)
	assert.Equal(t, http.StatusForbidden, doGet(r, bearer("reader")).Code)
	assert.Equal(t, http.StatusOK, doGet(r, bearer("admin")).Code)
}

func TestAuthStoreFailureIs500(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("Authenticate", "tok").Return(nil, errors.New("redis down"))

	w := doGet(setupRouter(auth, access.OpListBooks), bearer("tok"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTokenFromRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "wrong scheme", header: "Basic abc", want: ""},
		{name: "header wins over cookie", header: "Bearer abc", cookie: "xyz", want: "abc"},
		{name: "cookie", cookie: "xyz", want: "xyz"},
		{name: "none", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			req, _ := http.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: cookieName, Value: tc.cookie})
			}
			c.Request = req
			assert.Equal(t, tc.want, TokenFromRequest(c, cookieName))
		})
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", RateLimit(NewIPRateLimiter(0.001, 2)), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	// another client has its own budget
	req, _ := http.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestLogger(logger))
	r.GET("/books/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req, _ := http.NewRequest(http.MethodGet, "/books/42", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"msg":"http_request"`)
	assert.Contains(t, out, `"path":"/books/:id"`)
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"level":"WARN"`)
}
