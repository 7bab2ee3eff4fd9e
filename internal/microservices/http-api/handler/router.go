package handler

import (
	"log/slog"
	"net/http"

	"libraryhub/internal/microservices/http-api/middleware"
	"libraryhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// RouterDeps bundles what the HTTP API needs.
type RouterDeps struct {
	Auth     service.AuthService
	Books    service.BookService
	Ledger   service.LedgerService
	Accounts service.AccountService

	Cookie       CookieOptions
	LoginLimiter *middleware.IPRateLimiter
	Logger       *slog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	r.GET("/check-conn", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is alive"})
	})

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(deps.Auth, deps.Cookie.Name))

	NewAuthHandler(deps.Auth, deps.Cookie, deps.LoginLimiter).RegisterRoutes(api)
	NewBookHandler(deps.Books).RegisterRoutes(api.Group("/books"))
	NewBorrowHandler(deps.Ledger).RegisterRoutes(api.Group("/borrows"))
	NewUserHandler(deps.Accounts).RegisterRoutes(api.Group("/users"))

	return r
}
