package handler

import (
	"net/http"
	"time"

	"libraryhub/internal/access"
	"libraryhub/internal/microservices/http-api/dto"
	"libraryhub/internal/microservices/http-api/middleware"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// CookieOptions controls the session cookie written on login.
type CookieOptions struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type AuthHandler struct {
	authService service.AuthService
	cookie      CookieOptions
	loginLimit  *middleware.IPRateLimiter
}

func NewAuthHandler(authService service.AuthService, cookie CookieOptions, loginLimit *middleware.IPRateLimiter) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie, loginLimit: loginLimit}
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	if h.loginLimit != nil {
		rg.POST("/register", middleware.RateLimit(h.loginLimit), h.Register)
		rg.POST("/login", middleware.RateLimit(h.loginLimit), h.Login)
	} else {
		rg.POST("/register", h.Register)
		rg.POST("/login", h.Login)
	}
	rg.POST("/logout", h.Logout)
	rg.GET("/user", middleware.Require(access.OpCurrentUser), h.CurrentUser)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	token, user, err := h.authService.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, http.StatusCreated, token, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	token, user, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, http.StatusOK, token, user)
}

// Logout always succeeds from the client's point of view and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.TokenFromRequest(c, h.cookie.Name)
	if token != "" {
		ctx, cancel := requestContext(c)
		defer cancel()
		if err := h.authService.Logout(ctx, token); err != nil && statusFor(err) == http.StatusInternalServerError {
			respondError(c, err)
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) CurrentUser(c *gin.Context) {
	user := middleware.UserFrom(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

func (h *AuthHandler) startSession(c *gin.Context, status int, token string, user *models.User) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
	c.JSON(status, dto.AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.cookie.TTL.Seconds()),
		User:      dto.NewUserResponse(user),
	})
}
