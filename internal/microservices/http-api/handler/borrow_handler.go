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

type BorrowHandler struct {
	svc service.LedgerService
	now func() time.Time
}

func NewBorrowHandler(svc service.LedgerService) *BorrowHandler {
	return &BorrowHandler{svc: svc, now: time.Now}
}

func (h *BorrowHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", middleware.Require(access.OpBorrow), h.Borrow)
	rg.POST("/:id/return", middleware.Require(access.OpReturnBorrow), h.Return)
	rg.GET("", middleware.Require(access.OpListOwnBorrows), h.List)
	rg.GET("/active", middleware.Require(access.OpListActiveBorrows), h.ListActive)
}

func (h *BorrowHandler) Borrow(c *gin.Context) {
	p := middleware.PrincipalFrom(c)

	var req dto.BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	entry, err := h.svc.Borrow(ctx, p.UserID, req.BookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewBorrowResponse(entry, h.now()))
}

func (h *BorrowHandler) Return(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	entry, err := h.svc.Return(ctx, id, p.UserID, p.IsAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBorrowResponse(entry, h.now()))
}

// List returns the caller's ledger, or the whole ledger for admins.
func (h *BorrowHandler) List(c *gin.Context) {
	p := middleware.PrincipalFrom(c)

	ctx, cancel := requestContext(c)
	defer cancel()

	var (
		list []models.Borrow
		err  error
	)
	if access.Authorize(p, access.OpListAllBorrows) == nil {
		list, err = h.svc.ListAll(ctx)
	} else {
		list, err = h.svc.ListForAccount(ctx, p.UserID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBorrowListResponse(list, h.now()))
}

func (h *BorrowHandler) ListActive(c *gin.Context) {
	p := middleware.PrincipalFrom(c)

	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.svc.ListActiveForAccount(ctx, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBorrowListResponse(list, h.now()))
}
