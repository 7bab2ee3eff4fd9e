package handler

import (
	"net/http"

	"libraryhub/internal/access"
	"libraryhub/internal/microservices/http-api/dto"
	"libraryhub/internal/microservices/http-api/middleware"
	"libraryhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type BookHandler struct {
	svc service.BookService
}

func NewBookHandler(svc service.BookService) *BookHandler {
	return &BookHandler{svc: svc}
}

func (h *BookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", middleware.Require(access.OpListBooks), h.List)
	rg.GET("/search", middleware.Require(access.OpSearchBooks), h.List)
	rg.GET("/:id", middleware.Require(access.OpGetBook), h.Get)
	rg.POST("", middleware.Require(access.OpCreateBook), h.Create)
	rg.PATCH("/:id", middleware.Require(access.OpUpdateBook), h.Update)
	rg.DELETE("/:id", middleware.Require(access.OpDeleteBook), h.Delete)
}

// List serves both the catalog listing and search; an empty q lists everything.
func (h *BookHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	books, err := h.svc.List(ctx, c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *BookHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	book, err := h.svc.GetByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *BookHandler) Create(c *gin.Context) {
	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	book := req.ToModel()
	if err := h.svc.Create(ctx, book); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	book, err := h.svc.Update(ctx, id, service.BookUpdate{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		Description:     req.Description,
		Category:        req.Category,
		CoverImage:      req.CoverImage,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.AvailableCopies,
		PublicationYear: req.PublicationYear,
		Publisher:       req.Publisher,
		PageCount:       req.PageCount,
		Language:        req.Language,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *BookHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Delete(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
