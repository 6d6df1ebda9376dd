package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/queries"
)

const thumbnailField = "thumbnail"

// BooksController serves the catalog: public listing and detail, admin
// editing and the admin dashboard.
type BooksController struct {
	reader  TitleReader
	manager TitleManager
}

func NewBooksController(reader TitleReader, manager TitleManager) *BooksController {
	return &BooksController{
		reader:  reader,
		manager: manager,
	}
}

// AddBookRequest is bound from a multipart form or a JSON body.
type AddBookRequest struct {
	Title           string `form:"title" json:"title"`
	Author          string `form:"author" json:"author"`
	Description     string `form:"description" json:"description"`
	PublicationYear int    `form:"publicationYear" json:"publicationYear"`
	Quantity        int    `form:"quantity" json:"quantity"`
}

// UpdateBookRequest is a partial update; absent fields stay unchanged.
type UpdateBookRequest struct {
	Title           *string `form:"title" json:"title"`
	Author          *string `form:"author" json:"author"`
	Description     *string `form:"description" json:"description"`
	PublicationYear *int    `form:"publicationYear" json:"publicationYear"`
	Quantity        *int    `form:"quantity" json:"quantity"`
}

// ListBooks handles GET /api/v1/book
// Query parameters: page, limit, query (search text), available=true.
func (bc *BooksController) ListBooks(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	availableOnly, ok := parseBoolQuery(c, "available", false)
	if !ok {
		return
	}

	result, err := bc.reader.ListTitles(c.Request.Context(), queries.TitleQuery{
		Page:          page,
		Search:        strings.TrimSpace(c.Query("query")),
		AvailableOnly: availableOnly,
	})
	if err != nil {
		respondLendingError(c, err, "list titles")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetBook handles GET /api/v1/book/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	title, err := bc.manager.Get(c.Request.Context(), id)
	if err != nil {
		respondLendingError(c, err, "get title")
		return
	}
	c.JSON(http.StatusOK, title)
}

// AddBook handles POST /api/v1/book/add
func (bc *BooksController) AddBook(c *gin.Context) {
	var req AddBookRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	thumbnail, closeFn, ok := formThumbnail(c)
	if !ok {
		return
	}
	defer closeFn()

	title, err := bc.manager.Add(c.Request.Context(), auth.GetPrincipal(c), catalog.TitleInput{
		Title:           req.Title,
		Author:          req.Author,
		Description:     req.Description,
		PublicationYear: req.PublicationYear,
		Quantity:        req.Quantity,
		Thumbnail:       thumbnail,
	})
	if err != nil {
		respondLendingError(c, err, "add title")
		return
	}
	c.JSON(http.StatusCreated, title)
}

// UpdateBook handles PATCH /api/v1/book/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateBookRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	thumbnail, closeFn, ok := formThumbnail(c)
	if !ok {
		return
	}
	defer closeFn()

	title, err := bc.manager.Update(c.Request.Context(), auth.GetPrincipal(c), id, catalog.TitleUpdate{
		Title:           req.Title,
		Author:          req.Author,
		Description:     req.Description,
		PublicationYear: req.PublicationYear,
		Quantity:        req.Quantity,
		Thumbnail:       thumbnail,
	})
	if err != nil {
		respondLendingError(c, err, "update title")
		return
	}
	c.JSON(http.StatusOK, title)
}

// DeleteBook handles DELETE /api/v1/book/:id
// Titles with open loans are refused with 409.
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.manager.Delete(c.Request.Context(), auth.GetPrincipal(c), id); err != nil {
		respondLendingError(c, err, "delete title")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "title deleted"})
}

// Dashboard handles GET /api/v1/book/dashboard
func (bc *BooksController) Dashboard(c *gin.Context) {
	dashboard, err := bc.reader.Dashboard(c.Request.Context())
	if err != nil {
		respondLendingError(c, err, "dashboard")
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// formThumbnail opens the optional thumbnail part of a multipart request.
// The returned close function is always safe to call.
func formThumbnail(c *gin.Context) (*catalog.Upload, func(), bool) {
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, noop, true
	}

	header, err := c.FormFile(thumbnailField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, true
	}
	if err != nil {
		respondBadRequest(c, "invalid thumbnail upload")
		return nil, noop, false
	}

	file, err := header.Open()
	if err != nil {
		respondInternalError(c, err, "open thumbnail")
		return nil, noop, false
	}
	return &catalog.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	}, func() { file.Close() }, true
}
