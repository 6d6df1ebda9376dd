package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/queries"
)

var testAdmin = entities.Principal{UserID: 1, Role: entities.UserRoleAdmin}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newBooksRouter(titles *fakeTitles, manager *fakeCatalog) *gin.Engine {
	controller := NewBooksController(titles, manager)
	router := gin.New()
	router.Use(asPrincipal(testAdmin))
	router.GET("/book", controller.ListBooks)
	router.GET("/book/dashboard", controller.Dashboard)
	router.GET("/book/:id", controller.GetBook)
	router.POST("/book/add", controller.AddBook)
	router.PATCH("/book/:id", controller.UpdateBook)
	router.DELETE("/book/:id", controller.DeleteBook)
	return router
}

func multipartBody(t *testing.T, fields map[string]string, thumbnail []byte, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if thumbnail != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="thumbnail"; filename="cover.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(thumbnail)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestBooksController_ListBooks(t *testing.T) {
	titles := &fakeTitles{result: &queries.Result[entities.Title]{
		Docs:      []entities.Title{{ID: 1, Title: "Dune", Author: "Frank Herbert", Available: 2}},
		TotalDocs: 1, TotalPages: 1, Page: 1, Limit: 10,
	}}
	router := newBooksRouter(titles, nil)

	w := doJSON(router, http.MethodGet, "/book?query=%20dune%20&available=true&page=1&limit=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dune", titles.query.Search)
	assert.True(t, titles.query.AvailableOnly)
	assert.Equal(t, queries.Page{Page: 1, Limit: 10}, titles.query.Page)

	var body queries.Result[entities.Title]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Docs, 1)
	assert.Equal(t, "Dune", body.Docs[0].Title)
	assert.Contains(t, w.Body.String(), `"quantity":2`)
}

func TestBooksController_ListBooks_InvalidParams(t *testing.T) {
	router := newBooksRouter(&fakeTitles{}, nil)

	for _, query := range []string{"page=0", "limit=abc", "available=maybe"} {
		w := doJSON(router, http.MethodGet, "/book?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestBooksController_GetBook(t *testing.T) {
	router := newBooksRouter(nil, &fakeCatalog{title: &entities.Title{ID: 4, Title: "Emma"}})

	w := doJSON(router, http.MethodGet, "/book/4", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Emma")

	router = newBooksRouter(nil, &fakeCatalog{err: catalog.ErrTitleNotFound})
	w = doJSON(router, http.MethodGet, "/book/4", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodGet, "/book/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBooksController_AddBook_Multipart(t *testing.T) {
	manager := &fakeCatalog{title: &entities.Title{ID: 5, Title: "Dune"}}
	router := newBooksRouter(nil, manager)

	body, contentType := multipartBody(t, map[string]string{
		"title":           "Dune",
		"author":          "Frank Herbert",
		"description":     "Spice",
		"publicationYear": "1965",
		"quantity":        "3",
	}, pngHeader, "image/png")
	req := httptest.NewRequest(http.MethodPost, "/book/add", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Dune", manager.input.Title)
	assert.Equal(t, 1965, manager.input.PublicationYear)
	assert.Equal(t, 3, manager.input.Quantity)
	require.NotNil(t, manager.input.Thumbnail)
	assert.Equal(t, "cover.png", manager.input.Thumbnail.Name)
	assert.Equal(t, "image/png", manager.input.Thumbnail.ContentType)
	assert.Equal(t, pngHeader, manager.thumbnail)
}

func TestBooksController_AddBook_JSONWithoutThumbnail(t *testing.T) {
	manager := &fakeCatalog{title: &entities.Title{ID: 5}}
	router := newBooksRouter(nil, manager)

	w := doJSON(router, http.MethodPost, "/book/add", gin.H{"title": "Emma", "author": "Jane Austen", "quantity": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Emma", manager.input.Title)
	assert.Nil(t, manager.input.Thumbnail)
}

func TestBooksController_AddBook_ValidationError(t *testing.T) {
	router := newBooksRouter(nil, &fakeCatalog{err: catalog.ErrInvalidInput})

	w := doJSON(router, http.MethodPost, "/book/add", gin.H{"title": ""})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBooksController_UpdateBook_Partial(t *testing.T) {
	manager := &fakeCatalog{title: &entities.Title{ID: 4}}
	router := newBooksRouter(nil, manager)

	w := doJSON(router, http.MethodPatch, "/book/4", gin.H{"quantity": 0})

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, manager.update.Quantity)
	assert.Equal(t, 0, *manager.update.Quantity)
	assert.Nil(t, manager.update.Title)
	assert.Nil(t, manager.update.Author)
}

func TestBooksController_DeleteBook(t *testing.T) {
	manager := &fakeCatalog{}
	router := newBooksRouter(nil, manager)

	w := doJSON(router, http.MethodDelete, "/book/4", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(4), manager.deleted)

	router = newBooksRouter(nil, &fakeCatalog{err: catalog.ErrTitleHasOpenLoans})
	w = doJSON(router, http.MethodDelete, "/book/4", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBooksController_Dashboard(t *testing.T) {
	titles := &fakeTitles{dashboard: &queries.Dashboard{TotalTitles: 3, OpenLoans: 2, TotalAvailable: 5}}
	router := newBooksRouter(titles, nil)

	w := doJSON(router, http.MethodGet, "/book/dashboard", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalBooks":3,"currentlyBorrowedBooks":2,"totalAvailableBooks":5}`, w.Body.String())
}
