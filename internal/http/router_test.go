package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	auditdb "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/lending"
	"github.com/mrlokans/library/internal/queries"
	"github.com/mrlokans/library/internal/search"
	"github.com/mrlokans/library/internal/storage"
)

type testApp struct {
	router      *gin.Engine
	events      *audit.Service
	adminToken  string
	memberToken string
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()

	db, err := database.NewDatabase(filepath.Join(dir, "library.db"), database.WithLogLevel(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mediaDir := filepath.Join(dir, "media")
	store, err := storage.NewLocalStore(config.Storage{Dir: mediaDir, PublicURL: "/media", MaxUploadBytes: 1 << 20})
	require.NoError(t, err)

	events := audit.NewService(auditdb.NewRepository(db.DB))
	t.Cleanup(events.Wait)

	authService := auth.NewService(users.NewRepository(db.DB), config.Auth{BcryptCost: 4})
	admin, err := authService.CreateUser("root", "root@example.com", "correct-horse-battery", entities.UserRoleAdmin)
	require.NoError(t, err)
	member, err := authService.CreateUser("ada", "ada@example.com", "correct-horse-battery", entities.UserRoleMember)
	require.NoError(t, err)

	app := &testApp{events: events}
	app.adminToken, err = authService.GenerateToken(admin.ID)
	require.NoError(t, err)
	app.memberToken, err = authService.GenerateToken(member.ID)
	require.NoError(t, err)

	app.router = NewRouter(RouterConfig{
		Lender:         lending.NewCoordinator(db, config.Lending{}, events),
		History:        queries.NewService(db.DB, search.NewProvider(db.DB)),
		Titles:         queries.NewService(db.DB, search.NewProvider(db.DB)),
		Catalog:        catalog.NewService(db, store, events),
		Audit:          events,
		Database:       db,
		StorageDir:     mediaDir,
		MediaPrefix:    "/media",
		MaxUploadBytes: 1 << 20,
		AuthMiddleware: auth.NewMiddleware(authService, nil, "/media"),
		AuthService:    authService,
	})
	return app
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	req := newJSONRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) addTitle(t *testing.T, title string, quantity int) entities.Title {
	t.Helper()
	w := a.do(http.MethodPost, "/api/v1/book/add", a.adminToken, gin.H{
		"title": title, "author": "Frank Herbert", "publicationYear": 1965, "quantity": quantity,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created entities.Title
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	return created
}

func TestRouter_PublicCatalog(t *testing.T) {
	app := setupApp(t)
	title := app.addTitle(t, "Dune", 2)

	w := app.do(http.MethodGet, "/api/v1/book?query=dune", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalDocs":1`)

	w = app.do(http.MethodGet, fmt.Sprintf("/api/v1/book/%d", title.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/api/v1/book/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminRoutes(t *testing.T) {
	app := setupApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous add", http.MethodPost, "/api/v1/book/add", "", http.StatusUnauthorized},
		{"member add", http.MethodPost, "/api/v1/book/add", app.memberToken, http.StatusForbidden},
		{"anonymous dashboard", http.MethodGet, "/api/v1/book/dashboard", "", http.StatusUnauthorized},
		{"member dashboard", http.MethodGet, "/api/v1/book/dashboard", app.memberToken, http.StatusForbidden},
		{"admin dashboard", http.MethodGet, "/api/v1/book/dashboard", app.adminToken, http.StatusOK},
		{"member audit", http.MethodGet, "/api/v1/admin/audit", app.memberToken, http.StatusForbidden},
		{"admin audit", http.MethodGet, "/api/v1/admin/audit", app.adminToken, http.StatusOK},
		{"anonymous delete", http.MethodDelete, "/api/v1/book/1", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(tt.method, tt.path, tt.token, gin.H{"title": "X", "author": "Y"})
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRouter_ClientPathAliases(t *testing.T) {
	app := setupApp(t)
	title := app.addTitle(t, "Dune", 2)
	update := fmt.Sprintf("/api/v1/book/update/%d", title.ID)
	remove := fmt.Sprintf("/api/v1/book/delete/%d", title.ID)

	w := app.do(http.MethodGet, "/api/v1/book/getAll?query=dune", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalDocs":1`)

	w = app.do(http.MethodGet, "/api/v1/book/getStats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = app.do(http.MethodGet, "/api/v1/book/getStats", app.memberToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = app.do(http.MethodGet, "/api/v1/book/getStats", app.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalBooks":1,"currentlyBorrowedBooks":0,"totalAvailableBooks":2}`, w.Body.String())

	w = app.do(http.MethodPatch, update, app.memberToken, gin.H{"author": "F. Herbert"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = app.do(http.MethodPatch, update, app.adminToken, gin.H{"author": "F. Herbert"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "F. Herbert")

	w = app.do(http.MethodDelete, remove, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = app.do(http.MethodDelete, remove, app.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = app.do(http.MethodGet, fmt.Sprintf("/api/v1/book/%d", title.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_BorrowReturnFlow(t *testing.T) {
	app := setupApp(t)
	title := app.addTitle(t, "Dune", 1)
	body := gin.H{"titleId": title.ID}

	w := app.do(http.MethodPost, "/api/v1/transaction/borrow", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPost, "/api/v1/transaction/borrow", app.memberToken, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Second borrow by the same member conflicts on stock or the open loan
	w = app.do(http.MethodPost, "/api/v1/transaction/borrow", app.memberToken, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/v1/transaction/borrow", app.adminToken, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UNAVAILABLE")

	// Open loans block deletion
	w = app.do(http.MethodDelete, fmt.Sprintf("/api/v1/book/%d", title.ID), app.adminToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(http.MethodGet, "/api/v1/transaction/history?includeReturned=false", app.memberToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalDocs":1`)

	w = app.do(http.MethodPatch, "/api/v1/transaction/return", app.memberToken, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "returnDate")

	w = app.do(http.MethodPatch, "/api/v1/transaction/return", app.memberToken, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "NO_OPEN_LOAN")

	w = app.do(http.MethodGet, "/api/v1/book/dashboard", app.adminToken, nil)
	assert.JSONEq(t, `{"totalBooks":1,"currentlyBorrowedBooks":0,"totalAvailableBooks":1}`, w.Body.String())

	w = app.do(http.MethodDelete, fmt.Sprintf("/api/v1/book/%d", title.ID), app.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	app.events.Wait()
	w = app.do(http.MethodGet, "/api/v1/admin/audit?type=borrow", app.adminToken, nil)
	assert.Contains(t, w.Body.String(), `"total_events":1`)
}

func TestRouter_ServesUploadedThumbnails(t *testing.T) {
	app := setupApp(t)

	body, contentType := multipartBody(t, map[string]string{
		"title": "Dune", "author": "Frank Herbert", "quantity": "1",
	}, pngHeader, "image/png")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/book/add", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+app.adminToken)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created entities.Title
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ThumbnailURL)

	w = app.do(http.MethodGet, created.ThumbnailURL, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pngHeader, w.Body.Bytes())
}
