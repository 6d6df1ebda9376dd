package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	auditdb "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/queries"
	"github.com/mrlokans/library/internal/tasks"
)

var testMember = entities.Principal{UserID: 7, Role: entities.UserRoleMember}

// asPrincipal stands in for the auth middleware.
func asPrincipal(p entities.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, p.UserID)
		c.Set(auth.ContextKeyRole, p.Role)
		c.Next()
	}
}

func newJSONRequest(method, path string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func doJSON(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, newJSONRequest(method, path, body))
	return w
}

type fakeLender struct {
	principal entities.Principal
	titleID   uint
	loan      *entities.Loan
	err       error
}

func (f *fakeLender) Borrow(ctx context.Context, p entities.Principal, titleID uint) (*entities.Loan, error) {
	f.principal, f.titleID = p, titleID
	return f.loan, f.err
}

func (f *fakeLender) Return(ctx context.Context, p entities.Principal, titleID uint) (*entities.Loan, error) {
	f.principal, f.titleID = p, titleID
	return f.loan, f.err
}

type fakeHistory struct {
	principal entities.Principal
	query     queries.HistoryQuery
	result    *queries.Result[entities.Loan]
	err       error
}

func (f *fakeHistory) History(ctx context.Context, p entities.Principal, q queries.HistoryQuery) (*queries.Result[entities.Loan], error) {
	f.principal, f.query = p, q
	return f.result, f.err
}

type fakeTitles struct {
	query     queries.TitleQuery
	result    *queries.Result[entities.Title]
	dashboard *queries.Dashboard
	err       error
}

func (f *fakeTitles) ListTitles(ctx context.Context, q queries.TitleQuery) (*queries.Result[entities.Title], error) {
	f.query = q
	return f.result, f.err
}

func (f *fakeTitles) Dashboard(ctx context.Context) (*queries.Dashboard, error) {
	return f.dashboard, f.err
}

type fakeCatalog struct {
	title     *entities.Title
	input     catalog.TitleInput
	update    catalog.TitleUpdate
	thumbnail []byte
	deleted   uint
	err       error
}

func (f *fakeCatalog) Get(ctx context.Context, id uint) (*entities.Title, error) {
	return f.title, f.err
}

func (f *fakeCatalog) Add(ctx context.Context, p entities.Principal, input catalog.TitleInput) (*entities.Title, error) {
	f.input = input
	if input.Thumbnail != nil {
		f.thumbnail, _ = io.ReadAll(input.Thumbnail.Content)
	}
	return f.title, f.err
}

func (f *fakeCatalog) Update(ctx context.Context, p entities.Principal, id uint, update catalog.TitleUpdate) (*entities.Title, error) {
	f.update = update
	return f.title, f.err
}

func (f *fakeCatalog) Delete(ctx context.Context, p entities.Principal, id uint) error {
	f.deleted = id
	return f.err
}

type fakeAudit struct {
	filter        auditdb.EventFilter
	limit, offset int
	events        []entities.AuditEvent
	total         int64
	err           error
}

func (f *fakeAudit) ListEvents(filter auditdb.EventFilter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	f.filter, f.limit, f.offset = filter, limit, offset
	return f.events, f.total, f.err
}

type fakeRunner struct {
	names  []string
	ran    []string
	status backlite.TaskStatus
	err    error
}

func (f *fakeRunner) Names() []string {
	return append([]string(nil), f.names...)
}

func (f *fakeRunner) EnqueueByName(ctx context.Context, name string) (string, error) {
	for _, n := range f.names {
		if n == name {
			f.ran = append(f.ran, name)
			return "task-" + name, f.err
		}
	}
	return "", tasks.ErrUnknownTask
}

func (f *fakeRunner) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return f.status, f.err
}
