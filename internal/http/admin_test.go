package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/tasks"
)

func TestAuditController_GetAuditEvents(t *testing.T) {
	events := &fakeAudit{
		events: []entities.AuditEvent{{ID: 2, Action: "title_borrow"}, {ID: 1, Action: "title_return"}},
		total:  30,
	}
	router := gin.New()
	router.GET("/audit", NewAuditController(events).GetAuditEvents)

	w := doJSON(router, http.MethodGet, "/audit?page=2&limit=10&type=borrow&status=failed&userId=7", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, events.limit)
	assert.Equal(t, 10, events.offset)
	assert.Equal(t, entities.AuditEventBorrow, events.filter.EventType)
	assert.Equal(t, entities.AuditStatusFailed, events.filter.Status)
	assert.Equal(t, uint(7), events.filter.UserID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body["events"], 2)
	assert.Equal(t, float64(3), body["total_pages"])
	assert.Equal(t, float64(30), body["total_events"])
}

func TestAuditController_Defaults(t *testing.T) {
	events := &fakeAudit{}
	router := gin.New()
	router.GET("/audit", NewAuditController(events).GetAuditEvents)

	w := doJSON(router, http.MethodGet, "/audit?page=-1&limit=1000", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, auditPageSize, events.limit)
	assert.Equal(t, 0, events.offset)

	w = doJSON(router, http.MethodGet, "/audit?userId=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditController_Error(t *testing.T) {
	router := gin.New()
	router.GET("/audit", NewAuditController(&fakeAudit{err: errors.New("disk full")}).GetAuditEvents)

	w := doJSON(router, http.MethodGet, "/audit", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk full")
}

func newTasksRouter(runner *fakeRunner) *gin.Engine {
	controller := NewTasksController(runner)
	router := gin.New()
	router.GET("/tasks/types", controller.ListTaskTypes)
	router.GET("/tasks/:id", controller.GetTaskStatus)
	router.POST("/tasks/:type/run", controller.RunTask)
	return router
}

func TestTasksController_ListTaskTypes(t *testing.T) {
	router := newTasksRouter(&fakeRunner{names: []string{tasks.QueueIntegrityCheck, tasks.QueueCleanupAudit}})

	w := doJSON(router, http.MethodGet, "/tasks/types", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		TaskTypes []TaskTypeInfo `json:"task_types"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.TaskTypes, 2)
	assert.Equal(t, tasks.QueueCleanupAudit, body.TaskTypes[0].Type)
	assert.Equal(t, tasks.QueueIntegrityCheck, body.TaskTypes[1].Type)
	assert.NotEmpty(t, body.TaskTypes[1].Description)
}

func TestTasksController_RunTask(t *testing.T) {
	runner := &fakeRunner{names: []string{tasks.QueueIntegrityCheck}}
	router := newTasksRouter(runner)

	w := doJSON(router, http.MethodPost, "/tasks/integrity_check/run", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "task-integrity_check")
	assert.Equal(t, []string{tasks.QueueIntegrityCheck}, runner.ran)

	w = doJSON(router, http.MethodPost, "/tasks/enrich_book/run", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "UNKNOWN_TASK")
}

func TestTasksController_GetTaskStatus(t *testing.T) {
	router := newTasksRouter(&fakeRunner{status: backlite.TaskStatusSuccess})

	w := doJSON(router, http.MethodGet, "/tasks/abc", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"abc","status":"success"}`, w.Body.String())
}

func TestTaskStatusToString(t *testing.T) {
	tests := []struct {
		status backlite.TaskStatus
		want   string
	}{
		{backlite.TaskStatusPending, "pending"},
		{backlite.TaskStatusRunning, "running"},
		{backlite.TaskStatusSuccess, "success"},
		{backlite.TaskStatusFailure, "failure"},
		{backlite.TaskStatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, taskStatusToString(tt.status))
	}
}
