package http

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/tasks"
)

// TasksController handles task queue management endpoints.
type TasksController struct {
	runner TaskRunner
}

// NewTasksController creates a new TasksController.
func NewTasksController(runner TaskRunner) *TasksController {
	return &TasksController{runner: runner}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

var taskDescriptions = map[string]string{
	tasks.QueueIntegrityCheck:   "Scan for duplicate open loans and negative stock",
	tasks.QueueCleanupAudit:     "Delete audit events past the retention period",
	tasks.QueueCleanupThumbnail: "Delete stored thumbnails no title references",
}

// ListTaskTypes handles GET /api/v1/admin/tasks/types
// Returns the list of available task types that can be triggered.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	names := tc.runner.Names()
	sort.Strings(names)

	types := make([]TaskTypeInfo, 0, len(names))
	for _, name := range names {
		types = append(types, TaskTypeInfo{Type: name, Description: taskDescriptions[name]})
	}

	c.JSON(http.StatusOK, gin.H{
		"task_types": types,
	})
}

// GetTaskStatus handles GET /api/v1/admin/tasks/:id
// Returns the status of a specific task.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.runner.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTask handles POST /api/v1/admin/tasks/:type/run
// Manually enqueues one run of a maintenance task.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	id, err := tc.runner.EnqueueByName(c.Request.Context(), taskType)
	if errors.Is(err, tasks.ErrUnknownTask) {
		respondError(c, http.StatusNotFound, "unknown task type: "+taskType, "UNKNOWN_TASK")
		return
	}
	if err != nil {
		respondInternalError(c, err, "enqueue task")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": id,
		"type":    taskType,
		"message": "task enqueued",
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
