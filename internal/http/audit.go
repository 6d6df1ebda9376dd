package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	auditdb "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

const auditPageSize = 25

type AuditController struct {
	events AuditLister
}

func NewAuditController(events AuditLister) *AuditController {
	return &AuditController{
		events: events,
	}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/v1/admin/audit
// Optional filters: type, status, userId.
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(auditPageSize)))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = auditPageSize
	}

	filter := auditdb.EventFilter{
		EventType: entities.AuditEventType(c.Query("type")),
		Status:    entities.AuditStatus(c.Query("status")),
	}
	if raw := c.Query("userId"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid userId")
			return
		}
		filter.UserID = uint(userID)
	}

	offset := (page - 1) * limit
	events, total, err := ac.events.ListEvents(filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
	})
}
