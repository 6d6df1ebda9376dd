package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every event queued with LogAsync has been written.
func (s *Service) Wait() {
	s.pending.Wait()
}

// LogBorrow records a successful borrow.
func (s *Service) LogBorrow(userID uint, loan *entities.Loan) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventBorrow,
		Action:      "title_borrow",
		Description: fmt.Sprintf("Borrowed title %d", loan.TitleID),
		EntityType:  "loan",
		EntityID:    &loan.ID,
		Metadata:    metadata(map[string]any{"title_id": loan.TitleID}),
		Status:      entities.AuditStatusSuccess,
	})
}

// LogReturn records a successful return.
func (s *Service) LogReturn(userID uint, loan *entities.Loan) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventReturn,
		Action:      "title_return",
		Description: fmt.Sprintf("Returned title %d", loan.TitleID),
		EntityType:  "loan",
		EntityID:    &loan.ID,
		Metadata:    metadata(map[string]any{"title_id": loan.TitleID}),
		Status:      entities.AuditStatusSuccess,
	})
}

// LogIntegrityViolation records a ledger inconsistency that needs an operator.
// loanIDs lists the conflicting loans, most recent borrow first.
func (s *Service) LogIntegrityViolation(userID, titleID uint, action string, loanIDs []uint, description string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventIntegrity,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  "title",
		EntityID:    &titleID,
		Metadata:    metadata(map[string]any{"loan_ids": loanIDs}),
		Status:      entities.AuditStatusFailed,
		ErrorMsg:    "data integrity issue",
	})
}

// LogCatalog records a catalog change such as title_add or title_delete.
func (s *Service) LogCatalog(userID uint, action string, titleID uint, titleName string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventCatalog,
		Action:      action,
		Description: truncate(titleName, 500),
		EntityType:  "title",
		EntityID:    &titleID,
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// ListEvents retrieves paginated audit events.
func (s *Service) ListEvents(filter audit.EventFilter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.ListEvents(filter, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func metadata(fields map[string]any) string {
	b, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
