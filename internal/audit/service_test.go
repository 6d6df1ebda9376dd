package audit

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditRepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	repo := auditRepo.NewRepository(db)
	return NewService(repo), db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventBorrow,
		Action:    "test_borrow",
		Status:    entities.AuditStatusSuccess,
	}

	require.NoError(t, svc.Log(event))

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Equal(t, "test_borrow", saved.Action)
}

func TestService_LogBorrowAndReturn(t *testing.T) {
	svc, db := setupTestService(t)
	loan := &entities.Loan{ID: 5, TitleID: 9, UserID: 2}

	svc.LogBorrow(2, loan)
	svc.LogReturn(2, loan)
	svc.Wait()

	var events []entities.AuditEvent
	require.NoError(t, db.Order("id").Find(&events).Error)
	require.Len(t, events, 2)

	actions := []string{events[0].Action, events[1].Action}
	assert.ElementsMatch(t, []string{"title_borrow", "title_return"}, actions)
	for _, e := range events {
		assert.Equal(t, "loan", e.EntityType)
		require.NotNil(t, e.EntityID)
		assert.Equal(t, uint(5), *e.EntityID)
		assert.Contains(t, e.Metadata, `"title_id":9`)
	}
}

func TestService_LogIntegrityViolation(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogIntegrityViolation(3, 11, "duplicate_open_loans", []uint{8, 4}, "user 3 holds 2 open loans")
	svc.Wait()

	var event entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "duplicate_open_loans").First(&event).Error)
	assert.Equal(t, entities.AuditEventIntegrity, event.EventType)
	assert.Equal(t, entities.AuditStatusFailed, event.Status)
	assert.Contains(t, event.Metadata, "[8,4]")
}

func TestService_LogCatalog(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("success", func(t *testing.T) {
		svc.LogCatalog(1, "title_add", 42, "Dune", nil)
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", "title_add").First(&event).Error)
		assert.Equal(t, entities.AuditEventCatalog, event.EventType)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		require.NotNil(t, event.EntityID)
		assert.Equal(t, uint(42), *event.EntityID)
	})

	t.Run("failure", func(t *testing.T) {
		svc.LogCatalog(1, "title_delete", 42, "Dune", errors.New("title has open loans"))
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", "title_delete").First(&event).Error)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Contains(t, event.ErrorMsg, "open loans")
	})
}

func TestService_LogAuth(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogAuth(1, "login", "192.168.1.1", "Mozilla/5.0", true)
	svc.LogAuth(0, "login_failed", "10.0.0.1", "curl/7.68.0", false)
	svc.Wait()

	var ok entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "login").First(&ok).Error)
	assert.Equal(t, entities.AuditStatusSuccess, ok.Status)
	assert.Equal(t, "192.168.1.1", ok.IPAddress)

	var failed entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "login_failed").First(&failed).Error)
	assert.Equal(t, entities.AuditStatusFailed, failed.Status)
}

func TestService_ListEvents(t *testing.T) {
	svc, _ := setupTestService(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Log(&entities.AuditEvent{
			UserID:    1,
			EventType: entities.AuditEventReturn,
			Action:    "test",
			Status:    entities.AuditStatusSuccess,
		}))
	}

	events, total, err := svc.ListEvents(auditRepo.EventFilter{UserID: 1}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, events, 5)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, db := setupTestService(t)

	require.NoError(t, db.Create(&entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventBorrow,
		Action:    "old",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventReturn,
		Action:    "new",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: time.Now(),
	}).Error)

	deleted, err := svc.DeleteOldEvents(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []entities.AuditEvent
	db.Find(&remaining)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].Action)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10c", 10, "exactly10c"},
		{"this is a very long string", 10, "this is..."},
		{"", 5, ""},
	}

	for _, tc := range tests {
		result := truncate(tc.input, tc.maxLen)
		assert.Equal(t, tc.expected, result)
	}
}
