package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/entities"
)

// LoanScanner finds ledger rows that break the one-open-loan rule.
type LoanScanner interface {
	FindDuplicateOpenLoans() ([]loans.DuplicateOpenLoans, error)
	FindOpenLoans(userID, titleID uint) ([]entities.Loan, error)
}

// StockScanner finds titles whose available count went negative.
type StockScanner interface {
	FindNegativeAvailable() ([]entities.Title, error)
}

// ViolationRecorder receives each finding for the audit log.
type ViolationRecorder interface {
	LogIntegrityViolation(userID, titleID uint, action string, loanIDs []uint, description string)
}

// ReportWriter persists the full scan result for operators.
type ReportWriter interface {
	SaveReport(kind string, data any) (string, error)
}

// IntegrityCheck holds what the integrity scan reads and reports to.
// Recorder and Reports may be nil.
type IntegrityCheck struct {
	Loans    LoanScanner
	Titles   StockScanner
	Recorder ViolationRecorder
	Reports  ReportWriter
}

// DuplicateLoanFinding is one (user, title) pair with several open loans.
type DuplicateLoanFinding struct {
	UserID  uint   `json:"user_id"`
	TitleID uint   `json:"title_id"`
	LoanIDs []uint `json:"loan_ids"`
}

// NegativeStockFinding is one title with a negative available count.
type NegativeStockFinding struct {
	TitleID   uint   `json:"title_id"`
	Title     string `json:"title"`
	Available int    `json:"available"`
}

// IntegrityReport is the result of one scan.
type IntegrityReport struct {
	CheckedAt      time.Time              `json:"checked_at"`
	DuplicateLoans []DuplicateLoanFinding `json:"duplicate_loans"`
	NegativeStock  []NegativeStockFinding `json:"negative_stock"`
	ReportFile     string                 `json:"-"`
}

// Clean reports whether the scan found nothing.
func (r *IntegrityReport) Clean() bool {
	return len(r.DuplicateLoans) == 0 && len(r.NegativeStock) == 0
}

// Run scans the ledger and the catalog once. Findings are logged,
// recorded as failed audit events and, when any exist, saved as a report.
func (ic IntegrityCheck) Run(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{CheckedAt: time.Now().UTC()}

	dups, err := ic.Loans.FindDuplicateOpenLoans()
	if err != nil {
		return nil, fmt.Errorf("scan duplicate open loans: %w", err)
	}
	for _, dup := range dups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		open, err := ic.Loans.FindOpenLoans(dup.UserID, dup.TitleID)
		if err != nil {
			return nil, fmt.Errorf("load open loans of user %d title %d: %w", dup.UserID, dup.TitleID, err)
		}
		ids := make([]uint, 0, len(open))
		for _, l := range open {
			ids = append(ids, l.ID)
		}

		finding := DuplicateLoanFinding{UserID: dup.UserID, TitleID: dup.TitleID, LoanIDs: ids}
		report.DuplicateLoans = append(report.DuplicateLoans, finding)

		description := fmt.Sprintf("user %d holds %d open loans of title %d", dup.UserID, dup.Count, dup.TitleID)
		log.Printf("[TASK] ERROR: integrity check: %s (loans %v)", description, ids)
		if ic.Recorder != nil {
			ic.Recorder.LogIntegrityViolation(dup.UserID, dup.TitleID, "duplicate_open_loans", ids, description)
		}
	}

	negative, err := ic.Titles.FindNegativeAvailable()
	if err != nil {
		return nil, fmt.Errorf("scan negative stock: %w", err)
	}
	for _, title := range negative {
		report.NegativeStock = append(report.NegativeStock, NegativeStockFinding{
			TitleID:   title.ID,
			Title:     title.Title,
			Available: title.Available,
		})

		description := fmt.Sprintf("title %d (%s) has available = %d", title.ID, title.Title, title.Available)
		log.Printf("[TASK] ERROR: integrity check: %s", description)
		if ic.Recorder != nil {
			ic.Recorder.LogIntegrityViolation(0, title.ID, "negative_available", nil, description)
		}
	}

	if report.Clean() {
		log.Printf("[TASK] Integrity check passed")
		return report, nil
	}

	if ic.Reports != nil {
		file, err := ic.Reports.SaveReport("integrity", report)
		if err != nil {
			log.Printf("[TASK] ERROR: failed to save integrity report: %v", err)
		} else {
			report.ReportFile = file
			log.Printf("[TASK] Integrity report written to %s", file)
		}
	}
	return report, nil
}

// IntegrityCheckTask scans for duplicate open loans and negative stock.
type IntegrityCheckTask struct{}

// Config returns the queue configuration for integrity checks.
func (t IntegrityCheckTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueIntegrityCheck,
		MaxAttempts: 1,
		Timeout:     5 * time.Minute,
		Retention:   taskRetention(),
	}
}

// NewIntegrityCheckQueue creates a backlite queue running the check.
// Findings do not fail the task; only scan errors do.
func NewIntegrityCheckQueue(check IntegrityCheck) backlite.Queue {
	return backlite.NewQueue(func(ctx context.Context, _ IntegrityCheckTask) error {
		_, err := check.Run(ctx)
		return err
	})
}
