// Package lending implements borrowing and returning titles. Each operation
// is a single unit of work over the catalog and the loan ledger: it reads the
// title and the caller's open loans, then moves one copy, with the database
// write lock held from the first read until commit.
package lending

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database/catalog"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/entities"
)

const defaultLockTimeout = 3 * time.Second

// UnitOfWork runs fn in one transaction. fn's writes commit together or not
// at all.
type UnitOfWork interface {
	Transact(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventRecorder receives completed lending operations and integrity findings.
type EventRecorder interface {
	LogBorrow(userID uint, loan *entities.Loan)
	LogReturn(userID uint, loan *entities.Loan)
	LogIntegrityViolation(userID, titleID uint, action string, loanIDs []uint, description string)
}

type Coordinator struct {
	uow         UnitOfWork
	events      EventRecorder
	lockTimeout time.Duration
	retry       []RetryOption
	now         func() time.Time
}

// NewCoordinator builds a coordinator. events may be nil.
func NewCoordinator(uow UnitOfWork, cfg config.Lending, events EventRecorder) *Coordinator {
	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}

	var retry []RetryOption
	if cfg.MaxAttempts > 0 {
		retry = append(retry, WithMaxAttempts(cfg.MaxAttempts))
	}
	if cfg.RetryBaseDelay > 0 {
		retry = append(retry, WithBaseDelay(cfg.RetryBaseDelay))
	}

	return &Coordinator{
		uow:         uow,
		events:      events,
		lockTimeout: lockTimeout,
		retry:       retry,
		now:         time.Now,
	}
}

// Borrow lends one copy of a title to the principal.
func (c *Coordinator) Borrow(ctx context.Context, p entities.Principal, titleID uint) (*entities.Loan, error) {
	if err := validate(p, titleID); err != nil {
		return nil, err
	}

	var loan *entities.Loan
	err := c.run(ctx, func(ctx context.Context) error {
		return c.uow.Transact(ctx, func(tx *gorm.DB) error {
			var err error
			loan, err = borrow(tx, p.UserID, titleID, c.now())
			return err
		})
	})
	if err != nil {
		c.logFailure("borrow", p, titleID, err)
		return nil, err
	}

	log.Printf("[LENDING] user %d borrowed title %d (loan %d)", p.UserID, titleID, loan.ID)
	if c.events != nil {
		c.events.LogBorrow(p.UserID, loan)
	}
	return loan, nil
}

// Return closes the principal's open loan for a title and puts the copy back.
func (c *Coordinator) Return(ctx context.Context, p entities.Principal, titleID uint) (*entities.Loan, error) {
	if err := validate(p, titleID); err != nil {
		return nil, err
	}

	var loan *entities.Loan
	err := c.run(ctx, func(ctx context.Context) error {
		return c.uow.Transact(ctx, func(tx *gorm.DB) error {
			var err error
			loan, err = returnLoan(tx, p.UserID, titleID, c.now())
			return err
		})
	})

	var integrityErr *IntegrityError
	if errors.As(err, &integrityErr) {
		c.reportIntegrity(integrityErr)
		return nil, err
	}
	if err != nil {
		c.logFailure("return", p, titleID, err)
		return nil, err
	}

	log.Printf("[LENDING] user %d returned title %d (loan %d)", p.UserID, titleID, loan.ID)
	if c.events != nil {
		c.events.LogReturn(p.UserID, loan)
	}
	return loan, nil
}

// run bounds the whole operation, retries included, by the lock timeout.
func (c *Coordinator) run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()

	err := retryWithBackoff(ctx, fn, c.retry...)
	return classify(ctx, err)
}

func (c *Coordinator) reportIntegrity(e *IntegrityError) {
	log.Printf("[LENDING] ERROR: %v, loans (most recent first): %v", e, e.LoanIDs)
	if c.events != nil {
		c.events.LogIntegrityViolation(e.UserID, e.TitleID, "duplicate_open_loans", e.LoanIDs, e.Error())
	}
}

func (c *Coordinator) logFailure(op string, p entities.Principal, titleID uint, err error) {
	if errors.Is(err, ErrTransient) {
		log.Printf("[LENDING] %s of title %d by user %d aborted: %v", op, titleID, p.UserID, err)
	}
}

func validate(p entities.Principal, titleID uint) error {
	if p.UserID == 0 {
		return fmt.Errorf("%w: missing user", ErrInvalidInput)
	}
	if titleID == 0 {
		return fmt.Errorf("%w: missing title id", ErrInvalidInput)
	}
	return nil
}

func borrow(tx *gorm.DB, userID, titleID uint, now time.Time) (*entities.Loan, error) {
	titles := catalog.NewRepository(tx)
	ledger := loans.NewRepository(tx)

	title, err := titles.GetTitle(titleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !title.IsAvailable() {
		return nil, ErrUnavailable
	}

	open, err := ledger.FindOpenLoans(userID, titleID)
	if err != nil {
		return nil, err
	}
	if len(open) > 0 {
		return nil, ErrAlreadyBorrowed
	}

	taken, err := titles.DecrementAvailable(titleID, 1)
	if err != nil {
		return nil, err
	}
	if !taken {
		return nil, ErrUnavailable
	}

	loan, err := ledger.CreateLoan(userID, titleID, now)
	if err != nil {
		return nil, err
	}

	title.Available--
	loan.Title = title
	return loan, nil
}

func returnLoan(tx *gorm.DB, userID, titleID uint, now time.Time) (*entities.Loan, error) {
	titles := catalog.NewRepository(tx)
	ledger := loans.NewRepository(tx)

	open, err := ledger.FindOpenLoans(userID, titleID)
	if err != nil {
		return nil, err
	}
	switch {
	case len(open) == 0:
		return nil, ErrNoOpenLoan
	case len(open) > 1:
		ids := make([]uint, len(open))
		for i, l := range open {
			ids[i] = l.ID
		}
		return nil, &IntegrityError{UserID: userID, TitleID: titleID, LoanIDs: ids}
	}
	loan := open[0]

	title, err := titles.GetTitle(titleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	closed, err := ledger.CloseLoan(loan.ID, now)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, ErrNoOpenLoan
	}

	if err := titles.IncrementAvailable(titleID, 1); err != nil {
		return nil, err
	}

	title.Available++
	loan.ReturnedAt = &now
	loan.Title = title
	return &loan, nil
}
