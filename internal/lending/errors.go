package lending

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("title not found")
	ErrUnavailable        = errors.New("title is currently unavailable")
	ErrConflict           = errors.New("conflict")
	ErrIntegrityViolation = errors.New("data integrity issue")
	ErrTransient          = errors.New("store temporarily unavailable")

	ErrAlreadyBorrowed = fmt.Errorf("%w: title already borrowed by this user", ErrConflict)
	ErrNoOpenLoan      = fmt.Errorf("%w: no open loan for this title", ErrConflict)
)

var domainErrors = []error{
	ErrInvalidInput,
	ErrNotFound,
	ErrUnavailable,
	ErrConflict,
	ErrIntegrityViolation,
	ErrTransient,
}

// IntegrityError carries the conflicting open loans found by Return,
// most recent borrow first.
type IntegrityError struct {
	UserID  uint
	TitleID uint
	LoanIDs []uint
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: user %d holds %d open loans for title %d",
		ErrIntegrityViolation, e.UserID, len(e.LoanIDs), e.TitleID)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrityViolation
}

// classify maps store failures onto the lending error taxonomy. Errors that
// already belong to it pass through unchanged.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	for _, domainErr := range domainErrors {
		if errors.Is(err, domainErr) {
			return err
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrAlreadyBorrowed
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		ctx.Err() != nil:
		return fmt.Errorf("%w: %v", ErrTransient, err)
	case isLockContention(err), isInterrupted(err):
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}

// isLockContention reports whether SQLite refused the write lock.
func isLockContention(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

func isInterrupted(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrInterrupt
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
