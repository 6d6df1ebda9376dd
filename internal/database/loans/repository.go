// Package loans provides the loan ledger: one row per borrow, closed once on
// return and never deleted.
package loans

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// Repository handles loan database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new loans repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// DuplicateOpenLoans describes a (user, title) pair holding more than one
// open loan.
type DuplicateOpenLoans struct {
	UserID  uint
	TitleID uint
	Count   int64
}

// FindOpenLoans returns the open loans for a user and title, most recent
// borrow first.
func (r *Repository) FindOpenLoans(userID, titleID uint) ([]entities.Loan, error) {
	var loans []entities.Loan
	err := r.db.
		Where("user_id = ? AND title_id = ? AND returned_at IS NULL", userID, titleID).
		Order("borrowed_at DESC").Order("id DESC").
		Find(&loans).Error
	return loans, err
}

// CreateLoan opens a loan borrowed at the given time.
func (r *Repository) CreateLoan(userID, titleID uint, at time.Time) (*entities.Loan, error) {
	loan := &entities.Loan{
		UserID:     userID,
		TitleID:    titleID,
		BorrowedAt: at,
	}
	if err := r.db.Create(loan).Error; err != nil {
		return nil, err
	}
	return loan, nil
}

// CloseLoan stamps returnedAt on an open loan. It returns false if the loan
// does not exist or was already closed; a closed loan is never touched again.
func (r *Repository) CloseLoan(loanID uint, returnedAt time.Time) (bool, error) {
	result := r.db.Model(&entities.Loan{}).
		Where("id = ? AND returned_at IS NULL", loanID).
		Update("returned_at", returnedAt)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetLoan retrieves a loan by ID with its title.
func (r *Repository) GetLoan(id uint) (*entities.Loan, error) {
	var loan entities.Loan
	if err := r.db.Preload("Title").First(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// ListForUser returns a page of a user's loans, newest borrow first, with the
// total count. openOnly restricts the listing to loans not yet returned.
func (r *Repository) ListForUser(userID uint, openOnly bool, limit, offset int) ([]entities.Loan, int64, error) {
	var loans []entities.Loan
	var total int64

	query := r.db.Model(&entities.Loan{}).Where("user_id = ?", userID)
	if openOnly {
		query = query.Where("returned_at IS NULL")
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Title").
		Order("borrowed_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&loans).Error
	return loans, total, err
}

// CountOpen returns the number of loans not yet returned.
func (r *Repository) CountOpen() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Loan{}).Where("returned_at IS NULL").Count(&count).Error
	return count, err
}

// CountOpenForTitle returns the number of open loans referencing a title.
func (r *Repository) CountOpenForTitle(titleID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Loan{}).
		Where("title_id = ? AND returned_at IS NULL", titleID).
		Count(&count).Error
	return count, err
}

// FindDuplicateOpenLoans lists every (user, title) pair with more than one
// open loan.
func (r *Repository) FindDuplicateOpenLoans() ([]DuplicateOpenLoans, error) {
	var dups []DuplicateOpenLoans
	err := r.db.Model(&entities.Loan{}).
		Select("user_id, title_id, COUNT(*) AS count").
		Where("returned_at IS NULL").
		Group("user_id, title_id").
		Having("COUNT(*) > 1").
		Order("user_id, title_id").
		Scan(&dups).Error
	return dups, err
}
