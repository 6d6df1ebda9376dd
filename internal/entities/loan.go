package entities

import "time"

// Loan records one user borrowing one title. ReturnedAt is nil while the
// loan is open.
type Loan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TitleID    uint       `gorm:"index;not null" json:"bookId"`
	UserID     uint       `gorm:"index;not null" json:"userId"`
	BorrowedAt time.Time  `gorm:"index;not null" json:"borrowDate"`
	ReturnedAt *time.Time `gorm:"index" json:"returnDate,omitempty"`
	Title      *Title     `gorm:"foreignKey:TitleID" json:"book,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (Loan) TableName() string {
	return "loans"
}

// IsOpen reports whether the loan has not been returned yet.
func (l *Loan) IsOpen() bool {
	return l.ReturnedAt == nil
}
