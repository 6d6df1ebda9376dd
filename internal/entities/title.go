package entities

import (
	"time"
)

// Title is a catalog entry. Available counts the copies that can still be
// lent out; it is never negative.
type Title struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"index;size:512;not null" json:"title"`
	Author          string    `gorm:"index;size:256;not null" json:"author"`
	Description     string    `gorm:"type:text" json:"description,omitempty"`
	PublicationYear int       `gorm:"not null;check:publication_year >= 0" json:"publicationYear"`
	Available       int       `gorm:"not null;default:0;check:available >= 0" json:"quantity"`
	ThumbnailURL    string    `gorm:"size:2048" json:"thumbnail,omitempty"`
	CreatedAt       time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (Title) TableName() string {
	return "titles"
}

// IsAvailable reports whether at least one copy can be borrowed.
func (t *Title) IsAvailable() bool {
	return t.Available > 0
}
