// Package catalog provides database operations for the title catalog.
//
// Every method runs against the *gorm.DB the repository was built with. Build
// it from a transaction handle (or call WithTx) to take part in a unit of work:
//
//	db.Transact(ctx, func(tx *gorm.DB) error {
//		ok, err := catalog.NewRepository(tx).DecrementAvailable(id, 1)
//		...
//	})
package catalog

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// Repository handles title database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// TitleFilter narrows a title listing.
type TitleFilter struct {
	AvailableOnly bool
}

func (f TitleFilter) apply(query *gorm.DB) *gorm.DB {
	if f.AvailableOnly {
		query = query.Where("available > 0")
	}
	return query
}

// GetTitle retrieves a title by ID. Returns gorm.ErrRecordNotFound if absent.
func (r *Repository) GetTitle(id uint) (*entities.Title, error) {
	var title entities.Title
	if err := r.db.First(&title, id).Error; err != nil {
		return nil, err
	}
	return &title, nil
}

// GetTitlesByIDs loads the given titles, preserving the order of ids.
// Unknown ids are skipped.
func (r *Repository) GetTitlesByIDs(ids []uint) ([]entities.Title, error) {
	if len(ids) == 0 {
		return []entities.Title{}, nil
	}

	var found []entities.Title
	if err := r.db.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]entities.Title, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	titles := make([]entities.Title, 0, len(found))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			titles = append(titles, t)
		}
	}
	return titles, nil
}

// CreateTitle inserts a new title.
func (r *Repository) CreateTitle(title *entities.Title) error {
	return r.db.Create(title).Error
}

// UpdateTitle applies a partial update. Returns gorm.ErrRecordNotFound if
// no row matched.
func (r *Repository) UpdateTitle(id uint, fields map[string]any) error {
	result := r.db.Model(&entities.Title{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteTitle removes a title. Returns gorm.ErrRecordNotFound if no row matched.
func (r *Repository) DeleteTitle(id uint) error {
	result := r.db.Delete(&entities.Title{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementAvailable takes by copies off the shelf if at least that many are
// available. The guard lives in the UPDATE itself, so a false return means
// the counter was left untouched.
func (r *Repository) DecrementAvailable(id uint, by int) (bool, error) {
	result := r.db.Model(&entities.Title{}).
		Where("id = ? AND available >= ?", id, by).
		Updates(map[string]any{
			"available":  gorm.Expr("available - ?", by),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IncrementAvailable puts by copies back. Returns gorm.ErrRecordNotFound if
// the title does not exist.
func (r *Repository) IncrementAvailable(id uint, by int) error {
	result := r.db.Model(&entities.Title{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"available":  gorm.Expr("available + ?", by),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListTitles returns a page of titles, newest first, and the total count
// matching the filter.
func (r *Repository) ListTitles(filter TitleFilter, limit, offset int) ([]entities.Title, int64, error) {
	var titles []entities.Title
	var total int64

	query := filter.apply(r.db.Model(&entities.Title{})).Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&titles).Error
	return titles, total, err
}

// CountTitles returns the number of catalog entries.
func (r *Repository) CountTitles() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Title{}).Count(&count).Error
	return count, err
}

// SumAvailable returns the number of copies on the shelf across all titles.
func (r *Repository) SumAvailable() (int64, error) {
	var sum int64
	err := r.db.Model(&entities.Title{}).
		Select("COALESCE(SUM(available), 0)").
		Scan(&sum).Error
	return sum, err
}

// ThumbnailURLs returns every thumbnail URL referenced by a title.
func (r *Repository) ThumbnailURLs() ([]string, error) {
	var urls []string
	err := r.db.Model(&entities.Title{}).
		Where("thumbnail_url <> ''").
		Pluck("thumbnail_url", &urls).Error
	return urls, err
}

// FindNegativeAvailable returns titles whose counter went below zero.
// The schema forbids this, so any row here means the CHECK was bypassed.
func (r *Repository) FindNegativeAvailable() ([]entities.Title, error) {
	var titles []entities.Title
	err := r.db.Where("available < 0").Order("id").Find(&titles).Error
	return titles, err
}
