// Package catalog manages catalog entries: adding, editing and removing
// titles, and their thumbnails.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/database"
	catalogdb "github.com/mrlokans/library/internal/database/catalog"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/storage"
)

var (
	ErrInvalidInput      = errors.New("invalid title")
	ErrTitleNotFound     = errors.New("title not found")
	ErrTitleHasOpenLoans = errors.New("title has open loans and cannot be deleted")
)

// Upload is an image attached to a title.
type Upload struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// TitleInput describes a new title.
type TitleInput struct {
	Title           string
	Author          string
	Description     string
	PublicationYear int
	Quantity        int
	Thumbnail       *Upload
}

// TitleUpdate is a partial update; nil fields are left unchanged.
type TitleUpdate struct {
	Title           *string
	Author          *string
	Description     *string
	PublicationYear *int
	Quantity        *int
	Thumbnail       *Upload
}

// EventRecorder receives catalog changes.
type EventRecorder interface {
	LogCatalog(userID uint, action string, titleID uint, titleName string, err error)
}

type Service struct {
	db     *database.Database
	titles *catalogdb.Repository
	blobs  storage.Store
	events EventRecorder
}

// NewService creates a catalog service. blobs and events may be nil; without
// a blob store thumbnails are rejected.
func NewService(db *database.Database, blobs storage.Store, events EventRecorder) *Service {
	return &Service{
		db:     db,
		titles: catalogdb.NewRepository(db.DB),
		blobs:  blobs,
		events: events,
	}
}

// Get returns a single title.
func (s *Service) Get(ctx context.Context, id uint) (*entities.Title, error) {
	title, err := s.titles.WithTx(s.db.DB.WithContext(ctx)).GetTitle(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTitleNotFound
	}
	return title, err
}

// Add validates and stores a new title. The thumbnail, if any, is stored
// first and removed again if the title cannot be saved.
func (s *Service) Add(ctx context.Context, p entities.Principal, input TitleInput) (*entities.Title, error) {
	title := &entities.Title{
		Title:           strings.TrimSpace(input.Title),
		Author:          strings.TrimSpace(input.Author),
		Description:     strings.TrimSpace(input.Description),
		PublicationYear: input.PublicationYear,
		Available:       input.Quantity,
	}
	if err := validate(title); err != nil {
		return nil, err
	}

	if input.Thumbnail != nil {
		url, err := s.putThumbnail(ctx, input.Thumbnail)
		if err != nil {
			return nil, err
		}
		title.ThumbnailURL = url
	}

	if err := s.titles.WithTx(s.db.DB.WithContext(ctx)).CreateTitle(title); err != nil {
		s.discardThumbnail(ctx, title.ThumbnailURL)
		return nil, fmt.Errorf("failed to save title: %w", err)
	}

	s.record(p, "title_add", title, nil)
	return title, nil
}

// Update applies a partial update in one unit of work.
func (s *Service) Update(ctx context.Context, p entities.Principal, id uint, update TitleUpdate) (*entities.Title, error) {
	fields := map[string]any{}
	if update.Title != nil {
		fields["title"] = strings.TrimSpace(*update.Title)
	}
	if update.Author != nil {
		fields["author"] = strings.TrimSpace(*update.Author)
	}
	if update.Description != nil {
		fields["description"] = strings.TrimSpace(*update.Description)
	}
	if update.PublicationYear != nil {
		fields["publication_year"] = *update.PublicationYear
	}
	if update.Quantity != nil {
		fields["available"] = *update.Quantity
	}

	var newThumbnail string
	if update.Thumbnail != nil {
		url, err := s.putThumbnail(ctx, update.Thumbnail)
		if err != nil {
			return nil, err
		}
		newThumbnail = url
		fields["thumbnail_url"] = url
	}

	var updated *entities.Title
	var oldThumbnail string
	err := s.db.Transact(ctx, func(tx *gorm.DB) error {
		titles := s.titles.WithTx(tx)

		current, err := titles.GetTitle(id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTitleNotFound
		}
		if err != nil {
			return err
		}

		merged := *current
		applyFields(&merged, fields)
		if err := validate(&merged); err != nil {
			return err
		}
		if len(fields) == 0 {
			updated = current
			return nil
		}

		if err := titles.UpdateTitle(id, fields); err != nil {
			return err
		}
		oldThumbnail = current.ThumbnailURL
		updated, err = titles.GetTitle(id)
		return err
	})
	if err != nil {
		s.discardThumbnail(ctx, newThumbnail)
		return nil, err
	}

	if newThumbnail != "" {
		s.discardThumbnail(ctx, oldThumbnail)
	}
	s.record(p, "title_update", updated, nil)
	return updated, nil
}

// Delete removes a title that nobody currently holds. Closed loans keep
// pointing at the removed id so borrowing history is preserved.
func (s *Service) Delete(ctx context.Context, p entities.Principal, id uint) error {
	var deleted *entities.Title
	err := s.db.Transact(ctx, func(tx *gorm.DB) error {
		titles := s.titles.WithTx(tx)

		title, err := titles.GetTitle(id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTitleNotFound
		}
		if err != nil {
			return err
		}

		open, err := loans.NewRepository(tx).CountOpenForTitle(id)
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: %d open", ErrTitleHasOpenLoans, open)
		}

		deleted = title
		return titles.DeleteTitle(id)
	})
	if err != nil {
		if errors.Is(err, ErrTitleHasOpenLoans) {
			s.record(p, "title_delete", &entities.Title{ID: id}, err)
		}
		return err
	}

	s.discardThumbnail(ctx, deleted.ThumbnailURL)
	s.record(p, "title_delete", deleted, nil)
	return nil
}

func (s *Service) putThumbnail(ctx context.Context, upload *Upload) (string, error) {
	if s.blobs == nil {
		return "", fmt.Errorf("%w: thumbnails are not supported", ErrInvalidInput)
	}
	url, err := s.blobs.Put(ctx, upload.Name, upload.ContentType, upload.Content)
	if errors.Is(err, storage.ErrUnsupportedType) || errors.Is(err, storage.ErrTooLarge) {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return url, err
}

func (s *Service) discardThumbnail(ctx context.Context, url string) {
	if url == "" || s.blobs == nil {
		return
	}
	if err := s.blobs.Delete(ctx, url); err != nil && !errors.Is(err, storage.ErrNotManaged) {
		log.Printf("Failed to delete thumbnail %s: %v", url, err)
	}
}

func (s *Service) record(p entities.Principal, action string, title *entities.Title, err error) {
	if s.events != nil {
		s.events.LogCatalog(p.UserID, action, title.ID, title.Title, err)
	}
}

func validate(t *entities.Title) error {
	switch {
	case t.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case t.Author == "":
		return fmt.Errorf("%w: author is required", ErrInvalidInput)
	case t.PublicationYear < 0:
		return fmt.Errorf("%w: publication year must not be negative", ErrInvalidInput)
	case t.Available < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	return nil
}

func applyFields(t *entities.Title, fields map[string]any) {
	for key, value := range fields {
		switch key {
		case "title":
			t.Title = value.(string)
		case "author":
			t.Author = value.(string)
		case "description":
			t.Description = value.(string)
		case "publication_year":
			t.PublicationYear = value.(int)
		case "available":
			t.Available = value.(int)
		case "thumbnail_url":
			t.ThumbnailURL = value.(string)
		}
	}
}
