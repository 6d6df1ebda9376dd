// Package queries serves read-only projections of the catalog and the loan
// ledger. Reads run outside the lending units of work and may observe state
// a concurrent borrow is about to change.
package queries

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/database/catalog"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/search"
)

// TitleQuery lists titles. A non-blank Search ranks by match quality first.
type TitleQuery struct {
	Page
	Search        string
	AvailableOnly bool
}

// HistoryQuery lists the caller's loans.
type HistoryQuery struct {
	Page
	IncludeReturned bool
}

// Dashboard holds the aggregate catalog counts.
type Dashboard struct {
	TotalTitles    int64 `json:"totalBooks"`
	OpenLoans      int64 `json:"currentlyBorrowedBooks"`
	TotalAvailable int64 `json:"totalAvailableBooks"`
}

type Service struct {
	db     *gorm.DB
	search *search.Provider
}

func NewService(db *gorm.DB, provider *search.Provider) *Service {
	return &Service{db: db, search: provider}
}

// ListTitles returns one page of titles, newest first, or best match first
// when searching.
func (s *Service) ListTitles(ctx context.Context, q TitleQuery) (*Result[entities.Title], error) {
	page, err := q.Page.normalize()
	if err != nil {
		return nil, err
	}
	titles := catalog.NewRepository(s.db.WithContext(ctx))

	if q.Search != "" && s.search != nil {
		ids, total, err := s.search.Search(ctx, q.Search, search.Filter{AvailableOnly: q.AvailableOnly}, page.Limit, page.offset())
		if err != nil {
			return nil, fmt.Errorf("failed to search titles: %w", err)
		}
		docs, err := titles.GetTitlesByIDs(ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load titles: %w", err)
		}
		return newResult(docs, total, page), nil
	}

	docs, total, err := titles.ListTitles(catalog.TitleFilter{AvailableOnly: q.AvailableOnly}, page.Limit, page.offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	return newResult(docs, total, page), nil
}

// History returns one page of the principal's loans, newest borrow first.
func (s *Service) History(ctx context.Context, p entities.Principal, q HistoryQuery) (*Result[entities.Loan], error) {
	page, err := q.Page.normalize()
	if err != nil {
		return nil, err
	}

	ledger := loans.NewRepository(s.db.WithContext(ctx))
	docs, total, err := ledger.ListForUser(p.UserID, !q.IncludeReturned, page.Limit, page.offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return newResult(docs, total, page), nil
}

// Dashboard returns the catalog totals. The three counts are read
// separately and may be mutually inconsistent under concurrent lending.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	titles := catalog.NewRepository(db)

	total, err := titles.CountTitles()
	if err != nil {
		return nil, fmt.Errorf("failed to count titles: %w", err)
	}
	available, err := titles.SumAvailable()
	if err != nil {
		return nil, fmt.Errorf("failed to sum available copies: %w", err)
	}
	open, err := loans.NewRepository(db).CountOpen()
	if err != nil {
		return nil, fmt.Errorf("failed to count open loans: %w", err)
	}

	return &Dashboard{
		TotalTitles:    total,
		OpenLoans:      open,
		TotalAvailable: available,
	}, nil
}
