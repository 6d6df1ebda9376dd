// Package search ranks catalog titles against free-text queries.
//
// Every whitespace-separated term is matched as a substring after Unicode
// case folding on both sides. A title scores per matching term:
//
//	title:       4
//	author:      2
//	description: 1
//
// plus a bonus of 8 when the whole query equals the title. Titles scoring
// zero are not returned. Equal scores fall back to newest first.
package search

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

const (
	weightTitle       = 4
	weightAuthor      = 2
	weightDescription = 1
	bonusExactTitle   = 8
)

// Filter narrows the candidate titles before ranking.
type Filter struct {
	AvailableOnly bool
}

type Provider struct {
	db *gorm.DB
}

func NewProvider(db *gorm.DB) *Provider {
	return &Provider{db: db}
}

// Search returns one page of matching title ids, best match first, and the
// total number of matches. An empty query matches nothing.
func (p *Provider) Search(ctx context.Context, query string, filter Filter, limit, offset int) ([]uint, int64, error) {
	terms := strings.Fields(database.FoldCase(query))
	if len(terms) == 0 {
		return []uint{}, 0, nil
	}

	scoreSQL, args := scoreExpr(strings.Join(terms, " "), terms)
	db := p.db.WithContext(ctx)

	inner := db.Model(&entities.Title{}).
		Select("id, created_at, ("+scoreSQL+") AS score", args...)
	if filter.AvailableOnly {
		inner = inner.Where("available > 0")
	}

	ranked := db.Table("(?) AS ranked", inner).Where("score > 0").Session(&gorm.Session{})

	var total int64
	if err := ranked.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	ids := []uint{}
	err := ranked.
		Order("score DESC").Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Pluck("id", &ids).Error
	return ids, total, err
}

func scoreExpr(query string, terms []string) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(terms)*3+1)

	b.WriteString("CASE WHEN " + folded("title") + " = ? THEN ")
	b.WriteString(strconv.Itoa(bonusExactTitle))
	b.WriteString(" ELSE 0 END")
	args = append(args, query)

	for _, term := range terms {
		pattern := "%" + escapeLike(term) + "%"
		for _, col := range []struct {
			name   string
			weight int
		}{
			{"title", weightTitle},
			{"author", weightAuthor},
			{"description", weightDescription},
		} {
			b.WriteString(" + CASE WHEN ")
			b.WriteString(folded(col.name))
			b.WriteString(` LIKE ? ESCAPE '\' THEN `)
			b.WriteString(strconv.Itoa(col.weight))
			b.WriteString(" ELSE 0 END")
			args = append(args, pattern)
		}
	}
	return b.String(), args
}

// folded applies the connection's case folding to a column; NULL folds to "".
func folded(column string) string {
	return database.FoldFunc + "(COALESCE(" + column + ", ''))"
}

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
