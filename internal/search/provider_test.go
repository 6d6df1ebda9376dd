package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

func setupProvider(t *testing.T) (*Provider, *database.Database) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "search.db"), database.WithLogLevel(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProvider(db.DB), db
}

func seed(t *testing.T, db *database.Database, titles ...entities.Title) []entities.Title {
	t.Helper()
	now := time.Now()
	for i := range titles {
		if titles[i].CreatedAt.IsZero() {
			titles[i].CreatedAt = now.Add(time.Duration(i) * time.Minute)
		}
		require.NoError(t, db.DB.Create(&titles[i]).Error)
	}
	return titles
}

func TestProvider_Search_Ranking(t *testing.T) {
	p, db := setupProvider(t)
	titles := seed(t, db,
		entities.Title{Title: "Cooking for Engineers", Author: "Jane Doe", Description: "recipes and dune buggies", Available: 1},
		entities.Title{Title: "Children of Dune", Author: "Frank Herbert", Available: 1},
		entities.Title{Title: "Desert Notes", Author: "Dune Smith", Available: 1},
		entities.Title{Title: "Unrelated", Author: "Nobody", Available: 1},
		entities.Title{Title: "Dune", Author: "Frank Herbert", Available: 0},
	)

	ids, total, err := p.Search(context.Background(), "dune", Filter{}, 10, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(4), total)
	assert.Equal(t, []uint{titles[4].ID, titles[1].ID, titles[2].ID, titles[0].ID}, ids)
}

func TestProvider_Search_MultipleTerms(t *testing.T) {
	p, db := setupProvider(t)
	titles := seed(t, db,
		entities.Title{Title: "Dune", Author: "Someone Else"},
		entities.Title{Title: "Dune Messiah", Author: "Frank Herbert"},
	)

	ids, _, err := p.Search(context.Background(), "Dune HERBERT", Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{titles[1].ID, titles[0].ID}, ids)
}

func TestProvider_Search_TiesNewestFirst(t *testing.T) {
	p, db := setupProvider(t)
	at := time.Now().Truncate(time.Second)
	titles := seed(t, db,
		entities.Title{Title: "Go in Action", Author: "a", CreatedAt: at.Add(-time.Hour)},
		entities.Title{Title: "Learning Go", Author: "b", CreatedAt: at},
		entities.Title{Title: "Go Patterns", Author: "c", CreatedAt: at},
	)

	ids, _, err := p.Search(context.Background(), "go", Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{titles[2].ID, titles[1].ID, titles[0].ID}, ids)
}

func TestProvider_Search_FilterAndPaging(t *testing.T) {
	p, db := setupProvider(t)
	seed(t, db,
		entities.Title{Title: "Dune 1", Author: "x", Available: 1},
		entities.Title{Title: "Dune 2", Author: "x", Available: 0},
		entities.Title{Title: "Dune 3", Author: "x", Available: 2},
	)

	ids, total, err := p.Search(context.Background(), "dune", Filter{AvailableOnly: true}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, ids, 2)

	ids, total, err = p.Search(context.Background(), "dune", Filter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, ids, 1)
}

func TestProvider_Search_EdgeCases(t *testing.T) {
	p, db := setupProvider(t)
	seed(t, db, entities.Title{Title: "100% Pure", Author: "x"}, entities.Title{Title: "1000 Pure", Author: "y"})

	t.Run("blank query matches nothing", func(t *testing.T) {
		ids, total, err := p.Search(context.Background(), "   ", Filter{}, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, ids)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		ids, total, err := p.Search(context.Background(), "100%", Filter{}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, ids, 1)
	})

	t.Run("misspellings do not match", func(t *testing.T) {
		ids, total, err := p.Search(context.Background(), "Prue", Filter{}, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, ids)
	})

	t.Run("no match", func(t *testing.T) {
		ids, total, err := p.Search(context.Background(), "zzz", Filter{}, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, ids)
	})
}

func TestProvider_Search_FoldsNonASCII(t *testing.T) {
	p, db := setupProvider(t)
	titles := seed(t, db,
		entities.Title{Title: "Études de Chopin", Author: "Frédéric Chopin"},
		entities.Title{Title: "Die Straße", Author: "Ann Petry"},
		entities.Title{Title: "Unrelated", Author: "Nobody"},
	)

	tests := []struct {
		query string
		want  []uint
	}{
		{"Études de Chopin", []uint{titles[0].ID}},
		{"études", []uint{titles[0].ID}},
		{"ÉTUDES", []uint{titles[0].ID}},
		{"frédéric", []uint{titles[0].ID}},
		{"strasse", []uint{titles[1].ID}},
		{"STRASSE", []uint{titles[1].ID}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			ids, total, err := p.Search(context.Background(), tt.query, Filter{}, 10, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), total)
			assert.Equal(t, tt.want, ids)
		})
	}
}
