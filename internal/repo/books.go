// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Book model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a book is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tsiolis/go-bookswap-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertBook merge-upserts the book row keyed by title. A missing row is
// inserted; an existing row has only its author and cover_url refreshed,
// and only from non-empty incoming values, so a sparse candidate never
// blanks metadata another lister already provided. Listings under the
// title are untouched either way.
func UpsertBook(ctx context.Context, db *gorm.DB, title, author, coverURL string) (*domain.Book, error) {
	b := &domain.Book{
		Title:     title,
		Author:    author,
		CoverURL:  coverURL,
		CreatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "title"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"author":     gorm.Expr("CASE WHEN excluded.author = '' THEN books.author ELSE excluded.author END"),
			"cover_url":  gorm.Expr("CASE WHEN excluded.cover_url = '' THEN books.cover_url ELSE excluded.cover_url END"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(b).Error
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBook fetches a single book row by title, or ErrNotFound if missing.
func GetBook(ctx context.Context, db *gorm.DB, title string) (*domain.Book, error) {
	var b domain.Book
	if err := db.WithContext(ctx).First(&b, "title = ?", title).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBooks returns every book row ordered by title. Used by the feed
// aggregator to discover the titles present at subscription time and by
// the catalog index at startup.
func ListBooks(ctx context.Context, db *gorm.DB) ([]domain.Book, error) {
	var out []domain.Book
	err := db.WithContext(ctx).Order("title asc").Find(&out).Error
	return out, err
}
