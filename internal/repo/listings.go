// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Listing model.
//
// Functions:
//
//   - CreateListing(ctx, db, bookTitle, listedBy, listedByEmail) -> *domain.Listing, error
//     Inserts a new listing row with UUID primary key and UTC timestamp.
//
//   - ListingsForBook(ctx, db, bookTitle) -> []domain.Listing, error
//     Returns the full current snapshot of one book's listings.
//
//   - GetListing(ctx, db, bookTitle, id) -> *domain.Listing, error
//     Fetches one listing under a book, or ErrNotFound.
//
//   - DeleteListing(ctx, db, bookTitle, id) -> error
//     Hard-deletes a specific listing; ErrNotFound when no row matched.
//
//   - CountListings(ctx, db) -> (int64, error)
//     Returns the total number of live listings across all books.
//
// The caller (service layer) owns ordering, ownership rules, and feed
// notification; this layer trusts its inputs.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tsiolis/go-bookswap-backend/internal/domain"
)

// CreateListing inserts a new listing under bookTitle. The listing ID is a
// randomly generated UUID (string), and CreatedAt is set to UTC.
//
// On success, it returns the persisted Listing. On failure, it returns a DB error.
func CreateListing(ctx context.Context, db *gorm.DB, bookTitle, listedBy, listedByEmail string) (*domain.Listing, error) {
	l := &domain.Listing{
		ID:            uuid.NewString(),
		BookTitle:     bookTitle,
		ListedBy:      listedBy,
		ListedByEmail: listedByEmail,
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// ListingsForBook returns every listing under bookTitle, ordered by creation
// time ascending (arrival order; the feed re-sorts at render time). It
// returns an empty slice when the book has no listings.
func ListingsForBook(ctx context.Context, db *gorm.DB, bookTitle string) ([]domain.Listing, error) {
	var out []domain.Listing
	err := db.WithContext(ctx).
		Where("book_title = ?", bookTitle).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// GetListing fetches a single listing by its book and ID.
// Returns ErrNotFound if the record does not exist.
func GetListing(ctx context.Context, db *gorm.DB, bookTitle, id string) (*domain.Listing, error) {
	var l domain.Listing
	err := db.WithContext(ctx).
		Where("id = ? AND book_title = ?", id, bookTitle).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteListing removes the listing identified by (bookTitle, id). If no
// rows are affected (listing missing or under a different title), it
// returns ErrNotFound. Other listings and the book row are unaffected.
func DeleteListing(ctx context.Context, db *gorm.DB, bookTitle, id string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND book_title = ?", id, bookTitle).
		Delete(&domain.Listing{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountListings returns the total number of listings across all books.
// On DB error, it returns the error.
func CountListings(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Listing{}).Count(&total).Error
	return total, err
}
