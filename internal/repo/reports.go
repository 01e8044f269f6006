// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Report model.
//
// Reports are append-only: no uniqueness constraint and no dedup. Repeated
// reports of the same listing simply create more rows. The service layer is
// responsible for the fire-and-forget delivery semantics.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tsiolis/go-bookswap-backend/internal/domain"
)

// CreateReport appends a report row. The caller supplies the reported
// owner's email and the book metadata as displayed at report time; no
// validation is performed here.
//
// On success, it returns nil. On failure, it returns a DB error.
func CreateReport(ctx context.Context, db *gorm.DB, userEmail, bookTitle, bookAuthor string) error {
	r := &domain.Report{
		ID:         uuid.NewString(),
		UserEmail:  userEmail,
		BookTitle:  bookTitle,
		BookAuthor: bookAuthor,
		CreatedAt:  time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(r).Error
}

// CountReports returns the total number of report rows. Used by tests and
// operational tooling; the API never exposes reports.
func CountReports(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Report{}).Count(&total).Error
	return total, err
}
