// Package services – ListingService
//
// This file implements the ListingService, which owns the lifecycle of
// listings: creating one from a selected book candidate (merge-upserting
// the book row, then appending the listing), deleting one, and reporting
// one. After every successful store write it publishes a change on the
// feed bus so the live aggregator picks the mutation up.
//
// Service-level errors (e.g. ErrNoBookSelected, ErrListingNotFound) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
//
// Observability: public methods are OpenTelemetry-instrumented; spans
// include book/listing/user identifiers.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"golang.org/x/text/unicode/norm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tsiolis/go-bookswap-backend/internal/domain"
	"github.com/tsiolis/go-bookswap-backend/internal/feed"
	"github.com/tsiolis/go-bookswap-backend/internal/repo"
	"github.com/tsiolis/go-bookswap-backend/internal/search"
)

const (
	// unknownEmail is stored verbatim when the creating user has no email.
	unknownEmail = "Unknown"

	// Report field fallbacks for listings with blank metadata.
	fallbackReportTitle  = "Title not found"
	fallbackReportAuthor = "Author not found"

	// reportTimeout bounds the detached report write.
	reportTimeout = 10 * time.Second
)

// BookCandidate is the book-search collaborator's output: the metadata a
// user picked before listing a book.
type BookCandidate struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	CoverURL string `json:"cover_url,omitempty"`
}

// CatalogWriter receives newly listed books for search indexing, keeping
// the catalog current between restarts.
type CatalogWriter interface {
	Put(e search.Entry) error
}

// ListingService coordinates listing persistence and feed notification.
type ListingService struct {
	DB   *gorm.DB
	Feed *feed.Bus
	Log  zerolog.Logger

	// Catalog, when set, is updated with every book a create touches so
	// search results include books listed since startup.
	Catalog CatalogWriter

	// MaxTitleRunes caps accepted book titles by rune length (0 = no cap).
	MaxTitleRunes int
}

// NewListingService constructs a ListingService with sane defaults.
func NewListingService(db *gorm.DB, bus *feed.Bus, log zerolog.Logger) *ListingService {
	return &ListingService{
		DB:            db,
		Feed:          bus,
		Log:           log,
		MaxTitleRunes: 255,
	}
}

// Create lists cand for the given user.
//
// The book row is merge-upserted at key = title and the listing appended
// under it as two independent best-effort writes, not a transaction: when
// the upsert succeeds but the append fails, the book row persists without
// a new listing. Missing selection is rejected before any store call. A
// user without an email is stored as "Unknown".
func (s *ListingService) Create(ctx context.Context, userID, userEmail string, cand *BookCandidate) (*domain.Listing, error) {
	tr := otel.Tracer("services/ListingService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if cand == nil {
		return nil, ErrNoBookSelected
	}
	title := NormalizeTitle(cand.Title)
	if title == "" {
		return nil, ErrNoBookSelected
	}
	if s.MaxTitleRunes > 0 && utf8.RuneCountInString(title) > s.MaxTitleRunes {
		return nil, ErrTitleTooLong
	}
	span.SetAttributes(attribute.String("book.title", title))

	email := strings.TrimSpace(userEmail)
	if email == "" {
		email = unknownEmail
	}

	b, err := repo.UpsertBook(ctx, s.DB, title, strings.TrimSpace(cand.Author), strings.TrimSpace(cand.CoverURL))
	if err != nil {
		return nil, err
	}
	s.Feed.Publish(feed.Change{Op: feed.OpBookUpserted, BookTitle: title})

	// Index the merged book row so search stays current with new listings.
	if s.Catalog != nil {
		if cerr := s.Catalog.Put(search.Entry{Title: b.Title, Author: b.Author, CoverURL: b.CoverURL}); cerr != nil {
			s.Log.Warn().Err(cerr).Str("book", title).Msg("catalog index update failed")
		}
	}

	l, err := repo.CreateListing(ctx, s.DB, title, userID, email)
	if err != nil {
		return nil, err
	}
	s.Feed.Publish(feed.Change{Op: feed.OpListingsChanged, BookTitle: title})

	return l, nil
}

// Get fetches a single listing under bookTitle, translating missing rows
// into ErrListingNotFound. Handlers use it for the caller-side ownership
// check before Delete.
func (s *ListingService) Get(ctx context.Context, bookTitle, listingID string) (*domain.Listing, error) {
	l, err := repo.GetListing(ctx, s.DB, bookTitle, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return l, nil
}

// Delete removes the listing identified by (bookTitle, listingID). The
// operation performs no ownership check and trusts the caller to have
// verified the owner's email. The book row and sibling listings are
// unaffected.
func (s *ListingService) Delete(ctx context.Context, bookTitle, listingID string) error {
	tr := otel.Tracer("services/ListingService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("book.title", bookTitle),
			attribute.String("listing.id", listingID),
		),
	)
	defer span.End()

	if err := repo.DeleteListing(ctx, s.DB, bookTitle, listingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrListingNotFound
		}
		return err
	}
	s.Feed.Publish(feed.Change{Op: feed.OpListingsChanged, BookTitle: bookTitle})
	return nil
}

// Report appends a report record for the flattened listing being reported.
//
// The write is fire-and-forget: it runs on a detached context and its
// outcome is not awaited, so the caller always observes success. Failures
// are logged and dropped.
func (s *ListingService) Report(ctx context.Context, item feed.FlattenedListing) {
	tr := otel.Tracer("services/ListingService")
	_, span := tr.Start(ctx, "Report",
		trace.WithAttributes(attribute.String("listing.id", item.ID)),
	)
	defer span.End()

	title := item.Title
	if strings.TrimSpace(title) == "" {
		title = fallbackReportTitle
	}
	author := item.Author
	if strings.TrimSpace(author) == "" {
		author = fallbackReportAuthor
	}
	email := item.ListedByEmail

	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
		defer cancel()
		if err := repo.CreateReport(wctx, s.DB, email, title, author); err != nil {
			s.Log.Error().Err(err).
				Str("listing_id", item.ID).
				Str("book", title).
				Msg("report append failed")
		}
	}()
}

// Flatten joins a listing with its book metadata into the feed projection
// shape. Used by handlers that need a FlattenedListing outside the
// aggregator (e.g. the report endpoint accepting a raw listing reference).
func (s *ListingService) Flatten(ctx context.Context, l *domain.Listing) feed.FlattenedListing {
	author, coverURL := "", ""
	if b, err := repo.GetBook(ctx, s.DB, l.BookTitle); err == nil {
		author, coverURL = b.Author, b.CoverURL
	}
	return feed.FlattenedListing{
		ID:            l.ID,
		BookID:        l.BookTitle,
		Title:         l.BookTitle,
		Author:        author,
		CoverURL:      coverURL,
		ListedBy:      l.ListedBy,
		ListedByEmail: l.ListedByEmail,
		Timestamp:     l.CreatedAt,
	}
}

// NormalizeTitle NFC-normalizes (so the same visible title always keys the
// same book row), trims, and collapses runs of whitespace to one space.
// Listings persist under the normalized title, so any lookup keyed by a
// client-supplied title must normalize first.
func NormalizeTitle(s string) string {
	s = norm.NFC.String(s)
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
