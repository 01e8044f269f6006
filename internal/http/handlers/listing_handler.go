// Listing HTTP handlers.
//
// This file exposes REST endpoints for listing resources:
//   - POST   /listings                          (create from a book candidate)
//   - GET    /listings                          (flattened live feed, paginated, ETag support)
//   - DELETE /books/{title}/listings/{id}       (owner-only delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// create with the same key is still valid, the handler replays the stored
// listing and sets `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tsiolis/go-bookswap-backend/internal/domain"
	"github.com/tsiolis/go-bookswap-backend/internal/feed"
	"github.com/tsiolis/go-bookswap-backend/internal/http/middleware"
	"github.com/tsiolis/go-bookswap-backend/internal/repo"
	"github.com/tsiolis/go-bookswap-backend/internal/services"
	"github.com/tsiolis/go-bookswap-backend/internal/utils"
)

// idemScopeListings scopes idempotency records written by the create
// endpoint (no natural path id exists before creation).
const idemScopeListings = "listings"

//
// Service contracts (context-aware)
//

// ListingService defines listing lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ListingService interface {
	// Create lists a book candidate for the given user identity.
	Create(ctx context.Context, userID, userEmail string, cand *services.BookCandidate) (*domain.Listing, error)
	// Get fetches one listing under a book for caller-side checks.
	Get(ctx context.Context, bookTitle, listingID string) (*domain.Listing, error)
	// Delete removes a listing; ownership is the caller's responsibility.
	Delete(ctx context.Context, bookTitle, listingID string) error
	// Report appends a report record, fire-and-forget.
	Report(ctx context.Context, item feed.FlattenedListing)
	// Flatten joins a listing with its book metadata.
	Flatten(ctx context.Context, l *domain.Listing) feed.FlattenedListing
}

// ConversationService defines the conversation bootstrap operation.
type ConversationService interface {
	// Start merge-upserts the conversation from the caller's perspective.
	Start(ctx context.Context, callerID, callerEmail, targetID, targetEmail string) (*domain.Conversation, error)
}

// FeedSource is the read side of the live listing aggregator.
type FeedSource interface {
	// Snapshot returns the current flattened listing list (unsorted).
	Snapshot() []feed.FlattenedListing
	// Subscribe returns a channel of whole-feed snapshots plus a cancel.
	Subscribe() (<-chan []feed.FlattenedListing, func())
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for listings, the live feed, reports,
// conversations, and catalog search. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	listingSvc ListingService
	convSvc    ConversationService
	feed       FeedSource
	catalog    CatalogSearcher

	// Heartbeat is the SSE keep-alive interval for the stream endpoint.
	Heartbeat time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
// catalog may be nil; the search endpoint then responds 503.
func New(listingSvc ListingService, convSvc ConversationService, src FeedSource, catalog CatalogSearcher) *Handlers {
	return &Handlers{
		listingSvc: listingSvc,
		convSvc:    convSvc,
		feed:       src,
		catalog:    catalog,
		Heartbeat:  30 * time.Second,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// userEmail extracts the caller's email from the Gin context or the
// "X-User-Email" header. Unlike userID there is no fallback: an
// unauthenticated caller legitimately has no email (the service stores
// "Unknown" on create, and owner-only affordances simply never match).
func userEmail(c *gin.Context) string {
	if v, ok := c.Get("userEmail"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		return strings.TrimSpace(c.GetHeader("X-User-Email"))
	}
	return ""
}

//
// DTOs
//

// CreateListingRequest is the JSON payload for creating a listing: the
// book candidate the user selected in the search modal.
type CreateListingRequest struct {
	Title    string `json:"title" binding:"required,min=1,max=255" example:"Dune"`
	Author   string `json:"author" example:"Frank Herbert"`
	CoverURL string `json:"cover_url" example:"https://covers.example.org/dune.jpg"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListListingsResponse wraps a page of the flattened feed and pagination
// information.
type ListListingsResponse struct {
	Listings   []feed.FlattenedListing `json:"listings"`
	Pagination Pagination              `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// sortedSnapshot copies the current feed snapshot sorted descending by
// timestamp (most recent listing first).
func (h *Handlers) sortedSnapshot() []feed.FlattenedListing {
	return sortDesc(h.feed.Snapshot())
}

//
// Handlers
//

// CreateListing godoc
// @ID          createListing
// @Summary     Create a listing
// @Description Lists the selected book for the current user: merge-upserts the book record and appends a listing under it. Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Listings
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"     example(user123)
// @Param       X-User-Email     header  string  false "User email (demo header)"  example(user123@example.edu)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateListingRequest  true  "Selected book candidate"
//
// @Success     201  {object}  domain.Listing
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request / no book selected"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /listings [post]
func (h *Handlers) CreateListing(c *gin.Context) {
	ctx := c.Request.Context()
	currentUser := userID(c)

	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no book selected")
		return
	}

	// Idempotency (replay path) – read validated key if present.
	idemKey, okKey := middleware.GetIdempotencyKey(c)
	if !okKey {
		idemKey = strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	}
	if idemKey != "" {
		if db := h.listingDB(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, currentUser, idemScopeListings, idemKey, time.Now().UTC()); err == nil && rec != nil {
				// The stored listing is keyed by the normalized title; the
				// retried request carries the raw one.
				if prev, err2 := h.listingSvc.Get(ctx, services.NormalizeTitle(req.Title), rec.TargetID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, prev)
					return
				}
			}
		}
	}

	l, err := h.listingSvc.Create(ctx, currentUser, userEmail(c), &services.BookCandidate{
		Title:    req.Title,
		Author:   req.Author,
		CoverURL: req.CoverURL,
	})
	if err != nil {
		switch err {
		case services.ErrNoBookSelected:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no book selected")
		case services.ErrTitleTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "book title too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if db := h.listingDB(); db != nil {
			_, _ = repo.CreateIdempotency(ctx, db, currentUser, idemScopeListings, idemKey, l.ID, http.StatusCreated, 24*time.Hour)
		}
	}

	ok(c, http.StatusCreated, l)
}

// ListListings godoc
// @ID          listListings
// @Summary     List active listings (live feed, paginated)
// @Description Returns a page of the flattened feed, most recent first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Listings
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListListingsResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /listings [get]
func (h *Handlers) ListListings(c *gin.Context) {
	page, pageSize := clampPagination(c)

	all := h.sortedSnapshot()

	// The ETag derives from the same snapshot the body is built from, so a
	// validator can never pair a fresh tag with a lagging page.
	var ts int64
	if len(all) > 0 {
		ts = all[0].Timestamp.Unix()
	}
	etag := fmt.Sprintf(`W/"listings:%d:%d"`, len(all), ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}

	total := int64(len(all))

	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListListingsResponse{
		Listings: all[start:end],
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

// DeleteListing godoc
// @ID          deleteListing
// @Summary     Delete own listing
// @Description Removes a listing. Only the listing's owner (matched by email) may delete it; the book record and sibling listings are unaffected.
// @Tags        Listings
// @Produce     json
//
// @Param       X-User-Email  header  string  true  "User email (demo header)"  example(user123@example.edu)
// @Param       title         path    string  true  "Owning book title"         example(Dune)
// @Param       id            path    string  true  "Listing ID (UUID)"         format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Not the listing owner"
// @Failure     404  {object} handlers.ErrorResponse "Listing not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /books/{title}/listings/{id} [delete]
func (h *Handlers) DeleteListing(c *gin.Context) {
	ctx := c.Request.Context()
	bookTitle := c.Param("title")
	listingID := c.Param("id")

	l, err := h.listingSvc.Get(ctx, bookTitle, listingID)
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "listing not found")
		return
	}

	// Owner-only: the delete operation itself trusts its caller, so the
	// check lives here at the edge, mirroring the screen that only offered
	// delete on the owner's own cards.
	if email := userEmail(c); email == "" || email != l.ListedByEmail {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only the listing owner may delete it")
		return
	}

	if err := h.listingSvc.Delete(ctx, bookTitle, listingID); err != nil {
		switch err {
		case services.ErrListingNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "listing not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		}
		return
	}

	noContent(c)
}

// listingDB exposes the concrete service's DB handle for conditional
// responses and idempotency records. Returns nil when the handler was
// wired with a non-concrete ListingService (e.g., a test fake).
func (h *Handlers) listingDB() *gorm.DB {
	if svc, ok := h.listingSvc.(*services.ListingService); ok {
		return svc.DB
	}
	return nil
}
