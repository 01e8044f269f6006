package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tsiolis/go-bookswap-backend/internal/feed"
	"github.com/tsiolis/go-bookswap-backend/internal/services"
)

// ReportListingRequest is the JSON payload for reporting a listed book.
// Title and author may be blank; the service substitutes placeholders so a
// report is never lost to missing metadata. ListedByEmail is the owner's
// email as shown on the reported feed card; it is only used as a fallback
// when the listing can no longer be resolved in the store.
type ReportListingRequest struct {
	ID            string `json:"id" example:"b2f5e1a0-7c4d-4f7b-9a2e-5d6c7b8a9f01"`
	Title         string `json:"title" example:"Dune"`
	Author        string `json:"author" example:"Frank Herbert"`
	ListedByEmail string `json:"listed_by_email" example:"owner@example.edu"`
}

// ReportAccepted acknowledges a report submission.
type ReportAccepted struct {
	Status string `json:"status" example:"accepted"`
}

// ReportListing godoc
// @ID          reportListing
// @Summary     Report a listed book
// @Description Records a report against a listed book and its owner. Submission is fire-and-forget: the report is persisted in the background and the endpoint acknowledges immediately regardless of storage outcome.
// @Tags        Listings
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ReportListingRequest  true  "Reported item"
//
// @Success     202  {object}  handlers.ReportAccepted
// @Failure     400  {object}  handlers.ErrorResponse "Malformed body"
// @Router      /listings/report [post]
func (h *Handlers) ReportListing(c *gin.Context) {
	var req ReportListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid report payload")
		return
	}
	ctx := c.Request.Context()

	// The report names the listing's owner, never the reporting caller.
	// Resolve the listing for authoritative owner and metadata; when it is
	// already gone, fall back to what the reporter's feed card carried.
	item := feed.FlattenedListing{
		ID:            req.ID,
		Title:         req.Title,
		Author:        req.Author,
		ListedByEmail: req.ListedByEmail,
	}
	if l, err := h.listingSvc.Get(ctx, services.NormalizeTitle(req.Title), req.ID); err == nil {
		item = h.listingSvc.Flatten(ctx, l)
	}

	h.listingSvc.Report(ctx, item)

	ok(c, http.StatusAccepted, ReportAccepted{Status: "accepted"})
}
