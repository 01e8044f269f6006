package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/tsiolis/go-bookswap-backend/internal/domain"
)

// waitReport polls for exactly one report row and hands it to check.
func waitReport(t *testing.T, f *fixture, check func(domain.Report)) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		var reports []domain.Report
		if err := f.db.Find(&reports).Error; err == nil && len(reports) == 1 {
			check(reports[0])
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("report row never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReportListing_RecordsListingOwnerNotReporter(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/listings", CreateListingRequest{
		Title:  "Dune",
		Author: "Frank Herbert",
	}, map[string]string{"X-User-ID": "owner", "X-User-Email": "owner@example.edu"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var l domain.Listing
	_ = json.Unmarshal(w.Body.Bytes(), &l)

	w = f.do(t, http.MethodPost, "/listings/report", ReportListingRequest{
		ID:     l.ID,
		Title:  "Dune",
		Author: "Frank Herbert",
	}, map[string]string{"X-User-ID": "viewer2", "X-User-Email": "reporter@example.edu"})

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (%s)", w.Code, w.Body.String())
	}
	var resp ReportAccepted
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Status != "accepted" {
		t.Fatalf("unexpected ack: %s err=%v", w.Body.String(), err)
	}

	// The write is detached; wait for the row. The reported user is the
	// listing's owner, never the caller who filed the report.
	waitReport(t, f, func(r domain.Report) {
		if r.BookTitle != "Dune" || r.UserEmail != "owner@example.edu" {
			t.Fatalf("unexpected report row: %+v", r)
		}
	})
}

func TestReportListing_GoneListingFallsBackToCardMetadata(t *testing.T) {
	f := newFixture(t)

	// The listing is already gone; the feed card's owner email rides in
	// the body and still names the reported user.
	w := f.do(t, http.MethodPost, "/listings/report", ReportListingRequest{
		ID:            "gone-listing",
		Title:         "Emma",
		Author:        "Jane Austen",
		ListedByEmail: "owner@example.edu",
	}, map[string]string{"X-User-Email": "reporter@example.edu"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (%s)", w.Code, w.Body.String())
	}

	waitReport(t, f, func(r domain.Report) {
		if r.BookTitle != "Emma" || r.UserEmail != "owner@example.edu" {
			t.Fatalf("unexpected report row: %+v", r)
		}
	})
}

func TestReportListing_AcceptedEvenWhenStorageBroken(t *testing.T) {
	f := newFixture(t)
	if err := f.db.Migrator().DropTable(&domain.Report{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	w := f.do(t, http.MethodPost, "/listings/report", ReportListingRequest{ID: "l1"}, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 despite broken storage, got %d", w.Code)
	}
}

func TestReportListing_MalformedBody(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/listings/report", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", w.Code)
	}
}
