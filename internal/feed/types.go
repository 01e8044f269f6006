// Package feed implements the live listing feed: a process-local change
// stream over the book/listing store (Bus) and an Aggregator that keeps a
// flattened, always-current projection of every active listing across all
// books.
//
// The aggregator follows the two-level subscription shape of the original
// screen: one top-level subscription on the book collection, plus one
// nested subscription per observed book for its listings. Each nested
// notification atomically replaces that one book's entries in the
// flattened snapshot; snapshots are immutable once published.
package feed

import "time"

// Op enumerates the change kinds emitted on the store change stream.
type Op string

const (
	// OpBookUpserted fires after a book row is created or merge-updated.
	OpBookUpserted Op = "book_upserted"
	// OpListingsChanged fires after a listing under the book is added or removed.
	OpListingsChanged Op = "listings_changed"
	// OpBookRemoved fires when a book row disappears from the top level.
	OpBookRemoved Op = "book_removed"
)

// Change is a single notification on the store change stream. It carries
// only the coordinates of what changed; consumers re-read current state
// from the store, so delivery is level-triggered and safe to coalesce.
type Change struct {
	Op        Op     `json:"op"`
	BookTitle string `json:"book_title"`
}

// FlattenedListing is the in-memory union of a listing and its book's
// metadata. Exactly one exists per live listing; the aggregator rebuilds
// them wholesale on every relevant notification and never persists them.
type FlattenedListing struct {
	ID            string    `json:"id"`
	BookID        string    `json:"book_id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	CoverURL      string    `json:"cover_url,omitempty"`
	ListedBy      string    `json:"listed_by"`
	ListedByEmail string    `json:"listed_by_email"`
	Timestamp     time.Time `json:"timestamp"`
}
