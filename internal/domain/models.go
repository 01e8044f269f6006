// Package domain defines the persistence models for books, listings,
// reports, and conversations. These types are mapped with GORM and form
// the core data layer of the book-swap application.
package domain

import "time"

// Book represents a title that at least one user has listed at some point.
// Books are keyed by their title and carry denormalized catalog metadata
// (author, cover image). A book row is only ever merge-upserted: creating a
// second listing for an existing title refreshes author/cover_url without
// touching anything else, and deleting the last listing does not remove
// the book.
//
// Fields:
//   - Title: natural primary key.
//   - Author: catalog author; refreshed on every merge-upsert.
//   - CoverURL: optional cover image URL.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Book struct {
	Title     string    `json:"title"               gorm:"type:varchar(255);primaryKey"`
	Author    string    `json:"author"              gorm:"type:varchar(255);not null;default:''"`
	CoverURL  string    `json:"cover_url,omitempty" gorm:"type:varchar(512)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Book.
func (Book) TableName() string { return "books" }

// Listing represents one user's offer of a book. Listings live "under" a
// book (BookTitle is the back-reference) and are the unit the live feed is
// built from. They are created with a server-assigned UUID and deleted only
// by their owner; there is no update path.
//
// Fields:
//   - ID: stable UUID primary key (char(36)), assigned at creation.
//   - BookTitle: weak back-reference to the owning book's title (indexed).
//   - ListedBy: owner user identifier.
//   - ListedByEmail: owner email, denormalized for display. The literal
//     string "Unknown" is stored when the creating user has no email.
//   - CreatedAt: creation instant; the feed sorts descending on it.
type Listing struct {
	ID            string    `json:"id"              gorm:"type:char(36);primaryKey"`
	BookTitle     string    `json:"book_id"         gorm:"type:varchar(255);not null;index:idx_book_listings"`
	ListedBy      string    `json:"listed_by"       gorm:"type:varchar(64);not null;index"`
	ListedByEmail string    `json:"listed_by_email" gorm:"type:varchar(255);not null"`
	CreatedAt     time.Time `json:"timestamp"`

	// Book is the owning title. Listings are cascade-deleted if the book
	// row is ever removed out-of-band.
	Book Book `json:"-" gorm:"foreignKey:BookTitle;references:Title;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Listing.
func (Listing) TableName() string { return "listings" }

// Report is an append-only record of a user flagging someone else's
// listing. Reports are intentionally free-form: no uniqueness constraint,
// no dedup, and the book fields are whatever the flattened listing carried
// at report time (with "not found" fallbacks when blank).
type Report struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserEmail  string    `json:"user"        gorm:"type:varchar(255);not null;index"`
	BookTitle  string    `json:"book_title"  gorm:"type:varchar(255);not null"`
	BookAuthor string    `json:"book_author" gorm:"type:varchar(255);not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for Report.
func (Report) TableName() string { return "reports" }

// Conversation is the direct-message channel between two users. The row is
// keyed by a symmetric ChatID (the two user ids sorted lexicographically,
// joined by an underscore) so both participants always resolve to the same
// record no matter who initiates.
//
// First/Second fields are NOT symmetric: they reflect the latest
// initiator's perspective and are overwritten on every initiation. Readers
// must key on ChatID/Members, never on the first/second ordering.
type Conversation struct {
	ChatID          string    `json:"chat_id"           gorm:"type:varchar(129);primaryKey;column:chat_id"`
	Members         []string  `json:"members"           gorm:"serializer:json;type:text;not null"`
	FirstUser       string    `json:"first_user"        gorm:"type:varchar(64);not null"`
	FirstUserEmail  string    `json:"first_user_email"  gorm:"type:varchar(255);not null"`
	SecondUser      string    `json:"second_user"       gorm:"type:varchar(64);not null"`
	SecondUserEmail string    `json:"second_user_email" gorm:"type:varchar(255);not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "user_conversations" }
