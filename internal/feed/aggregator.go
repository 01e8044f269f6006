// Aggregator: the flattened live view of all active listings.
//
// One goroutine (the run loop) owns all aggregation state. It holds the
// top-level subscription on the change bus and one nested watcher per
// observed book; nested watchers do nothing but filter the stream for
// their book and forward "listings changed" ticks into the run loop. On
// each tick the loop re-reads that one book's listings from the store,
// replaces that book's entries in the projection, and publishes a fresh
// whole snapshot to consumers. Published snapshots are never mutated.
//
// Ordering across different books is whatever order notifications arrive
// in; only the per-book replace-all is atomic. Consumers sort.

package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tsiolis/go-bookswap-backend/internal/repo"
)

// Aggregator maintains the flattened listing projection. Construct with
// NewAggregator, call Start once, and Close on teardown.
type Aggregator struct {
	db  *gorm.DB
	bus *Bus
	log zerolog.Logger

	// nested carries per-book "listings changed" ticks from nested
	// watchers into the run loop.
	nested chan string

	// watchers maps book title -> cancellation of its nested watcher.
	// Owned by the run loop.
	watchers map[string]context.CancelFunc

	// byBook is the projection, grouped by owning title. Owned by the run
	// loop; snapshot is the flattened copy readers see.
	byBook map[string][]FlattenedListing

	mu       sync.RWMutex
	snapshot []FlattenedListing

	subMu  sync.Mutex
	subs   map[string]chan []FlattenedListing
	closed bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAggregator constructs an Aggregator over the given store handle and
// change bus. Call Start to begin consuming notifications.
func NewAggregator(db *gorm.DB, bus *Bus, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		db:       db,
		bus:      bus,
		log:      log,
		nested:   make(chan string, DefaultBusBuffer),
		watchers: make(map[string]context.CancelFunc),
		byBook:   make(map[string][]FlattenedListing),
		subs:     make(map[string]chan []FlattenedListing),
		done:     make(chan struct{}),
	}
}

// Start seeds the projection from the books present right now, opens a
// nested watcher for each, subscribes to the top-level stream, and spawns
// the run loop. It returns an error only when the initial store read fails.
func (a *Aggregator) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	topCh, cancelTop := a.bus.Subscribe()

	books, err := repo.ListBooks(ctx, a.db)
	if err != nil {
		cancelTop()
		a.cancel()
		return err
	}
	for _, b := range books {
		a.openWatcher(ctx, b.Title)
		a.reload(ctx, b.Title)
	}
	a.publish()

	go a.run(ctx, topCh, cancelTop)
	return nil
}

// run is the single logical thread of the aggregator.
func (a *Aggregator) run(ctx context.Context, topCh <-chan Change, cancelTop func()) {
	defer close(a.done)
	defer a.teardown(cancelTop)

	for {
		select {
		case c, ok := <-topCh:
			if !ok {
				return
			}
			switch c.Op {
			case OpBookUpserted:
				// New or refreshed book metadata: make sure it is watched
				// and re-derive its entries (author/cover may have changed).
				a.openWatcher(ctx, c.BookTitle)
				a.reload(ctx, c.BookTitle)
				a.publish()
			case OpBookRemoved:
				a.closeWatcher(c.BookTitle)
				delete(a.byBook, c.BookTitle)
				a.publish()
			case OpListingsChanged:
				// A listing changed under a book we may not have seen yet
				// (book upsert and listing append are independent writes).
				// A freshly attached watcher cannot have seen this change,
				// so catch up with an immediate reload, the same way a
				// snapshot subscription fires once on attach.
				if a.openWatcher(ctx, c.BookTitle) {
					a.reload(ctx, c.BookTitle)
					a.publish()
				}
			}

		case title := <-a.nested:
			a.reload(ctx, title)
			a.publish()

		case <-ctx.Done():
			return
		}
	}
}

// openWatcher starts the nested listing subscription for title if absent.
// It reports whether a new watcher was attached.
func (a *Aggregator) openWatcher(ctx context.Context, title string) bool {
	if _, ok := a.watchers[title]; ok {
		return false
	}
	wctx, cancel := context.WithCancel(ctx)
	a.watchers[title] = cancel

	ch, cancelSub := a.bus.Subscribe()
	go func() {
		defer cancelSub()
		for {
			select {
			case c, ok := <-ch:
				if !ok {
					return
				}
				if c.Op != OpListingsChanged || c.BookTitle != title {
					continue
				}
				select {
				case a.nested <- title:
				case <-wctx.Done():
					return
				}
			case <-wctx.Done():
				return
			}
		}
	}()
	return true
}

// closeWatcher cancels the nested subscription for title, if any.
func (a *Aggregator) closeWatcher(title string) {
	if cancel, ok := a.watchers[title]; ok {
		cancel()
		delete(a.watchers, title)
	}
}

// reload replaces title's entries from the current store snapshot. A book
// row that is missing (listing written before its book, or book deleted
// concurrently) degrades to the title itself as display metadata, the same
// fallback the original screen applied.
func (a *Aggregator) reload(ctx context.Context, title string) {
	author, coverURL := "", ""
	book, err := repo.GetBook(ctx, a.db, title)
	switch {
	case err == nil:
		author, coverURL = book.Author, book.CoverURL
	case errors.Is(err, repo.ErrNotFound):
		// keep fallbacks
	default:
		a.log.Error().Err(err).Str("book", title).Msg("feed: read book")
		return
	}

	listings, err := repo.ListingsForBook(ctx, a.db, title)
	if err != nil {
		a.log.Error().Err(err).Str("book", title).Msg("feed: read listings")
		return
	}

	if len(listings) == 0 {
		// A book with zero listings contributes zero entries but stays
		// watched: its metadata outlives its listings.
		delete(a.byBook, title)
		return
	}

	entries := make([]FlattenedListing, 0, len(listings))
	for _, l := range listings {
		entries = append(entries, FlattenedListing{
			ID:            l.ID,
			BookID:        l.BookTitle,
			Title:         title,
			Author:        author,
			CoverURL:      coverURL,
			ListedBy:      l.ListedBy,
			ListedByEmail: l.ListedByEmail,
			Timestamp:     l.CreatedAt,
		})
	}
	a.byBook[title] = entries
}

// publish flattens the projection into a fresh snapshot and fans it out.
// Consumer channels hold only the latest snapshot: when a consumer lags,
// its stale pending snapshot is displaced by the new one.
func (a *Aggregator) publish() {
	flat := make([]FlattenedListing, 0, 16)
	for _, entries := range a.byBook {
		flat = append(flat, entries...)
	}

	a.mu.Lock()
	a.snapshot = flat
	a.mu.Unlock()

	a.subMu.Lock()
	defer a.subMu.Unlock()
	if a.closed {
		return
	}
	for _, ch := range a.subs {
		select {
		case ch <- flat:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- flat:
			default:
			}
		}
	}
}

// Snapshot returns the current flattened listing list. The returned slice
// is shared with published snapshots and must not be mutated by callers.
func (a *Aggregator) Snapshot() []FlattenedListing {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Subscribe registers a feed consumer. The channel immediately carries the
// current snapshot and then every subsequent publish (latest-wins). The
// returned cancel is idempotent; the channel is closed on cancel or when
// the aggregator shuts down.
func (a *Aggregator) Subscribe() (<-chan []FlattenedListing, func()) {
	ch := make(chan []FlattenedListing, 1)

	a.subMu.Lock()
	if a.closed {
		a.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := nextSubID()
	a.subs[id] = ch
	// Send the initial snapshot before releasing subMu: a publish cannot
	// run concurrently, so the one-slot buffer is guaranteed empty and the
	// send never blocks.
	ch <- a.Snapshot()
	a.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			a.subMu.Lock()
			defer a.subMu.Unlock()
			if c, ok := a.subs[id]; ok {
				delete(a.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Close tears the aggregator down: the top-level subscription and every
// nested watcher are cancelled and all consumer channels are closed. No
// snapshot is published after Close returns.
func (a *Aggregator) Close() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
}

// teardown runs on the run loop's way out.
func (a *Aggregator) teardown(cancelTop func()) {
	cancelTop()
	for title, cancel := range a.watchers {
		cancel()
		delete(a.watchers, title)
	}

	a.subMu.Lock()
	defer a.subMu.Unlock()
	a.closed = true
	for id, ch := range a.subs {
		delete(a.subs, id)
		close(ch)
	}
}
