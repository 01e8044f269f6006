// Bus: the process-local change stream.
//
// Mutating services publish a Change after every successful store write;
// the aggregator (and anything else that cares) subscribes. Fan-out is
// non-blocking: a subscriber that cannot keep up has notifications dropped
// rather than stalling publishers. That is acceptable for this stream
// because notifications are level-triggered — the next one that does land
// re-reads full current state.

package feed

import (
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// DefaultBusBuffer is the per-subscriber channel depth used when the
// configured value is not positive.
const DefaultBusBuffer = 64

// Bus is a fan-out broadcaster of store change notifications.
// It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]chan Change
	closed bool

	buffer int
	log    zerolog.Logger
}

// NewBus constructs a Bus whose subscriber channels hold up to buffer
// pending notifications each.
func NewBus(buffer int, log zerolog.Logger) *Bus {
	if buffer <= 0 {
		buffer = DefaultBusBuffer
	}
	return &Bus{
		subs:   make(map[string]chan Change),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a new subscriber and returns its channel together
// with a cancel function. Cancel is idempotent and closes the channel;
// after cancel (or Close) no further notifications are delivered.
func (b *Bus) Subscribe() (<-chan Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Change, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := gonanoid.Must()
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish broadcasts a change to every live subscriber. Slow subscribers
// are skipped (and logged) instead of blocking the caller. Publishing on a
// closed bus is a no-op.
func (b *Bus) Publish(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- c:
		default:
			b.log.Warn().
				Str("subscriber", id).
				Str("op", string(c.Op)).
				Str("book", c.BookTitle).
				Msg("change dropped for slow subscriber")
		}
	}
}

// nextSubID produces a short unique id for subscriber bookkeeping.
func nextSubID() string {
	return gonanoid.Must()
}

// Close shuts the bus down: all subscriber channels are closed and future
// Publish/Subscribe calls become no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
