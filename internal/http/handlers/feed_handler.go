package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tsiolis/go-bookswap-backend/internal/feed"
	"github.com/tsiolis/go-bookswap-backend/internal/http/middleware"
)

// StreamListings godoc
// @ID          streamListings
// @Summary     Live listing feed (SSE)
// @Description Server-Sent Events stream. On connect the client receives a "snapshot" event with the full flattened feed; every subsequent change to any book or listing produces a fresh "snapshot" event. Heartbeat comments keep the connection alive.
// @Tags        Listings
// @Produce     text/event-stream
// @Success     200 {string} string "event stream"
// @Failure     500 {object} handlers.ErrorResponse "Streaming unsupported"
// @Router      /listings/stream [get]
func (h *Handlers) StreamListings(c *gin.Context) {
	lg := middleware.LoggerFrom(c)

	if c.Request.Context().Err() != nil {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	rc := http.NewResponseController(c.Writer)
	if err := rc.Flush(); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStreamFailed, "streaming not supported")
		return
	}

	snapshots, cancel := h.feed.Subscribe()
	defer cancel()

	hb := h.Heartbeat
	if hb <= 0 {
		hb = 30 * time.Second
	}
	ticker := time.NewTicker(hb)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case snap, okc := <-snapshots:
			if !okc {
				// Aggregator shut down.
				return
			}
			if err := writeSSE(c.Writer, rc, "snapshot", sortDesc(snap)); err != nil {
				lg.Debug().Err(err).Msg("sse client disconnected during send")
				return
			}
		case <-ticker.C:
			// Comment line keeps intermediaries from idling out the stream.
			if _, err := fmt.Fprint(c.Writer, ": heartbeat\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// writeSSE emits one SSE event frame and flushes it.
func writeSSE(w http.ResponseWriter, rc *http.ResponseController, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal sse event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}
	// Reset the write deadline after each successful frame so a healthy
	// client is never cut off, while a hung one eventually errors out.
	_ = rc.SetWriteDeadline(time.Now().Add(60 * time.Second))
	return nil
}

// sortDesc orders a snapshot most recent first without mutating the input.
func sortDesc(snap []feed.FlattenedListing) []feed.FlattenedListing {
	out := make([]feed.FlattenedListing, len(snap))
	copy(out, snap)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
