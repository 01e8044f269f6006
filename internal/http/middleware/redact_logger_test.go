package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func withCapturedLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf) // plain JSON lines
	return &buf
}

func TestRedactPII(t *testing.T) {
	in := "owner a.b+tag@example.com listing 123e4567-e89b-12d3-a456-426614174000 tel +1-555-123-4567"
	got := redactPII(in)
	for _, want := range []string{"[REDACTED:email]", "[REDACTED:id]", "[REDACTED:phone]"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in %q", want, got)
		}
	}
	if strings.Contains(got, "example.com") || strings.Contains(got, "123e4567") {
		t.Fatalf("raw PII survived: %q", got)
	}
	if redactPII("") != "" {
		t.Fatalf("empty input must stay empty")
	}
}

func TestRedactingLogger_InfoAndRedactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	buf := withCapturedLogger(t)

	// Simulate an upstream RequestID middleware setting the response header.
	r.Use(func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-resp")
		c.Next()
	})
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))

	// Parameterized route so c.FullPath() is the pattern, not the raw id.
	r.DELETE("/books/:title/listings/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	q := "email=a.b+tag@example.com&phone=+1-555-123-4567&id=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodDelete,
		"/books/Dune/listings/123e4567-e89b-12d3-a456-426614174000?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	// The caller identity headers our API uses; the email must be scrubbed.
	req.Header.Set("X-User-ID", "u-owner")
	req.Header.Set("X-User-Email", "owner@example.edu")
	req.Header.Set("X-Request-ID", "rid-req")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}

	logs := buf.String()
	if !strings.Contains(logs, `"level":"info"`) {
		t.Fatalf("expected info log, got: %s", logs)
	}
	if !strings.Contains(logs, `"path":"/books/:title/listings/:id"`) {
		t.Fatalf("expected route pattern path, got: %s", logs)
	}
	// Response header request id wins over the inbound one.
	if !strings.Contains(logs, `"request_id":"rid-resp"`) {
		t.Fatalf("expected request_id from response header, got: %s", logs)
	}
	if !strings.Contains(logs, `[REDACTED:email]`) || !strings.Contains(logs, `[REDACTED:phone]`) || !strings.Contains(logs, `[REDACTED:id]`) {
		t.Fatalf("expected query redactions, got: %s", logs)
	}
	if !strings.Contains(logs, `"Authorization":"[REDACTED]"`) ||
		!strings.Contains(logs, `"Cookie":"[REDACTED]"`) ||
		!strings.Contains(logs, `"X-Api-Key":"[REDACTED]"`) {
		t.Fatalf("expected masked headers, got: %s", logs)
	}
	if !strings.Contains(logs, `"X-User-Email":"[REDACTED:email]"`) {
		t.Fatalf("expected caller email to be pattern-redacted, got: %s", logs)
	}
	if strings.Contains(logs, "owner@example.edu") {
		t.Fatalf("raw caller email leaked: %s", logs)
	}
}

func TestRedactingLogger_WarnAndErrorLevels_RequestIDFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	buf := withCapturedLogger(t)

	// No response X-Request-ID this time; the logger falls back to the
	// inbound header.
	r.Use(RedactingLogger(RedactOptions{}))

	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	reqWarn := httptest.NewRequest(http.MethodGet, "/warn", nil)
	reqWarn.Header.Set("X-Request-ID", "rid-warn")
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, reqWarn)

	reqErr := httptest.NewRequest(http.MethodGet, "/error", nil)
	reqErr.Header.Set("X-Request-ID", "rid-err")
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, reqErr)

	logs := buf.String()
	if !strings.Contains(logs, `"level":"warn"`) || !strings.Contains(logs, `"request_id":"rid-warn"`) {
		t.Fatalf("warn log not found or missing request_id fallback: %s", logs)
	}
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"request_id":"rid-err"`) {
		t.Fatalf("error log not found or missing request_id fallback: %s", logs)
	}
}
