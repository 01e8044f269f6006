// Package services – ConversationService
//
// This file implements the ConversationService, which bootstraps the
// direct-message channel between a listing's viewer and its owner. The
// conversation key is symmetric (derived from the sorted user-id pair) so
// either side initiating resolves to the same record; the stored
// first/second fields keep the caller's perspective and are refreshed on
// every initiation.
package services

import (
	"context"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tsiolis/go-bookswap-backend/internal/domain"
	"github.com/tsiolis/go-bookswap-backend/internal/repo"
)

// ChatKey derives the deterministic, order-independent conversation id for
// two user ids: the lexicographically smaller id first, joined by an
// underscore. ChatKey(a, b) == ChatKey(b, a) for all pairs.
func ChatKey(a, b string) string {
	if a < b {
		return a + "_" + b
	}
	return b + "_" + a
}

// ConversationService implements the use-cases around conversation
// bootstrap. It is context-aware and safe for concurrent use.
type ConversationService struct {
	// DB is the database handle used for all conversation operations.
	DB *gorm.DB
}

// Start merge-upserts the conversation between caller and target and
// returns the record as written from the caller's perspective.
//
// The returned Conversation is non-nil whenever the participants validate,
// even if the upsert itself failed: the caller still navigates to the
// conversation view and only surfaces the error as a notification.
func (s *ConversationService) Start(ctx context.Context, callerID, callerEmail, targetID, targetEmail string) (*domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Start",
		trace.WithAttributes(
			attribute.String("caller.id", callerID),
			attribute.String("target.id", targetID),
		),
	)
	defer span.End()

	if callerID == "" || targetID == "" {
		return nil, ErrMissingParticipant
	}
	if callerID == targetID {
		return nil, ErrSelfConversation
	}

	conv := &domain.Conversation{
		ChatID:          ChatKey(callerID, targetID),
		Members:         []string{callerID, targetID},
		FirstUser:       callerID,
		FirstUserEmail:  callerEmail,
		SecondUser:      targetID,
		SecondUserEmail: targetEmail,
	}
	if err := repo.UpsertConversation(ctx, s.DB, conv); err != nil {
		return conv, err
	}
	return conv, nil
}
