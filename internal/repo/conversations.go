// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model.
//
// Conversations are merge-upserted by their symmetric chat_id: a missing
// row is created, an existing row keeps its key and created_at but has the
// member/perspective fields refreshed from the latest initiator. Repeated
// initiation by either participant is therefore idempotent for the key and
// membership while first/second always reflect the most recent caller.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tsiolis/go-bookswap-backend/internal/domain"
)

// UpsertConversation creates or refreshes the conversation row for conv.ChatID.
// The caller builds the record (key derivation lives in the service layer).
func UpsertConversation(ctx context.Context, db *gorm.DB, conv *domain.Conversation) error {
	conv.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"members",
			"first_user", "first_user_email",
			"second_user", "second_user_email",
			"updated_at",
		}),
	}).Create(conv).Error
}

// GetConversation fetches a conversation by its chat_id, or ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, chatID string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).First(&c, "chat_id = ?", chatID).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
