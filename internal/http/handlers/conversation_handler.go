package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tsiolis/go-bookswap-backend/internal/http/middleware"
	"github.com/tsiolis/go-bookswap-backend/internal/services"
)

// StartConversationRequest identifies the listing owner the caller wants to
// message.
type StartConversationRequest struct {
	TargetID    string `json:"target_id" binding:"required,min=1" example:"user456"`
	TargetEmail string `json:"target_email" example:"user456@example.edu"`
}

// StartConversationResponse returns the deterministic conversation key. The
// client proceeds to the message screen with chat_id whether or not the
// server-side record write succeeded; Warning surfaces a degraded write.
type StartConversationResponse struct {
	ChatID  string `json:"chat_id" example:"user123_user456"`
	Warning string `json:"warning,omitempty" example:"conversation record could not be saved"`
}

// StartConversation godoc
// @ID          startConversation
// @Summary     Start (or refresh) a conversation
// @Description Derives the deterministic conversation key from the two user ids and merge-upserts the conversation record. The key is always returned so the client can open the message screen even if the record write failed.
// @Tags        Conversations
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID     header  string  false "Caller user id (demo header)"    example(user123)
// @Param       X-User-Email  header  string  false "Caller user email (demo header)" example(user123@example.edu)
// @Param       body          body    handlers.StartConversationRequest  true  "Conversation target"
//
// @Success     200  {object}  handlers.StartConversationResponse
// @Failure     400  {object}  handlers.ErrorResponse "Missing or invalid participant"
// @Router      /conversations [post]
func (h *Handlers) StartConversation(c *gin.Context) {
	ctx := c.Request.Context()

	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing conversation target")
		return
	}

	conv, err := h.convSvc.Start(ctx, userID(c), userEmail(c), req.TargetID, req.TargetEmail)
	if err != nil {
		switch err {
		case services.ErrMissingParticipant:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "both participants are required")
			return
		case services.ErrSelfConversation:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot start a conversation with yourself")
			return
		}
		// Record write failed but the key is still valid; the client keeps
		// navigating, as the original screen did.
		if conv != nil {
			middleware.LoggerFrom(c).Warn().Err(err).
				Str("chat_id", conv.ChatID).
				Msg("conversation upsert failed, returning key anyway")
			ok(c, http.StatusOK, StartConversationResponse{
				ChatID:  conv.ChatID,
				Warning: "conversation record could not be saved",
			})
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, StartConversationResponse{ChatID: conv.ChatID})
}
