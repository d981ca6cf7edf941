package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pitwall/internal/http/response"
	"github.com/yungbote/pitwall/internal/modules/chat"
	"github.com/yungbote/pitwall/internal/platform/apierr"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

const (
	msgQueryRequired = "Query is required."
	msgChatFailed    = "Failed to process the request."
)

type ChatService interface {
	Answer(ctx context.Context, in chat.AnswerInput) (chat.AnswerOutput, error)
}

type ChatHandler struct {
	log  *logger.Logger
	chat ChatService
}

func NewChatHandler(log *logger.Logger, chat ChatService) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), chat: chat}
}

type chatReq struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
}

type chatResp struct {
	Answer string `json:"answer"`
}

// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, msgQueryRequired)
		return
	}
	out, err := h.chat.Answer(c.Request.Context(), chat.AnswerInput{Query: req.Query, UserID: req.UserID})
	if err != nil {
		if ae, ok := apierr.As(err); ok && ae.Status >= 400 && ae.Status < 500 {
			response.RespondError(c, ae.Status, ae.Error())
			return
		}
		h.log.Error("Error processing chat request", "error", err)
		response.RespondError(c, http.StatusInternalServerError, msgChatFailed)
		return
	}
	response.RespondOK(c, chatResp{Answer: out.Answer})
}
