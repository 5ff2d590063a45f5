package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-faq-assistant/internal/app"
	"clinic-faq-assistant/internal/rag"
	"clinic-faq-assistant/internal/transport/http/response"
)

type MessageSender interface {
	SendMessage(ctx context.Context, message string) (*app.SendMessageResult, error)
}

type MessageHandler struct {
	chat    MessageSender
	apology string
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

func NewMessageHandler(chat MessageSender, apology string) *MessageHandler {
	return &MessageHandler{chat: chat, apology: apology}
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	// An empty body is treated like an empty message.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.chat.SendMessage(c.Request.Context(), req.Message)
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, rag.ErrValidation):
			response.Error(c, http.StatusNotFound, "Message cannot be empty")
		case result != nil:
			response.Error(c, http.StatusInternalServerError, result.Message)
		default:
			response.Error(c, http.StatusInternalServerError, h.apology)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
