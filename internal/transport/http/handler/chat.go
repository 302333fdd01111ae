package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gemini-playground/internal/app"
	"gemini-playground/internal/session"
	"gemini-playground/internal/transport/http/middleware"
	"gemini-playground/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	reply, err := h.chatService.ProcessTurn(c.Request.Context(), sess, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, session.ErrInputNotAccepted):
			response.Error(c, http.StatusConflict, response.CodeInputNotAccepted, err.Error())
		case errors.Is(err, session.ErrGenerationFailed):
			response.Error(c, http.StatusBadGateway, response.CodeGenerationFailed, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "send message failed")
		}
		return
	}

	response.OK(c, gin.H{
		"reply":       reply,
		"history_len": sess.History.Len(),
	})
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	response.OK(c, gin.H{
		"mode":  sess.Mode().String(),
		"turns": sess.History.All(),
	})
}
