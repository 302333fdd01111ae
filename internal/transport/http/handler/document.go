package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"gemini-playground/internal/app"
	"gemini-playground/internal/session"
	"gemini-playground/internal/storage"
	"gemini-playground/internal/transport/http/middleware"
	"gemini-playground/internal/transport/http/response"
)

type DocumentHandler struct {
	chatService *app.ChatService
	maxBytes    int64
}

func NewDocumentHandler(chatService *app.ChatService, maxSizeMB int) *DocumentHandler {
	return &DocumentHandler{
		chatService: chatService,
		maxBytes:    int64(maxSizeMB) << 20,
	}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file is required")
		return
	}
	if h.maxBytes > 0 && fileHeader.Size > h.maxBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge,
			fmt.Sprintf("file exceeds %d MB", h.maxBytes>>20))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open uploaded file failed")
		return
	}
	defer file.Close()

	result, err := h.chatService.AttachDocument(c.Request.Context(), sess, file, fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidLocalInput):
			response.Error(c, http.StatusBadRequest, response.CodeInvalidDocument, err.Error())
		case errors.Is(err, session.ErrUploadFailed):
			response.Error(c, http.StatusBadGateway, response.CodeUploadFailed, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload document failed")
		}
		return
	}

	response.OK(c, gin.H{
		"document":   result.Document,
		"saved_path": result.LocalPath,
		"duplicate":  result.Duplicate,
		"documents":  sess.Registry.Len(),
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	response.OK(c, gin.H{
		"documents": sess.Registry.Refs(),
	})
}
