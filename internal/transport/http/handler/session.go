package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gemini-playground/internal/app"
	"gemini-playground/internal/config"
	"gemini-playground/internal/pkg/jwtutil"
	"gemini-playground/internal/session"
	"gemini-playground/internal/transport/http/middleware"
	"gemini-playground/internal/transport/http/response"
)

type SessionHandler struct {
	chatService *app.ChatService
	pages       config.PagesConfig
	secret      string
	ttl         time.Duration
}

type SelectModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type pageView struct {
	Mode  string `json:"mode"`
	Label string `json:"label"`
	Ready bool   `json:"ready"`
}

type pagesView struct {
	Title        string     `json:"title"`
	Pages        []pageView `json:"pages"`
	ActiveMode   string     `json:"active_mode"`
	AcceptsInput bool       `json:"accepts_input"`
	Documents    int        `json:"documents"`
}

func NewSessionHandler(chatService *app.ChatService, pages config.PagesConfig, secret string, ttl time.Duration) *SessionHandler {
	return &SessionHandler{
		chatService: chatService,
		pages:       pages,
		secret:      secret,
		ttl:         ttl,
	}
}

func (h *SessionHandler) Create(c *gin.Context) {
	sess := h.chatService.NewSession()

	token, err := jwtutil.GenerateToken(h.secret, sess.ID, h.ttl)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create session failed")
		return
	}

	response.OK(c, gin.H{
		"session_id": sess.ID,
		"token":      token,
		"expires_in": int(h.ttl.Seconds()),
		"pages":      h.view(sess),
	})
}

func (h *SessionHandler) Pages(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	response.OK(c, h.view(sess))
}

func (h *SessionHandler) SelectMode(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req SelectModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrUnknownMode):
			response.Error(c, http.StatusBadRequest, response.CodeUnknownMode, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "select mode failed")
		}
		return
	}

	h.chatService.SelectMode(sess, mode)
	response.OK(c, h.view(sess))
}

func (h *SessionHandler) view(sess *session.Session) pagesView {
	return pagesView{
		Title: h.pages.Title,
		Pages: []pageView{
			{Mode: session.ModePlainChat.String(), Label: h.pages.PageChat, Ready: sess.Ready(session.ModePlainChat)},
			{Mode: session.ModeDocumentChat.String(), Label: h.pages.PageDocumentChat, Ready: sess.Ready(session.ModeDocumentChat)},
		},
		ActiveMode:   sess.Mode().String(),
		AcceptsInput: sess.AcceptsInput(),
		Documents:    sess.Registry.Len(),
	}
}
