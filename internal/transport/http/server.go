package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"gemini-playground/internal/bootstrap"
	"gemini-playground/internal/transport/http/handler"
	"gemini-playground/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = int64(app.Config.Upload.MaxSizeMB) << 20

	ttl := time.Duration(app.Config.Session.TTLMinutes) * time.Minute
	healthHandler := handler.NewHealthHandler(app)
	sessionHandler := handler.NewSessionHandler(app.Chat, app.Config.Pages, app.Config.Session.JWTSecret, ttl)
	chatHandler := handler.NewChatHandler(app.Chat)
	documentHandler := handler.NewDocumentHandler(app.Chat, app.Config.Upload.MaxSizeMB)

	router.GET("/healthz", healthHandler.Check)

	v1 := router.Group("/api/v1")
	v1.POST("/sessions", sessionHandler.Create)

	authed := v1.Group("")
	authed.Use(middleware.SessionAuth(app.Config.Session.JWTSecret, app.Chat))
	authed.GET("/pages", sessionHandler.Pages)
	authed.PUT("/mode", sessionHandler.SelectMode)
	authed.POST("/chat/messages", chatHandler.SendMessage)
	authed.GET("/chat/history", chatHandler.GetHistory)
	authed.POST("/documents", documentHandler.Upload)
	authed.GET("/documents", documentHandler.List)

	return router
}
