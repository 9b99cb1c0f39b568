package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mushycosmas/kariakooshop/internal/auth"
	"github.com/mushycosmas/kariakooshop/internal/config"
	"github.com/mushycosmas/kariakooshop/internal/core"
	"github.com/mushycosmas/kariakooshop/internal/store"
)

// NewServer builds the HTTP server: auth endpoints, the chat REST API,
// and the WebSocket bridge into the hub.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	api := NewAPIHandlers(authService, logger)
	router.POST("/api/register", api.Register)
	router.POST("/api/login", api.Login)

	chat := NewChatHandlers(st, hub, logger)
	authorized := router.Group("/api/chat", AuthMiddleware(authService, logger))
	authorized.GET("/conversations", chat.ListConversations)
	authorized.GET("/messages", chat.GetMessages)
	authorized.POST("/messages", chat.PostMessage)
	authorized.POST("/send-message", chat.SendMessage)

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, cfg.MaxMessageBytes, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
