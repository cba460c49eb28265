package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/answerkey-relay/internal/transport/http/handler"
	"github.com/ErlanBelekov/answerkey-relay/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, conversationHandler *handler.ConversationHandler, jwtKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	v1 := r.Group("/v1", middleware.Auth(jwtKey))
	v1.POST("/commands", conversationHandler.Command)
	v1.POST("/callbacks", conversationHandler.Callback)

	return r
}
