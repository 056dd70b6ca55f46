package router

import (
	"github.com/gin-gonic/gin"

	"chatwire.app/server/internal/auth"
	"chatwire.app/server/internal/http/handler"
	"chatwire.app/server/internal/http/middleware"
	"chatwire.app/server/internal/service"
	"chatwire.app/server/internal/store"
	"chatwire.app/server/internal/ws"
)

func SetupRoutes(router *gin.Engine, services *service.Services, stores *store.Stores, verifier auth.Verifier, gateway *ws.Gateway) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/ws", gateway.Handle)

	api := router.Group("/api")
	api.Use(middleware.Auth(verifier, stores.Users()))
	{
		userHandler := handler.NewUserHandler(services.Users(), services.Conversations())
		UserRouter(api.Group("/users"), userHandler)

		messageHandler := handler.NewMessageHandler(services.Messages())
		MessageRouter(api.Group("/messages"), messageHandler)
	}
}
