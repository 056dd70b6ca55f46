package router

import (
	"github.com/gin-gonic/gin"

	"chatwire.app/server/internal/http/handler"
)

func UserRouter(rg *gin.RouterGroup, h *handler.UserHandler) {
	rg.GET("", h.List)
	rg.GET("/conversations", h.Conversations)
	rg.GET("/search", h.Search)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/profile", h.UpdateProfile)
}
