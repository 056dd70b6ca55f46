package router

import (
	"github.com/gin-gonic/gin"

	"chatwire.app/server/internal/http/handler"
)

func MessageRouter(rg *gin.RouterGroup, h *handler.MessageHandler) {
	rg.POST("", h.Send)
	rg.GET("/:peer", h.History)
	rg.PUT("/read/:peer", h.MarkThreadRead)
}
