package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all routes of the service.
func RegisterRoutes(router *gin.Engine, api *API) {
	router.GET("/health", api.HealthHandler)

	v1 := router.Group("/api/v1")
	{
		documents := v1.Group("/documents")
		{
			documents.POST("", api.UploadDocumentHandler)
			documents.GET("/:id", api.GetDocumentHandler)
			documents.GET("/:id/structured-summary", api.StructuredSummaryHandler)
			documents.DELETE("/:id", api.DeleteDocumentHandler)
		}

		companies := v1.Group("/companies")
		{
			companies.GET("/:company/documents", api.ListDocumentsHandler)
			companies.GET("/:company/sessions", api.ListSessionsHandler)
		}

		chat := v1.Group("/chat")
		{
			chat.POST("", api.ChatHandler)
			chat.POST("/quick-prompt", api.QuickPromptHandler)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.GET("/:id/messages", api.ListMessagesHandler)
			sessions.DELETE("/:id", api.DeleteSessionHandler)
		}
	}
}
