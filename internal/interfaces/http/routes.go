package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (r *Router) setupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")
	{
		api.POST("/billing/webhooks", r.webhookHandler.HandleBillingEvent)

		api.GET("/plans", r.planHandler.GetPublicPlans)

		teams := api.Group("/teams")
		{
			teams.POST("", r.teamHandler.CreateTeam)
			teams.GET("/:sid", r.teamHandler.GetTeam)
			teams.POST("/:sid/subscription", r.teamHandler.CreateSubscription)
			teams.POST("/:sid/consume", r.usageHandler.TryConsume)
			teams.GET("/:sid/usage", r.usageHandler.GetUsage)
		}
	}
}
