// Package router wires the HTTP routes.
package router

import (
	"github.com/gin-gonic/gin"

	"deal_diligence/pkg/api/handler"
)

func RegisterRoutes(r *gin.Engine, deals *handler.DealHandler) {
	api := r.Group("/api/v1")
	{
		d := api.Group("/deals")
		{
			d.POST("", deals.CreateDeal)
			d.GET("", deals.ListDeals)
			d.GET("/:id", deals.GetDeal)
			d.DELETE("/:id", deals.DeleteDeal)

			d.POST("/:id/documents", deals.UploadDocument)

			d.POST("/:id/analyze", deals.TriggerAnalysis)
			d.GET("/:id/analyses", deals.ListAnalyses)
			d.GET("/:id/analyses/:type", deals.GetAnalysis)

			d.POST("/:id/chat", deals.Chat)
		}
	}
}
