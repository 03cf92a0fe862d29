package handler

import (
	"github.com/bitfantasy/nimo-pcf/internal/middleware"
	"github.com/gin-gonic/gin"
)

// PermReferenceWrite 维护参考因子表的权限
const PermReferenceWrite = "reference:write"

// RegisterRoutes 注册 /api/v1 下需要认证的路由
func RegisterRoutes(api *gin.RouterGroup, h *Handlers) {
	// 产品
	products := api.Group("/products")
	{
		products.GET("", h.Product.List)
		products.POST("", h.Product.Create)
		products.GET("/:id", h.Product.Get)
		products.PUT("/:id", h.Product.Update)
		products.DELETE("/:id", h.Product.Delete)
		products.PUT("/:id/overrides", h.Product.SetOverrides)
		products.GET("/:id/trace", h.Product.Trace)
		products.GET("/:id/trace/export", h.Product.ExportTrace)

		products.GET("/:id/line-items", h.BOM.List)
		products.POST("/:id/line-items", h.BOM.Add)

		products.GET("/:id/emissions", h.Emission.List)
		products.POST("/:id/emissions", h.Emission.Create)

		products.POST("/:id/sharing-requests", h.Sharing.Request)
		products.GET("/:id/sharing-status", h.Sharing.Status)
	}

	// BOM行项
	api.PUT("/line-items/:id", h.BOM.UpdateQuantity)
	api.DELETE("/line-items/:id", h.BOM.Delete)

	// 排放记录
	emissions := api.Group("/emissions")
	{
		emissions.GET("/:id", h.Emission.Get)
		emissions.PUT("/:id", h.Emission.Update)
		emissions.DELETE("/:id", h.Emission.Delete)
		emissions.PUT("/:id/overrides", h.Emission.SetOverrides)
		emissions.PUT("/:id/line-items", h.Emission.LinkLineItems)
	}

	// 参考因子表，写操作需要权限
	references := api.Group("/references")
	{
		references.GET("", h.Reference.List)
		references.GET("/:id", h.Reference.Get)

		write := references.Group("", middleware.RequirePermission(PermReferenceWrite))
		write.POST("", h.Reference.Create)
		write.POST("/import", h.Reference.Import)
		write.PUT("/:id/factors", h.Reference.SetFactors)
		write.DELETE("/:id", h.Reference.Delete)
	}

	// 共享申请
	sharing := api.Group("/sharing-requests")
	{
		sharing.GET("/incoming", h.Sharing.ListIncoming)
		sharing.GET("/outgoing", h.Sharing.ListOutgoing)
		sharing.POST("/:id/accept", h.Sharing.Accept)
		sharing.POST("/:id/reject", h.Sharing.Reject)
		sharing.POST("/:id/revoke", h.Sharing.Revoke)
	}

	// SSE
	api.GET("/events", h.SSE.Stream)
}
