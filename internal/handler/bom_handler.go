package handler

import (
	"github.com/bitfantasy/nimo-pcf/internal/service"
	"github.com/gin-gonic/gin"
)

// BOMHandler BOM行项处理器
type BOMHandler struct {
	svc *service.BOMService
}

func NewBOMHandler(svc *service.BOMService) *BOMHandler {
	return &BOMHandler{svc: svc}
}

// List GET /products/:id/line-items
func (h *BOMHandler) List(c *gin.Context) {
	items, err := h.svc.ListLineItems(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Add POST /products/:id/line-items
func (h *BOMHandler) Add(c *gin.Context) {
	var req service.AddLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	item, err := h.svc.AddLineItem(c.Request.Context(), caller(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

// UpdateQuantity PUT /line-items/:id
func (h *BOMHandler) UpdateQuantity(c *gin.Context) {
	var req service.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	item, err := h.svc.UpdateQuantity(c.Request.Context(), caller(c), c.Param("id"), *req.Quantity)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// Delete DELETE /line-items/:id
func (h *BOMHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteLineItem(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}
