package handler

import (
	"github.com/bitfantasy/nimo-pcf/internal/service"
	"github.com/gin-gonic/gin"
)

// EmissionHandler 排放记录处理器
type EmissionHandler struct {
	svc *service.EmissionService
}

func NewEmissionHandler(svc *service.EmissionService) *EmissionHandler {
	return &EmissionHandler{svc: svc}
}

// List GET /products/:id/emissions
func (h *EmissionHandler) List(c *gin.Context) {
	items, err := h.svc.ListByProduct(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Create POST /products/:id/emissions
func (h *EmissionHandler) Create(c *gin.Context) {
	var req service.EmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	emission, err := h.svc.Create(c.Request.Context(), caller(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, emission)
}

// Get GET /emissions/:id
func (h *EmissionHandler) Get(c *gin.Context) {
	emission, err := h.svc.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, emission)
}

// Update PUT /emissions/:id
func (h *EmissionHandler) Update(c *gin.Context) {
	var req service.EmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	emission, err := h.svc.Update(c.Request.Context(), caller(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, emission)
}

// Delete DELETE /emissions/:id
func (h *EmissionHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// SetOverrides PUT /emissions/:id/overrides
func (h *EmissionHandler) SetOverrides(c *gin.Context) {
	var req service.SetOverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	emission, err := h.svc.SetOverrides(c.Request.Context(), caller(c), c.Param("id"), req.Rows)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, emission)
}

// LinkLineItems PUT /emissions/:id/line-items
func (h *EmissionHandler) LinkLineItems(c *gin.Context) {
	var req service.LinkLineItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	emission, err := h.svc.LinkLineItems(c.Request.Context(), caller(c), c.Param("id"), req.LineItemIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, emission)
}
