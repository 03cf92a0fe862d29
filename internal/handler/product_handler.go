package handler

import (
	"github.com/bitfantasy/nimo-pcf/internal/service"
	"github.com/gin-gonic/gin"
)

// ProductHandler 产品处理器
type ProductHandler struct {
	svc    *service.ProductService
	export *service.ExportService
}

func NewProductHandler(svc *service.ProductService, export *service.ExportService) *ProductHandler {
	return &ProductHandler{svc: svc, export: export}
}

// List GET /products
func (h *ProductHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"supplier_id": c.Query("supplier_id"),
		"search":      c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), caller(c), page, pageSize, filters)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, newListResponse(items, page, pageSize, total))
}

// Get GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.svc.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, product)
}

// Create POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	product, err := h.svc.Create(c.Request.Context(), caller(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, product)
}

// Update PUT /products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	product, err := h.svc.Update(c.Request.Context(), caller(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, product)
}

// Delete DELETE /products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// SetOverrides PUT /products/:id/overrides
func (h *ProductHandler) SetOverrides(c *gin.Context) {
	var req service.SetOverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	product, err := h.svc.SetOverrides(c.Request.Context(), caller(c), c.Param("id"), req.Rows)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, product)
}

// Trace GET /products/:id/trace
func (h *ProductHandler) Trace(c *gin.Context) {
	t, err := h.svc.EmissionTrace(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, t)
}

// ExportTrace GET /products/:id/trace/export
// ?publish=true 上传到对象存储并返回下载链接，否则直接下载
func (h *ProductHandler) ExportTrace(c *gin.Context) {
	ctx := c.Request.Context()
	productID := c.Param("id")

	if c.Query("publish") == "true" {
		published, err := h.export.PublishTraceXLSX(ctx, caller(c), productID)
		if err != nil {
			handleError(c, err)
			return
		}
		Success(c, published)
		return
	}

	f, filename, err := h.export.TraceXLSX(ctx, caller(c), productID)
	if err != nil {
		handleError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
