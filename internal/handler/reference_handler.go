package handler

import (
	"path/filepath"
	"strings"

	"github.com/bitfantasy/nimo-pcf/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ReferenceHandler 参考因子表处理器
type ReferenceHandler struct {
	svc *service.ReferenceService
}

func NewReferenceHandler(svc *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{svc: svc}
}

// List GET /references?kind=material
func (h *ReferenceHandler) List(c *gin.Context) {
	tables, err := h.svc.ListTables(c.Request.Context(), c.Query("kind"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": tables})
}

// Get GET /references/:id
func (h *ReferenceHandler) Get(c *gin.Context) {
	table, err := h.svc.GetTable(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, table)
}

// Create POST /references
func (h *ReferenceHandler) Create(c *gin.Context) {
	var req service.CreateReferenceTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	table, err := h.svc.CreateTable(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, table)
}

// SetFactors PUT /references/:id/factors
func (h *ReferenceHandler) SetFactors(c *gin.Context) {
	var req service.SetFactorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	table, err := h.svc.SetFactors(c.Request.Context(), c.Param("id"), req.Factors)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, table)
}

// Delete DELETE /references/:id
func (h *ReferenceHandler) Delete(c *gin.Context) {
	removed, err := h.svc.DeleteTable(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"emissions_removed": removed})
}

// Import POST /references/import
// 表单字段 file 支持 .xlsx 和 .csv；csv 可带 encoding=gbk
func (h *ReferenceHandler) Import(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "请上传Excel或CSV文件")
		return
	}
	defer file.Close()

	var result *service.ImportResult
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx":
		f, err := excelize.OpenReader(file)
		if err != nil {
			BadRequest(c, "无法解析Excel文件: "+err.Error())
			return
		}
		defer f.Close()
		result, err = h.svc.ImportXLSX(c.Request.Context(), f)
		if err != nil {
			handleError(c, err)
			return
		}
	case ".csv":
		result, err = h.svc.ImportCSV(c.Request.Context(), file, c.PostForm("encoding"))
		if err != nil {
			handleError(c, err)
			return
		}
	default:
		BadRequest(c, "unsupported file type "+header.Filename)
		return
	}

	Success(c, result)
}
