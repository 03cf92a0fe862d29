package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/nimo-pcf/internal/middleware"
	"github.com/bitfantasy/nimo-pcf/internal/pcf"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"github.com/bitfantasy/nimo-pcf/internal/service"
	"github.com/bitfantasy/nimo-pcf/internal/sse"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Product   *ProductHandler
	BOM       *BOMHandler
	Emission  *EmissionHandler
	Reference *ReferenceHandler
	Sharing   *SharingHandler
	SSE       *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub) *Handlers {
	return &Handlers{
		Product:   NewProductHandler(svc.Product, svc.Export),
		BOM:       NewBOMHandler(svc.BOM),
		Emission:  NewEmissionHandler(svc.Emission),
		Reference: NewReferenceHandler(svc.Reference),
		Sharing:   NewSharingHandler(svc.Sharing),
		SSE:       NewSSEHandler(hub),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 状态冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// handleError maps domain and service errors onto the response envelope.
func handleError(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, pcf.ErrUnknownProduct),
		errors.Is(err, pcf.ErrUnknownSupplier),
		errors.Is(err, pcf.ErrUnknownEmission):
		NotFound(c, msg)
	case errors.Is(err, service.ErrForbidden):
		Forbidden(c, msg)
	case errors.Is(err, pcf.ErrCycle),
		errors.Is(err, pcf.ErrDuplicateEdge),
		errors.Is(err, pcf.ErrSelfReference),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrUnnecessaryRequest):
		Conflict(c, msg)
	case errors.Is(err, pcf.ErrNegativeQuantity),
		errors.Is(err, pcf.ErrMissingReference),
		errors.Is(err, pcf.ErrReferenceKindMismatch),
		errors.Is(err, pcf.ErrUnknownReference),
		errors.Is(err, pcf.ErrUnknownLineItem),
		errors.Is(err, pcf.ErrForeignLineItem),
		errors.Is(err, pcf.ErrInvalidLifecycleStage),
		errors.Is(err, pcf.ErrUnsupportedEmissionKind),
		errors.Is(err, service.ErrInvalidInput):
		BadRequest(c, msg)
	case errors.Is(err, service.ErrStorageNotConfigured):
		Error(c, 50300, msg)
	default:
		InternalError(c, msg)
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	return c.GetString(middleware.KeyUserID)
}

// GetSupplierID 从上下文获取调用方供应商ID
func GetSupplierID(c *gin.Context) string {
	return c.GetString(middleware.KeySupplierID)
}

func caller(c *gin.Context) service.Caller {
	return service.Caller{UserID: GetUserID(c), SupplierID: GetSupplierID(c)}
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func newListResponse(items interface{}, page, pageSize int, total int64) ListResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}
