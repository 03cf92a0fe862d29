package handler

import (
	"github.com/bitfantasy/nimo-pcf/internal/service"
	"github.com/gin-gonic/gin"
)

// SharingHandler 共享申请处理器
type SharingHandler struct {
	svc *service.SharingService
}

func NewSharingHandler(svc *service.SharingService) *SharingHandler {
	return &SharingHandler{svc: svc}
}

// Request POST /products/:id/sharing-requests
func (h *SharingHandler) Request(c *gin.Context) {
	var input service.SharingRequestInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			BadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}

	req, err := h.svc.Request(c.Request.Context(), caller(c), c.Param("id"), &input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, req)
}

// Status GET /products/:id/sharing-status
func (h *SharingHandler) Status(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, status)
}

// Accept POST /sharing-requests/:id/accept
func (h *SharingHandler) Accept(c *gin.Context) {
	req, err := h.svc.Accept(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, req)
}

// Reject POST /sharing-requests/:id/reject
func (h *SharingHandler) Reject(c *gin.Context) {
	req, err := h.svc.Reject(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, req)
}

// Revoke POST /sharing-requests/:id/revoke
func (h *SharingHandler) Revoke(c *gin.Context) {
	req, err := h.svc.Revoke(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, req)
}

// ListIncoming GET /sharing-requests/incoming?status=pending
func (h *SharingHandler) ListIncoming(c *gin.Context) {
	items, err := h.svc.ListIncoming(c.Request.Context(), caller(c), c.Query("status"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// ListOutgoing GET /sharing-requests/outgoing
func (h *SharingHandler) ListOutgoing(c *gin.Context) {
	items, err := h.svc.ListOutgoing(c.Request.Context(), caller(c), c.Query("status"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}
