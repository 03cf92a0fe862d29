package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/metrics"
	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/pcf"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"github.com/bitfantasy/nimo-pcf/internal/sse"
	"go.uber.org/zap"
)

// SharingService 跨供应商数据共享申请服务
//
// Transitions:
//
//	not_requested, rejected -> pending   (requester asks)
//	pending -> accepted | rejected       (product owner decides)
//	accepted -> rejected                 (product owner revokes)
type SharingService struct {
	repo     *repository.SharingRepository
	products *repository.ProductRepository
	hub      *sse.Hub
	logger   *zap.Logger
}

func NewSharingService(repo *repository.SharingRepository, products *repository.ProductRepository, hub *sse.Hub, logger *zap.Logger) *SharingService {
	return &SharingService{repo: repo, products: products, hub: hub, logger: logger.Named("sharing")}
}

// SharingRequestInput 发起共享申请
type SharingRequestInput struct {
	Message string `json:"message"`
}

// SharingStatusResult 调用方对某产品的共享状态
type SharingStatusResult struct {
	ProductID string            `json:"product_id"`
	Status    pcf.SharingStatus `json:"status"`
	RequestID string            `json:"request_id,omitempty"`
}

// Status 查询调用方对产品的申请状态，未申请时为 not_requested
func (s *SharingService) Status(ctx context.Context, caller Caller, productID string) (*SharingStatusResult, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	out := &SharingStatusResult{ProductID: productID, Status: pcf.SharingNotRequested}
	req, err := s.repo.FindByProductAndRequester(ctx, productID, caller.SupplierID)
	if errors.Is(err, repository.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.Status = pcf.SharingStatus(req.Status)
	out.RequestID = req.ID
	return out, nil
}

// Request 申请访问其他供应商产品的PCF数据；被拒绝后可再次申请
func (s *SharingService) Request(ctx context.Context, caller Caller, productID string, input *SharingRequestInput) (*entity.ProductSharingRequest, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SupplierID == caller.SupplierID {
		return nil, ErrUnnecessaryRequest
	}
	message := ""
	if input != nil {
		message = input.Message
	}

	req, err := s.repo.FindByProductAndRequester(ctx, productID, caller.SupplierID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		req = &entity.ProductSharingRequest{
			ProductID:            productID,
			RequestingSupplierID: caller.SupplierID,
			Status:               entity.SharingStatusPending,
			Message:              message,
			RequestedBy:          caller.UserID,
		}
		if err := s.repo.Create(ctx, req); err != nil {
			return nil, fmt.Errorf("create sharing request: %w", err)
		}
	case err != nil:
		return nil, err
	case req.Status == entity.SharingStatusRejected:
		req.Status = entity.SharingStatusPending
		req.Message = message
		req.RequestedBy = caller.UserID
		req.DecidedBy = nil
		req.DecidedAt = nil
		if err := s.repo.Update(ctx, req); err != nil {
			return nil, fmt.Errorf("update sharing request: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: request is %s", ErrInvalidTransition, req.Status)
	}

	s.publish(product.SupplierID, req, "requested")
	return req, nil
}

// Accept 产品所属方同意申请
func (s *SharingService) Accept(ctx context.Context, caller Caller, requestID string) (*entity.ProductSharingRequest, error) {
	return s.decide(ctx, caller, requestID, entity.SharingStatusPending, entity.SharingStatusAccepted, "accepted")
}

// Reject 产品所属方拒绝申请
func (s *SharingService) Reject(ctx context.Context, caller Caller, requestID string) (*entity.ProductSharingRequest, error) {
	return s.decide(ctx, caller, requestID, entity.SharingStatusPending, entity.SharingStatusRejected, "rejected")
}

// Revoke 撤销已同意的申请
func (s *SharingService) Revoke(ctx context.Context, caller Caller, requestID string) (*entity.ProductSharingRequest, error) {
	return s.decide(ctx, caller, requestID, entity.SharingStatusAccepted, entity.SharingStatusRejected, "revoked")
}

func (s *SharingService) decide(ctx context.Context, caller Caller, requestID, from, to, action string) (*entity.ProductSharingRequest, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Product == nil || req.Product.SupplierID != caller.SupplierID {
		return nil, ErrForbidden
	}
	if req.Status != from {
		return nil, fmt.Errorf("%w: cannot %s a %s request", ErrInvalidTransition, action, req.Status)
	}

	now := time.Now()
	req.Status = to
	req.DecidedBy = &caller.UserID
	req.DecidedAt = &now
	if err := s.repo.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("update sharing request: %w", err)
	}

	s.publish(req.Product.SupplierID, req, action)
	return req, nil
}

func (s *SharingService) publish(ownerSupplierID string, req *entity.ProductSharingRequest, action string) {
	metrics.SharingTransitions.WithLabelValues(req.Status).Inc()
	s.logger.Info("sharing request "+action,
		zap.String("request_id", req.ID),
		zap.String("product_id", req.ProductID),
		zap.String("requesting_supplier_id", req.RequestingSupplierID),
		zap.String("status", req.Status),
	)
	if s.hub == nil {
		return
	}
	s.hub.PublishSharingUpdate(ownerSupplierID, sse.SharingUpdate{
		RequestID:            req.ID,
		ProductID:            req.ProductID,
		RequestingSupplierID: req.RequestingSupplierID,
		Status:               req.Status,
		Action:               action,
	})
}

// ListIncoming 发给调用方产品的申请
func (s *SharingService) ListIncoming(ctx context.Context, caller Caller, status string) ([]entity.ProductSharingRequest, error) {
	if err := checkStatusFilter(status); err != nil {
		return nil, err
	}
	return s.repo.ListIncoming(ctx, caller.SupplierID, status)
}

// ListOutgoing 调用方发出的申请
func (s *SharingService) ListOutgoing(ctx context.Context, caller Caller, status string) ([]entity.ProductSharingRequest, error) {
	if err := checkStatusFilter(status); err != nil {
		return nil, err
	}
	return s.repo.ListOutgoing(ctx, caller.SupplierID, status)
}

func checkStatusFilter(status string) error {
	switch status {
	case "", entity.SharingStatusPending, entity.SharingStatusAccepted, entity.SharingStatusRejected:
		return nil
	}
	return fmt.Errorf("%w: unknown sharing status %q", ErrInvalidInput, status)
}
