package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-pcf/internal/metrics"
	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/pcf"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"go.uber.org/zap"
)

// BOMService BOM行项服务
type BOMService struct {
	repo     *repository.BOMRepository
	products *repository.ProductRepository
	logger   *zap.Logger
}

func NewBOMService(repo *repository.BOMRepository, products *repository.ProductRepository, logger *zap.Logger) *BOMService {
	return &BOMService{repo: repo, products: products, logger: logger.Named("bom")}
}

// AddLineItemRequest 添加行项请求
type AddLineItemRequest struct {
	LineItemProductID string   `json:"line_item_product_id" binding:"required"`
	Quantity          *float64 `json:"quantity"`
}

// UpdateQuantityRequest 修改数量请求
type UpdateQuantityRequest struct {
	Quantity *float64 `json:"quantity" binding:"required"`
}

func (s *BOMService) ownParent(ctx context.Context, caller Caller, productID string) error {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if product.SupplierID != caller.SupplierID {
		return ErrForbidden
	}
	return nil
}

// ownLineItem loads a line item whose parent product belongs to the caller.
func (s *BOMService) ownLineItem(ctx context.Context, caller Caller, lineItemID string) (*entity.ProductBOMLineItem, error) {
	item, err := s.repo.FindByID(ctx, lineItemID)
	if err != nil {
		return nil, err
	}
	if err := s.ownParent(ctx, caller, item.ParentProductID); err != nil {
		return nil, err
	}
	return item, nil
}

// ListLineItems 行项列表，可见性与父产品相同
func (s *BOMService) ListLineItems(ctx context.Context, caller Caller, productID string) ([]entity.ProductBOMLineItem, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SupplierID != caller.SupplierID && !product.IsPublic {
		return nil, ErrForbidden
	}
	return s.repo.ListByParent(ctx, productID)
}

// AddLineItem 添加行项，数量缺省为1
func (s *BOMService) AddLineItem(ctx context.Context, caller Caller, productID string, req *AddLineItemRequest) (*entity.ProductBOMLineItem, error) {
	if err := s.ownParent(ctx, caller, productID); err != nil {
		return nil, err
	}

	quantity := 1.0
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	item := &entity.ProductBOMLineItem{
		ParentProductID:   productID,
		LineItemProductID: req.LineItemProductID,
		Quantity:          quantity,
		CreatedBy:         caller.UserID,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		reason := rejectionReason(err)
		if reason == "" {
			return nil, fmt.Errorf("create line item: %w", err)
		}
		metrics.LineItemRejections.WithLabelValues(reason).Inc()
		s.logger.Info("line item rejected",
			zap.String("parent_product_id", productID),
			zap.String("line_item_product_id", req.LineItemProductID),
			zap.String("reason", reason),
		)
		return nil, err
	}

	s.logger.Info("line item added",
		zap.String("line_item_id", item.ID),
		zap.String("parent_product_id", productID),
		zap.String("line_item_product_id", item.LineItemProductID),
		zap.Float64("quantity", quantity),
	)
	return s.repo.FindByID(ctx, item.ID)
}

// UpdateQuantity 修改行项数量
func (s *BOMService) UpdateQuantity(ctx context.Context, caller Caller, lineItemID string, quantity float64) (*entity.ProductBOMLineItem, error) {
	if _, err := s.ownLineItem(ctx, caller, lineItemID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateQuantity(ctx, lineItemID, quantity); err != nil {
		if errors.Is(err, pcf.ErrNegativeQuantity) {
			metrics.LineItemRejections.WithLabelValues("negative_quantity").Inc()
		}
		return nil, err
	}
	return s.repo.FindByID(ctx, lineItemID)
}

// DeleteLineItem 删除行项
func (s *BOMService) DeleteLineItem(ctx context.Context, caller Caller, lineItemID string) error {
	if _, err := s.ownLineItem(ctx, caller, lineItemID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, lineItemID); err != nil {
		return err
	}
	s.logger.Info("line item deleted", zap.String("line_item_id", lineItemID))
	return nil
}

// rejectionReason maps a graph guard error to a metric label, "" for
// anything else.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, pcf.ErrSelfReference):
		return "self_reference"
	case errors.Is(err, pcf.ErrCycle):
		return "cycle"
	case errors.Is(err, pcf.ErrDuplicateEdge):
		return "duplicate"
	case errors.Is(err, pcf.ErrNegativeQuantity):
		return "negative_quantity"
	case errors.Is(err, pcf.ErrUnknownProduct):
		return "unknown_product"
	}
	return ""
}
