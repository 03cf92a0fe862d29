package repository

import (
	"context"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"gorm.io/gorm"
)

// SharingRepository 共享申请仓库
type SharingRepository struct {
	db *gorm.DB
}

func NewSharingRepository(db *gorm.DB) *SharingRepository {
	return &SharingRepository{db: db}
}

// FindByID 根据ID查找共享申请
func (r *SharingRepository) FindByID(ctx context.Context, id string) (*entity.ProductSharingRequest, error) {
	var req entity.ProductSharingRequest
	err := r.db.WithContext(ctx).Preload("Product").Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// FindByProductAndRequester 查找某供应商对某产品的申请
func (r *SharingRepository) FindByProductAndRequester(ctx context.Context, productID, requestingSupplierID string) (*entity.ProductSharingRequest, error) {
	var req entity.ProductSharingRequest
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND requesting_supplier_id = ?", productID, requestingSupplierID).
		First(&req).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// ListIncoming 查询发给某供应商产品的申请
func (r *SharingRepository) ListIncoming(ctx context.Context, supplierID, status string) ([]entity.ProductSharingRequest, error) {
	var items []entity.ProductSharingRequest
	query := r.db.WithContext(ctx).
		Preload("Product").
		Joins("JOIN products ON products.id = product_sharing_requests.product_id").
		Where("products.supplier_id = ?", supplierID)
	if status != "" {
		query = query.Where("product_sharing_requests.status = ?", status)
	}
	err := query.Order("product_sharing_requests.created_at DESC").Find(&items).Error
	return items, err
}

// ListOutgoing 查询某供应商发出的申请
func (r *SharingRepository) ListOutgoing(ctx context.Context, supplierID, status string) ([]entity.ProductSharingRequest, error) {
	var items []entity.ProductSharingRequest
	query := r.db.WithContext(ctx).Preload("Product").Where("requesting_supplier_id = ?", supplierID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at DESC").Find(&items).Error
	return items, err
}

// Create 创建共享申请
func (r *SharingRepository) Create(ctx context.Context, req *entity.ProductSharingRequest) error {
	if req.ID == "" {
		req.ID = generateID()
	}
	return r.db.WithContext(ctx).Omit("Product").Create(req).Error
}

// Update 更新共享申请
func (r *SharingRepository) Update(ctx context.Context, req *entity.ProductSharingRequest) error {
	return r.db.WithContext(ctx).Omit("Product").Save(req).Error
}
