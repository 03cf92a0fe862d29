package repository

import (
	"context"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository 产品仓库
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindByID 根据ID查找产品，包含产品级覆盖因子
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var product entity.Product
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Overrides").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// FindAll 查询调用方可见的产品：自己供应商的产品和公开产品
func (r *ProductRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Product, int64, error) {
	var items []entity.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Product{})

	if visibleTo := filters["visible_to"]; visibleTo != "" {
		query = query.Where("supplier_id = ? OR is_public = ?", visibleTo, true)
	}
	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// Create 创建产品
func (r *ProductRepository) Create(ctx context.Context, product *entity.Product) error {
	if product.ID == "" {
		product.ID = generateID()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

// Update 更新产品基本信息
func (r *ProductRepository) Update(ctx context.Context, product *entity.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error
}

// Delete 删除产品及其BOM行项、排放记录、覆盖因子和共享申请
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lineItemIDs []string
		if err := tx.Model(&entity.ProductBOMLineItem{}).
			Where("parent_product_id = ? OR line_item_product_id = ?", id, id).
			Pluck("id", &lineItemIDs).Error; err != nil {
			return err
		}
		if len(lineItemIDs) > 0 {
			if err := tx.Where("line_item_id IN ?", lineItemIDs).Delete(&entity.EmissionLineItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", lineItemIDs).Delete(&entity.ProductBOMLineItem{}).Error; err != nil {
				return err
			}
		}

		var emissionIDs []string
		if err := tx.Model(&entity.Emission{}).Where("product_id = ?", id).Pluck("id", &emissionIDs).Error; err != nil {
			return err
		}
		if err := deleteEmissions(tx, emissionIDs); err != nil {
			return err
		}

		if err := tx.Where("product_id = ?", id).Delete(&entity.ProductEmissionOverrideFactor{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&entity.ProductSharingRequest{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Product{}).Error
	})
}

// ReplaceOverrides 替换产品级覆盖因子；rows 为空时清除覆盖
func (r *ProductRepository) ReplaceOverrides(ctx context.Context, productID string, rows []entity.ProductEmissionOverrideFactor) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&entity.ProductEmissionOverrideFactor{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].ID = generateID()
			rows[i].ProductID = productID
		}
		return tx.Create(&rows).Error
	})
}
