package repository

import (
	"context"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmissionRepository 排放记录仓库
type EmissionRepository struct {
	db *gorm.DB
}

func NewEmissionRepository(db *gorm.DB) *EmissionRepository {
	return &EmissionRepository{db: db}
}

// FindByID 根据ID查找排放记录
func (r *EmissionRepository) FindByID(ctx context.Context, id string) (*entity.Emission, error) {
	var emission entity.Emission
	err := r.db.WithContext(ctx).
		Preload("Overrides").
		Preload("LineItems").
		Where("id = ?", id).
		First(&emission).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &emission, nil
}

// ListByProduct 查询产品的排放记录
func (r *EmissionRepository) ListByProduct(ctx context.Context, productID string) ([]entity.Emission, error) {
	return r.ListByProducts(ctx, []string{productID})
}

// ListByProducts 批量查询排放记录，按创建顺序
func (r *EmissionRepository) ListByProducts(ctx context.Context, productIDs []string) ([]entity.Emission, error) {
	var items []entity.Emission
	if len(productIDs) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Overrides").
		Preload("LineItems").
		Where("product_id IN ?", productIDs).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

// Create 创建排放记录，连同覆盖因子和行项关联
func (r *EmissionRepository) Create(ctx context.Context, emission *entity.Emission) error {
	if emission.ID == "" {
		emission.ID = generateID()
	}
	for i := range emission.Overrides {
		emission.Overrides[i].ID = generateID()
		emission.Overrides[i].EmissionID = emission.ID
	}
	for i := range emission.LineItems {
		emission.LineItems[i].EmissionID = emission.ID
	}
	return r.db.WithContext(ctx).Create(emission).Error
}

// Update 更新排放记录本身，不修改关联
func (r *EmissionRepository) Update(ctx context.Context, emission *entity.Emission) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(emission).Error
}

// Delete 删除排放记录
func (r *EmissionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.Emission{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return deleteEmissions(tx, []string{id})
	})
}

// ReplaceOverrides 替换排放记录级覆盖因子
func (r *EmissionRepository) ReplaceOverrides(ctx context.Context, emissionID string, rows []entity.EmissionOverrideFactor) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("emission_id = ?", emissionID).Delete(&entity.EmissionOverrideFactor{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].ID = generateID()
			rows[i].EmissionID = emissionID
		}
		return tx.Create(&rows).Error
	})
}

// ReplaceLineItems 替换排放记录关联的行项
func (r *EmissionRepository) ReplaceLineItems(ctx context.Context, emissionID string, lineItemIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("emission_id = ?", emissionID).Delete(&entity.EmissionLineItem{}).Error; err != nil {
			return err
		}
		if len(lineItemIDs) == 0 {
			return nil
		}
		links := make([]entity.EmissionLineItem, 0, len(lineItemIDs))
		for _, id := range lineItemIDs {
			links = append(links, entity.EmissionLineItem{EmissionID: emissionID, LineItemID: id})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
	})
}

// deleteEmissions removes emissions together with their override rows and
// line item links. tx must already be a transaction.
func deleteEmissions(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("emission_id IN ?", ids).Delete(&entity.EmissionOverrideFactor{}).Error; err != nil {
		return err
	}
	if err := tx.Where("emission_id IN ?", ids).Delete(&entity.EmissionLineItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&entity.Emission{}).Error
}
