package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferenceRepository 参考因子表仓库
type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// FindAll 查询参考表，kind 为空时返回全部
func (r *ReferenceRepository) FindAll(ctx context.Context, kind string) ([]entity.ReferenceTable, error) {
	var items []entity.ReferenceTable
	query := r.db.WithContext(ctx).Preload("Factors")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Order("kind ASC, name ASC").Find(&items).Error
	return items, err
}

// FindByID 根据ID查找参考表
func (r *ReferenceRepository) FindByID(ctx context.Context, id string) (*entity.ReferenceTable, error) {
	var table entity.ReferenceTable
	err := r.db.WithContext(ctx).Preload("Factors").Where("id = ?", id).First(&table).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &table, nil
}

// FindByIDs 批量查询参考表
func (r *ReferenceRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.ReferenceTable, error) {
	var items []entity.ReferenceTable
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Preload("Factors").Where("id IN ?", ids).Find(&items).Error
	return items, err
}

// FindByKindAndName 按类型和名称查找，用于导入时合并
func (r *ReferenceRepository) FindByKindAndName(ctx context.Context, kind, name string) (*entity.ReferenceTable, error) {
	var table entity.ReferenceTable
	err := r.db.WithContext(ctx).Where("kind = ? AND name = ?", kind, name).First(&table).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &table, nil
}

// Create 创建参考表及其因子行
func (r *ReferenceRepository) Create(ctx context.Context, table *entity.ReferenceTable) error {
	if table.ID == "" {
		table.ID = generateID()
	}
	for i := range table.Factors {
		table.Factors[i].ID = generateID()
		table.Factors[i].ReferenceTableID = table.ID
	}
	return r.db.WithContext(ctx).Create(table).Error
}

// ReplaceFactors 整体替换参考表的因子行
func (r *ReferenceRepository) ReplaceFactors(ctx context.Context, tableID string, factors []entity.ReferenceFactor) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reference_table_id = ?", tableID).Delete(&entity.ReferenceFactor{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.ReferenceTable{}).Where("id = ?", tableID).Update("updated_at", time.Now()).Error; err != nil {
			return err
		}
		if len(factors) == 0 {
			return nil
		}
		for i := range factors {
			factors[i].ID = generateID()
			factors[i].ReferenceTableID = tableID
		}
		return tx.Create(&factors).Error
	})
}

// UpsertFactor 写入单个阶段的因子，同阶段已存在则覆盖
func (r *ReferenceRepository) UpsertFactor(ctx context.Context, factor *entity.ReferenceFactor) error {
	if factor.ID == "" {
		factor.ID = generateID()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reference_table_id"}, {Name: "lifecycle_stage"}},
		DoUpdates: clause.AssignmentColumns([]string{"biogenic", "non_biogenic"}),
	}).Create(factor).Error
}

// Delete 删除参考表；引用它的排放记录一并删除
func (r *ReferenceRepository) Delete(ctx context.Context, id string) (int, error) {
	var removed int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.ReferenceTable{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}

		var emissionIDs []string
		if err := tx.Model(&entity.Emission{}).Where("reference_table_id = ?", id).Pluck("id", &emissionIDs).Error; err != nil {
			return err
		}
		if err := deleteEmissions(tx, emissionIDs); err != nil {
			return err
		}
		removed = len(emissionIDs)

		if err := tx.Where("reference_table_id = ?", id).Delete(&entity.ReferenceFactor{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.ReferenceTable{}).Error
	})
	return removed, err
}
