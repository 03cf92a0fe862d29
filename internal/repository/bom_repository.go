package repository

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/pcf"
	"gorm.io/gorm"
)

// BOMRepository BOM行项仓库
type BOMRepository struct {
	db *gorm.DB
}

func NewBOMRepository(db *gorm.DB) *BOMRepository {
	return &BOMRepository{db: db}
}

// FindByID 根据ID查找行项
func (r *BOMRepository) FindByID(ctx context.Context, id string) (*entity.ProductBOMLineItem, error) {
	var item entity.ProductBOMLineItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// ListByParent 查询产品的直接子件
func (r *BOMRepository) ListByParent(ctx context.Context, parentID string) ([]entity.ProductBOMLineItem, error) {
	var items []entity.ProductBOMLineItem
	err := r.db.WithContext(ctx).
		Preload("LineItemProduct").
		Where("parent_product_id = ?", parentID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

// Create 在事务内校验并插入BOM行项
//
// The graph guard runs against the edges reachable from the new child, read
// inside the same transaction. On postgres the table is locked against
// concurrent writers first so two inserts cannot close a cycle together.
func (r *BOMRepository) Create(ctx context.Context, item *entity.ProductBOMLineItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("LOCK TABLE product_bom_line_items IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
				return fmt.Errorf("lock bom table: %w", err)
			}
		}

		for _, id := range []string{item.ParentProductID, item.LineItemProductID} {
			var count int64
			if err := tx.Model(&entity.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("%w: %s", pcf.ErrUnknownProduct, id)
			}
		}

		g, err := guardGraph(tx, item.ParentProductID, item.LineItemProductID)
		if err != nil {
			return err
		}
		if err := g.CheckLineItem(item.ParentProductID, item.LineItemProductID, item.Quantity); err != nil {
			return err
		}

		if item.ID == "" {
			item.ID = generateID()
		}
		return tx.Omit("LineItemProduct").Create(item).Error
	})
}

// guardGraph loads the parent's direct edges and every edge reachable from
// the child, level by level.
func guardGraph(tx *gorm.DB, parentID, childID string) (*pcf.BOMGraph, error) {
	g := pcf.NewBOMGraph()

	var own []entity.ProductBOMLineItem
	if err := tx.Where("parent_product_id = ?", parentID).Find(&own).Error; err != nil {
		return nil, err
	}
	edges, err := descendantEdges(tx, []string{childID})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, e := range append(own, edges...) {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		if err := g.AddLineItem(toLineItem(e)); err != nil {
			return nil, fmt.Errorf("stored bom edge %s: %w", e.ID, err)
		}
	}
	return g, nil
}

// descendantEdges walks the BOM downwards from roots with one IN query per
// level.
func descendantEdges(tx *gorm.DB, roots []string) ([]entity.ProductBOMLineItem, error) {
	var out []entity.ProductBOMLineItem
	visited := make(map[string]bool, len(roots))
	frontier := make([]string, 0, len(roots))
	for _, id := range roots {
		if !visited[id] {
			visited[id] = true
			frontier = append(frontier, id)
		}
	}

	for len(frontier) > 0 {
		var level []entity.ProductBOMLineItem
		if err := tx.Where("parent_product_id IN ?", frontier).Order("id ASC").Find(&level).Error; err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, e := range level {
			out = append(out, e)
			if !visited[e.LineItemProductID] {
				visited[e.LineItemProductID] = true
				frontier = append(frontier, e.LineItemProductID)
			}
		}
	}
	return out, nil
}

// UpdateQuantity 修改行项数量
func (r *BOMRepository) UpdateQuantity(ctx context.Context, id string, quantity float64) error {
	if !(quantity >= 0) {
		return fmt.Errorf("%w: %v", pcf.ErrNegativeQuantity, quantity)
	}
	result := r.db.WithContext(ctx).
		Model(&entity.ProductBOMLineItem{}).
		Where("id = ?", id).
		Update("quantity", quantity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除行项及其与排放记录的关联
func (r *BOMRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("line_item_id = ?", id).Delete(&entity.EmissionLineItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&entity.ProductBOMLineItem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func toLineItem(e entity.ProductBOMLineItem) pcf.LineItem {
	return pcf.LineItem{
		ID:       e.ID,
		ParentID: e.ParentProductID,
		ChildID:  e.LineItemProductID,
		Quantity: e.Quantity,
	}
}
