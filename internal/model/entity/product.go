package entity

import "time"

// Product 产品
type Product struct {
	ID                   string    `json:"id" gorm:"primaryKey;size:32"`
	Name                 string    `json:"name" gorm:"size:200;not null"`
	Description          string    `json:"description" gorm:"type:text"`
	SupplierID           string    `json:"supplier_id" gorm:"size:32;not null;index"`
	IsPublic             bool      `json:"is_public" gorm:"default:false"`
	ReferenceImpactUnit  string    `json:"reference_impact_unit" gorm:"size:16;not null"`
	PcfCalculationMethod string    `json:"pcf_calculation_method" gorm:"size:32"`
	CreatedBy            string    `json:"created_by" gorm:"size:32"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	// 关联
	Supplier  *Supplier                       `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Overrides []ProductEmissionOverrideFactor `json:"overrides,omitempty" gorm:"foreignKey:ProductID"`
}

func (Product) TableName() string {
	return "products"
}

// ProductBOMLineItem BOM行项，父产品由数量个子产品组成
type ProductBOMLineItem struct {
	ID                string    `json:"id" gorm:"primaryKey;size:32"`
	ParentProductID   string    `json:"parent_product_id" gorm:"size:32;not null;uniqueIndex:idx_bom_parent_child"`
	LineItemProductID string    `json:"line_item_product_id" gorm:"size:32;not null;uniqueIndex:idx_bom_parent_child;index"`
	Quantity          float64   `json:"quantity" gorm:"not null;default:1"`
	CreatedBy         string    `json:"created_by" gorm:"size:32"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	LineItemProduct *Product `json:"line_item_product,omitempty" gorm:"foreignKey:LineItemProductID"`
}

func (ProductBOMLineItem) TableName() string {
	return "product_bom_line_items"
}

// ProductEmissionOverrideFactor 产品级覆盖因子，存在时替换整个产品的计算结果
type ProductEmissionOverrideFactor struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID      string    `json:"product_id" gorm:"size:32;not null;index"`
	LifecycleStage string    `json:"lifecycle_stage" gorm:"size:16;not null"`
	Biogenic       float64   `json:"biogenic" gorm:"not null;default:0"`
	NonBiogenic    float64   `json:"non_biogenic" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ProductEmissionOverrideFactor) TableName() string {
	return "product_emission_override_factors"
}
