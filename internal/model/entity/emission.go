package entity

import "time"

// 排放类型
const (
	EmissionKindMaterial         = "material"
	EmissionKindTransport        = "transport"
	EmissionKindProductionEnergy = "production_energy"
	EmissionKindUserEnergy       = "user_energy"
	EmissionKindEndOfLife        = "end_of_life"
)

// Emission 产品排放记录，按 kind 区分类型（单表继承）
//
// Only the scalar columns of the kind are meaningful: weight for material,
// weight and distance for transport, energy_consumption for both energy kinds.
type Emission struct {
	ID                   string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID            string    `json:"product_id" gorm:"size:32;not null;index"`
	Kind                 string    `json:"kind" gorm:"size:32;not null"`
	Description          string    `json:"description" gorm:"size:500"`
	PcfCalculationMethod string    `json:"pcf_calculation_method" gorm:"size:32"`
	Weight               float64   `json:"weight" gorm:"not null;default:0"`
	Distance             float64   `json:"distance" gorm:"not null;default:0"`
	EnergyConsumption    float64   `json:"energy_consumption" gorm:"not null;default:0"`
	ReferenceTableID     *string   `json:"reference_table_id" gorm:"size:32;index"`
	CreatedBy            string    `json:"created_by" gorm:"size:32"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	Overrides []EmissionOverrideFactor `json:"overrides,omitempty" gorm:"foreignKey:EmissionID"`
	LineItems []EmissionLineItem       `json:"line_items,omitempty" gorm:"foreignKey:EmissionID"`
}

func (Emission) TableName() string {
	return "emissions"
}

// EmissionLineItem 排放记录与BOM行项的关联
type EmissionLineItem struct {
	EmissionID string `json:"emission_id" gorm:"primaryKey;size:32"`
	LineItemID string `json:"line_item_id" gorm:"primaryKey;size:32;index"`
}

func (EmissionLineItem) TableName() string {
	return "emission_line_items"
}

// EmissionOverrideFactor 排放记录级覆盖因子
type EmissionOverrideFactor struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	EmissionID     string    `json:"emission_id" gorm:"size:32;not null;index"`
	LifecycleStage string    `json:"lifecycle_stage" gorm:"size:16;not null"`
	Biogenic       float64   `json:"biogenic" gorm:"not null;default:0"`
	NonBiogenic    float64   `json:"non_biogenic" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at"`
}

func (EmissionOverrideFactor) TableName() string {
	return "emission_override_factors"
}
