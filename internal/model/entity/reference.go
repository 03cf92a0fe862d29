package entity

import "time"

// ReferenceTable 参考排放因子表
type ReferenceTable struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Name        string    `json:"name" gorm:"size:200;not null;index"`
	Kind        string    `json:"kind" gorm:"size:32;not null;index"`
	Unit        string    `json:"unit" gorm:"size:16"`
	Description string    `json:"description" gorm:"type:text"`
	Source      string    `json:"source" gorm:"size:200"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Factors []ReferenceFactor `json:"factors,omitempty" gorm:"foreignKey:ReferenceTableID"`
}

func (ReferenceTable) TableName() string {
	return "reference_tables"
}

// ReferenceFactor 参考因子行，每个生命周期阶段最多一行
type ReferenceFactor struct {
	ID               string  `json:"id" gorm:"primaryKey;size:32"`
	ReferenceTableID string  `json:"reference_table_id" gorm:"size:32;not null;uniqueIndex:idx_reference_factor_stage"`
	LifecycleStage   string  `json:"lifecycle_stage" gorm:"size:16;not null;uniqueIndex:idx_reference_factor_stage"`
	Biogenic         float64 `json:"biogenic" gorm:"not null;default:0"`
	NonBiogenic      float64 `json:"non_biogenic" gorm:"not null;default:0"`
}

func (ReferenceFactor) TableName() string {
	return "reference_factors"
}
