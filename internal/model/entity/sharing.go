package entity

import "time"

// 共享申请状态；not_requested 不落库
const (
	SharingStatusPending  = "pending"
	SharingStatusAccepted = "accepted"
	SharingStatusRejected = "rejected"
)

// ProductSharingRequest 跨供应商PCF数据共享申请
type ProductSharingRequest struct {
	ID                   string     `json:"id" gorm:"primaryKey;size:32"`
	ProductID            string     `json:"product_id" gorm:"size:32;not null;uniqueIndex:idx_sharing_product_requester"`
	RequestingSupplierID string     `json:"requesting_supplier_id" gorm:"size:32;not null;uniqueIndex:idx_sharing_product_requester;index"`
	Status               string     `json:"status" gorm:"size:20;not null;default:pending"`
	Message              string     `json:"message" gorm:"size:500"`
	RequestedBy          string     `json:"requested_by" gorm:"size:32"`
	DecidedBy            *string    `json:"decided_by" gorm:"size:32"`
	DecidedAt            *time.Time `json:"decided_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (ProductSharingRequest) TableName() string {
	return "product_sharing_requests"
}

// AllModels 所有需要迁移的表
func AllModels() []interface{} {
	return []interface{}{
		&Supplier{},
		&Product{},
		&ProductBOMLineItem{},
		&ProductEmissionOverrideFactor{},
		&ReferenceTable{},
		&ReferenceFactor{},
		&Emission{},
		&EmissionLineItem{},
		&EmissionOverrideFactor{},
		&ProductSharingRequest{},
	}
}
