package repository

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	Supplier  *SupplierRepository
	Product   *ProductRepository
	BOM       *BOMRepository
	Reference *ReferenceRepository
	Emission  *EmissionRepository
	Sharing   *SharingRepository
	Catalog   *CatalogLoader
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB, bootstrapSupplierID string) *Repositories {
	return &Repositories{
		Supplier:  NewSupplierRepository(db),
		Product:   NewProductRepository(db),
		BOM:       NewBOMRepository(db),
		Reference: NewReferenceRepository(db),
		Emission:  NewEmissionRepository(db),
		Sharing:   NewSharingRepository(db),
		Catalog:   NewCatalogLoader(db, bootstrapSupplierID),
	}
}

// generateID 生成32位ID
func generateID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
