package repository

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/pcf"
	"gorm.io/gorm"
)

// CatalogLoader 将产品子图加载为内存中的 pcf.Catalog
type CatalogLoader struct {
	db                  *gorm.DB
	bootstrapSupplierID string
}

func NewCatalogLoader(db *gorm.DB, bootstrapSupplierID string) *CatalogLoader {
	return &CatalogLoader{db: db, bootstrapSupplierID: bootstrapSupplierID}
}

// Load reads every product reachable from productID through the BOM, with
// their emissions, overrides, reference tables and the sharing states of the
// cross-supplier edges. Queries are batched per BOM level.
func (l *CatalogLoader) Load(ctx context.Context, productID string) (*pcf.Catalog, error) {
	db := l.db.WithContext(ctx)

	var count int64
	if err := db.Model(&entity.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	edges, err := descendantEdges(db, []string{productID})
	if err != nil {
		return nil, fmt.Errorf("load bom: %w", err)
	}
	return l.build(db, productID, edges, true)
}

// LoadScope reads a product with its direct line items only. It is enough to
// validate writes that concern the product itself, such as a new emission.
func (l *CatalogLoader) LoadScope(ctx context.Context, productID string) (*pcf.Catalog, error) {
	db := l.db.WithContext(ctx)

	var count int64
	if err := db.Model(&entity.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	var edges []entity.ProductBOMLineItem
	if err := db.Where("parent_product_id = ?", productID).Order("id ASC").Find(&edges).Error; err != nil {
		return nil, err
	}
	return l.build(db, productID, edges, false)
}

// build assembles the catalog. Emissions are loaded for every product when
// allEmissions is set, otherwise for the root only: emission links can only
// be checked for products whose own line items were read.
func (l *CatalogLoader) build(db *gorm.DB, rootID string, edges []entity.ProductBOMLineItem, allEmissions bool) (*pcf.Catalog, error) {
	productIDs := []string{rootID}
	seen := map[string]bool{rootID: true}
	for _, e := range edges {
		if !seen[e.LineItemProductID] {
			seen[e.LineItemProductID] = true
			productIDs = append(productIDs, e.LineItemProductID)
		}
	}

	var products []entity.Product
	if err := db.Preload("Overrides").Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[string]*entity.Product, len(products))
	supplierIDs := []string{}
	seenSupplier := map[string]bool{}
	for i := range products {
		p := &products[i]
		byID[p.ID] = p
		if !seenSupplier[p.SupplierID] {
			seenSupplier[p.SupplierID] = true
			supplierIDs = append(supplierIDs, p.SupplierID)
		}
	}

	var suppliers []entity.Supplier
	if err := db.Where("id IN ?", supplierIDs).Find(&suppliers).Error; err != nil {
		return nil, fmt.Errorf("load suppliers: %w", err)
	}

	emissionOwners := productIDs
	if !allEmissions {
		emissionOwners = []string{rootID}
	}
	var emissions []entity.Emission
	if err := db.Preload("Overrides").Preload("LineItems").
		Where("product_id IN ?", emissionOwners).
		Order("created_at ASC, id ASC").
		Find(&emissions).Error; err != nil {
		return nil, fmt.Errorf("load emissions: %w", err)
	}

	refIDs := []string{}
	seenRef := map[string]bool{}
	for _, e := range emissions {
		if e.ReferenceTableID != nil && !seenRef[*e.ReferenceTableID] {
			seenRef[*e.ReferenceTableID] = true
			refIDs = append(refIDs, *e.ReferenceTableID)
		}
	}
	var refs []entity.ReferenceTable
	if len(refIDs) > 0 {
		if err := db.Preload("Factors").Where("id IN ?", refIDs).Find(&refs).Error; err != nil {
			return nil, fmt.Errorf("load reference tables: %w", err)
		}
	}

	// sharing states only matter where an edge crosses suppliers
	sharedProducts := []string{}
	requesters := []string{}
	for _, e := range edges {
		parent, child := byID[e.ParentProductID], byID[e.LineItemProductID]
		if parent == nil || child == nil || parent.SupplierID == child.SupplierID {
			continue
		}
		sharedProducts = append(sharedProducts, child.ID)
		requesters = append(requesters, parent.SupplierID)
	}
	var requests []entity.ProductSharingRequest
	if len(sharedProducts) > 0 {
		if err := db.Where("product_id IN ? AND requesting_supplier_id IN ?", sharedProducts, requesters).
			Find(&requests).Error; err != nil {
			return nil, fmt.Errorf("load sharing requests: %w", err)
		}
	}

	c := pcf.NewCatalog(l.bootstrapSupplierID)
	loaded := make(map[string]bool, len(suppliers))
	for _, s := range suppliers {
		c.AddSupplier(ToPCFSupplier(s))
		loaded[s.ID] = true
	}
	for _, id := range supplierIDs {
		if !loaded[id] {
			c.AddSupplier(pcf.Supplier{ID: id})
		}
	}
	for _, p := range products {
		if err := c.AddProduct(ToPCFProduct(p)); err != nil {
			return nil, fmt.Errorf("product %s: %w", p.ID, err)
		}
	}
	for _, r := range refs {
		if err := c.AddReference(ToPCFReference(r)); err != nil {
			return nil, fmt.Errorf("reference table %s: %w", r.ID, err)
		}
	}
	for _, e := range edges {
		if err := c.AddLineItem(toLineItem(e)); err != nil {
			return nil, fmt.Errorf("bom edge %s: %w", e.ID, err)
		}
	}
	for _, e := range emissions {
		pe, err := ToPCFEmission(e)
		if err != nil {
			return nil, err
		}
		if err := c.AddEmission(pe); err != nil {
			return nil, fmt.Errorf("emission %s: %w", e.ID, err)
		}
	}
	for _, r := range requests {
		status, err := pcf.ParseSharingStatus(r.Status)
		if err != nil {
			return nil, fmt.Errorf("sharing request %s: %w", r.ID, err)
		}
		c.SetSharingStatus(r.ProductID, r.RequestingSupplierID, status)
	}
	return c, nil
}

// ToPCFSupplier 实体转换
func ToPCFSupplier(s entity.Supplier) pcf.Supplier {
	return pcf.Supplier{ID: s.ID, Name: s.Name}
}

// ToPCFProduct 实体转换，包含产品级覆盖因子
func ToPCFProduct(p entity.Product) pcf.Product {
	out := pcf.Product{
		ID:                   p.ID,
		Name:                 p.Name,
		SupplierID:           p.SupplierID,
		IsPublic:             p.IsPublic,
		ReferenceImpactUnit:  pcf.ReferenceImpactUnit(p.ReferenceImpactUnit),
		PcfCalculationMethod: pcf.PcfCalculationMethod(p.PcfCalculationMethod),
	}
	for _, row := range p.Overrides {
		out.Overrides = append(out.Overrides, pcf.OverrideFactor{
			Stage:  pcf.LifecycleStage(row.LifecycleStage),
			Factor: pcf.EmissionFactor{Biogenic: row.Biogenic, NonBiogenic: row.NonBiogenic},
		})
	}
	return out
}

// ToPCFReference 实体转换
func ToPCFReference(r entity.ReferenceTable) pcf.ReferenceTable {
	out := pcf.ReferenceTable{
		ID:      r.ID,
		Name:    r.Name,
		Kind:    pcf.ReferenceKind(r.Kind),
		Unit:    pcf.ReferenceImpactUnit(r.Unit),
		Factors: make(map[pcf.LifecycleStage]pcf.EmissionFactor, len(r.Factors)),
	}
	for _, f := range r.Factors {
		out.Factors[pcf.LifecycleStage(f.LifecycleStage)] = pcf.EmissionFactor{
			Biogenic:    f.Biogenic,
			NonBiogenic: f.NonBiogenic,
		}
	}
	return out
}

// ToPCFEmission 实体转换，按 kind 选择排放类型
func ToPCFEmission(e entity.Emission) (pcf.Emission, error) {
	ref := ""
	if e.ReferenceTableID != nil {
		ref = *e.ReferenceTableID
	}

	var v pcf.Variant
	switch e.Kind {
	case entity.EmissionKindMaterial:
		v = pcf.Material{Weight: e.Weight, ReferenceTableID: ref}
	case entity.EmissionKindTransport:
		v = pcf.Transport{Weight: e.Weight, Distance: e.Distance, ReferenceTableID: ref}
	case entity.EmissionKindProductionEnergy:
		v = pcf.ProductionEnergy{EnergyConsumption: e.EnergyConsumption, ReferenceTableID: ref}
	case entity.EmissionKindUserEnergy:
		v = pcf.UserEnergy{EnergyConsumption: e.EnergyConsumption, ReferenceTableID: ref}
	case entity.EmissionKindEndOfLife:
		v = pcf.EndOfLife{ReferenceTableID: ref}
	default:
		return pcf.Emission{}, fmt.Errorf("%w: %q", pcf.ErrUnsupportedEmissionKind, e.Kind)
	}

	out := pcf.Emission{
		ID:                   e.ID,
		ProductID:            e.ProductID,
		PcfCalculationMethod: pcf.PcfCalculationMethod(e.PcfCalculationMethod),
		Variant:              v,
	}
	for _, row := range e.Overrides {
		out.Overrides = append(out.Overrides, pcf.OverrideFactor{
			Stage:  pcf.LifecycleStage(row.LifecycleStage),
			Factor: pcf.EmissionFactor{Biogenic: row.Biogenic, NonBiogenic: row.NonBiogenic},
		})
	}
	for _, link := range e.LineItems {
		out.LineItemIDs = append(out.LineItemIDs, link.LineItemID)
	}
	return out, nil
}
