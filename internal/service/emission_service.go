package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/pcf"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"go.uber.org/zap"
)

// EmissionService 排放记录服务
type EmissionService struct {
	repo       *repository.EmissionRepository
	products   *repository.ProductRepository
	references *repository.ReferenceRepository
	loader     *repository.CatalogLoader
	logger     *zap.Logger
}

func NewEmissionService(
	repo *repository.EmissionRepository,
	products *repository.ProductRepository,
	references *repository.ReferenceRepository,
	loader *repository.CatalogLoader,
	logger *zap.Logger,
) *EmissionService {
	return &EmissionService{
		repo:       repo,
		products:   products,
		references: references,
		loader:     loader,
		logger:     logger.Named("emission"),
	}
}

// EmissionRequest 创建/更新排放记录请求
type EmissionRequest struct {
	Kind                 string        `json:"kind" binding:"required"`
	Description          string        `json:"description"`
	PcfCalculationMethod string        `json:"pcf_calculation_method"`
	Weight               float64       `json:"weight"`
	Distance             float64       `json:"distance"`
	EnergyConsumption    float64       `json:"energy_consumption"`
	ReferenceTableID     *string       `json:"reference_table_id"`
	Overrides            []OverrideRow `json:"overrides"`
	LineItemIDs          []string      `json:"line_item_ids"`
}

// LinkLineItemsRequest 替换关联行项请求
type LinkLineItemsRequest struct {
	LineItemIDs []string `json:"line_item_ids"`
}

func (s *EmissionService) ownProduct(ctx context.Context, caller Caller, productID string) error {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if product.SupplierID != caller.SupplierID {
		return ErrForbidden
	}
	return nil
}

func (s *EmissionService) owned(ctx context.Context, caller Caller, emissionID string) (*entity.Emission, error) {
	emission, err := s.repo.FindByID(ctx, emissionID)
	if err != nil {
		return nil, err
	}
	if err := s.ownProduct(ctx, caller, emission.ProductID); err != nil {
		return nil, err
	}
	return emission, nil
}

// validate runs the write-time checks of the candidate against the product's
// own line items and the reference table it points at.
func (s *EmissionService) validate(ctx context.Context, candidate *entity.Emission) error {
	catalog, err := s.loader.LoadScope(ctx, candidate.ProductID)
	if err != nil {
		return fmt.Errorf("load product scope: %w", err)
	}
	if candidate.ReferenceTableID != nil && *candidate.ReferenceTableID != "" {
		ref, err := s.references.FindByID(ctx, *candidate.ReferenceTableID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", pcf.ErrUnknownReference, *candidate.ReferenceTableID)
		}
		if err != nil {
			return err
		}
		if err := catalog.AddReference(repository.ToPCFReference(*ref)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	pe, err := repository.ToPCFEmission(*candidate)
	if err != nil {
		return err
	}
	return catalog.AddEmission(pe)
}

func (req *EmissionRequest) apply(e *entity.Emission) error {
	if req.PcfCalculationMethod != "" {
		if _, err := pcf.ParsePcfCalculationMethod(req.PcfCalculationMethod); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	e.Kind = req.Kind
	e.Description = req.Description
	e.PcfCalculationMethod = req.PcfCalculationMethod
	e.Weight = req.Weight
	e.Distance = req.Distance
	e.EnergyConsumption = req.EnergyConsumption
	e.ReferenceTableID = req.ReferenceTableID
	if e.ReferenceTableID != nil && *e.ReferenceTableID == "" {
		e.ReferenceTableID = nil
	}
	return nil
}

func overrideRows(rows []OverrideRow) ([]entity.EmissionOverrideFactor, error) {
	out := make([]entity.EmissionOverrideFactor, 0, len(rows))
	for _, row := range rows {
		stage, f, err := row.factor()
		if err != nil {
			return nil, err
		}
		out = append(out, entity.EmissionOverrideFactor{
			LifecycleStage: string(stage),
			Biogenic:       f.Biogenic,
			NonBiogenic:    f.NonBiogenic,
		})
	}
	return out, nil
}

func lineItemLinks(ids []string) []entity.EmissionLineItem {
	out := make([]entity.EmissionLineItem, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, entity.EmissionLineItem{LineItemID: id})
	}
	return out
}

// ListByProduct 产品的排放记录，可见性与产品相同
func (s *EmissionService) ListByProduct(ctx context.Context, caller Caller, productID string) ([]entity.Emission, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SupplierID != caller.SupplierID && !product.IsPublic {
		return nil, ErrForbidden
	}
	return s.repo.ListByProduct(ctx, productID)
}

// Get 获取排放记录
func (s *EmissionService) Get(ctx context.Context, caller Caller, emissionID string) (*entity.Emission, error) {
	emission, err := s.repo.FindByID(ctx, emissionID)
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, emission.ProductID)
	if err != nil {
		return nil, err
	}
	if product.SupplierID != caller.SupplierID && !product.IsPublic {
		return nil, ErrForbidden
	}
	return emission, nil
}

// Create 创建排放记录
func (s *EmissionService) Create(ctx context.Context, caller Caller, productID string, req *EmissionRequest) (*entity.Emission, error) {
	if err := s.ownProduct(ctx, caller, productID); err != nil {
		return nil, err
	}

	emission := &entity.Emission{ProductID: productID, CreatedBy: caller.UserID}
	if err := req.apply(emission); err != nil {
		return nil, err
	}
	overrides, err := overrideRows(req.Overrides)
	if err != nil {
		return nil, err
	}
	emission.Overrides = overrides
	emission.LineItems = lineItemLinks(req.LineItemIDs)

	if err := s.validate(ctx, emission); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, emission); err != nil {
		return nil, fmt.Errorf("create emission: %w", err)
	}
	s.logger.Info("emission created",
		zap.String("emission_id", emission.ID),
		zap.String("product_id", productID),
		zap.String("kind", emission.Kind),
	)
	return s.repo.FindByID(ctx, emission.ID)
}

// Update 更新排放记录的类型、数量和参考表；覆盖因子和行项关联不变
func (s *EmissionService) Update(ctx context.Context, caller Caller, emissionID string, req *EmissionRequest) (*entity.Emission, error) {
	emission, err := s.owned(ctx, caller, emissionID)
	if err != nil {
		return nil, err
	}
	if err := req.apply(emission); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, emission); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, emission); err != nil {
		return nil, fmt.Errorf("update emission: %w", err)
	}
	return s.repo.FindByID(ctx, emissionID)
}

// Delete 删除排放记录
func (s *EmissionService) Delete(ctx context.Context, caller Caller, emissionID string) error {
	if _, err := s.owned(ctx, caller, emissionID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, emissionID); err != nil {
		return err
	}
	s.logger.Info("emission deleted", zap.String("emission_id", emissionID))
	return nil
}

// SetOverrides 替换排放记录级覆盖因子
func (s *EmissionService) SetOverrides(ctx context.Context, caller Caller, emissionID string, rows []OverrideRow) (*entity.Emission, error) {
	if _, err := s.owned(ctx, caller, emissionID); err != nil {
		return nil, err
	}
	overrides, err := overrideRows(rows)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceOverrides(ctx, emissionID, overrides); err != nil {
		return nil, fmt.Errorf("replace emission overrides: %w", err)
	}
	return s.repo.FindByID(ctx, emissionID)
}

// LinkLineItems 替换排放记录关联的行项，行项必须属于同一产品
func (s *EmissionService) LinkLineItems(ctx context.Context, caller Caller, emissionID string, ids []string) (*entity.Emission, error) {
	emission, err := s.owned(ctx, caller, emissionID)
	if err != nil {
		return nil, err
	}
	emission.LineItems = lineItemLinks(ids)
	if err := s.validate(ctx, emission); err != nil {
		return nil, err
	}

	linked := make([]string, 0, len(emission.LineItems))
	for _, link := range emission.LineItems {
		linked = append(linked, link.LineItemID)
	}
	if err := s.repo.ReplaceLineItems(ctx, emissionID, linked); err != nil {
		return nil, fmt.Errorf("replace emission line items: %w", err)
	}
	return s.repo.FindByID(ctx, emissionID)
}
