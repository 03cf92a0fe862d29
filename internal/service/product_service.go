package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/config"
	"github.com/bitfantasy/nimo-pcf/internal/metrics"
	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/pcf"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"go.uber.org/zap"
)

// ProductService 产品服务
type ProductService struct {
	repo      *repository.ProductRepository
	suppliers *repository.SupplierRepository
	loader    *repository.CatalogLoader
	cfg       config.PCFConfig
	logger    *zap.Logger
}

func NewProductService(
	repo *repository.ProductRepository,
	suppliers *repository.SupplierRepository,
	loader *repository.CatalogLoader,
	cfg config.PCFConfig,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		repo:      repo,
		suppliers: suppliers,
		loader:    loader,
		cfg:       cfg,
		logger:    logger.Named("product"),
	}
}

// CreateProductRequest 创建产品请求
type CreateProductRequest struct {
	Name                 string `json:"name" binding:"required"`
	Description          string `json:"description"`
	IsPublic             bool   `json:"is_public"`
	ReferenceImpactUnit  string `json:"reference_impact_unit"`
	PcfCalculationMethod string `json:"pcf_calculation_method"`
}

// UpdateProductRequest 更新产品请求
type UpdateProductRequest struct {
	Name                 *string `json:"name"`
	Description          *string `json:"description"`
	IsPublic             *bool   `json:"is_public"`
	ReferenceImpactUnit  *string `json:"reference_impact_unit"`
	PcfCalculationMethod *string `json:"pcf_calculation_method"`
}

// OverrideRow 覆盖因子输入行；只填 value 时视为非生物源
type OverrideRow struct {
	LifecycleStage string   `json:"lifecycle_stage" binding:"required"`
	Biogenic       float64  `json:"biogenic"`
	NonBiogenic    float64  `json:"non_biogenic"`
	Value          *float64 `json:"value"`
}

// SetOverridesRequest 替换覆盖因子请求
type SetOverridesRequest struct {
	Rows []OverrideRow `json:"rows"`
}

func (r OverrideRow) factor() (pcf.LifecycleStage, pcf.EmissionFactor, error) {
	stage, err := pcf.ParseLifecycleStage(r.LifecycleStage)
	if err != nil {
		return "", pcf.EmissionFactor{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if r.Value != nil {
		return stage, pcf.Scalar(*r.Value), nil
	}
	return stage, pcf.EmissionFactor{Biogenic: r.Biogenic, NonBiogenic: r.NonBiogenic}, nil
}

// List 获取调用方可见的产品
func (s *ProductService) List(ctx context.Context, caller Caller, page, pageSize int, filters map[string]string) ([]entity.Product, int64, error) {
	if filters == nil {
		filters = map[string]string{}
	}
	filters["visible_to"] = caller.SupplierID
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 获取产品详情，非公开产品仅本供应商可见
func (s *ProductService) Get(ctx context.Context, caller Caller, id string) (*entity.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.SupplierID != caller.SupplierID && !product.IsPublic {
		return nil, ErrForbidden
	}
	return product, nil
}

// owned loads a product the caller's supplier may change.
func (s *ProductService) owned(ctx context.Context, caller Caller, id string) (*entity.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.SupplierID != caller.SupplierID {
		return nil, ErrForbidden
	}
	return product, nil
}

// Create 创建产品，归属调用方供应商
func (s *ProductService) Create(ctx context.Context, caller Caller, req *CreateProductRequest) (*entity.Product, error) {
	if err := s.ensureSupplier(ctx, caller.SupplierID); err != nil {
		return nil, fmt.Errorf("ensure supplier: %w", err)
	}

	unit, method, err := s.parseEnums(req.ReferenceImpactUnit, req.PcfCalculationMethod)
	if err != nil {
		return nil, err
	}

	product := &entity.Product{
		Name:                 req.Name,
		Description:          req.Description,
		SupplierID:           caller.SupplierID,
		IsPublic:             req.IsPublic,
		ReferenceImpactUnit:  string(unit),
		PcfCalculationMethod: string(method),
		CreatedBy:            caller.UserID,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info("product created",
		zap.String("product_id", product.ID),
		zap.String("supplier_id", product.SupplierID),
	)
	return product, nil
}

// Update 更新产品
func (s *ProductService) Update(ctx context.Context, caller Caller, id string, req *UpdateProductRequest) (*entity.Product, error) {
	product, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.IsPublic != nil {
		product.IsPublic = *req.IsPublic
	}
	if req.ReferenceImpactUnit != nil {
		unit, err := pcf.ParseReferenceImpactUnit(*req.ReferenceImpactUnit)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		product.ReferenceImpactUnit = string(unit)
	}
	if req.PcfCalculationMethod != nil {
		method, err := pcf.ParsePcfCalculationMethod(*req.PcfCalculationMethod)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		product.PcfCalculationMethod = string(method)
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return product, nil
}

// Delete 删除产品
func (s *ProductService) Delete(ctx context.Context, caller Caller, id string) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

// SetOverrides 替换产品级覆盖因子，空列表表示取消覆盖
func (s *ProductService) SetOverrides(ctx context.Context, caller Caller, id string, rows []OverrideRow) (*entity.Product, error) {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return nil, err
	}

	factors := make([]entity.ProductEmissionOverrideFactor, 0, len(rows))
	for _, row := range rows {
		stage, f, err := row.factor()
		if err != nil {
			return nil, err
		}
		factors = append(factors, entity.ProductEmissionOverrideFactor{
			LifecycleStage: string(stage),
			Biogenic:       f.Biogenic,
			NonBiogenic:    f.NonBiogenic,
		})
	}
	if err := s.repo.ReplaceOverrides(ctx, id, factors); err != nil {
		return nil, fmt.Errorf("replace product overrides: %w", err)
	}
	s.logger.Info("product overrides replaced", zap.String("product_id", id), zap.Int("rows", len(factors)))
	return s.repo.FindByID(ctx, id)
}

// EmissionTrace 计算产品碳足迹追溯树
//
// The caller must own the product or the product must be public. Line items
// are gated from the product owner's point of view; a foreign caller of a
// public product only gets the root node.
func (s *ProductService) EmissionTrace(ctx context.Context, caller Caller, id string) (*pcf.EmissionTrace, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}

	start := time.Now()
	t, err := s.computeTrace(ctx, caller, id)
	metrics.TraceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TraceComputations.WithLabelValues("error").Inc()
		s.logger.Error("trace computation failed", zap.String("product_id", id), zap.Error(err))
		return nil, err
	}

	nodes := t.NodeCount()
	metrics.TraceComputations.WithLabelValues("ok").Inc()
	metrics.TraceNodes.Observe(float64(nodes))
	s.logger.Info("trace computed",
		zap.String("product_id", id),
		zap.String("supplier_id", caller.SupplierID),
		zap.Int("nodes", nodes),
		zap.Float64("total", t.Total()),
		zap.Duration("duration", time.Since(start)),
	)
	return t, nil
}

func (s *ProductService) computeTrace(ctx context.Context, caller Caller, id string) (*pcf.EmissionTrace, error) {
	catalog, err := s.loader.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	agg := pcf.NewAggregator(catalog, pcf.WithGateHook(func(_ *pcf.LineItem, d pcf.GateDecision) {
		metrics.VisibilityDecisions.WithLabelValues(d.Visibility.String()).Inc()
	}))
	t, err := agg.TraceFor(id, caller.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("aggregate trace: %w", err)
	}
	return t, nil
}

func (s *ProductService) parseEnums(unitCode, methodCode string) (pcf.ReferenceImpactUnit, pcf.PcfCalculationMethod, error) {
	if unitCode == "" {
		unitCode = s.cfg.DefaultReferenceImpactUnit
	}
	if unitCode == "" {
		unitCode = string(pcf.UnitPiece)
	}
	unit, err := pcf.ParseReferenceImpactUnit(unitCode)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if methodCode == "" {
		methodCode = s.cfg.DefaultCalculationMethod
	}
	var method pcf.PcfCalculationMethod
	if methodCode != "" {
		method, err = pcf.ParsePcfCalculationMethod(methodCode)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return unit, method, nil
}

// ensureSupplier creates the supplier row on first use. Suppliers are managed
// by the identity provider; the token only carries the id.
func (s *ProductService) ensureSupplier(ctx context.Context, id string) error {
	if id == "" {
		return ErrForbidden
	}
	_, err := s.suppliers.FindByID(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return s.suppliers.Create(ctx, &entity.Supplier{ID: id, Name: id})
}
