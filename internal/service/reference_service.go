package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/metrics"
	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/pcf"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

const referenceCachePrefix = "pcf:reference_tables:"

// ReferenceService 参考因子表服务
type ReferenceService struct {
	repo   *repository.ReferenceRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewReferenceService rdb 可为 nil，此时不缓存
func NewReferenceService(repo *repository.ReferenceRepository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *ReferenceService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ReferenceService{repo: repo, rdb: rdb, ttl: ttl, logger: logger.Named("reference")}
}

// FactorRow 参考因子输入行
type FactorRow struct {
	LifecycleStage string  `json:"lifecycle_stage" binding:"required"`
	Biogenic       float64 `json:"biogenic"`
	NonBiogenic    float64 `json:"non_biogenic"`
}

// CreateReferenceTableRequest 创建参考表请求
type CreateReferenceTableRequest struct {
	Name        string      `json:"name" binding:"required"`
	Kind        string      `json:"kind" binding:"required"`
	Unit        string      `json:"unit"`
	Description string      `json:"description"`
	Source      string      `json:"source"`
	Factors     []FactorRow `json:"factors"`
}

// SetFactorsRequest 替换因子行请求
type SetFactorsRequest struct {
	Factors []FactorRow `json:"factors"`
}

// ImportResult 导入结果
type ImportResult struct {
	Tables  int      `json:"tables"`
	Factors int      `json:"factors"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

func parseKindAndUnit(kindCode, unitCode string) (pcf.ReferenceKind, pcf.ReferenceImpactUnit, error) {
	kind := pcf.ReferenceKind(strings.TrimSpace(kindCode))
	if !kind.Valid() {
		return "", "", fmt.Errorf("%w: unknown reference kind %q", ErrInvalidInput, kindCode)
	}
	unitCode = strings.TrimSpace(unitCode)
	if unitCode == "" {
		return kind, kind.DefaultUnit(), nil
	}
	unit, err := pcf.ParseReferenceImpactUnit(unitCode)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return kind, unit, nil
}

// factorRows validates the stages. A stage may appear at most once per table.
func factorRows(rows []FactorRow) ([]entity.ReferenceFactor, error) {
	out := make([]entity.ReferenceFactor, 0, len(rows))
	seen := make(map[pcf.LifecycleStage]bool, len(rows))
	for _, row := range rows {
		stage, err := pcf.ParseLifecycleStage(row.LifecycleStage)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if seen[stage] {
			return nil, fmt.Errorf("%w: duplicate lifecycle stage %s", ErrInvalidInput, stage)
		}
		seen[stage] = true
		if err := checkFinite(row.Biogenic); err != nil {
			return nil, err
		}
		if err := checkFinite(row.NonBiogenic); err != nil {
			return nil, err
		}
		out = append(out, entity.ReferenceFactor{
			LifecycleStage: string(stage),
			Biogenic:       row.Biogenic,
			NonBiogenic:    row.NonBiogenic,
		})
	}
	return out, nil
}

// ListTables 参考表列表，优先读缓存
func (s *ReferenceService) ListTables(ctx context.Context, kind string) ([]entity.ReferenceTable, error) {
	key := referenceCachePrefix + kind
	if kind == "" {
		key = referenceCachePrefix + "all"
	}

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Result()
		switch {
		case err == nil:
			var tables []entity.ReferenceTable
			if jsonErr := json.Unmarshal([]byte(cached), &tables); jsonErr == nil {
				metrics.ReferenceCacheLookups.WithLabelValues("hit").Inc()
				return tables, nil
			}
			metrics.ReferenceCacheLookups.WithLabelValues("corrupt").Inc()
		case errors.Is(err, redis.Nil):
			metrics.ReferenceCacheLookups.WithLabelValues("miss").Inc()
		default:
			metrics.ReferenceCacheLookups.WithLabelValues("error").Inc()
			s.logger.Warn("reference cache read failed", zap.Error(err))
		}
	}

	tables, err := s.repo.FindAll(ctx, kind)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(tables); err == nil {
			if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
				s.logger.Warn("reference cache write failed", zap.Error(err))
			}
		}
	}
	return tables, nil
}

// invalidate drops every cached list; any write can change several of them.
func (s *ReferenceService) invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	keys := []string{referenceCachePrefix + "all"}
	for _, kind := range []pcf.ReferenceKind{
		pcf.ReferenceMaterial,
		pcf.ReferenceTransport,
		pcf.ReferenceProductionEnergy,
		pcf.ReferenceUserEnergy,
		pcf.ReferenceEndOfLife,
	} {
		keys = append(keys, referenceCachePrefix+string(kind))
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("reference cache invalidation failed", zap.Error(err))
	}
}

// GetTable 获取参考表
func (s *ReferenceService) GetTable(ctx context.Context, id string) (*entity.ReferenceTable, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateTable 创建参考表
func (s *ReferenceService) CreateTable(ctx context.Context, req *CreateReferenceTableRequest) (*entity.ReferenceTable, error) {
	kind, unit, err := parseKindAndUnit(req.Kind, req.Unit)
	if err != nil {
		return nil, err
	}
	factors, err := factorRows(req.Factors)
	if err != nil {
		return nil, err
	}

	table := &entity.ReferenceTable{
		Name:        req.Name,
		Kind:        string(kind),
		Unit:        string(unit),
		Description: req.Description,
		Source:      req.Source,
		Factors:     factors,
	}
	if err := s.repo.Create(ctx, table); err != nil {
		return nil, fmt.Errorf("create reference table: %w", err)
	}
	s.invalidate(ctx)
	s.logger.Info("reference table created", zap.String("id", table.ID), zap.String("kind", table.Kind))
	return s.repo.FindByID(ctx, table.ID)
}

// SetFactors 整体替换参考表的因子行
func (s *ReferenceService) SetFactors(ctx context.Context, id string, rows []FactorRow) (*entity.ReferenceTable, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	factors, err := factorRows(rows)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceFactors(ctx, id, factors); err != nil {
		return nil, fmt.Errorf("replace reference factors: %w", err)
	}
	s.invalidate(ctx)
	return s.repo.FindByID(ctx, id)
}

// DeleteTable 删除参考表，返回一并删除的排放记录数
func (s *ReferenceService) DeleteTable(ctx context.Context, id string) (int, error) {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	s.logger.Info("reference table deleted", zap.String("id", id), zap.Int("emissions_removed", removed))
	return removed, nil
}

// ImportXLSX 从Excel导入参考因子，读取第一个工作表
//
// Columns: kind, name, unit, lifecycle_stage, biogenic, non_biogenic. The
// first row is a header. Tables are matched by kind and name; rows for an
// existing stage overwrite it.
func (s *ReferenceService) ImportXLSX(ctx context.Context, f *excelize.File) (*ImportResult, error) {
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	return s.importRows(ctx, "xlsx", rows), nil
}

// ImportCSV 从CSV导入参考因子，encoding 为 gbk 时先转为 UTF-8
func (s *ReferenceService) ImportCSV(ctx context.Context, reader io.Reader, encoding string) (*ImportResult, error) {
	if strings.EqualFold(encoding, "gbk") {
		// GBK → UTF-8
		reader = transform.NewReader(reader, simplifiedchinese.GBK.NewDecoder())
	}
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %v", ErrInvalidInput, err)
	}
	return s.importRows(ctx, "csv", rows), nil
}

func (s *ReferenceService) importRows(ctx context.Context, format string, rows [][]string) *ImportResult {
	result := &ImportResult{}
	tables := make(map[string]*entity.ReferenceTable)

	for i, row := range rows {
		// 第一行是表头，跳过
		if i == 0 || isBlankRow(row) {
			continue
		}
		if err := s.importRow(ctx, row, tables, result); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			metrics.ReferenceRowsImported.WithLabelValues(format, "failed").Inc()
			continue
		}
		result.Factors++
		metrics.ReferenceRowsImported.WithLabelValues(format, "ok").Inc()
	}

	if result.Factors > 0 {
		s.invalidate(ctx)
	}
	s.logger.Info("reference import finished",
		zap.String("format", format),
		zap.Int("tables", result.Tables),
		zap.Int("factors", result.Factors),
		zap.Int("failed", result.Failed),
	)
	return result
}

func (s *ReferenceService) importRow(ctx context.Context, row []string, tables map[string]*entity.ReferenceTable, result *ImportResult) error {
	if len(row) < 5 {
		return fmt.Errorf("expected at least 5 columns, got %d", len(row))
	}
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	kind, unit, err := parseKindAndUnit(cell(0), cell(2))
	if err != nil {
		return err
	}
	name := cell(1)
	if name == "" {
		return errors.New("name is empty")
	}
	stage, err := pcf.ParseLifecycleStage(cell(3))
	if err != nil {
		return err
	}
	biogenic, err := parseNumber(cell(4))
	if err != nil {
		return fmt.Errorf("biogenic: %w", err)
	}
	nonBiogenic, err := parseNumber(cell(5))
	if err != nil {
		return fmt.Errorf("non_biogenic: %w", err)
	}

	factor := entity.ReferenceFactor{
		LifecycleStage: string(stage),
		Biogenic:       biogenic,
		NonBiogenic:    nonBiogenic,
	}

	key := string(kind) + "\x00" + name
	if table, ok := tables[key]; ok {
		factor.ReferenceTableID = table.ID
		return s.repo.UpsertFactor(ctx, &factor)
	}

	table, err := s.repo.FindByKindAndName(ctx, string(kind), name)
	if errors.Is(err, repository.ErrNotFound) {
		// 新表与首行因子一次写入，失败时不留下空表
		table = &entity.ReferenceTable{
			Name:    name,
			Kind:    string(kind),
			Unit:    string(unit),
			Source:  "import",
			Factors: []entity.ReferenceFactor{factor},
		}
		if err := s.repo.Create(ctx, table); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		result.Tables++
		tables[key] = table
		return nil
	}
	if err != nil {
		return err
	}
	tables[key] = table
	factor.ReferenceTableID = table.ID
	return s.repo.UpsertFactor(ctx, &factor)
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, err
	}
	if err := checkFinite(v); err != nil {
		return 0, err
	}
	return v, nil
}

// checkFinite 因子必须是有限数值，否则整条追溯链无法序列化
func checkFinite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: factor %v is not a finite number", ErrInvalidInput, v)
	}
	return nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
