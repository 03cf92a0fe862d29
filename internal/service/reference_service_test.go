package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"github.com/bitfantasy/nimo-pcf/internal/testutil"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

func TestReferenceImportCSVGBK(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	csvText := strings.Join([]string{
		"kind,name,unit,stage,biogenic,non_biogenic",
		"material,铝合金,kg,A1,0.1,2.5",
		"material,铝合金,kg,A3,0,0.3",
		"transport,卡车运输,,A4,0,0.09",
		"material,坏行,kg,Q7,0,1",
		"",
	}, "\n")
	var encoded bytes.Buffer
	w := transform.NewWriter(&encoded, simplifiedchinese.GBK.NewEncoder())
	if _, err := w.Write([]byte(csvText)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	w.Close()

	result, err := env.svc.Reference.ImportCSV(ctx, &encoded, "gbk")
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if result.Tables != 2 || result.Factors != 3 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}

	repo := repository.NewReferenceRepository(env.db)
	alu, err := repo.FindByKindAndName(ctx, "material", "铝合金")
	if err != nil {
		t.Fatalf("imported table not found: %v", err)
	}
	full, err := repo.FindByID(ctx, alu.ID)
	if err != nil || len(full.Factors) != 2 {
		t.Fatalf("factors: %v", err)
	}
	truck, err := repo.FindByKindAndName(ctx, "transport", "卡车运输")
	if err != nil || truck.Unit != "tkm" {
		t.Fatalf("transport table = %+v, %v", truck, err)
	}
}

func TestReferenceImportXLSXUpdatesExistingStage(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedReference(t, env.db, "ref-steel", "steel", "material", map[string][2]float64{"A1": {0, 1}})
	ctx := context.Background()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"kind", "name", "unit", "stage", "biogenic", "non_biogenic"},
		{"material", "steel", "kg", "A1", 0, 1.8},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	result, err := env.svc.Reference.ImportXLSX(ctx, f)
	if err != nil {
		t.Fatalf("ImportXLSX: %v", err)
	}
	if result.Tables != 0 || result.Factors != 1 {
		t.Fatalf("result = %+v", result)
	}
	table, err := env.svc.Reference.GetTable(ctx, "ref-steel")
	if err != nil || len(table.Factors) != 1 || table.Factors[0].NonBiogenic != 1.8 {
		t.Fatalf("table = %+v, %v", table, err)
	}
}

func TestReferenceTableCRUD(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedRoundTrip(t, env.db)
	ctx := context.Background()

	if _, err := env.svc.Reference.CreateTable(ctx, &CreateReferenceTableRequest{Name: "x", Kind: "plasma"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad kind: err = %v", err)
	}
	if _, err := env.svc.Reference.CreateTable(ctx, &CreateReferenceTableRequest{
		Name: "dup", Kind: "material",
		Factors: []FactorRow{{LifecycleStage: "A1"}, {LifecycleStage: "A1"}},
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("duplicate stage: err = %v", err)
	}

	table, err := env.svc.Reference.CreateTable(ctx, &CreateReferenceTableRequest{
		Name:    "copper",
		Kind:    "material",
		Factors: []FactorRow{{LifecycleStage: "A1", NonBiogenic: 3}},
	})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if table.Unit != "kg" || len(table.Factors) != 1 {
		t.Fatalf("table = %+v", table)
	}

	tables, err := env.svc.Reference.ListTables(ctx, "material")
	if err != nil || len(tables) != 2 {
		t.Fatalf("ListTables = %d, %v", len(tables), err)
	}

	table, err = env.svc.Reference.SetFactors(ctx, table.ID, []FactorRow{{LifecycleStage: "A1", NonBiogenic: 4}, {LifecycleStage: "A2", NonBiogenic: 1}})
	if err != nil || len(table.Factors) != 2 {
		t.Fatalf("SetFactors: %v", err)
	}

	removed, err := env.svc.Reference.DeleteTable(ctx, "ref-alu")
	if err != nil || removed != 1 {
		t.Fatalf("DeleteTable removed %d, %v", removed, err)
	}
	var count int64
	env.db.Model(&entity.Emission{}).Where("id = ?", "em-alu").Count(&count)
	if count != 0 {
		t.Fatal("emission referencing the deleted table should be removed")
	}
}

func TestReferenceImportRejectsNonFiniteFactors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	csvText := strings.Join([]string{
		"kind,name,unit,stage,biogenic,non_biogenic",
		"material,Steel,kg,A1,0,Inf",
		"material,Steel,kg,A3,NaN,0",
		"material,Copper,kg,A1,-Inf,1",
		"material,Steel,kg,A2,0,2",
	}, "\n")
	result, err := env.svc.Reference.ImportCSV(ctx, strings.NewReader(csvText), "")
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if result.Tables != 1 || result.Factors != 1 || result.Failed != 3 {
		t.Fatalf("result = %+v", result)
	}

	repo := repository.NewReferenceRepository(env.db)
	if _, err := repo.FindByKindAndName(ctx, "material", "Copper"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("table of a rejected row must not exist, err = %v", err)
	}
	steel, err := repo.FindByKindAndName(ctx, "material", "Steel")
	if err != nil {
		t.Fatalf("steel table: %v", err)
	}

	// the remaining factor still yields an encodable trace
	testutil.SeedSupplier(t, env.db, "x", "Supplier X")
	testutil.SeedProduct(t, env.db, "beam", "Beam", "x", false)
	testutil.SeedMaterialEmission(t, env.db, "em-steel", "beam", steel.ID, 1)
	trace, err := env.svc.Product.EmissionTrace(ctx, callerX, "beam")
	if err != nil {
		t.Fatalf("EmissionTrace: %v", err)
	}
	if trace.Total() != 2 {
		t.Fatalf("total = %v, want 2", trace.Total())
	}
	if _, err := json.Marshal(trace); err != nil {
		t.Fatalf("trace not encodable: %v", err)
	}
}

func TestCreateReferenceTableRejectsNonFiniteFactors(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Reference.CreateTable(context.Background(), &CreateReferenceTableRequest{
		Name:    "steel",
		Kind:    "material",
		Factors: []FactorRow{{LifecycleStage: "A1", NonBiogenic: math.Inf(1)}},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
