package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bitfantasy/nimo-pcf/internal/testutil"
)

func TestTraceXLSXOneRowPerNode(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedRoundTrip(t, env.db)
	ctx := context.Background()

	f, filename, err := env.svc.Export.TraceXLSX(ctx, callerY, "processor")
	if err != nil {
		t.Fatalf("TraceXLSX: %v", err)
	}
	defer f.Close()
	if !strings.HasPrefix(filename, "PCF_Processor_") || !strings.HasSuffix(filename, ".xlsx") {
		t.Fatalf("filename = %s", filename)
	}

	rows, err := f.GetRows("PCF")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	// header + product + emission + reference
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[1][1] != "Product: Processor" {
		t.Fatalf("root label = %q", rows[1][1])
	}
	if !strings.HasPrefix(rows[2][1], "  ") || !strings.HasPrefix(rows[3][1], "    ") {
		t.Fatalf("expected depth indentation, got %q / %q", rows[2][1], rows[3][1])
	}

	if _, _, err := env.svc.Export.TraceXLSX(ctx, callerX, "processor"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign export: err = %v", err)
	}
	if _, err := env.svc.Export.PublishTraceXLSX(ctx, callerY, "processor"); !errors.Is(err, ErrStorageNotConfigured) {
		t.Fatalf("publish without storage: err = %v", err)
	}
}

func TestTraceXLSXTotalsColumn(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedRoundTrip(t, env.db)

	trace, err := env.svc.Product.EmissionTrace(context.Background(), callerY, "processor")
	if err != nil {
		t.Fatalf("EmissionTrace: %v", err)
	}
	f, err := buildTraceWorkbook(trace)
	if err != nil {
		t.Fatalf("buildTraceWorkbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("PCF")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	total := -1
	for i, h := range rows[0] {
		if h == "合计" {
			total = i
		}
	}
	if total < 0 {
		t.Fatalf("no total column in %v", rows[0])
	}
	// product and emission carry 0.5 kg × 0.2, the reference row its per-kg factor
	want := []string{"0.1", "0.1", "0.2"}
	if len(rows) != len(want)+1 {
		t.Fatalf("got %d rows", len(rows))
	}
	for i, w := range want {
		row := rows[i+1]
		if len(row) <= total || row[total] != w {
			t.Fatalf("row %v: total cell want %s", row, w)
		}
	}
}
