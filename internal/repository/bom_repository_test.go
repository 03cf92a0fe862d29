package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/pcf"
	"github.com/bitfantasy/nimo-pcf/internal/testutil"
)

func seedChain(t *testing.T, repo *BOMRepository) {
	t.Helper()
	db := repo.db
	testutil.SeedSupplier(t, db, "acme", "ACME")
	for _, id := range []string{"a", "b", "c", "d"} {
		testutil.SeedProduct(t, db, id, "Product "+id, "acme", false)
	}
	// a -> b -> c
	ctx := context.Background()
	for _, e := range [][2]string{{"a", "b"}, {"b", "c"}} {
		if err := repo.Create(ctx, &entity.ProductBOMLineItem{ParentProductID: e[0], LineItemProductID: e[1], Quantity: 1}); err != nil {
			t.Fatalf("seed %s -> %s: %v", e[0], e[1], err)
		}
	}
}

func TestBOMRepositoryCreateGuardsGraph(t *testing.T) {
	repo := NewBOMRepository(testutil.SetupTestDB(t))
	seedChain(t, repo)
	ctx := context.Background()

	tests := []struct {
		name     string
		parent   string
		child    string
		quantity float64
		wantErr  error
	}{
		{"closing a cycle", "c", "a", 1, pcf.ErrCycle},
		{"direct back edge", "b", "a", 1, pcf.ErrCycle},
		{"self reference", "d", "d", 1, pcf.ErrSelfReference},
		{"duplicate", "a", "b", 3, pcf.ErrDuplicateEdge},
		{"negative quantity", "a", "d", -1, pcf.ErrNegativeQuantity},
		{"unknown child", "a", "missing", 1, pcf.ErrUnknownProduct},
		{"diamond is legal", "a", "c", 2, nil},
		{"zero quantity is legal", "d", "a", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &entity.ProductBOMLineItem{ParentProductID: tt.parent, LineItemProductID: tt.child, Quantity: tt.quantity}
			err := repo.Create(ctx, item)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if item.ID == "" {
					t.Fatal("expected an id to be assigned")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBOMRepositoryRejectedEdgeIsNotStored(t *testing.T) {
	repo := NewBOMRepository(testutil.SetupTestDB(t))
	seedChain(t, repo)
	ctx := context.Background()

	if err := repo.Create(ctx, &entity.ProductBOMLineItem{ParentProductID: "c", LineItemProductID: "a", Quantity: 1}); err == nil {
		t.Fatal("expected cycle error")
	}
	items, err := repo.ListByParent(ctx, "c")
	if err != nil {
		t.Fatalf("ListByParent: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no line items under c, got %d", len(items))
	}
}

func TestBOMRepositoryUpdateAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewBOMRepository(db)
	seedChain(t, repo)
	ctx := context.Background()

	items, err := repo.ListByParent(ctx, "a")
	if err != nil || len(items) != 1 {
		t.Fatalf("ListByParent: %v (%d items)", err, len(items))
	}
	id := items[0].ID
	if items[0].LineItemProduct == nil || items[0].LineItemProduct.ID != "b" {
		t.Fatalf("expected line item product to be preloaded, got %+v", items[0].LineItemProduct)
	}

	if err := repo.UpdateQuantity(ctx, id, -2); !errors.Is(err, pcf.ErrNegativeQuantity) {
		t.Fatalf("negative quantity: err = %v", err)
	}
	if err := repo.UpdateQuantity(ctx, id, 4); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	item, err := repo.FindByID(ctx, id)
	if err != nil || item.Quantity != 4 {
		t.Fatalf("FindByID: %v, quantity %v", err, item.Quantity)
	}
	if err := repo.UpdateQuantity(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing line item: err = %v", err)
	}

	if err := db.Create(&entity.EmissionLineItem{EmissionID: "em-1", LineItemID: id}).Error; err != nil {
		t.Fatalf("seed link: %v", err)
	}
	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var links int64
	db.Model(&entity.EmissionLineItem{}).Where("line_item_id = ?", id).Count(&links)
	if links != 0 {
		t.Fatalf("expected emission links to be removed, got %d", links)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
}
