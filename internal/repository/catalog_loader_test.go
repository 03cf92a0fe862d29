package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/pcf"
	"github.com/bitfantasy/nimo-pcf/internal/testutil"
)

func TestCatalogLoaderRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedRoundTrip(t, db)
	testutil.SeedSharingRequest(t, db, "req-1", "processor", "x", entity.SharingStatusAccepted)
	loader := NewCatalogLoader(db, testutil.BootstrapSupplierID)

	c, err := loader.Load(context.Background(), "phone")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Graph().Len() != 1 {
		t.Fatalf("expected 1 edge, got %d", c.Graph().Len())
	}
	if got := c.SharingStatus("processor", "x"); got != pcf.SharingAccepted {
		t.Fatalf("sharing status = %s", got)
	}
	if len(c.Emissions("processor")) != 1 {
		t.Fatalf("expected processor emission to be loaded")
	}

	processor, err := c.ProductTrace("processor")
	if err != nil {
		t.Fatalf("processor trace: %v", err)
	}
	if got := processor.EmissionsSubtotal[pcf.StageA1].NonBiogenic; got != 0.1 {
		t.Fatalf("processor A1 = %v, want 0.1", got)
	}

	phone, err := c.ProductTrace("phone")
	if err != nil {
		t.Fatalf("phone trace: %v", err)
	}
	if got := phone.EmissionsSubtotal[pcf.StageA1].NonBiogenic; got != 0.2 {
		t.Fatalf("phone A1 = %v, want 0.2", got)
	}
	if len(phone.Children) != 1 || len(phone.Children[0].Trace.Children) != 0 {
		t.Fatalf("expected processor to be truncated under phone")
	}
}

func TestCatalogLoaderWithoutSharingRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedRoundTrip(t, db)
	loader := NewCatalogLoader(db, testutil.BootstrapSupplierID)

	c, err := loader.Load(context.Background(), "phone")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	phone, err := c.ProductTrace("phone")
	if err != nil {
		t.Fatalf("phone trace: %v", err)
	}
	if phone.Total() != 0 {
		t.Fatalf("phone total = %v, want 0", phone.Total())
	}
	child := phone.Children[0].Trace
	if len(child.Mentions) != 1 || child.Mentions[0].Severity != pcf.SeverityError {
		t.Fatalf("expected a single error mention, got %+v", child.Mentions)
	}
}

func TestCatalogLoaderUnknownProduct(t *testing.T) {
	loader := NewCatalogLoader(testutil.SetupTestDB(t), testutil.BootstrapSupplierID)
	if _, err := loader.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCatalogLoaderScopeOnlyLoadsRootEmissions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedRoundTrip(t, db)
	loader := NewCatalogLoader(db, testutil.BootstrapSupplierID)

	c, err := loader.LoadScope(context.Background(), "phone")
	if err != nil {
		t.Fatalf("LoadScope: %v", err)
	}
	if len(c.Emissions("processor")) != 0 {
		t.Fatal("scope load should not read emissions of line item products")
	}
	if _, ok := c.Graph().LineItem("li-phone-processor"); !ok {
		t.Fatal("expected direct line item in scope")
	}
}

func TestToPCFEmissionRejectsUnknownKind(t *testing.T) {
	_, err := ToPCFEmission(entity.Emission{ID: "e", Kind: "magic"})
	if !errors.Is(err, pcf.ErrUnsupportedEmissionKind) {
		t.Fatalf("err = %v", err)
	}
}
