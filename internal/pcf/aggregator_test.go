package pcf

import (
	"errors"
	"testing"
)

const testBootstrap = "bootstrap"

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog(testBootstrap)
	c.AddSupplier(Supplier{ID: testBootstrap, Name: "Reference data"})
	c.AddSupplier(Supplier{ID: "x", Name: "Supplier X"})
	c.AddSupplier(Supplier{ID: "y", Name: "Supplier Y"})
	return c
}

func mustProduct(t *testing.T, c *Catalog, p Product) {
	t.Helper()
	if p.ReferenceImpactUnit == "" {
		p.ReferenceImpactUnit = UnitPiece
	}
	if err := c.AddProduct(p); err != nil {
		t.Fatalf("add product %s: %v", p.ID, err)
	}
}

func mustLineItem(t *testing.T, c *Catalog, li LineItem) {
	t.Helper()
	if err := c.AddLineItem(li); err != nil {
		t.Fatalf("add line item %s->%s: %v", li.ParentID, li.ChildID, err)
	}
}

func mustEmission(t *testing.T, c *Catalog, e Emission) {
	t.Helper()
	if err := c.AddEmission(e); err != nil {
		t.Fatalf("add emission %s: %v", e.ID, err)
	}
}

func mustReference(t *testing.T, c *Catalog, r ReferenceTable) {
	t.Helper()
	if err := c.AddReference(r); err != nil {
		t.Fatalf("add reference %s: %v", r.ID, err)
	}
}

func seedProcessorPhone(t *testing.T) *Catalog {
	t.Helper()
	c := newTestCatalog(t)
	mustReference(t, c, ReferenceTable{
		ID: "silicon", Name: "Silicon", Kind: ReferenceMaterial,
		Factors: map[LifecycleStage]EmissionFactor{StageA1: Scalar(0.2)},
	})
	mustProduct(t, c, Product{ID: "processor", Name: "Processor", SupplierID: "x"})
	mustProduct(t, c, Product{ID: "phone", Name: "Phone", SupplierID: "x"})
	mustEmission(t, c, Emission{
		ID: "e1", ProductID: "processor",
		Variant: Material{Weight: 0.5, ReferenceTableID: "silicon"},
	})
	mustLineItem(t, c, LineItem{ID: "li1", ParentID: "phone", ChildID: "processor", Quantity: 2})
	return c
}

func TestRoundTripScenario(t *testing.T) {
	c := seedProcessorPhone(t)

	e, _ := c.Emission("e1")
	own, err := e.ComputeOwnTrace(c)
	if err != nil {
		t.Fatal(err)
	}
	if got := own.EmissionsSubtotal[StageA1]; got != Scalar(0.1) {
		t.Fatalf("processor emission A1 = %+v, want 0.1", got)
	}
	if own.Methodology != "0.5kg * Silicon" {
		t.Errorf("methodology = %q", own.Methodology)
	}

	phone, err := c.ProductTrace("phone")
	if err != nil {
		t.Fatal(err)
	}
	if got := phone.EmissionsSubtotal[StageA1]; got != Scalar(0.2) {
		t.Fatalf("phone A1 = %+v, want 0.2", got)
	}
	if phone.Total() != 0.2 {
		t.Errorf("phone total = %v", phone.Total())
	}
	if phone.Label != "Product: Phone" || phone.Methodology != methodologySumUp {
		t.Errorf("root = %q / %q", phone.Label, phone.Methodology)
	}
	if len(phone.Children) != 1 || phone.Children[0].Quantity != 2 {
		t.Fatalf("children = %+v", phone.Children)
	}
	processor := phone.Children[0].Trace
	if len(processor.Children) != 1 || processor.Children[0].Quantity != 1 {
		t.Fatalf("processor children = %+v", processor.Children)
	}
}

func TestCrossTenantWithoutRequest(t *testing.T) {
	c := newTestCatalog(t)
	mustReference(t, c, ReferenceTable{
		ID: "alu", Name: "Aluminium", Kind: ReferenceMaterial,
		Factors: map[LifecycleStage]EmissionFactor{StageA1: Scalar(8)},
	})
	mustProduct(t, c, Product{ID: "frame", Name: "Frame", SupplierID: "y"})
	mustProduct(t, c, Product{ID: "bike", Name: "Bike", SupplierID: "x"})
	mustEmission(t, c, Emission{ID: "e1", ProductID: "frame", Variant: Material{Weight: 3, ReferenceTableID: "alu"}})
	mustLineItem(t, c, LineItem{ID: "li1", ParentID: "bike", ChildID: "frame", Quantity: 1})

	var decisions []GateDecision
	agg := NewAggregator(c, WithGateHook(func(_ *LineItem, d GateDecision) {
		decisions = append(decisions, d)
	}))
	bike, err := agg.ProductTrace("bike")
	if err != nil {
		t.Fatal(err)
	}
	if len(bike.Children) != 1 {
		t.Fatalf("children = %+v", bike.Children)
	}
	frame := bike.Children[0].Trace
	if len(frame.EmissionsSubtotal) != 0 || len(frame.Children) != 0 {
		t.Errorf("denied child leaked data: %+v", frame)
	}
	if len(frame.Mentions) != 1 || frame.Mentions[0].Severity != SeverityError {
		t.Fatalf("mentions = %+v", frame.Mentions)
	}
	if frame.Label != "Product: Frame" {
		t.Errorf("label = %q", frame.Label)
	}
	if bike.Total() != 0 {
		t.Errorf("bike total = %v, want 0", bike.Total())
	}
	if len(decisions) != 1 || decisions[0].Visibility != VisibilityDenied {
		t.Errorf("gate decisions = %+v", decisions)
	}

	// the owner still sees everything
	own, err := c.ProductTrace("frame")
	if err != nil {
		t.Fatal(err)
	}
	if own.Total() != 24 {
		t.Errorf("frame total = %v", own.Total())
	}
}

func TestCrossTenantAcceptedIsTruncated(t *testing.T) {
	c := newTestCatalog(t)
	mustReference(t, c, ReferenceTable{
		ID: "alu", Name: "Aluminium", Kind: ReferenceMaterial,
		Factors: map[LifecycleStage]EmissionFactor{StageA1: Scalar(8)},
	})
	mustProduct(t, c, Product{ID: "frame", Name: "Frame", SupplierID: "y"})
	mustProduct(t, c, Product{ID: "bike", Name: "Bike", SupplierID: "x"})
	mustEmission(t, c, Emission{ID: "e1", ProductID: "frame", Variant: Material{Weight: 1, ReferenceTableID: "alu"}})
	mustLineItem(t, c, LineItem{ID: "li1", ParentID: "bike", ChildID: "frame", Quantity: 2})
	c.SetSharingStatus("frame", "x", SharingAccepted)

	bike, err := c.ProductTrace("bike")
	if err != nil {
		t.Fatal(err)
	}
	frame := bike.Children[0].Trace
	if len(frame.Children) != 0 {
		t.Error("grandchildren must not cross the supplier boundary")
	}
	if frame.EmissionsSubtotal[StageA1] != Scalar(8) {
		t.Errorf("frame A1 = %+v", frame.EmissionsSubtotal[StageA1])
	}
	last := frame.Mentions[len(frame.Mentions)-1]
	if last.Severity != SeverityInformation || last.Message != "Further emission trace details are hidden to protect Supplier Y's confidentiality." {
		t.Errorf("mention = %+v", last)
	}
	if bike.EmissionsSubtotal[StageA1] != Scalar(16) {
		t.Errorf("bike A1 = %+v", bike.EmissionsSubtotal[StageA1])
	}
}

func TestProductOverrideScenario(t *testing.T) {
	c := newTestCatalog(t)
	mustReference(t, c, ReferenceTable{
		ID: "steel", Name: "Steel", Kind: ReferenceMaterial,
		Factors: map[LifecycleStage]EmissionFactor{StageA1: Scalar(2.5)},
	})
	mustProduct(t, c, Product{
		ID: "p", Name: "Pump", SupplierID: "x",
		Overrides: []OverrideFactor{{Stage: StageA1, Factor: Scalar(9)}},
	})
	mustEmission(t, c, Emission{ID: "e1", ProductID: "p", Variant: Material{Weight: 2, ReferenceTableID: "steel"}})

	tr, err := c.ProductTrace("p")
	if err != nil {
		t.Fatal(err)
	}
	if !tr.EmissionsSubtotal.Equal(Subtotal{StageA1: Scalar(9)}) {
		t.Errorf("subtotal = %v", tr.EmissionsSubtotal)
	}
	if len(tr.Children) != 0 {
		t.Errorf("children = %d, want 0", len(tr.Children))
	}
	if tr.Methodology != methodologyUserProvided || tr.Mentions[0].Severity != SeverityWarning {
		t.Errorf("override not flagged: %q %+v", tr.Methodology, tr.Mentions)
	}
}

func TestBootstrapProductOverrideIsCurated(t *testing.T) {
	c := newTestCatalog(t)
	mustProduct(t, c, Product{
		ID: "ref-chip", Name: "Generic chip", SupplierID: testBootstrap,
		Overrides: []OverrideFactor{{Stage: StageA1A3, Factor: Scalar(3)}},
	})
	tr, err := c.ProductTrace("ref-chip")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Methodology != methodologyDatabaseLookup {
		t.Errorf("methodology = %q", tr.Methodology)
	}
	if len(tr.Mentions) != 1 || tr.Mentions[0].Severity != SeverityInformation {
		t.Errorf("mentions = %+v", tr.Mentions)
	}
}

func TestEmissionOverrideAndLinkedLineItem(t *testing.T) {
	c := seedProcessorPhone(t)
	mustEmission(t, c, Emission{
		ID: "assembly", ProductID: "phone",
		Variant:     ProductionEnergy{EnergyConsumption: 10},
		Overrides:   []OverrideFactor{{Stage: StageA3, Factor: Scalar(1.5)}},
		LineItemIDs: []string{"li1"},
	})

	phone, err := c.ProductTrace("phone")
	if err != nil {
		t.Fatal(err)
	}
	// emission first, then the line item
	own := phone.Children[0].Trace
	if !own.EmissionsSubtotal.Equal(Subtotal{StageA3: Scalar(1.5)}) {
		t.Errorf("emission subtotal = %v", own.EmissionsSubtotal)
	}
	if len(own.Mentions) != 2 || own.Mentions[1].Message != "Used by Processor" {
		t.Errorf("mentions = %+v", own.Mentions)
	}
	want := Subtotal{StageA1: Scalar(0.2), StageA3: Scalar(1.5)}
	if !phone.EmissionsSubtotal.Equal(want) {
		t.Errorf("phone subtotal = %v, want %v", phone.EmissionsSubtotal, want)
	}
}

func TestEnergyWithoutReferenceWarns(t *testing.T) {
	c := newTestCatalog(t)
	mustProduct(t, c, Product{ID: "p", Name: "Kettle", SupplierID: "x"})
	mustEmission(t, c, Emission{ID: "e1", ProductID: "p", Variant: UserEnergy{EnergyConsumption: 120}})

	e, _ := c.Emission("e1")
	tr, err := e.ComputeOwnTrace(c)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Total() != 0 {
		t.Errorf("total = %v", tr.Total())
	}
	if tr.Label != labelUserEnergy {
		t.Errorf("label = %q", tr.Label)
	}
	if len(tr.Mentions) != 1 || tr.Mentions[0].Severity != SeverityWarning {
		t.Errorf("reference-less energy must be flagged: %+v", tr.Mentions)
	}
}

func TestZeroQuantityKeepsStages(t *testing.T) {
	c := seedProcessorPhone(t)
	if err := c.Graph().SetQuantity("li1", 0); err != nil {
		t.Fatal(err)
	}
	phone, err := c.ProductTrace("phone")
	if err != nil {
		t.Fatal(err)
	}
	got, ok := phone.EmissionsSubtotal[StageA1]
	if !ok || got != (EmissionFactor{}) {
		t.Errorf("zero quantity should yield a zero A1 entry, got %v", phone.EmissionsSubtotal)
	}
}

func TestDiamondIsCountedPerPath(t *testing.T) {
	c := newTestCatalog(t)
	mustReference(t, c, ReferenceTable{
		ID: "cu", Name: "Copper", Kind: ReferenceMaterial,
		Factors: map[LifecycleStage]EmissionFactor{StageA1: Scalar(1)},
	})
	for _, id := range []string{"P", "A", "B", "C"} {
		mustProduct(t, c, Product{ID: id, Name: id, SupplierID: "x"})
	}
	mustEmission(t, c, Emission{ID: "e", ProductID: "C", Variant: Material{Weight: 1, ReferenceTableID: "cu"}})
	mustLineItem(t, c, LineItem{ParentID: "P", ChildID: "A", Quantity: 1})
	mustLineItem(t, c, LineItem{ParentID: "P", ChildID: "B", Quantity: 1})
	mustLineItem(t, c, LineItem{ParentID: "A", ChildID: "C", Quantity: 2})
	mustLineItem(t, c, LineItem{ParentID: "B", ChildID: "C", Quantity: 3})

	p, err := c.ProductTrace("P")
	if err != nil {
		t.Fatal(err)
	}
	if p.EmissionsSubtotal[StageA1] != Scalar(5) {
		t.Errorf("P A1 = %+v, want 5", p.EmissionsSubtotal[StageA1])
	}
}

func TestCatalogValidatesEmissions(t *testing.T) {
	c := seedProcessorPhone(t)
	mustReference(t, c, ReferenceTable{ID: "truck", Name: "Truck", Kind: ReferenceTransport})

	tests := []struct {
		name string
		e    Emission
		want error
	}{
		{"material without reference", Emission{ID: "m", ProductID: "phone", Variant: Material{Weight: 1}}, ErrMissingReference},
		{"transport without reference", Emission{ID: "t", ProductID: "phone", Variant: Transport{Weight: 1, Distance: 1}}, ErrMissingReference},
		{"unknown reference", Emission{ID: "u", ProductID: "phone", Variant: Material{Weight: 1, ReferenceTableID: "nope"}}, ErrUnknownReference},
		{"wrong reference kind", Emission{ID: "k", ProductID: "phone", Variant: Material{Weight: 1, ReferenceTableID: "truck"}}, ErrReferenceKindMismatch},
		{"negative weight", Emission{ID: "n", ProductID: "phone", Variant: Material{Weight: -1, ReferenceTableID: "silicon"}}, ErrNegativeQuantity},
		{"unknown product", Emission{ID: "p", ProductID: "nope", Variant: EndOfLife{}}, ErrUnknownProduct},
		{"foreign line item", Emission{ID: "f", ProductID: "processor", Variant: EndOfLife{}, LineItemIDs: []string{"li1"}}, ErrForeignLineItem},
		{"bad override stage", Emission{ID: "s", ProductID: "phone", Variant: EndOfLife{}, Overrides: []OverrideFactor{{Stage: "Q1"}}}, ErrInvalidLifecycleStage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.AddEmission(tt.e); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTransportScalesByTonneKilometres(t *testing.T) {
	c := newTestCatalog(t)
	mustReference(t, c, ReferenceTable{
		ID: "truck", Name: "Truck", Kind: ReferenceTransport,
		Factors: map[LifecycleStage]EmissionFactor{StageA4: Scalar(0.1)},
	})
	mustProduct(t, c, Product{ID: "p", Name: "Pallet", SupplierID: "x"})
	mustEmission(t, c, Emission{ID: "e", ProductID: "p", Variant: Transport{Weight: 2, Distance: 50, ReferenceTableID: "truck"}})

	e, _ := c.Emission("e")
	tr, err := e.ComputeOwnTrace(c)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Total() != 10 {
		t.Errorf("total = %v, want 10", tr.Total())
	}
	if tr.Methodology != "2t * 50km * Truck" || tr.ReferenceImpactUnit != UnitTonneKm {
		t.Errorf("methodology = %q unit = %s", tr.Methodology, tr.ReferenceImpactUnit)
	}
}

func TestTraceForForeignViewerIsTruncated(t *testing.T) {
	c := seedProcessorPhone(t)
	agg := NewAggregator(c)

	own, err := agg.TraceFor("phone", "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(own.Children) != 1 {
		t.Fatalf("owner should see children, got %d", len(own.Children))
	}

	foreign, err := agg.TraceFor("phone", "y")
	if err != nil {
		t.Fatal(err)
	}
	if len(foreign.Children) != 0 {
		t.Errorf("foreign viewer must not see children")
	}
	if !foreign.EmissionsSubtotal.Equal(own.EmissionsSubtotal) {
		t.Errorf("subtotal differs: %v vs %v", foreign.EmissionsSubtotal, own.EmissionsSubtotal)
	}
	if n := len(foreign.Mentions); n == 0 || foreign.Mentions[n-1].Severity != SeverityInformation {
		t.Errorf("mentions = %+v", foreign.Mentions)
	}
	if len(own.Mentions) != 0 {
		t.Errorf("truncating must not touch the owner's trace: %+v", own.Mentions)
	}
}

func TestUnknownProduct(t *testing.T) {
	c := newTestCatalog(t)
	if _, err := c.ProductTrace("nope"); !errors.Is(err, ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}
}
