package pcf

import "fmt"

const methodologySumUp = "Sum up all the product-level emissions and its line items' emissions."

// GateHook observes every visibility decision taken during an aggregation.
type GateHook func(item *LineItem, d GateDecision)

// Aggregator builds product emission traces from a Catalog.
type Aggregator struct {
	catalog *Catalog
	onGate  GateHook
}

type AggregatorOption func(*Aggregator)

// WithGateHook registers a callback for visibility decisions.
func WithGateHook(fn GateHook) AggregatorOption {
	return func(a *Aggregator) { a.onGate = fn }
}

func NewAggregator(c *Catalog, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{catalog: c}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// aggregation is the state of one ProductTrace call. Traces are immutable, so
// a product reached twice through a diamond is computed once per call.
type aggregation struct {
	*Aggregator
	done     map[string]*EmissionTrace
	visiting map[string]bool
}

// ProductTrace returns the emission trace of a product: its own emissions and
// its gated line items summed per lifecycle stage, replaced by product level
// overrides when present.
func (a *Aggregator) ProductTrace(productID string) (*EmissionTrace, error) {
	run := &aggregation{
		Aggregator: a,
		done:       make(map[string]*EmissionTrace),
		visiting:   make(map[string]bool),
	}
	return run.product(productID)
}

// TraceFor returns the product trace as seen by viewerSupplierID. The owner
// gets the full tree; any other supplier gets the root without its children,
// the same view an accepted sharing request grants on a line item.
func (a *Aggregator) TraceFor(productID, viewerSupplierID string) (*EmissionTrace, error) {
	t, err := a.ProductTrace(productID)
	if err != nil {
		return nil, err
	}
	p := a.catalog.products[productID]
	owner := a.catalog.Supplier(p.SupplierID)
	d := DecideVisibility(owner, a.catalog.Supplier(viewerSupplierID), SharingAccepted, a.catalog.BootstrapSupplierID)
	return gate(t, d), nil
}

// ProductTrace is shorthand for NewAggregator(c).ProductTrace(productID).
func (c *Catalog) ProductTrace(productID string) (*EmissionTrace, error) {
	return NewAggregator(c).ProductTrace(productID)
}

func (r *aggregation) product(productID string) (*EmissionTrace, error) {
	if t, ok := r.done[productID]; ok {
		return t, nil
	}
	p, ok := r.catalog.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	// The cycle guard keeps stored graphs acyclic; this only protects against
	// catalogs assembled without it.
	if r.visiting[productID] {
		return nil, &CycleError{ParentID: productID, ChildID: productID}
	}
	r.visiting[productID] = true
	defer delete(r.visiting, productID)

	root := newTrace("Product: "+p.Name, methodologySumUp, p.ReferenceImpactUnit, p.PcfCalculationMethod, SourceRef{
		Kind: SourceProduct,
		ID:   p.ID,
		Name: p.Name,
	})

	for _, e := range r.catalog.emissionsByProduct[productID] {
		t, err := e.ComputeOwnTrace(r.catalog)
		if err != nil {
			return nil, fmt.Errorf("emission %s of product %s: %w", e.ID, p.Name, err)
		}
		// the emission quantity is already applied inside its own trace
		root.Children = append(root.Children, TraceChild{Trace: t, Quantity: 1})
	}

	for _, li := range r.catalog.graph.LineItems(productID) {
		t, err := r.lineItem(p, li)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, TraceChild{Trace: t, Quantity: li.Quantity})
	}

	root.EmissionsSubtotal = SumUp(root.Children)

	curated := r.catalog.BootstrapSupplierID != "" && p.SupplierID == r.catalog.BootstrapSupplierID
	root = ApplyOverride(root, p.Overrides, curated)

	r.done[productID] = root
	return root, nil
}

// lineItem resolves a line item through the visibility gate.
func (r *aggregation) lineItem(parent *Product, li *LineItem) (*EmissionTrace, error) {
	child, ok := r.catalog.products[li.ChildID]
	if !ok {
		return nil, fmt.Errorf("line item %s: %w: %s", li.ID, ErrUnknownProduct, li.ChildID)
	}

	requester := r.catalog.Supplier(parent.SupplierID)
	owner := r.catalog.Supplier(child.SupplierID)
	status := SharingAccepted
	if owner.ID != requester.ID {
		status = r.catalog.SharingStatus(child.ID, requester.ID)
	}
	d := DecideVisibility(owner, requester, status, r.catalog.BootstrapSupplierID)
	if r.onGate != nil {
		r.onGate(li, d)
	}

	if d.Visibility == VisibilityDenied {
		t := newTrace("Product: "+child.Name, "", child.ReferenceImpactUnit, child.PcfCalculationMethod, SourceRef{
			Kind: SourceProduct,
			ID:   child.ID,
			Name: child.Name,
		})
		t.Mentions = append(t.Mentions, *d.Mention)
		return t, nil
	}

	t, err := r.product(child.ID)
	if err != nil {
		return nil, err
	}
	return gate(t, d), nil
}

// gate applies a non-denying decision to a computed trace.
func gate(t *EmissionTrace, d GateDecision) *EmissionTrace {
	if d.Visibility == VisibilityFull {
		return t
	}
	truncated := t.clone()
	truncated.Children = []TraceChild{}
	if d.Mention != nil {
		truncated.Mentions = append(truncated.Mentions, *d.Mention)
	}
	return truncated
}
