package pcf

import "fmt"

// Supplier is a tenant.
type Supplier struct {
	ID   string
	Name string
}

// DisplayName falls back to the id when the supplier has no name.
func (s Supplier) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Product 产品节点
type Product struct {
	ID                   string
	Name                 string
	SupplierID           string
	IsPublic             bool
	ReferenceImpactUnit  ReferenceImpactUnit
	PcfCalculationMethod PcfCalculationMethod
	// Overrides replace the whole product trace, children included.
	Overrides []OverrideFactor
}

type sharingKey struct {
	productID            string
	requestingSupplierID string
}

// Catalog holds everything the aggregator reads: products, their emissions,
// reference tables, the BOM graph and sharing request states. It is filled
// once per request by the persistence layer and only read afterwards.
type Catalog struct {
	// BootstrapSupplierID is the synthetic supplier that owns curated
	// reference products.
	BootstrapSupplierID string

	suppliers          map[string]Supplier
	products           map[string]*Product
	references         map[string]*ReferenceTable
	emissions          map[string]*Emission
	emissionsByProduct map[string][]*Emission
	sharing            map[sharingKey]SharingStatus
	graph              *BOMGraph
}

func NewCatalog(bootstrapSupplierID string) *Catalog {
	return &Catalog{
		BootstrapSupplierID: bootstrapSupplierID,
		suppliers:           make(map[string]Supplier),
		products:            make(map[string]*Product),
		references:          make(map[string]*ReferenceTable),
		emissions:           make(map[string]*Emission),
		emissionsByProduct:  make(map[string][]*Emission),
		sharing:             make(map[sharingKey]SharingStatus),
		graph:               NewBOMGraph(),
	}
}

func (c *Catalog) AddSupplier(s Supplier) {
	c.suppliers[s.ID] = s
}

func (c *Catalog) AddProduct(p Product) error {
	if _, ok := c.suppliers[p.SupplierID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSupplier, p.SupplierID)
	}
	for _, row := range p.Overrides {
		if !row.Stage.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidLifecycleStage, row.Stage)
		}
	}
	c.products[p.ID] = &p
	return nil
}

func (c *Catalog) AddReference(r ReferenceTable) error {
	for stage := range r.Factors {
		if !stage.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidLifecycleStage, stage)
		}
	}
	if r.Factors == nil {
		r.Factors = map[LifecycleStage]EmissionFactor{}
	}
	c.references[r.ID] = &r
	return nil
}

// AddLineItem inserts a BOM edge through the cycle guard.
func (c *Catalog) AddLineItem(li LineItem) error {
	if _, ok := c.products[li.ParentID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, li.ParentID)
	}
	if _, ok := c.products[li.ChildID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, li.ChildID)
	}
	return c.graph.AddLineItem(li)
}

// AddEmission validates and stores an emission. Line items it links to must
// already be present.
func (c *Catalog) AddEmission(e Emission) error {
	if err := e.validate(c); err != nil {
		return err
	}
	stored := &e
	c.emissions[e.ID] = stored
	c.emissionsByProduct[e.ProductID] = append(c.emissionsByProduct[e.ProductID], stored)
	return nil
}

// SetSharingStatus records the state of the request of requestingSupplierID
// for productID.
func (c *Catalog) SetSharingStatus(productID, requestingSupplierID string, status SharingStatus) {
	c.sharing[sharingKey{productID, requestingSupplierID}] = status
}

// SharingStatus synthesises NotRequested when no request is stored.
func (c *Catalog) SharingStatus(productID, requestingSupplierID string) SharingStatus {
	if s, ok := c.sharing[sharingKey{productID, requestingSupplierID}]; ok {
		return s
	}
	return SharingNotRequested
}

func (c *Catalog) Product(id string) (*Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

func (c *Catalog) Supplier(id string) Supplier {
	if s, ok := c.suppliers[id]; ok {
		return s
	}
	return Supplier{ID: id}
}

func (c *Catalog) Reference(id string) (*ReferenceTable, bool) {
	r, ok := c.references[id]
	return r, ok
}

func (c *Catalog) Emission(id string) (*Emission, bool) {
	e, ok := c.emissions[id]
	return e, ok
}

// Emissions returns the emissions owned by a product in insertion order.
func (c *Catalog) Emissions(productID string) []*Emission {
	return c.emissionsByProduct[productID]
}

func (c *Catalog) LineItems(productID string) []*LineItem {
	return c.graph.LineItems(productID)
}

func (c *Catalog) Graph() *BOMGraph {
	return c.graph
}
