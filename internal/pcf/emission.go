package pcf

import "fmt"

// EmissionKind 排放类型
type EmissionKind string

const (
	KindMaterial         EmissionKind = "material"
	KindTransport        EmissionKind = "transport"
	KindProductionEnergy EmissionKind = "production_energy"
	KindUserEnergy       EmissionKind = "user_energy"
	KindEndOfLife        EmissionKind = "end_of_life"
)

// Variant is the closed set of emission kinds. Each case carries its own
// scaling fields and an optional reference table id.
type Variant interface {
	Kind() EmissionKind
	// Scale is the factor applied to the reference trace.
	Scale() float64
	referenceTableID() string
}

// Material: weight in kg.
type Material struct {
	Weight           float64
	ReferenceTableID string
}

// Transport: weight in tonnes over distance in km, scaled as tonne-kilometres.
type Transport struct {
	Weight           float64
	Distance         float64
	ReferenceTableID string
}

// ProductionEnergy: energy consumed to produce the product, in kWh. The
// reference is optional.
type ProductionEnergy struct {
	EnergyConsumption float64
	ReferenceTableID  string
}

// UserEnergy: energy consumed during use, in kWh. The reference is optional.
type UserEnergy struct {
	EnergyConsumption float64
	ReferenceTableID  string
}

// EndOfLife is a placeholder that always traces to zero.
type EndOfLife struct {
	ReferenceTableID string
}

func (Material) Kind() EmissionKind         { return KindMaterial }
func (Transport) Kind() EmissionKind        { return KindTransport }
func (ProductionEnergy) Kind() EmissionKind { return KindProductionEnergy }
func (UserEnergy) Kind() EmissionKind       { return KindUserEnergy }
func (EndOfLife) Kind() EmissionKind        { return KindEndOfLife }

func (v Material) Scale() float64         { return v.Weight }
func (v Transport) Scale() float64        { return v.Weight * v.Distance }
func (v ProductionEnergy) Scale() float64 { return v.EnergyConsumption }
func (v UserEnergy) Scale() float64       { return v.EnergyConsumption }
func (EndOfLife) Scale() float64          { return 0 }

func (v Material) referenceTableID() string         { return v.ReferenceTableID }
func (v Transport) referenceTableID() string        { return v.ReferenceTableID }
func (v ProductionEnergy) referenceTableID() string { return v.ReferenceTableID }
func (v UserEnergy) referenceTableID() string       { return v.ReferenceTableID }
func (v EndOfLife) referenceTableID() string        { return v.ReferenceTableID }

// ReferenceTableID returns the reference table a variant points at, "" if none.
func ReferenceTableID(v Variant) string {
	return v.referenceTableID()
}

// RequiresReference reports whether the kind cannot be traced without a
// reference table.
func (k EmissionKind) RequiresReference() bool {
	return k == KindMaterial || k == KindTransport
}

// ReferenceKind is the kind of reference table the emission kind accepts.
func (k EmissionKind) ReferenceKind() ReferenceKind {
	return ReferenceKind(k)
}

const (
	labelMaterial         = "Material emission"
	labelTransport        = "Transport emission"
	labelProductionEnergy = "Production energy consumption emission"
	labelUserEnergy       = "User energy consumption emission"
	labelEndOfLife        = "End of life emission"

	mentionNoReference = "No reference emission factors are set; this emission counts as zero until they are populated."
)

// Emission 产品自身的排放记录
type Emission struct {
	ID                   string
	ProductID            string
	PcfCalculationMethod PcfCalculationMethod
	Variant              Variant
	Overrides            []OverrideFactor
	// LineItemIDs links the emission to specific sub-assemblies. Empty means
	// a whole-product emission.
	LineItemIDs []string
}

// validate checks the write-time invariants of an emission against c.
func (e *Emission) validate(c *Catalog) error {
	if e.Variant == nil {
		return fmt.Errorf("%w: emission %s has no variant", ErrUnsupportedEmissionKind, e.ID)
	}
	if _, ok := c.products[e.ProductID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, e.ProductID)
	}
	switch v := e.Variant.(type) {
	case Material:
		if !(v.Weight >= 0) {
			return fmt.Errorf("%w: weight %v", ErrNegativeQuantity, v.Weight)
		}
	case Transport:
		if !(v.Weight >= 0) || !(v.Distance >= 0) {
			return fmt.Errorf("%w: weight %v distance %v", ErrNegativeQuantity, v.Weight, v.Distance)
		}
	case ProductionEnergy:
		if !(v.EnergyConsumption >= 0) {
			return fmt.Errorf("%w: energy consumption %v", ErrNegativeQuantity, v.EnergyConsumption)
		}
	case UserEnergy:
		if !(v.EnergyConsumption >= 0) {
			return fmt.Errorf("%w: energy consumption %v", ErrNegativeQuantity, v.EnergyConsumption)
		}
	case EndOfLife:
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedEmissionKind, e.Variant)
	}

	kind := e.Variant.Kind()
	refID := e.Variant.referenceTableID()
	if refID == "" {
		if kind.RequiresReference() {
			return fmt.Errorf("%w: %s emission %s", ErrMissingReference, kind, e.ID)
		}
	} else {
		ref, ok := c.references[refID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownReference, refID)
		}
		if ref.Kind != kind.ReferenceKind() {
			return fmt.Errorf("%w: %s emission uses %s table %s", ErrReferenceKindMismatch, kind, ref.Kind, ref.Name)
		}
	}

	for _, row := range e.Overrides {
		if !row.Stage.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidLifecycleStage, row.Stage)
		}
	}
	for _, id := range e.LineItemIDs {
		li, ok := c.graph.LineItem(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownLineItem, id)
		}
		if li.ParentID != e.ProductID {
			return fmt.Errorf("%w: %s", ErrForeignLineItem, id)
		}
	}
	return nil
}

// ComputeOwnTrace traces the emission: the reference trace scaled by the
// variant's quantity, tagged with the calculation method, replaced by the
// override rows when there are any, and annotated with the sub-assemblies it
// is linked to.
func (e *Emission) ComputeOwnTrace(c *Catalog) (*EmissionTrace, error) {
	var ref *ReferenceTable
	if id := e.Variant.referenceTableID(); id != "" {
		r, ok := c.references[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReference, id)
		}
		ref = r
	}

	var t *EmissionTrace
	switch v := e.Variant.(type) {
	case Material:
		if ref == nil {
			return nil, fmt.Errorf("%w: material emission %s", ErrMissingReference, e.ID)
		}
		t = Multiply(ref.Trace(), v.Scale())
		t.Label = labelMaterial
		t.Methodology = fmt.Sprintf("%skg * %s", formatQuantity(v.Weight), ref.Name)
	case Transport:
		if ref == nil {
			return nil, fmt.Errorf("%w: transport emission %s", ErrMissingReference, e.ID)
		}
		t = Multiply(ref.Trace(), v.Scale())
		t.Label = labelTransport
		t.Methodology = fmt.Sprintf("%st * %skm * %s", formatQuantity(v.Weight), formatQuantity(v.Distance), ref.Name)
	case ProductionEnergy:
		t = energyTrace(ref, v.EnergyConsumption, labelProductionEnergy)
	case UserEnergy:
		t = energyTrace(ref, v.EnergyConsumption, labelUserEnergy)
	case EndOfLife:
		t = newTrace(labelEndOfLife, "Not yet supported", UnitKilogram, "", SourceRef{})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedEmissionKind, e.Variant)
	}

	t.Source = SourceRef{Kind: SourceEmission, ID: e.ID, Name: t.Label}
	t.PcfCalculationMethod = e.PcfCalculationMethod
	t = ApplyOverride(t, e.Overrides, false)

	for _, id := range e.LineItemIDs {
		li, ok := c.graph.LineItem(id)
		if !ok {
			continue
		}
		name := li.ChildID
		if p, ok := c.products[li.ChildID]; ok {
			name = p.Name
		}
		t.mention(SeverityInformation, "Used by "+name)
	}
	return t, nil
}

func energyTrace(ref *ReferenceTable, energy float64, label string) *EmissionTrace {
	if ref == nil {
		base := newTrace("No reference", "No reference emission factors", UnitKilowattH, "", SourceRef{Kind: SourceReference})
		t := Multiply(base, energy)
		t.Label = label
		t.Methodology = formatQuantity(energy) + "kWh * no reference"
		t.mention(SeverityWarning, mentionNoReference)
		return t
	}
	t := Multiply(ref.Trace(), energy)
	t.Label = label
	t.Methodology = fmt.Sprintf("%skWh * %s", formatQuantity(energy), ref.Name)
	return t
}
