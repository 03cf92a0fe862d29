package pcf

// ReferenceKind names the emission kind a reference table serves.
type ReferenceKind string

const (
	ReferenceMaterial         ReferenceKind = "material"
	ReferenceTransport        ReferenceKind = "transport"
	ReferenceProductionEnergy ReferenceKind = "production_energy"
	ReferenceUserEnergy       ReferenceKind = "user_energy"
	ReferenceEndOfLife        ReferenceKind = "end_of_life"
)

func (k ReferenceKind) Valid() bool {
	switch k {
	case ReferenceMaterial, ReferenceTransport, ReferenceProductionEnergy, ReferenceUserEnergy, ReferenceEndOfLife:
		return true
	}
	return false
}

// DefaultUnit is the unit a table of this kind is expressed per.
func (k ReferenceKind) DefaultUnit() ReferenceImpactUnit {
	switch k {
	case ReferenceTransport:
		return UnitTonneKm
	case ReferenceProductionEnergy, ReferenceUserEnergy:
		return UnitKilowattH
	default:
		return UnitKilogram
	}
}

const (
	methodologyDatabaseLookup = "Database lookup"
	mentionEstimatedValues    = "Estimated values"
)

// ReferenceTable 参考排放因子表，一个生命周期阶段最多一行
type ReferenceTable struct {
	ID      string
	Name    string
	Kind    ReferenceKind
	Unit    ReferenceImpactUnit
	Factors map[LifecycleStage]EmissionFactor
}

// Trace is the leaf lookup: one subtotal entry per factor row.
func (r *ReferenceTable) Trace() *EmissionTrace {
	unit := r.Unit
	if unit == "" {
		unit = r.Kind.DefaultUnit()
	}
	t := newTrace(r.Name, methodologyDatabaseLookup, unit, "", SourceRef{
		Kind: SourceReference,
		ID:   r.ID,
		Name: r.Name,
	})
	for stage, f := range r.Factors {
		t.EmissionsSubtotal[stage] = f
	}
	t.mention(SeverityInformation, mentionEstimatedValues)
	return t
}
