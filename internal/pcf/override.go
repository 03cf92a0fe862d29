package pcf

const (
	methodologyUserProvided = "User-provided values"
	mentionOverridden       = "Emission factors are overridden by user-provided values"
)

// OverrideFactor is one user-supplied (stage, factor) row. Several rows may
// target the same stage; they accumulate.
type OverrideFactor struct {
	Stage  LifecycleStage `json:"lifecycle_stage"`
	Factor EmissionFactor `json:"factor"`
}

// ApplyOverride replaces the computed subtotal and children of t with the
// override rows. With no rows t is returned as is.
//
// curated marks rows that carry reference catalogue data instead of a user
// correction: methodology becomes "Database lookup" and the leading mention is
// informational.
func ApplyOverride(t *EmissionTrace, rows []OverrideFactor, curated bool) *EmissionTrace {
	if len(rows) == 0 {
		return t
	}
	out := t.clone()
	out.EmissionsSubtotal = Subtotal{}
	out.Children = []TraceChild{}
	out.Mentions = []Mention{}
	for _, row := range rows {
		out.EmissionsSubtotal.Accumulate(row.Stage, row.Factor)
	}
	if curated {
		out.Methodology = methodologyDatabaseLookup
		out.mention(SeverityInformation, mentionEstimatedValues)
	} else {
		out.Methodology = methodologyUserProvided
		out.mention(SeverityWarning, mentionOverridden)
	}
	return out
}
