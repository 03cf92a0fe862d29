package pcf

import (
	"fmt"
	"sort"
)

// LifecycleStage 生命周期阶段 (EN 15804 module codes)
type LifecycleStage string

const (
	StageA1   LifecycleStage = "A1"
	StageA2   LifecycleStage = "A2"
	StageA3   LifecycleStage = "A3"
	StageA1A3 LifecycleStage = "A1-A3"
	StageA4   LifecycleStage = "A4"
	StageA5   LifecycleStage = "A5"
	StageA4A5 LifecycleStage = "A4-A5"
	StageA1A5 LifecycleStage = "A1-A5"

	StageB1   LifecycleStage = "B1"
	StageB2   LifecycleStage = "B2"
	StageB3   LifecycleStage = "B3"
	StageB4   LifecycleStage = "B4"
	StageB5   LifecycleStage = "B5"
	StageB6   LifecycleStage = "B6"
	StageB7   LifecycleStage = "B7"
	StageB1B5 LifecycleStage = "B1-B5"
	StageB6B7 LifecycleStage = "B6-B7"
	StageB1B7 LifecycleStage = "B1-B7"

	StageC1   LifecycleStage = "C1"
	StageC2   LifecycleStage = "C2"
	StageC3   LifecycleStage = "C3"
	StageC4   LifecycleStage = "C4"
	StageC1C2 LifecycleStage = "C1-C2"
	StageC3C4 LifecycleStage = "C3-C4"
	StageC1C4 LifecycleStage = "C1-C4"

	StageD     LifecycleStage = "D"
	StageOther LifecycleStage = "Other"
)

// LifecyclePhase groups stages for reporting.
type LifecyclePhase string

const (
	PhaseProduction LifecyclePhase = "production"
	PhaseUse        LifecyclePhase = "use"
	PhaseEndOfLife  LifecyclePhase = "end_of_life"
	PhaseOther      LifecyclePhase = "other"
)

var lifecycleStages = []LifecycleStage{
	StageA1, StageA2, StageA3, StageA1A3, StageA4, StageA5, StageA4A5, StageA1A5,
	StageB1, StageB2, StageB3, StageB4, StageB5, StageB6, StageB7, StageB1B5, StageB6B7, StageB1B7,
	StageC1, StageC2, StageC3, StageC4, StageC1C2, StageC3C4, StageC1C4,
	StageD, StageOther,
}

var stageIndex = func() map[LifecycleStage]int {
	m := make(map[LifecycleStage]int, len(lifecycleStages))
	for i, s := range lifecycleStages {
		m[s] = i
	}
	return m
}()

// LifecycleStages returns every stage in canonical order.
func LifecycleStages() []LifecycleStage {
	out := make([]LifecycleStage, len(lifecycleStages))
	copy(out, lifecycleStages)
	return out
}

// ParseLifecycleStage validates a stage code.
func ParseLifecycleStage(code string) (LifecycleStage, error) {
	s := LifecycleStage(code)
	if _, ok := stageIndex[s]; !ok {
		return "", fmt.Errorf("unknown lifecycle stage %q", code)
	}
	return s, nil
}

// Valid reports whether s is one of the known stage codes.
func (s LifecycleStage) Valid() bool {
	_, ok := stageIndex[s]
	return ok
}

// Phase returns the phase the stage belongs to.
func (s LifecycleStage) Phase() LifecyclePhase {
	switch s {
	case StageA1, StageA2, StageA3, StageA1A3, StageA4, StageA5, StageA4A5, StageA1A5:
		return PhaseProduction
	case StageB1, StageB2, StageB3, StageB4, StageB5, StageB6, StageB7, StageB1B5, StageB6B7, StageB1B7:
		return PhaseUse
	case StageC1, StageC2, StageC3, StageC4, StageC1C2, StageC3C4, StageC1C4, StageD:
		return PhaseEndOfLife
	default:
		return PhaseOther
	}
}

// SortStages orders stages canonically; unknown codes go last in lexical order.
func SortStages(stages []LifecycleStage) {
	less := func(a, b LifecycleStage) bool {
		ia, oka := stageIndex[a]
		ib, okb := stageIndex[b]
		switch {
		case oka && okb:
			return ia < ib
		case oka:
			return true
		case okb:
			return false
		default:
			return a < b
		}
	}
	sort.SliceStable(stages, func(i, j int) bool { return less(stages[i], stages[j]) })
}

// ReferenceImpactUnit 参考影响单位
type ReferenceImpactUnit string

const (
	UnitGram        ReferenceImpactUnit = "g"
	UnitKilogram    ReferenceImpactUnit = "kg"
	UnitTonne       ReferenceImpactUnit = "t"
	UnitMillilitre  ReferenceImpactUnit = "ml"
	UnitLitre       ReferenceImpactUnit = "l"
	UnitCubicMetre  ReferenceImpactUnit = "cbm"
	UnitSquareMetre ReferenceImpactUnit = "qm"
	UnitPiece       ReferenceImpactUnit = "piece"
	UnitKilowattH   ReferenceImpactUnit = "kWh"
	UnitTonneKm     ReferenceImpactUnit = "tkm"
)

var unitExternalIDs = map[ReferenceImpactUnit]string{
	UnitGram:        "0173-1#05-AAA586#003",
	UnitKilogram:    "0173-1#05-AAA498#003",
	UnitTonne:       "0173-1#05-AAA549#003",
	UnitMillilitre:  "0173-1#05-AAA688#003",
	UnitLitre:       "0173-1#05-AAA606#003",
	UnitCubicMetre:  "0173-1#05-AAA693#003",
	UnitSquareMetre: "0173-1#05-AAA694#003",
	UnitPiece:       "0173-1#05-AAA590#003",
	UnitKilowattH:   "0173-1#05-AAA731#003",
	UnitTonneKm:     "0173-1#05-AAB051#003",
}

// ParseReferenceImpactUnit validates a unit code.
func ParseReferenceImpactUnit(code string) (ReferenceImpactUnit, error) {
	u := ReferenceImpactUnit(code)
	if _, ok := unitExternalIDs[u]; !ok {
		return "", fmt.Errorf("unknown reference impact unit %q", code)
	}
	return u, nil
}

// ExternalID is the identifier exporters put on the wire.
func (u ReferenceImpactUnit) ExternalID() string {
	return unitExternalIDs[u]
}

// PcfCalculationMethod 碳足迹核算方法
type PcfCalculationMethod string

const (
	MethodEN15804     PcfCalculationMethod = "EN 15804"
	MethodISO14067    PcfCalculationMethod = "ISO 14067"
	MethodISO14044    PcfCalculationMethod = "ISO 14044"
	MethodGHGProtocol PcfCalculationMethod = "GHG Protocol"
	MethodPEF         PcfCalculationMethod = "PEF"
)

var methodExternalIDs = map[PcfCalculationMethod]string{
	MethodEN15804:     "0173-1#07-ABU223#003",
	MethodISO14067:    "0173-1#07-ABU221#003",
	MethodISO14044:    "0173-1#07-ABU222#003",
	MethodGHGProtocol: "0173-1#07-ABU220#003",
	MethodPEF:         "0173-1#07-ABU224#003",
}

// ParsePcfCalculationMethod validates a method code.
func ParsePcfCalculationMethod(code string) (PcfCalculationMethod, error) {
	m := PcfCalculationMethod(code)
	if _, ok := methodExternalIDs[m]; !ok {
		return "", fmt.Errorf("unknown pcf calculation method %q", code)
	}
	return m, nil
}

func (m PcfCalculationMethod) ExternalID() string {
	return methodExternalIDs[m]
}
