package pcf

import "math"

// EmissionFactor 排放因子，拆分生物源/非生物源 (kg CO2e)
type EmissionFactor struct {
	Biogenic    float64 `json:"biogenic"`
	NonBiogenic float64 `json:"non_biogenic"`
}

// Scalar builds a factor for emission kinds that store a single un-split value.
func Scalar(v float64) EmissionFactor {
	return EmissionFactor{NonBiogenic: v}
}

func (f EmissionFactor) Add(o EmissionFactor) EmissionFactor {
	return EmissionFactor{
		Biogenic:    f.Biogenic + o.Biogenic,
		NonBiogenic: f.NonBiogenic + o.NonBiogenic,
	}
}

func (f EmissionFactor) Mul(k float64) EmissionFactor {
	return EmissionFactor{
		Biogenic:    f.Biogenic * k,
		NonBiogenic: f.NonBiogenic * k,
	}
}

// Total is the un-rounded sum of both components.
func (f EmissionFactor) Total() float64 {
	return f.Biogenic + f.NonBiogenic
}

// Subtotal maps a lifecycle stage to its accumulated factor.
type Subtotal map[LifecycleStage]EmissionFactor

// Accumulate adds f into stage s, initialising absent stages.
func (s Subtotal) Accumulate(stage LifecycleStage, f EmissionFactor) {
	s[stage] = s[stage].Add(f)
}

// Scaled returns a new subtotal with every entry multiplied by k.
// Stages are kept even when k is zero.
func (s Subtotal) Scaled(k float64) Subtotal {
	out := make(Subtotal, len(s))
	for stage, f := range s {
		out[stage] = f.Mul(k)
	}
	return out
}

func (s Subtotal) Clone() Subtotal {
	out := make(Subtotal, len(s))
	for stage, f := range s {
		out[stage] = f
	}
	return out
}

// Stages returns the keys in canonical order.
func (s Subtotal) Stages() []LifecycleStage {
	stages := make([]LifecycleStage, 0, len(s))
	for stage := range s {
		stages = append(stages, stage)
	}
	SortStages(stages)
	return stages
}

// Sum adds up every stage without rounding.
func (s Subtotal) Sum() EmissionFactor {
	var total EmissionFactor
	for _, f := range s {
		total = total.Add(f)
	}
	return total
}

func (s Subtotal) Equal(o Subtotal) bool {
	if len(s) != len(o) {
		return false
	}
	for stage, f := range s {
		g, ok := o[stage]
		if !ok || f != g {
			return false
		}
	}
	return true
}

// Round2 rounds half away from zero to two decimals. Presentation only.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
