package pcf

import (
	"fmt"
	"strconv"
)

// Severity of a trace mention.
type Severity string

const (
	SeverityInformation Severity = "INFORMATION"
	SeverityWarning     Severity = "WARNING"
	SeverityError       Severity = "ERROR"
)

// Mention is an annotation shown next to a trace node.
type Mention struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// SourceKind identifies what a trace node was derived from.
type SourceKind string

const (
	SourceProduct   SourceKind = "product"
	SourceEmission  SourceKind = "emission"
	SourceReference SourceKind = "reference"
)

// SourceRef is the back-reference exporters use to label a node.
type SourceRef struct {
	Kind SourceKind `json:"kind"`
	ID   string     `json:"id"`
	Name string     `json:"name,omitempty"`
}

// TraceChild is a child trace together with the weight it contributes with.
type TraceChild struct {
	Trace    *EmissionTrace `json:"trace"`
	Quantity float64        `json:"quantity"`
}

// EmissionTrace 排放追溯树节点，计算结果，不落库
//
// A trace is built bottom-up and not mutated once it has been handed to a
// parent. Operations that change a trace (Multiply, ApplyOverride) return a
// new value.
type EmissionTrace struct {
	Label                string               `json:"label"`
	ReferenceImpactUnit  ReferenceImpactUnit  `json:"reference_impact_unit"`
	Methodology          string               `json:"methodology"`
	PcfCalculationMethod PcfCalculationMethod `json:"pcf_calculation_method"`
	EmissionsSubtotal    Subtotal             `json:"emissions_subtotal"`
	Children             []TraceChild         `json:"children"`
	Mentions             []Mention            `json:"mentions"`
	Source               SourceRef            `json:"source"`
}

func newTrace(label, methodology string, unit ReferenceImpactUnit, method PcfCalculationMethod, source SourceRef) *EmissionTrace {
	return &EmissionTrace{
		Label:                label,
		ReferenceImpactUnit:  unit,
		Methodology:          methodology,
		PcfCalculationMethod: method,
		EmissionsSubtotal:    Subtotal{},
		Children:             []TraceChild{},
		Mentions:             []Mention{},
		Source:               source,
	}
}

// clone copies the node itself; children are shared since they are immutable.
func (t *EmissionTrace) clone() *EmissionTrace {
	c := *t
	c.EmissionsSubtotal = t.EmissionsSubtotal.Clone()
	c.Children = append([]TraceChild{}, t.Children...)
	c.Mentions = append([]Mention{}, t.Mentions...)
	return &c
}

func (t *EmissionTrace) mention(sev Severity, msg string) {
	t.Mentions = append(t.Mentions, Mention{Severity: sev, Message: msg})
}

// Multiply wraps t in a new node scaled by quantity. The wrapper's only child
// is (t, quantity), so the unscaled trace stays visible one level down.
func Multiply(t *EmissionTrace, quantity float64) *EmissionTrace {
	q := formatQuantity(quantity)
	out := newTrace(
		t.Label+" * "+q,
		fmt.Sprintf("(%s) * %s", t.Methodology, q),
		t.ReferenceImpactUnit,
		t.PcfCalculationMethod,
		t.Source,
	)
	out.EmissionsSubtotal = t.EmissionsSubtotal.Scaled(quantity)
	out.Children = []TraceChild{{Trace: t, Quantity: quantity}}
	return out
}

// SumUp reduces the children one level deep: every child subtotal is scaled
// by its weight and added per stage. Children already carry fully reduced
// subtotals, so no recursion is needed.
func SumUp(children []TraceChild) Subtotal {
	out := Subtotal{}
	for _, child := range children {
		for stage, f := range child.Trace.EmissionsSubtotal {
			out.Accumulate(stage, f.Mul(child.Quantity))
		}
	}
	return out
}

// Totals returns the exact component sums of the subtotal.
func (t *EmissionTrace) Totals() EmissionFactor {
	return t.EmissionsSubtotal.Sum()
}

// Total is the rounded sum of all stages, for presentation.
func (t *EmissionTrace) Total() float64 {
	return Round2(t.Totals().Total())
}

func (t *EmissionTrace) TotalBiogenic() float64 {
	return Round2(t.Totals().Biogenic)
}

func (t *EmissionTrace) TotalNonBiogenic() float64 {
	return Round2(t.Totals().NonBiogenic)
}

// NodeCount counts this node and everything below it.
func (t *EmissionTrace) NodeCount() int {
	n := 1
	for _, c := range t.Children {
		n += c.Trace.NodeCount()
	}
	return n
}

// Walk visits the tree depth-first. quantity is the weight the node carries
// under its parent (1 for the root).
func (t *EmissionTrace) Walk(fn func(depth int, quantity float64, node *EmissionTrace)) {
	t.walk(0, 1, fn)
}

func (t *EmissionTrace) walk(depth int, quantity float64, fn func(int, float64, *EmissionTrace)) {
	fn(depth, quantity, t)
	for _, c := range t.Children {
		c.Trace.walk(depth+1, c.Quantity, fn)
	}
}

// Equal compares two traces by value. Children are compared as a multiset,
// mentions in order.
func (t *EmissionTrace) Equal(o *EmissionTrace) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Label != o.Label ||
		t.ReferenceImpactUnit != o.ReferenceImpactUnit ||
		t.Methodology != o.Methodology ||
		t.PcfCalculationMethod != o.PcfCalculationMethod ||
		t.Source != o.Source {
		return false
	}
	if !t.EmissionsSubtotal.Equal(o.EmissionsSubtotal) {
		return false
	}
	if len(t.Mentions) != len(o.Mentions) {
		return false
	}
	for i := range t.Mentions {
		if t.Mentions[i] != o.Mentions[i] {
			return false
		}
	}
	if len(t.Children) != len(o.Children) {
		return false
	}
	used := make([]bool, len(o.Children))
	for _, c := range t.Children {
		found := false
		for j, d := range o.Children {
			if used[j] || c.Quantity != d.Quantity {
				continue
			}
			if c.Trace.Equal(d.Trace) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
