package graph

import "math"

// Defaults applied by CalculateWeight when an attribute is missing.
const (
	DefaultTimeEstimate       = 4.0
	DefaultPainLevel          = 4.0
	DefaultComplexity         = 4.0
	DefaultHumanFeedback      = 1.0
	DefaultSuccessProbability = 0.9
)

// CalculateWeight converts task attributes into a traversal cost:
//
//	0.4*time + 0.3*pain + 0.2*complexity + 0.1*human + 0.5*(1-successProbability)
//
// Time, pain, complexity and refined human feedback fall back to their
// defaults when absent or zero. Success probability falls back only when
// absent, so an explicit 0 is honored.
func CalculateWeight(d NodeData) float64 {
	timeEstimate := orDefault(d.TimeEstimate, DefaultTimeEstimate)
	pain := orDefault(d.PainLevel, DefaultPainLevel)
	complexity := orDefault(d.Complexity, DefaultComplexity)
	human := orDefault(d.HumanFeedbackRefined, DefaultHumanFeedback)

	success := DefaultSuccessProbability
	if d.SuccessProbability != nil {
		success = *d.SuccessProbability
	}

	return 0.4*timeEstimate + 0.3*pain + 0.2*complexity + 0.1*human + 0.5*(1-success)
}

func orDefault(v *float64, def float64) float64 {
	if v == nil || *v == 0 || math.IsNaN(*v) {
		return def
	}
	return *v
}
