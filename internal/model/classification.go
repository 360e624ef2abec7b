package model

// Complexity is a point on the fixed ordered lattice
// {trivial, simple, moderate, complex, epic}.
type Complexity string

const (
	ComplexityTrivial  Complexity = "trivial"
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityEpic     Complexity = "epic"
)

// complexityRank gives the lattice's total order, highest last.
var complexityRank = map[Complexity]int{
	ComplexityTrivial:  0,
	ComplexitySimple:   1,
	ComplexityModerate: 2,
	ComplexityComplex:  3,
	ComplexityEpic:     4,
}

// AtLeast reports whether c is ranked at or above other on the lattice.
func (c Complexity) AtLeast(other Complexity) bool {
	return complexityRank[c] >= complexityRank[other]
}

// Capability is a requirement an agent must satisfy to run a classified task.
type Capability string

const (
	CapabilityAsync         Capability = "async"
	CapabilityPlanApproval  Capability = "plan_approval"
	CapabilityFullContext   Capability = "full_context"
)

// Classification is the deterministic output of TaskClassifier.
type Classification struct {
	Complexity           Complexity
	Domain               string
	RequiredCapabilities  map[Capability]bool
	EstContextLines       int
	Confidence            float64
	Reasoning             string
}

// RequiresPlanApproval reports whether plan approval is a required capability.
func (c Classification) RequiresPlanApproval() bool {
	return c.RequiredCapabilities[CapabilityPlanApproval]
}
