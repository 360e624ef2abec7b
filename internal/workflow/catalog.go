package workflow

import "github.com/andywolf/cde/internal/model"

// Built-in phase descriptions, shared by every catalog workflow that
// includes the phase. Kept short and declarative, in the teacher's
// phase_loop_phases.go style, rather than embedded inline per workflow.
var (
	phaseDecompose = model.WorkflowPhase{
		ID:              "decompose",
		Description:     "Break {{FEATURE_PROMPT}} into an ordered list of concrete sub-tasks.",
		RequiredInputs:  []string{model.ExternalUserPrompt},
		ProducedOutputs: []string{"task_breakdown"},
	}
	phaseDesign = model.WorkflowPhase{
		ID:              "design",
		Description:     "Produce a short design note for: {{FEATURE_PROMPT}}",
		RequiredInputs:  []string{model.ExternalUserPrompt},
		ProducedOutputs: []string{"design_doc"},
	}
	phaseImplement = model.WorkflowPhase{
		ID:              "implement",
		Description:     "Implement the change described by {{DESIGN_DOC}}",
		RequiredInputs:  []string{"design_doc"},
		ProducedOutputs: []string{"diff"},
	}
	phaseImplementNoDesign = model.WorkflowPhase{
		ID:              "implement",
		Description:     "Implement: {{FEATURE_PROMPT}}",
		RequiredInputs:  []string{model.ExternalUserPrompt},
		ProducedOutputs: []string{"diff"},
	}
	phaseTest = model.WorkflowPhase{
		ID:              "test",
		Description:     "Write or update tests covering {{DIFF}}",
		RequiredInputs:  []string{"diff"},
		ProducedOutputs: []string{"test_diff"},
	}
	phaseReview = model.WorkflowPhase{
		ID:              "review",
		Description:     "Review {{DIFF}} plus {{TEST_DIFF}} for correctness and style.",
		RequiredInputs:  []string{"diff", "test_diff"},
		ProducedOutputs: []string{"review_notes"},
	}
)

// Catalog names, returned verbatim as Feature.WorkflowType and surfaced by
// select_workflow.
const (
	WorkflowTrivialFix     = "trivial_fix"
	WorkflowStandardFeature = "standard_feature"
	WorkflowEpicDecomposition = "epic_decomposition"
	WorkflowHotfix         = "hotfix"
)

// Catalog returns the fixed set of built-in workflows, keyed by name.
// Grounded on the teacher's closed Plan/Implement/Review/Docs phase union
// (internal/controller/phase_loop_phases.go), generalized into four
// named, differently-shaped phase sequences selected by task complexity.
func Catalog() map[string]*model.Workflow {
	return map[string]*model.Workflow{
		WorkflowTrivialFix: {
			Name:    WorkflowTrivialFix,
			Version: "1",
			Phases:  []model.WorkflowPhase{phaseImplementNoDesign, phaseTest},
		},
		WorkflowHotfix: {
			Name:    WorkflowHotfix,
			Version: "1",
			Phases:  []model.WorkflowPhase{phaseImplementNoDesign, phaseTest, phaseReview},
		},
		WorkflowStandardFeature: {
			Name:    WorkflowStandardFeature,
			Version: "1",
			Phases:  []model.WorkflowPhase{phaseDesign, phaseImplement, phaseTest, phaseReview},
		},
		WorkflowEpicDecomposition: {
			Name:    WorkflowEpicDecomposition,
			Version: "1",
			Phases:  []model.WorkflowPhase{phaseDecompose, phaseDesign, phaseImplement, phaseTest, phaseReview},
		},
	}
}

// SelectWorkflow maps a Classification onto one of the catalog's built-in
// workflows by complexity tier. Domain tags do not currently affect
// selection; every domain shares the same complexity-tiered ladder.
func SelectWorkflow(c model.Classification) *model.Workflow {
	catalog := Catalog()
	switch {
	case c.Complexity == model.ComplexityTrivial:
		return catalog[WorkflowTrivialFix]
	case c.Complexity == model.ComplexitySimple:
		return catalog[WorkflowHotfix]
	case c.Complexity.AtLeast(model.ComplexityEpic):
		return catalog[WorkflowEpicDecomposition]
	default:
		return catalog[WorkflowStandardFeature]
	}
}
