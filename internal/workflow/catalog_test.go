package workflow

import (
	"testing"

	"github.com/andywolf/cde/internal/model"
	"github.com/stretchr/testify/require"
)

func TestCatalogContainsEveryNamedWorkflow(t *testing.T) {
	catalog := Catalog()
	for _, name := range []string{WorkflowTrivialFix, WorkflowHotfix, WorkflowStandardFeature, WorkflowEpicDecomposition} {
		wf, ok := catalog[name]
		require.True(t, ok, "catalog missing %s", name)
		require.Equal(t, name, wf.Name)
		require.NotEmpty(t, wf.Phases)
	}
}

func TestCatalogPhasesEscalateWithComplexity(t *testing.T) {
	catalog := Catalog()
	require.Less(t, len(catalog[WorkflowTrivialFix].Phases), len(catalog[WorkflowHotfix].Phases))
	require.Less(t, len(catalog[WorkflowHotfix].Phases), len(catalog[WorkflowStandardFeature].Phases))
	require.Less(t, len(catalog[WorkflowStandardFeature].Phases), len(catalog[WorkflowEpicDecomposition].Phases))
}

func TestSelectWorkflowByComplexity(t *testing.T) {
	cases := []struct {
		complexity model.Complexity
		want       string
	}{
		{model.ComplexityTrivial, WorkflowTrivialFix},
		{model.ComplexitySimple, WorkflowHotfix},
		{model.ComplexityModerate, WorkflowStandardFeature},
		{model.ComplexityComplex, WorkflowStandardFeature},
		{model.ComplexityEpic, WorkflowEpicDecomposition},
	}
	for _, tc := range cases {
		wf := SelectWorkflow(model.Classification{Complexity: tc.complexity})
		require.Equal(t, tc.want, wf.Name, "complexity %s", tc.complexity)
	}
}

func TestSelectWorkflowAlwaysEndsInReviewOrTest(t *testing.T) {
	for _, complexity := range []model.Complexity{
		model.ComplexityTrivial, model.ComplexitySimple, model.ComplexityModerate,
		model.ComplexityComplex, model.ComplexityEpic,
	} {
		wf := SelectWorkflow(model.Classification{Complexity: complexity})
		last := wf.Phases[len(wf.Phases)-1]
		require.Contains(t, []string{"test", "review"}, last.ID)
	}
}
