package scanner

import (
	"testing"

	"github.com/andywolf/cde/internal/model"
	"github.com/stretchr/testify/require"
)

func TestParseGitLogAggregatesContributorsAndHotspots(t *testing.T) {
	raw := "abc123\x1fAlice\x1falice@example.com\x1f2026-01-01T00:00:00+00:00\x1fRefactor router\x1e" +
		"10\t2\tinternal/routing/agent_router.go\n" +
		"\n" +
		"def456\x1fBob\x1fbob@example.com\x1f2026-01-02T00:00:00+00:00\x1fFix typo\x1e" +
		"1\t1\tREADME.md\n"

	commits, counts, firstSeen, churn := parseGitLog(raw)
	require.Len(t, commits, 2)
	require.Equal(t, 1, counts["Alice|alice@example.com"])
	require.Equal(t, 1, counts["Bob|bob@example.com"])
	require.Equal(t, 0, firstSeen["Alice|alice@example.com"])
	require.Equal(t, 12, churn["internal/routing/agent_router.go"])

	contributors := rankContributors(counts, firstSeen)
	require.Len(t, contributors, 2)

	hotspots := rankHotspots(churn)
	require.Equal(t, "internal/routing/agent_router.go", hotspots[0])
}

func TestFrequencyLabelThresholds(t *testing.T) {
	require.Equal(t, model.FrequencyVeryActive, frequencyLabel(25))
	require.Equal(t, model.FrequencyModerate, frequencyLabel(12))
	require.Equal(t, model.FrequencyLow, frequencyLabel(3))
	require.Equal(t, model.FrequencyUnknown, frequencyLabel(0))
}

func TestMatchesAnyDetectsArchitectureKeywords(t *testing.T) {
	require.True(t, matchesAny("migrate auth to new provider", archDecisionKeywords))
	require.False(t, matchesAny("fix typo in readme", archDecisionKeywords))
}
