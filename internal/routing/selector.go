package routing

import (
	"sort"

	"github.com/andywolf/cde/internal/cerr"
	"github.com/andywolf/cde/internal/model"
)

// SelectAgent implements the AgentRouter (C6) selection policy: given a
// Classification and the set of currently available descriptors, pick one
// candidate plus the ordered fallback chain of the rest.
func SelectAgent(c model.Classification, available []model.AgentDescriptor) (model.AgentDescriptor, []model.AgentDescriptor, error) {
	if len(available) == 0 {
		return model.AgentDescriptor{}, nil, cerr.ErrUnavailable(cerr.CodeAgentUnavailable, "no agents available")
	}

	candidates := make([]model.AgentDescriptor, len(available))
	copy(candidates, available)

	if c.RequiresPlanApproval() {
		candidates = filter(candidates, func(d model.AgentDescriptor) bool {
			return d.HasCapability(model.CapabilityPlanApproval)
		})
		if len(candidates) == 0 {
			return model.AgentDescriptor{}, nil, cerr.ErrUnavailable("E601", "no agent advertises plan_approval capability")
		}
		return candidates[0], candidates[1:], nil
	}

	if c.Complexity.AtLeast(model.ComplexityComplex) {
		fullContext := filter(candidates, func(d model.AgentDescriptor) bool { return d.FullContext })
		if len(fullContext) > 0 {
			sort.SliceStable(fullContext, func(i, j int) bool {
				return fullContext[i].MaxContextLines > fullContext[j].MaxContextLines
			})
			rest := remove(candidates, fullContext[0])
			return fullContext[0], append(fullContext[1:], rest...), nil
		}
	}

	if c.EstContextLines > 8000 {
		bigEnough := filter(candidates, func(d model.AgentDescriptor) bool {
			return d.MaxContextLines >= c.EstContextLines
		})
		if len(bigEnough) > 0 {
			sort.SliceStable(bigEnough, func(i, j int) bool {
				return bigEnough[i].MaxContextLines > bigEnough[j].MaxContextLines
			})
			rest := remove(candidates, bigEnough[0])
			return bigEnough[0], append(bigEnough[1:], rest...), nil
		}
	}

	// Default: first candidate from the preference chain that is
	// currently available; `candidates` already reflects only the
	// available set, so the first entry wins.
	return candidates[0], candidates[1:], nil
}

func filter(in []model.AgentDescriptor, keep func(model.AgentDescriptor) bool) []model.AgentDescriptor {
	out := make([]model.AgentDescriptor, 0, len(in))
	for _, d := range in {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func remove(in []model.AgentDescriptor, victim model.AgentDescriptor) []model.AgentDescriptor {
	out := make([]model.AgentDescriptor, 0, len(in))
	for _, d := range in {
		if d.AgentID != victim.AgentID {
			out = append(out, d)
		}
	}
	return out
}
