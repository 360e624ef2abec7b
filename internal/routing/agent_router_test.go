package routing

import (
	"context"
	"testing"
	"time"

	"github.com/andywolf/cde/internal/breaker"
	"github.com/andywolf/cde/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	descriptor model.AgentDescriptor
}

func (f fakeTransport) Descriptor() model.AgentDescriptor { return f.descriptor }

func (f fakeTransport) BuildInvocation(req InvocationRequest) (Invocation, error) {
	return Invocation{AgentID: f.descriptor.AgentID, Command: []string{"run"}}, nil
}

func availableMap(ids ...string) map[string]model.AgentAvailability {
	m := map[string]model.AgentAvailability{}
	for _, id := range ids {
		m[id] = model.AgentAvailability{AgentID: id, Available: true}
	}
	return m
}

func TestScenario1SelectsOnlyLocalCLI(t *testing.T) {
	cli := fakeTransport{descriptor: model.AgentDescriptor{AgentID: "cli", Transport: model.TransportLocalCLI, MaxContextLines: 2000}}
	r := NewAgentRouter(breaker.NewRegistry(3, time.Minute), nil, time.Second, time.Hour)

	exec := ExecutorFunc(func(ctx context.Context, inv Invocation) InvocationResult {
		return InvocationResult{Succeeded: true, Artifacts: map[string][]byte{"diff": []byte("ok")}}
	})

	c := model.Classification{Complexity: model.ComplexityTrivial, EstContextLines: 500}
	result := r.Execute(context.Background(), "implement", c, []AgentTransport{cli}, availableMap("cli"), exec, InvocationRequest{Prompt: "fix typo"}, time.Minute)

	require.Equal(t, StateSuccess, result.State)
	require.Equal(t, "cli", result.AgentID)
}

func TestScenario2RequiresPlanApprovalCapability(t *testing.T) {
	cli := fakeTransport{descriptor: model.AgentDescriptor{AgentID: "cli", Transport: model.TransportLocalCLI}}
	async := fakeTransport{descriptor: model.AgentDescriptor{
		AgentID: "async", Transport: model.TransportAsyncAPI,
		Capabilities: map[model.Capability]bool{model.CapabilityPlanApproval: true},
	}}
	r := NewAgentRouter(breaker.NewRegistry(3, time.Minute), nil, time.Second, time.Hour)
	exec := ExecutorFunc(func(ctx context.Context, inv Invocation) InvocationResult {
		return InvocationResult{Succeeded: inv.AgentID == "async"}
	})

	c := model.Classification{
		Complexity:           model.ComplexityComplex,
		RequiredCapabilities: map[model.Capability]bool{model.CapabilityPlanApproval: true},
	}

	result := r.Execute(context.Background(), "plan", c, []AgentTransport{cli, async}, availableMap("cli", "async"), exec, InvocationRequest{}, time.Minute)
	require.Equal(t, StateSuccess, result.State)
	require.Equal(t, "async", result.AgentID)

	onlyCLI := r.Execute(context.Background(), "plan", c, []AgentTransport{cli}, availableMap("cli"), exec, InvocationRequest{}, time.Minute)
	require.Equal(t, StateUnavailable, onlyCLI.State)
}

func TestFallbackChainTriesNextAgentOnTransportFailure(t *testing.T) {
	first := fakeTransport{descriptor: model.AgentDescriptor{AgentID: "first", FullContext: true, MaxContextLines: 100000}}
	second := fakeTransport{descriptor: model.AgentDescriptor{AgentID: "second", FullContext: true, MaxContextLines: 50000}}
	r := NewAgentRouter(breaker.NewRegistry(5, time.Minute), nil, time.Second, time.Hour)

	exec := ExecutorFunc(func(ctx context.Context, inv Invocation) InvocationResult {
		if inv.AgentID == "first" {
			return InvocationResult{Succeeded: false, Err: context.DeadlineExceeded}
		}
		return InvocationResult{Succeeded: true, Artifacts: map[string][]byte{"code": []byte("ok")}}
	})

	c := model.Classification{Complexity: model.ComplexityEpic}
	result := r.Execute(context.Background(), "implement", c, []AgentTransport{first, second}, availableMap("first", "second"), exec, InvocationRequest{}, time.Minute)

	require.Equal(t, StateSuccess, result.State)
	require.Equal(t, "second", result.AgentID)
	require.Len(t, result.Failures, 1)
}

func TestExhaustedWhenAllFail(t *testing.T) {
	a := fakeTransport{descriptor: model.AgentDescriptor{AgentID: "a"}}
	b := fakeTransport{descriptor: model.AgentDescriptor{AgentID: "b"}}
	r := NewAgentRouter(breaker.NewRegistry(5, time.Minute), nil, time.Second, time.Hour)
	exec := ExecutorFunc(func(ctx context.Context, inv Invocation) InvocationResult {
		return InvocationResult{Succeeded: false, Err: context.DeadlineExceeded}
	})

	c := model.Classification{}
	result := r.Execute(context.Background(), "implement", c, []AgentTransport{a, b}, availableMap("a", "b"), exec, InvocationRequest{}, time.Minute)
	require.Equal(t, StateExhausted, result.State)
	require.Len(t, result.Failures, 2)
}

func TestBreakerSkipsOpenAgentDuringSelection(t *testing.T) {
	reg := breaker.NewRegistry(1, time.Minute)
	reg.For("flaky").RecordFailure() // opens immediately at threshold 1

	flaky := fakeTransport{descriptor: model.AgentDescriptor{AgentID: "flaky"}}
	stable := fakeTransport{descriptor: model.AgentDescriptor{AgentID: "stable"}}
	r := NewAgentRouter(reg, nil, time.Second, time.Hour)
	exec := ExecutorFunc(func(ctx context.Context, inv Invocation) InvocationResult {
		return InvocationResult{Succeeded: true}
	})

	result := r.Execute(context.Background(), "implement", model.Classification{}, []AgentTransport{flaky, stable}, availableMap("flaky", "stable"), exec, InvocationRequest{}, time.Minute)
	require.Equal(t, StateSuccess, result.State)
	require.Equal(t, "stable", result.AgentID)
}
