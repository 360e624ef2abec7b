package api

import (
	"context"
	"errors"
	"testing"

	"github.com/andywolf/cde/internal/cerr"
	"github.com/andywolf/cde/internal/config"
	"github.com/andywolf/cde/internal/model"
	"github.com/andywolf/cde/internal/observability"
	"github.com/andywolf/cde/internal/routing"
	"github.com/stretchr/testify/require"
)

func TestBuildTracerDefaultsToNoOp(t *testing.T) {
	cfg := &config.Config{}
	tracer := buildTracer(cfg)
	_, isNoOp := tracer.(*observability.NoOpTracer)
	require.True(t, isNoOp)
}

func TestBuildTracerRequiresBothKeysEvenWhenEnabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.Enabled = true
	cfg.Observability.PublicKey = "pk"
	tracer := buildTracer(cfg)
	_, isNoOp := tracer.(*observability.NoOpTracer)
	require.True(t, isNoOp)
}

func TestBuildTracerReturnsLangfuseWhenFullyConfigured(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.Enabled = true
	cfg.Observability.PublicKey = "pk"
	cfg.Observability.SecretKey = "sk"
	cfg.Observability.BaseURL = "https://example.test"
	tracer := buildTracer(cfg)
	lf, isLangfuse := tracer.(*observability.LangfuseTracer)
	require.True(t, isLangfuse)
	require.NotNil(t, lf)
	_ = lf.Stop(context.Background())
}

func TestErrorResultCarriesCerrFields(t *testing.T) {
	err := cerr.ErrValidation(cerr.CodeValidationPrompt, "bad prompt")
	res := ErrorResult(err)
	require.Equal(t, true, res["error"])
	require.Equal(t, "bad prompt", res["message"])
	require.Equal(t, cerr.CodeValidationPrompt, res["code"])
	require.Equal(t, true, res["recoverable"])
}

func TestErrorResultFallsBackForPlainErrors(t *testing.T) {
	res := ErrorResult(errors.New("boom"))
	require.Equal(t, "E000", res["code"])
	require.Equal(t, false, res["recoverable"])
}

func TestOkStampsStatus(t *testing.T) {
	res := ok(Result{"a": 1})
	require.Equal(t, "ok", res["status"])
	require.Equal(t, 1, res["a"])
}

func TestListAvailableAgentsReturnsStaticDescriptors(t *testing.T) {
	res := ListAvailableAgents()
	agents, ok2 := res["agents"].([]Result)
	require.True(t, ok2)
	require.Len(t, agents, len(descriptors))
}

func TestSelectAgentHonoursPlanApprovalRequirement(t *testing.T) {
	res := SelectAgent("write a one-line fix for a typo")
	require.Equal(t, "ok", res["status"])
	require.NotEmpty(t, res["agent_id"])
}

func TestSelectWorkflowReturnsPhasesAndComplexity(t *testing.T) {
	res := SelectWorkflow("fix a trivial typo in the README")
	require.Equal(t, "ok", res["status"])
	require.NotEmpty(t, res["workflow_type"])
	phases, ok2 := res["phases"].([]string)
	require.True(t, ok2)
	require.NotEmpty(t, phases)
}

func TestPreferTransportMovesPreferredToFront(t *testing.T) {
	a := fakeTransport{id: "aider"}
	b := fakeTransport{id: "claude-code"}
	c := fakeTransport{id: "codex"}
	ordered := preferTransport([]routing.AgentTransport{a, b, c}, "codex")
	require.Equal(t, "codex", ordered[0].Descriptor().AgentID)
	require.Len(t, ordered, 3)
}

func TestPreferTransportNoMatchReturnsUnchanged(t *testing.T) {
	a := fakeTransport{id: "aider"}
	ordered := preferTransport([]routing.AgentTransport{a}, "missing")
	require.Equal(t, []routing.AgentTransport{a}, ordered)
}

type fakeTransport struct {
	id string
}

func (f fakeTransport) Descriptor() model.AgentDescriptor {
	return model.AgentDescriptor{AgentID: f.id}
}

func (f fakeTransport) BuildInvocation(req routing.InvocationRequest) (routing.Invocation, error) {
	return routing.Invocation{AgentID: f.id}, nil
}
