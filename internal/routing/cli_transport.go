package routing

import (
	"fmt"

	"github.com/andywolf/cde/internal/agent"
	"github.com/andywolf/cde/internal/model"
)

// CLITransport adapts one of the existing duck-typed CLI adapters
// (claude-code/aider/codex, each an agent.Agent) to the AgentTransport
// capability interface, so the adapters' BuildCommand/BuildEnv/BuildPrompt
// logic is reused instead of re-implemented behind the new interface.
type CLITransport struct {
	underlying agent.Agent
	descriptor model.AgentDescriptor
}

// NewCLITransport wraps underlying with a static descriptor describing its
// capabilities and transport kind.
func NewCLITransport(underlying agent.Agent, descriptor model.AgentDescriptor) *CLITransport {
	return &CLITransport{underlying: underlying, descriptor: descriptor}
}

func (t *CLITransport) Descriptor() model.AgentDescriptor { return t.descriptor }

// BuildInvocation translates an InvocationRequest into the agent.Session the
// underlying adapter expects, then delegates command/env construction to it.
func (t *CLITransport) BuildInvocation(req InvocationRequest) (Invocation, error) {
	if err := t.underlying.Validate(); err != nil {
		return Invocation{}, fmt.Errorf("agent %s failed validation: %w", t.descriptor.AgentID, err)
	}

	session := &agent.Session{
		ID:          t.descriptor.AgentID,
		Repository:  req.Branch,
		Prompt:      req.Prompt,
		Metadata:    req.Metadata,
		Interactive: !req.Detached,
	}

	inv := Invocation{
		AgentID: t.descriptor.AgentID,
		Command: t.underlying.BuildCommand(session, 1),
		Env:     t.underlying.BuildEnv(session, 1),
	}

	if stdinProvider, ok := t.underlying.(agent.StdinPromptProvider); ok {
		inv.Stdin = stdinProvider.GetStdinPrompt(session, 1)
	}

	return inv, nil
}
