// Package api is the thin, non-HTTP Go surface exposing every named tool
// operation to callers (the CLI in cmd/cde, and any future MCP-style
// transport): delegate_task, get_task_status, scan_documentation, and the
// rest of the operation list, each a plain Go function returning a
// JSON-serialisable envelope.
package api

import (
	_ "github.com/andywolf/cde/internal/agent/aider"
	_ "github.com/andywolf/cde/internal/agent/claudecode"
	_ "github.com/andywolf/cde/internal/agent/codex"

	"github.com/andywolf/cde/internal/agent"
	"github.com/andywolf/cde/internal/model"
	"github.com/andywolf/cde/internal/routing"
)

// descriptors is the static capability profile for every agent this build
// knows how to wrap in a CLITransport. The underlying adapters (claude-code,
// aider, codex) self-register via their package init(); capability flags
// here reflect what each CLI back-end actually supports, not aspiration.
var descriptors = map[string]model.AgentDescriptor{
	"claude-code": {
		AgentID:   "claude-code",
		Transport: model.TransportLocalCLI,
		Capabilities: map[model.Capability]bool{
			model.CapabilityPlanApproval: true,
			model.CapabilityFullContext:  true,
		},
		MaxContextLines: 200000,
		FullContext:     true,
	},
	"aider": {
		AgentID:   "aider",
		Transport: model.TransportLocalCLI,
		Capabilities: map[model.Capability]bool{
			model.CapabilityPlanApproval: false,
			model.CapabilityFullContext:  false,
		},
		MaxContextLines: 20000,
	},
	"codex": {
		AgentID:   "codex",
		Transport: model.TransportLocalCLI,
		Capabilities: map[model.Capability]bool{
			model.CapabilityPlanApproval: true,
			model.CapabilityFullContext:  false,
		},
		MaxContextLines: 60000,
	},
}

// BuildTransports wraps every registered adapter this build knows a static
// descriptor for into a routing.AgentTransport, skipping any adapter the
// registry doesn't have (a slimmed build omitting one of the CLI images).
func BuildTransports() []routing.AgentTransport {
	out := make([]routing.AgentTransport, 0, len(descriptors))
	for id, desc := range descriptors {
		if !agent.Exists(id) {
			continue
		}
		underlying, err := agent.Get(id)
		if err != nil {
			continue
		}
		out = append(out, routing.NewCLITransport(underlying, desc))
	}
	return out
}

// Descriptors returns the static descriptor list for every agent this build
// knows, regardless of current availability.
func Descriptors() []model.AgentDescriptor {
	out := make([]model.AgentDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d)
	}
	return out
}
