package routing

import (
	"context"

	"github.com/andywolf/cde/internal/model"
)

// InvocationRequest carries everything an AgentTransport needs to build a
// concrete invocation: the rendered prompt, the target repository branch,
// a deadline, whether the call should detach, and free-form caller metadata.
type InvocationRequest struct {
	Prompt   string
	Branch   string
	Detached bool
	Metadata map[string]string
}

// Invocation is the typed command an AgentTransport has built; the core
// never executes it directly (per spec §1's non-goal on concrete child-
// process invocation) — it hands the Invocation to a caller-supplied
// Executor.
type Invocation struct {
	AgentID string
	Command []string
	Env     map[string]string
	Stdin   string
}

// InvocationResult is what an Executor reports back for one attempt.
type InvocationResult struct {
	Succeeded bool
	Artifacts map[string][]byte
	Err       error
}

// AgentTransport replaces the duck-typed CLI adapter hierarchy with a single
// small capability: describe yourself, and build an invocation. Each
// concrete agent (async API, local CLI, local TUI) implements this once.
type AgentTransport interface {
	Descriptor() model.AgentDescriptor
	BuildInvocation(req InvocationRequest) (Invocation, error)
}

// Executor runs a built Invocation to completion or until ctx is done. The
// concrete child-process/HTTP execution lives outside this package (§1 non-goal);
// tests supply a fake, the CLI wires a real one in cmd/cde.
type Executor interface {
	Run(ctx context.Context, inv Invocation) InvocationResult
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, inv Invocation) InvocationResult

func (f ExecutorFunc) Run(ctx context.Context, inv Invocation) InvocationResult {
	return f(ctx, inv)
}
