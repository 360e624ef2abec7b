package routing

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/andywolf/cde/internal/breaker"
	"github.com/andywolf/cde/internal/cerr"
	"github.com/andywolf/cde/internal/model"
)

// CallState is the terminal or transitional state of one AgentRouter.Execute call.
type CallState string

const (
	StateSelecting   CallState = "SELECTING"
	StateProbing     CallState = "PROBING"
	StateExecuting   CallState = "EXECUTING"
	StateSuccess     CallState = "SUCCESS"
	StateUnavailable CallState = "UNAVAILABLE"
	StateFallback    CallState = "FALLBACK"
	StateExhausted   CallState = "EXHAUSTED"
	StateCancelled   CallState = "CANCELLED"
)

// AttemptFailure records one failed agent attempt in a fallback chain.
type AttemptFailure struct {
	AgentID string
	Err     error
}

// CallResult is the outcome of AgentRouter.Execute.
type CallResult struct {
	State     CallState
	AgentID   string
	Artifacts map[string][]byte
	Failures  []AttemptFailure
}

// AgentRouter is the AgentRouter (C6): selection, fallback chain, progress
// heartbeats, cancellation, and a per-agent circuit breaker.
type AgentRouter struct {
	breakers          *breaker.Registry
	sink              ProgressSink
	cancelGrace       time.Duration
	heartbeatInterval time.Duration
}

// NewAgentRouter constructs an AgentRouter. A nil sink installs NoopProgressSink.
func NewAgentRouter(breakers *breaker.Registry, sink ProgressSink, cancelGrace, heartbeatInterval time.Duration) *AgentRouter {
	if sink == nil {
		sink = NoopProgressSink{}
	}
	if cancelGrace <= 0 {
		cancelGrace = 5 * time.Second
	}
	if heartbeatInterval <= 0 {
		heartbeatInterval = 5 * time.Second
	}
	return &AgentRouter{breakers: breakers, sink: sink, cancelGrace: cancelGrace, heartbeatInterval: heartbeatInterval}
}

// Execute runs the AgentRouter state machine for one call: select an agent,
// invoke it, and walk the fallback chain on recoverable Transport failures
// until success, exhaustion, or cancellation.
func (r *AgentRouter) Execute(
	ctx context.Context,
	phaseKey string,
	c model.Classification,
	transports []AgentTransport,
	availability map[string]model.AgentAvailability,
	exec Executor,
	req InvocationRequest,
	timeout time.Duration,
) CallResult {
	deadline := time.Now().Add(timeout)

	available := make([]model.AgentDescriptor, 0, len(transports))
	byID := make(map[string]AgentTransport, len(transports))
	for _, t := range transports {
		d := t.Descriptor()
		byID[d.AgentID] = t
		avail, ok := availability[d.AgentID]
		if ok && !avail.Available {
			continue
		}
		if r.breakers != nil && !r.breakers.For(d.AgentID).Allow() {
			continue
		}
		available = append(available, d)
	}

	primary, chain, err := SelectAgent(c, available)
	if err != nil {
		return CallResult{State: StateUnavailable, Failures: []AttemptFailure{{Err: err}}}
	}

	tried := map[string]bool{}
	var failures []AttemptFailure
	lastPercentage := 0.0
	current := primary
	remaining := append([]model.AgentDescriptor{}, chain...)

	for {
		select {
		case <-ctx.Done():
			return CallResult{State: StateCancelled, Failures: failures}
		default:
		}

		budget := time.Until(deadline)
		if budget <= 0 {
			failures = append(failures, AttemptFailure{AgentID: current.AgentID, Err: cerr.ErrCancelled(cerr.CodeCancelledTimeout, "outer routing timeout exceeded")})
			return CallResult{State: StateExhausted, Failures: failures}
		}

		tried[current.AgentID] = true
		transport := byID[current.AgentID]

		inv, err := transport.BuildInvocation(req)
		if err != nil {
			failures = append(failures, AttemptFailure{AgentID: current.AgentID, Err: err})
		} else {
			attemptCtx, cancel := context.WithTimeout(ctx, budget)
			var result InvocationResult
			result, lastPercentage = r.runWithHeartbeat(attemptCtx, phaseKey, exec, inv, lastPercentage)
			cancel()

			if result.Succeeded {
				if r.breakers != nil {
					r.breakers.For(current.AgentID).RecordSuccess()
				}
				return CallResult{State: StateSuccess, AgentID: current.AgentID, Artifacts: result.Artifacts}
			}

			if r.breakers != nil {
				r.breakers.For(current.AgentID).RecordFailure()
			}
			failures = append(failures, AttemptFailure{AgentID: current.AgentID, Err: result.Err})

			if attemptCtx.Err() == context.Canceled && ctx.Err() == context.Canceled {
				r.abandonWithGrace()
				return CallResult{State: StateCancelled, Failures: failures}
			}

			// fallback percentage must not regress past 20% of the last
			// reported value from the discarded attempt.
			lastPercentage = math.Max(0, lastPercentage-0.2)
		}

		// Find next untried, available candidate.
		next := model.AgentDescriptor{}
		found := false
		for i, cand := range remaining {
			if tried[cand.AgentID] {
				continue
			}
			next = cand
			found = true
			remaining = append(remaining[:i:i], remaining[i+1:]...)
			break
		}
		if !found {
			return CallResult{State: StateExhausted, Failures: failures}
		}
		current = next
	}
}

// runWithHeartbeat runs exec.Run while emitting monotone progress events at
// most every heartbeatInterval, starting from startPercentage.
func (r *AgentRouter) runWithHeartbeat(ctx context.Context, phaseKey string, exec Executor, inv Invocation, startPercentage float64) (InvocationResult, float64) {
	var mu sync.Mutex
	percentage := startPercentage
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(r.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				mu.Lock()
				if percentage < 0.95 {
					percentage += 0.05
				}
				p := percentage
				mu.Unlock()
				r.sink.Report(ProgressEvent{PhaseKey: phaseKey, Percentage: p, Message: "in progress"})
			}
		}
	}()

	result := exec.Run(ctx, inv)
	close(done)

	mu.Lock()
	final := percentage
	if result.Succeeded {
		final = 1.0
	}
	mu.Unlock()
	r.sink.Report(ProgressEvent{PhaseKey: phaseKey, Percentage: final, Message: "attempt finished"})

	return result, final
}

func (r *AgentRouter) abandonWithGrace() {
	time.Sleep(r.cancelGrace)
}
