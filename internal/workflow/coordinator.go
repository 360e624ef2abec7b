// Package workflow implements the WorkflowCoordinator (C7): phase
// sequencing, retry, and resumption for a single Feature's run.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/andywolf/cde/internal/cerr"
	"github.com/andywolf/cde/internal/model"
	"github.com/andywolf/cde/internal/observability"
	"github.com/andywolf/cde/internal/routing"
	"github.com/andywolf/cde/internal/security"
	"github.com/andywolf/cde/internal/template"
)

// artifactScrubber redacts secrets/tokens an agent might echo back (API keys,
// bearer tokens, private key blocks) before a phase's output is persisted to
// the project's state file.
var artifactScrubber = security.NewScrubber()

// phaseStatusOrder maps a WorkflowPhase id to the Feature lifecycle status
// it drives the feature into, mirroring the teacher's closed
// Plan/Implement/Review/Docs union generalized to the open phase list a
// Workflow declares.
var phaseStatusOrder = map[string]model.FeatureStatus{
	"decompose": model.FeatureDecomposing,
	"design":    model.FeatureDesigning,
	"implement": model.FeatureImplementing,
	"test":      model.FeatureTesting,
	"review":    model.FeatureReviewing,
}

// PhaseOutcome is the durable result of running one phase to completion.
type PhaseOutcome struct {
	PhaseID  string
	AgentID  string
	Attempts int
	Skipped  bool // resumed from prior artifacts, not re-run
}

// FeatureOutcome summarises a full RunFeature call.
type FeatureOutcome struct {
	FeatureID string
	Status    model.FeatureStatus
	Phases    []PhaseOutcome
	Err       error
}

// Coordinator runs a Workflow's phases against a single Feature, one phase
// at a time (Regime B: single-threaded-cooperative, at most one in-flight
// agent invocation per RunFeature call).
type Coordinator struct {
	router          *routing.AgentRouter
	maxPhaseRetries int
	phaseTimeout    time.Duration
	tracer          observability.Tracer
}

// New constructs a Coordinator. maxPhaseRetries defaults to 2 and
// phaseTimeout to 10 minutes when given non-positive values. The tracer
// defaults to a no-op; callers that configure Langfuse wire a real one via
// WithTracer.
func New(router *routing.AgentRouter, maxPhaseRetries int, phaseTimeout time.Duration) *Coordinator {
	if maxPhaseRetries <= 0 {
		maxPhaseRetries = 2
	}
	if phaseTimeout <= 0 {
		phaseTimeout = 10 * time.Minute
	}
	return &Coordinator{router: router, maxPhaseRetries: maxPhaseRetries, phaseTimeout: phaseTimeout, tracer: &observability.NoOpTracer{}}
}

// WithTracer installs t as the Coordinator's observability sink, replacing
// the default no-op, and returns c for chaining.
func (c *Coordinator) WithTracer(t observability.Tracer) *Coordinator {
	if t != nil {
		c.tracer = t
	}
	return c
}

// RunDeps bundles the per-call collaborators RunFeature needs from the
// caller: the candidate agent pool, their live availability, and the
// executor that turns a built Invocation into a result.
type RunDeps struct {
	Classification model.Classification
	Transports     []routing.AgentTransport
	Availability   map[string]model.AgentAvailability
	Executor       routing.Executor
}

// RunFeature advances feature through shape.PhasesToRun: phases whose
// artifacts already exist are skipped (resumption), the rest are rendered,
// routed through deps, validated against produced_outputs, and retried up
// to maxPhaseRetries on recoverable failures before the feature is marked
// failed.
func (c *Coordinator) RunFeature(ctx context.Context, feature *model.Feature, wf *model.Workflow, shape model.WorkflowShape, deps RunDeps) FeatureOutcome {
	outcome := FeatureOutcome{FeatureID: feature.ID}

	trace := c.tracer.StartTrace(feature.ID, observability.TraceOptions{Workflow: wf.Name})
	traceStatus := "completed"
	defer func() {
		c.tracer.CompleteTrace(trace, observability.CompleteOptions{Status: traceStatus})
	}()

	for _, phase := range shape.PhasesToRun {
		select {
		case <-ctx.Done():
			feature.Status = model.FeatureFailed
			outcome.Status = feature.Status
			outcome.Err = ctx.Err()
			traceStatus = "failed"
			return outcome
		default:
		}

		if hasPhaseArtifacts(feature, phase) {
			span := c.tracer.StartPhase(trace, phase.ID, observability.SpanOptions{})
			c.tracer.RecordSkipped(span, phase.ID, "artifacts already present, resumed")
			c.tracer.EndPhase(span, "skipped", 0)
			outcome.Phases = append(outcome.Phases, PhaseOutcome{PhaseID: phase.ID, Skipped: true})
			continue
		}

		span := c.tracer.StartPhase(trace, phase.ID, observability.SpanOptions{MaxIterations: c.maxPhaseRetries + 1})
		started := time.Now()
		po, err := c.runPhase(ctx, span, feature, wf, phase, deps)
		if err != nil {
			c.tracer.EndPhase(span, "error", time.Since(started).Milliseconds())
		} else {
			c.tracer.EndPhase(span, "completed", time.Since(started).Milliseconds())
		}
		outcome.Phases = append(outcome.Phases, po)
		if err != nil {
			feature.Status = model.FeatureFailed
			outcome.Status = feature.Status
			outcome.Err = err
			traceStatus = "failed"
			return outcome
		}

		feature.CurrentPhase = phase.ID
		if status, ok := phaseStatusOrder[phase.ID]; ok {
			feature.Status = status
		}
		feature.UpdatedAt = time.Now().UTC()
	}

	feature.Status = model.FeatureCompleted
	feature.CurrentPhase = ""
	feature.UpdatedAt = time.Now().UTC()
	outcome.Status = feature.Status
	return outcome
}

// runPhase renders the phase prompt, invokes the router, and validates
// produced artifacts, retrying on recoverable (cerr.Recoverable) failures
// up to maxPhaseRetries times with identical inputs. Every router attempt
// records one Generation against span, regardless of outcome.
func (c *Coordinator) runPhase(ctx context.Context, span observability.SpanContext, feature *model.Feature, wf *model.Workflow, phase model.WorkflowPhase, deps RunDeps) (PhaseOutcome, error) {
	po := PhaseOutcome{PhaseID: phase.ID}
	prompt := renderPhasePrompt(feature, wf, phase)

	var lastErr error
	for attempt := 1; attempt <= c.maxPhaseRetries+1; attempt++ {
		po.Attempts = attempt

		attemptStarted := time.Now()
		result := c.router.Execute(ctx, phase.ID, deps.Classification, deps.Transports, deps.Availability, deps.Executor,
			routing.InvocationRequest{Prompt: prompt}, c.phaseTimeout)
		genStatus := "completed"
		if result.State != routing.StateSuccess {
			genStatus = "error"
		}
		c.tracer.RecordGeneration(span, observability.GenerationInput{
			Name:       phase.ID,
			Model:      result.AgentID,
			Input:      prompt,
			Status:     genStatus,
			DurationMs: time.Since(attemptStarted).Milliseconds(),
		})

		switch result.State {
		case routing.StateSuccess:
			if err := validateArtifacts(phase, result.Artifacts); err != nil {
				lastErr = err
				if !cerr.Recoverable(err) {
					return po, err
				}
				continue
			}
			storeArtifacts(feature, phase, result.AgentID, result.Artifacts)
			po.AgentID = result.AgentID
			return po, nil

		case routing.StateCancelled:
			return po, cerr.ErrCancelled(cerr.CodeCancelledByUser, "phase "+phase.ID+" cancelled")

		case routing.StateUnavailable:
			return po, cerr.ErrUnavailable(cerr.CodeAgentUnavailable, "no agent available for phase "+phase.ID)

		default: // StateExhausted
			lastErr = cerr.ErrExhausted(cerr.CodeRouterExhausted, "phase "+phase.ID+" exhausted the fallback chain")
			if !cerr.Recoverable(lastErr) {
				return po, lastErr
			}
		}
	}

	return po, lastErr
}

func hasPhaseArtifacts(feature *model.Feature, phase model.WorkflowPhase) bool {
	set, ok := feature.Artifacts[phase.ID]
	if !ok {
		return false
	}
	for _, out := range phase.ProducedOutputs {
		if _, ok := set[out]; !ok {
			return false
		}
	}
	return true
}

func validateArtifacts(phase model.WorkflowPhase, artifacts map[string][]byte) error {
	for _, out := range phase.ProducedOutputs {
		if _, ok := artifacts[out]; !ok {
			return cerr.ErrValidation(cerr.CodeArtifactValidation,
				fmt.Sprintf("phase %s did not produce declared output %q", phase.ID, out)).
				WithDetail("phase_id", phase.ID).WithDetail("missing_output", out)
		}
	}
	return nil
}

func storeArtifacts(feature *model.Feature, phase model.WorkflowPhase, agentID string, artifacts map[string][]byte) {
	if feature.Artifacts == nil {
		feature.Artifacts = map[string]model.ArtifactSet{}
	}
	set := model.ArtifactSet{}
	for name, body := range artifacts {
		scrubbed := []byte(artifactScrubber.Scrub(string(body)))
		set[name] = model.Artifact{Type: name, Body: scrubbed, Labels: map[string]string{"agent_id": agentID}}
	}
	feature.Artifacts[phase.ID] = set
}

// renderPhasePrompt builds the phase's input prompt by substituting
// UPPER_SNAKE_CASE placeholders (via internal/template) with the feature's
// prompt and any prior phase's recorded artifact bodies.
func renderPhasePrompt(feature *model.Feature, wf *model.Workflow, phase model.WorkflowPhase) string {
	vars := map[string]string{"FEATURE_PROMPT": feature.Prompt, "WORKFLOW_NAME": wf.Name}
	for _, input := range phase.RequiredInputs {
		vars[toPlaceholderName(input)] = lookupProducedArtifact(feature, input)
	}
	base := "{{FEATURE_PROMPT}}"
	if phase.PromptRecipeID != "" {
		base = phase.Description
	}
	return template.RenderPrompt(base, vars)
}

func lookupProducedArtifact(feature *model.Feature, name string) string {
	if name == model.ExternalUserPrompt {
		return feature.Prompt
	}
	for _, set := range feature.Artifacts {
		if a, ok := set[name]; ok {
			return string(a.Body)
		}
	}
	return ""
}

func toPlaceholderName(name string) string {
	out := make([]byte, 0, len(name))
	for _, ch := range []byte(name) {
		if ch == '-' {
			out = append(out, '_')
			continue
		}
		if ch >= 'a' && ch <= 'z' {
			out = append(out, ch-'a'+'A')
			continue
		}
		out = append(out, ch)
	}
	return string(out)
}
