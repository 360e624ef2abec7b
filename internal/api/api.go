package api

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/andywolf/cde/internal/breaker"
	"github.com/andywolf/cde/internal/cerr"
	"github.com/andywolf/cde/internal/classify"
	"github.com/andywolf/cde/internal/config"
	"github.com/andywolf/cde/internal/contextenrich"
	"github.com/andywolf/cde/internal/model"
	"github.com/andywolf/cde/internal/observability"
	"github.com/andywolf/cde/internal/recipes"
	"github.com/andywolf/cde/internal/routing"
	"github.com/andywolf/cde/internal/scanner"
	"github.com/andywolf/cde/internal/state"
	"github.com/andywolf/cde/internal/workflow"
	"github.com/google/uuid"
)

// buildTracer returns a Langfuse-backed Tracer when observability is
// configured with both API keys, and a no-op otherwise so RunFeature's
// instrumentation calls are always safe to make unconditionally.
func buildTracer(cfg *config.Config) observability.Tracer {
	if !cfg.Observability.Enabled || cfg.Observability.PublicKey == "" || cfg.Observability.SecretKey == "" {
		return &observability.NoOpTracer{}
	}
	return observability.NewLangfuseTracer(observability.LangfuseConfig{
		PublicKey: cfg.Observability.PublicKey,
		SecretKey: cfg.Observability.SecretKey,
		BaseURL:   cfg.Observability.BaseURL,
	}, log.New(os.Stderr, "langfuse: ", log.LstdFlags))
}

// buildProgressSink opens a durable JSONL trace of router heartbeats under
// path's state directory, tagged with sessionID. Falls back to NoopProgressSink
// when the directory can't be opened rather than failing the whole call.
func buildProgressSink(cfg *config.Config, path, sessionID string) routing.ProgressSink {
	dir := filepath.Join(path, cfg.State.DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return routing.NoopProgressSink{}
	}
	sink, err := routing.NewFileProgressSink(dir, sessionID)
	if err != nil {
		return routing.NoopProgressSink{}
	}
	return sink
}

// Result is the JSON envelope every operation returns on success:
// {"status": "ok", ...payload fields}. ErrorResult is returned instead on
// failure, per spec §6: {error, message, recoverable, code}.
type Result map[string]interface{}

// ErrorResult builds the {error, message, recoverable, code} envelope for err.
func ErrorResult(err error) Result {
	code := "E000"
	recoverable := false
	if ce, ok := err.(*cerr.Error); ok {
		code = ce.Code
		recoverable = ce.Recoverable
	}
	return Result{
		"error":       true,
		"message":     err.Error(),
		"recoverable": recoverable,
		"code":        code,
	}
}

func ok(payload Result) Result {
	if payload == nil {
		payload = Result{}
	}
	payload["status"] = "ok"
	return payload
}

// newStore / newRecipeStore / newBreakers build per-call collaborators from
// cfg; cde is a one-shot CLI so these are cheap, short-lived values rather
// than long-running singletons.
func newStateStore(cfg *config.Config) *state.Store {
	return state.New(
		state.WithStateDirName(cfg.State.DirName),
		state.WithBackupLimit(cfg.State.BackupLimit),
	)
}

func newBreakers(cfg *config.Config) *breaker.Registry {
	return breaker.NewRegistry(cfg.Router.BreakerThreshold, time.Duration(cfg.Router.BreakerCooldownS)*time.Second)
}

func newRecipeStore(cfg *config.Config, breakers *breaker.Registry) *recipes.Store {
	return recipes.New(
		recipes.WithCacheTTL(cfg.Recipes.CacheTTL),
		recipes.WithBreakerRegistry(breakers),
	)
}

// ScanDocumentation implements scan_documentation(path, detail).
func ScanDocumentation(ctx context.Context, cfg *config.Config, path, detail string) Result {
	timeout := time.Duration(cfg.Scanner.DocTimeoutS) * time.Second
	inv, err := scanner.ScanDocumentation(ctx, path, cfg.Scanner.WorkerCount, timeout)
	if err != nil {
		return ErrorResult(err)
	}
	entries := make([]Result, 0, len(inv.Entries))
	for _, e := range inv.Entries {
		entry := Result{"path": e.RelativePath, "category": e.Category, "orphaned": e.Orphaned}
		if detail == "full" {
			entry["size_bytes"] = e.SizeBytes
			entry["line_count"] = e.LineCount
			entry["has_frontmatter"] = e.HasFrontmatter
		}
		entries = append(entries, entry)
	}
	return ok(Result{"entries": entries, "timed_out": inv.Timeout, "count": len(entries)})
}

// AnalyseGit implements analyse_git(path, days, include_all_branches).
func AnalyseGit(ctx context.Context, cfg *config.Config, path string, days int, includeAllBranches bool) Result {
	if days <= 0 {
		days = cfg.Scanner.GitWindowDays
	}
	insights, err := scanner.AnalyseGit(ctx, path, days)
	if err != nil {
		return ErrorResult(err)
	}
	branches := insights.ActiveBranches
	if !includeAllBranches && len(branches) > 1 {
		branches = branches[:1]
	}
	return ok(Result{
		"age_days":        insights.AgeDays,
		"frequency_label": string(insights.FrequencyLabel),
		"contributors":    insights.Contributors,
		"hotspots":        insights.Hotspots,
		"active_branches": branches,
		"arch_decisions":  insights.ArchDecisions,
		"timed_out":       insights.Timeout,
	})
}

// AnalyseDocumentation implements analyse_documentation(path): a
// scan_documentation run plus ContextEnricher's documentation-synthesis
// signal (tech-stack terms, build/test commands, conventions) for a fuller
// read than the bare inventory.
func AnalyseDocumentation(ctx context.Context, cfg *config.Config, path string) Result {
	scanResult := ScanDocumentation(ctx, cfg, path, "summary")
	if scanResult["error"] == true {
		return scanResult
	}
	pc, err := contextenrich.Enrich(ctx, path, cfg.Scanner.GitWindowDays)
	if err != nil {
		return ErrorResult(err)
	}
	scanResult["tech_stack_terms"] = pc.TechStackTerms
	scanResult["build_commands"] = pc.BuildCommands
	scanResult["test_commands"] = pc.TestCommands
	scanResult["conventions"] = pc.Conventions
	return scanResult
}

// SelectWorkflow implements select_workflow(prompt): classify the prompt
// and return the workflow name, shape, and classification the rest of the
// tool surface would use for it.
func SelectWorkflow(prompt string) Result {
	c := classify.Classify(prompt)
	wf := workflow.SelectWorkflow(c)
	shape, err := model.BuildShape(wf, nil, 120)
	if err != nil {
		return ErrorResult(cerr.ErrValidation(cerr.CodeValidationWorkflow, "workflow shape invalid").WithCause(err))
	}
	phaseIDs := make([]string, 0, len(shape.PhasesToRun))
	for _, p := range shape.PhasesToRun {
		phaseIDs = append(phaseIDs, p.ID)
	}
	return ok(Result{
		"workflow_type":         wf.Name,
		"complexity":            string(c.Complexity),
		"domain":                c.Domain,
		"require_plan_approval": c.RequiresPlanApproval(),
		"est_context_lines":     c.EstContextLines,
		"confidence":            c.Confidence,
		"phases":                phaseIDs,
		"est_duration_s":        shape.EstDuration,
	})
}

// ListAvailableAgents implements list_available_agents().
func ListAvailableAgents() Result {
	descs := Descriptors()
	out := make([]Result, 0, len(descs))
	for _, d := range descs {
		out = append(out, Result{
			"agent_id":          d.AgentID,
			"transport":         string(d.Transport),
			"max_context_lines": d.MaxContextLines,
			"full_context":      d.FullContext,
			"requires_auth":     d.RequiresAuth,
		})
	}
	return ok(Result{"agents": out})
}

// SelectAgent implements select_agent(task): classify task and run the
// selection policy against every statically known descriptor, without
// invoking anything.
func SelectAgent(task string) Result {
	c := classify.Classify(task)
	primary, chain, err := routing.SelectAgent(c, Descriptors())
	if err != nil {
		return ErrorResult(err)
	}
	fallbackIDs := make([]string, 0, len(chain))
	for _, d := range chain {
		fallbackIDs = append(fallbackIDs, d.AgentID)
	}
	return ok(Result{"agent_id": primary.AgentID, "fallback_chain": fallbackIDs})
}

// DownloadRecipes implements download_recipes(path, repo, branch, force).
func DownloadRecipes(ctx context.Context, cfg *config.Config, path, repo, branch string, force bool) Result {
	breakers := newBreakers(cfg)
	store := newRecipeStore(cfg, breakers)
	source := recipes.SourceSpec{Base: repo, Branch: branch}
	result, err := store.EnsureRecipes(ctx, path, cfg.State.DirName, source, force)
	if err != nil {
		return ErrorResult(err)
	}
	return ok(Result{"partial": result.Partial, "files": result.Files})
}

// CheckRecipes implements check_recipes(path): reports cache freshness for
// every manifest entry without fetching.
func CheckRecipes(cfg *config.Config, path string) Result {
	breakers := newBreakers(cfg)
	store := newRecipeStore(cfg, breakers)
	_, fresh, err := store.GetCachedIndex(path, cfg.State.DirName, "manifest", false)
	if err != nil {
		return ErrorResult(err)
	}
	return ok(Result{"fresh": fresh, "cache_ttl_s": int(cfg.Recipes.CacheTTL.Seconds())})
}

// HealthCheck implements health_check(): reports registered agent
// availability and whether each agent's circuit breaker is currently open.
func HealthCheck(cfg *config.Config) Result {
	breakers := newBreakers(cfg)
	agents := make([]Result, 0, len(descriptors))
	for id := range descriptors {
		br := breakers.For(id)
		agents = append(agents, Result{
			"agent_id":   id,
			"registered": false,
			"breaker_open": br.IsOpen(),
		})
	}
	for i, a := range agents {
		id := a["agent_id"].(string)
		agents[i]["registered"] = transportRegistered(id)
	}
	return ok(Result{"agents": agents, "active_tasks": len(defaultRegistry.list())})
}

func transportRegistered(id string) bool {
	for _, t := range BuildTransports() {
		if t.Descriptor().AgentID == id {
			return true
		}
	}
	return false
}

// DelegateTask implements delegate_task(description, type, path, context,
// preferred_agent): classifies the description, selects a workflow, and
// starts it asynchronously, returning a task id immediately.
func DelegateTask(cfg *config.Config, description, taskType, path string, extraContext map[string]string, preferredAgent string) Result {
	c := classify.Classify(description)
	wf := workflow.SelectWorkflow(c)
	shape, err := model.BuildShape(wf, nil, 120)
	if err != nil {
		return ErrorResult(cerr.ErrValidation(cerr.CodeValidationWorkflow, "workflow shape invalid").WithCause(err))
	}

	store := newStateStore(cfg)
	project, err := store.GetOrCreate(path, "")
	if err != nil {
		return ErrorResult(err)
	}
	feature, err := project.StartFeature(description, wf.Name)
	if err != nil {
		return ErrorResult(err)
	}
	feature.Metadata = extraContext
	if err := store.Save(project); err != nil {
		return ErrorResult(err)
	}

	transports := BuildTransports()
	if preferredAgent != "" {
		transports = preferTransport(transports, preferredAgent)
	}

	breakers := newBreakers(cfg)
	sink := buildProgressSink(cfg, path, feature.ID)
	router := routing.NewAgentRouter(breakers, sink,
		time.Duration(cfg.Router.CancelGraceS)*time.Second,
		time.Duration(cfg.Router.HeartbeatIntervalS)*time.Second)
	coord := workflow.New(router, cfg.Router.MaxPhaseRetries, time.Duration(cfg.Router.DefaultTimeoutS)*time.Second).
		WithTracer(buildTracer(cfg))

	availability := map[string]model.AgentAvailability{}
	for _, t := range transports {
		availability[t.Descriptor().AgentID] = model.AgentAvailability{AgentID: t.Descriptor().AgentID, Available: true}
	}
	deps := workflow.RunDeps{
		Classification: c,
		Transports:     transports,
		Availability:   availability,
		Executor:       noopExecutor{},
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	task := &Task{
		ID:          uuid.NewString(),
		Description: description,
		Type:        taskType,
		Path:        path,
		Status:      TaskQueued,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
		cancel:      cancel,
	}
	defaultRegistry.put(task)

	go func() {
		runTask(task, taskCtx, coord, feature, wf, shape, deps)
		_ = store.Save(project)
	}()

	return ok(Result{"task_id": task.ID, "workflow_type": wf.Name, "task_status": string(TaskQueued)})
}

// GetTaskStatus implements get_task_status(id).
func GetTaskStatus(id string) Result {
	task, ok2 := defaultRegistry.get(id)
	if !ok2 {
		return ErrorResult(cerr.ErrNotFound(cerr.CodeFeatureNotFound, fmt.Sprintf("no task with id %s", id)))
	}
	return ok(Result{
		"task_id":     task.ID,
		"task_status": string(task.Status),
		"agent_id":    task.AgentID,
		"error":       task.Error,
		"updated_at":  task.UpdatedAt,
	})
}

// ListActiveTasks implements list_active_tasks(): tasks not yet terminal.
func ListActiveTasks() Result {
	var out []Result
	for _, t := range defaultRegistry.list() {
		if t.Status == TaskCompleted || t.Status == TaskFailed || t.Status == TaskCancelled {
			continue
		}
		out = append(out, Result{"task_id": t.ID, "task_status": string(t.Status), "description": t.Description})
	}
	return ok(Result{"tasks": out, "count": len(out)})
}

// CancelTask implements cancel_task(id). Unlike the source this cancellation
// is mandatory and immediate: the task's context is cancelled, which the
// AgentRouter observes on its next poll and the WorkflowCoordinator surfaces
// as a terminal cancelled status.
func CancelTask(id string) Result {
	task, ok2 := defaultRegistry.get(id)
	if !ok2 {
		return ErrorResult(cerr.ErrNotFound(cerr.CodeFeatureNotFound, fmt.Sprintf("no task with id %s", id)))
	}
	if task.Status == TaskCompleted || task.Status == TaskFailed || task.Status == TaskCancelled {
		return ok(Result{"task_id": id, "task_status": string(task.Status), "already_terminal": true})
	}
	task.cancel()
	defaultRegistry.snapshot(task, TaskCancelled, task.AgentID, "cancelled by caller")
	return ok(Result{"task_id": id, "task_status": string(TaskCancelled)})
}

// ExecuteWithBestAgent implements execute_with_best_agent(task, path,
// preferred, require_plan_approval, timeout, context_size). Unlike
// DelegateTask, this runs synchronously and returns the full outcome.
func ExecuteWithBestAgent(ctx context.Context, cfg *config.Config, task, path, preferred string, requirePlanApproval bool, timeout time.Duration, contextSize int) Result {
	c := classify.Classify(task)
	if requirePlanApproval {
		if c.RequiredCapabilities == nil {
			c.RequiredCapabilities = map[model.Capability]bool{}
		}
		c.RequiredCapabilities[model.CapabilityPlanApproval] = true
	}
	if contextSize > 0 {
		c.EstContextLines = contextSize
	}

	transports := BuildTransports()
	if preferred != "" {
		transports = preferTransport(transports, preferred)
	}
	availability := map[string]model.AgentAvailability{}
	for _, t := range transports {
		availability[t.Descriptor().AgentID] = model.AgentAvailability{AgentID: t.Descriptor().AgentID, Available: true}
	}

	if timeout <= 0 {
		timeout = time.Duration(cfg.Router.DefaultTimeoutS) * time.Second
	}
	breakers := newBreakers(cfg)
	sessionID := uuid.NewString()
	router := routing.NewAgentRouter(breakers, buildProgressSink(cfg, path, sessionID),
		time.Duration(cfg.Router.CancelGraceS)*time.Second,
		time.Duration(cfg.Router.HeartbeatIntervalS)*time.Second)

	result := router.Execute(ctx, "execute_with_best_agent", c, transports, availability, noopExecutor{},
		routing.InvocationRequest{Prompt: task}, timeout)

	failures := make([]string, 0, len(result.Failures))
	for _, f := range result.Failures {
		failures = append(failures, fmt.Sprintf("%s: %v", f.AgentID, f.Err))
	}
	if result.State != routing.StateSuccess {
		return ErrorResult(cerr.ErrUnavailable(cerr.CodeAgentUnavailable, fmt.Sprintf("no agent completed %s: state=%s", task, result.State)).WithDetail("failures", failures))
	}
	return ok(Result{"agent_id": result.AgentID, "state": string(result.State)})
}

func preferTransport(transports []routing.AgentTransport, preferred string) []routing.AgentTransport {
	for i, t := range transports {
		if t.Descriptor().AgentID == preferred {
			out := append([]routing.AgentTransport{t}, transports[:i]...)
			return append(out, transports[i+1:]...)
		}
	}
	return transports
}

// noopExecutor is the Executor a CLI build wires in place of a real
// child-process runner when no concrete execution backend is configured;
// concrete child-process/HTTP execution is out of scope (spec §1 non-goal).
type noopExecutor struct{}

func (noopExecutor) Run(ctx context.Context, inv routing.Invocation) routing.InvocationResult {
	return routing.InvocationResult{Succeeded: false, Err: cerr.ErrUnavailable(cerr.CodeAgentUnavailable, "no executor configured for this build")}
}
