package api

import (
	"context"
	"sync"
	"time"

	"github.com/andywolf/cde/internal/model"
	"github.com/andywolf/cde/internal/workflow"
)

// TaskStatus mirrors a Feature's lifecycle status plus the two states that
// only make sense at the task-registry level (queued before the first
// phase starts, and cancelled on an explicit cancel_task call — the
// original source's cancel_task did not actually propagate cancellation to
// running work; this registry makes that propagation mandatory).
type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Task is one in-process delegate_task run.
type Task struct {
	ID          string
	Description string
	Type        string
	Path        string
	Status      TaskStatus
	AgentID     string
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	cancel context.CancelFunc
}

// registry is the in-process sync.Map[FeatureID]*runState analogue: one
// process-lifetime map of every task started via DelegateTask, mirroring
// the teacher's controller.taskStates map.
type registry struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

var defaultRegistry = &registry{tasks: map[string]*Task{}}

func (r *registry) put(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
}

func (r *registry) get(id string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	return t, ok
}

func (r *registry) list() []*Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out
}

func (r *registry) snapshot(t *Task, status TaskStatus, agentID, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.Status = status
	t.AgentID = agentID
	t.Error = errMsg
	t.UpdatedAt = time.Now().UTC()
}

// runTask drives feature through wf on a detached goroutine, updating t's
// status as the Coordinator reports outcomes. c and deps are bound at call
// time so the caller (DelegateTask / ExecuteWithBestAgent) controls the
// agent pool and classification used for this run.
func runTask(t *Task, ctx context.Context, coord *workflow.Coordinator, feature *model.Feature, wf *model.Workflow, shape model.WorkflowShape, deps workflow.RunDeps) {
	defaultRegistry.snapshot(t, TaskRunning, "", "")
	outcome := coord.RunFeature(ctx, feature, wf, shape, deps)

	lastAgent := ""
	for _, p := range outcome.Phases {
		if p.AgentID != "" {
			lastAgent = p.AgentID
		}
	}

	switch {
	case outcome.Err != nil && ctx.Err() == context.Canceled:
		defaultRegistry.snapshot(t, TaskCancelled, lastAgent, outcome.Err.Error())
	case outcome.Err != nil:
		defaultRegistry.snapshot(t, TaskFailed, lastAgent, outcome.Err.Error())
	default:
		defaultRegistry.snapshot(t, TaskCompleted, lastAgent, "")
	}
}
