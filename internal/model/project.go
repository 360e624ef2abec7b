// Package model defines the data types shared by every cde component: the
// persisted Project/Feature graph, workflow definitions, classification
// results, agent descriptors, and the scan/recipe value objects that flow
// between components.
package model

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the lifecycle state of a Project.
type ProjectStatus string

const (
	ProjectOnboarding ProjectStatus = "onboarding"
	ProjectActive     ProjectStatus = "active"
	ProjectArchived   ProjectStatus = "archived"
)

// FeatureStatus is the lifecycle state of a Feature. Transitions move only
// along the phase order of the feature's workflow; completed and failed are
// terminal and accept no further transition.
type FeatureStatus string

const (
	FeatureDefining    FeatureStatus = "defining"
	FeatureDecomposing FeatureStatus = "decomposing"
	FeatureDesigning   FeatureStatus = "designing"
	FeatureImplementing FeatureStatus = "implementing"
	FeatureTesting     FeatureStatus = "testing"
	FeatureReviewing   FeatureStatus = "reviewing"
	FeatureCompleted   FeatureStatus = "completed"
	FeatureFailed      FeatureStatus = "failed"
)

// IsTerminal reports whether no further transition is legal from s.
func (s FeatureStatus) IsTerminal() bool {
	return s == FeatureCompleted || s == FeatureFailed
}

// Artifact is a named, serialisable output of a workflow phase.
type Artifact struct {
	Type   string            `json:"type"`
	Path   string            `json:"path,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
	Body   []byte            `json:"body,omitempty"`
}

// ArtifactSet is the collection of artifacts a single phase produced.
type ArtifactSet map[string]Artifact

// Feature is an in-flight unit of work against a Project. Features live in
// their owning Project's slice and are referenced by index or FeatureID
// elsewhere in the system; nothing holds a back-pointer to *Project, per the
// arena+index redesign of the cyclic Project/Feature reference in the
// original source.
type Feature struct {
	ID           string                 `json:"id"`
	ProjectID    string                 `json:"project_id"`
	Prompt       string                 `json:"prompt"`
	Status       FeatureStatus          `json:"status"`
	CurrentPhase string                 `json:"current_phase"`
	WorkflowType string                 `json:"workflow_type"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	Artifacts    map[string]ArtifactSet `json:"artifacts"`
	Metadata     map[string]string      `json:"metadata,omitempty"`
}

// Project is the top-level persisted unit. Feature IDs are unique within a
// project; created_at never exceeds updated_at.
type Project struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Path      string            `json:"path"`
	Status    ProjectStatus     `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Features  []Feature         `json:"features"`

	// Unknown preserves top-level keys this version of cde doesn't
	// recognise, so round-tripping an on-disk file from a newer schema
	// version never silently discards data.
	Unknown map[string]interface{} `json:"-"`
}

// NewProject synthesises a fresh onboarding-status Project for path.
func NewProject(path, name string) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:        uuid.NewString(),
		Name:      name,
		Path:      path,
		Status:    ProjectOnboarding,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]string{},
		Features:  []Feature{},
	}
}

// FeatureByID returns a pointer into p.Features for the given id, or nil.
func (p *Project) FeatureByID(id string) *Feature {
	for i := range p.Features {
		if p.Features[i].ID == id {
			return &p.Features[i]
		}
	}
	return nil
}

// StartFeature appends a new Feature in the defining status and returns it.
// Returns an error if a feature with a colliding id already exists (uuid
// collisions are not expected in practice, but the invariant is still
// enforced explicitly).
func (p *Project) StartFeature(prompt, workflowType string) (*Feature, error) {
	now := time.Now().UTC()
	f := Feature{
		ID:           uuid.NewString(),
		ProjectID:    p.ID,
		Prompt:       prompt,
		Status:       FeatureDefining,
		WorkflowType: workflowType,
		CreatedAt:    now,
		UpdatedAt:    now,
		Artifacts:    map[string]ArtifactSet{},
	}
	if p.FeatureByID(f.ID) != nil {
		return nil, uuidCollisionError(f.ID)
	}
	p.Features = append(p.Features, f)
	return &p.Features[len(p.Features)-1], nil
}

func uuidCollisionError(id string) error {
	return &duplicateFeatureIDError{id: id}
}

type duplicateFeatureIDError struct{ id string }

func (e *duplicateFeatureIDError) Error() string {
	return "duplicate feature id: " + e.id
}
