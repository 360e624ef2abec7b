package model

// WorkflowPhase is a single named step of a Workflow.
type WorkflowPhase struct {
	ID              string   `yaml:"id" json:"id"`
	Description     string   `yaml:"description" json:"description"`
	RequiredInputs  []string `yaml:"inputs,omitempty" json:"required_inputs,omitempty"`
	ProducedOutputs []string `yaml:"outputs" json:"produced_outputs"`
	PromptRecipeID  string   `yaml:"prompt_recipe,omitempty" json:"prompt_recipe_id,omitempty"`
	HandlerID       string   `yaml:"handler,omitempty" json:"handler_id,omitempty"`
}

// Workflow is an ordered sequence of phases identified by name+version.
type Workflow struct {
	Name    string          `yaml:"name" json:"name"`
	Version string          `yaml:"version" json:"version"`
	Phases  []WorkflowPhase `yaml:"phases" json:"phases"`
}

// ExternalUserPrompt is the pseudo artifact-type representing the raw
// request text, always considered "produced" before the first phase runs.
const ExternalUserPrompt = "user_prompt"

// PhaseByID finds a phase by id, or returns nil.
func (w *Workflow) PhaseByID(id string) *WorkflowPhase {
	for i := range w.Phases {
		if w.Phases[i].ID == id {
			return &w.Phases[i]
		}
	}
	return nil
}

// WorkflowShape is the per-request derived subset-and-order of phases to
// run. Skipping a phase is only legal if no retained successor declares an
// input produced exclusively by the skipped phase.
type WorkflowShape struct {
	PhasesToRun []WorkflowPhase
	Skipped     []WorkflowPhase
	EstDuration int // seconds
}

// BuildShape derives a WorkflowShape for w, running every phase whose ID is
// not in skipIDs. It validates that no retained phase's required input
// depends exclusively on a skipped phase's output.
func BuildShape(w *Workflow, skipIDs map[string]bool, estSecondsPerPhase int) (WorkflowShape, error) {
	var shape WorkflowShape
	produced := map[string]bool{ExternalUserPrompt: true}

	retained := make([]WorkflowPhase, 0, len(w.Phases))
	skipped := make([]WorkflowPhase, 0)
	for _, phase := range w.Phases {
		if skipIDs[phase.ID] {
			skipped = append(skipped, phase)
			continue
		}
		retained = append(retained, phase)
	}

	// Validate required_inputs against the outputs of retained, preceding
	// phases (plus the external prompt), in order.
	for _, phase := range retained {
		for _, input := range phase.RequiredInputs {
			if !produced[input] {
				return shape, missingInputError(phase.ID, input)
			}
		}
		for _, out := range phase.ProducedOutputs {
			produced[out] = true
		}
	}

	shape.PhasesToRun = retained
	shape.Skipped = skipped
	shape.EstDuration = estSecondsPerPhase * len(retained)
	return shape, nil
}

type missingInputErr struct {
	phaseID, input string
}

func (e *missingInputErr) Error() string {
	return "phase " + e.phaseID + " requires input " + e.input + " which no retained earlier phase produces"
}

func missingInputError(phaseID, input string) error {
	return &missingInputErr{phaseID: phaseID, input: input}
}
