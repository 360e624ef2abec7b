package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andywolf/cde/internal/cerr"
	"github.com/andywolf/cde/internal/config"
	"github.com/andywolf/cde/internal/contextenrich"
	"github.com/andywolf/cde/internal/model"
	"github.com/andywolf/cde/internal/recipes"
	"github.com/andywolf/cde/internal/skills"
	"github.com/google/renameio/v2"
)

// CreateSpecification implements create_specification(feature_name,
// description, author, path): writes a frontmatter-tagged markdown spec
// file under <path>/specs/features/<feature_name>.md, in the same
// frontmatter shape ParseRecipe already reads tolerantly.
func CreateSpecification(featureName, description, author, path string) Result {
	if featureName == "" {
		return ErrorResult(cerr.ErrValidation(cerr.CodeValidationPrompt, "feature_name is required"))
	}
	dir := filepath.Join(path, "specs", "features")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ErrorResult(cerr.ErrUnavailable(cerr.CodeLockHeld, "cannot create specs directory").WithCause(err))
	}
	dest := filepath.Join(dir, featureName+".md")
	body := fmt.Sprintf("---\nid: %s\nauthor: %s\ncreated_at: %s\n---\n\n# %s\n\n%s\n",
		featureName, author, time.Now().UTC().Format(time.RFC3339), featureName, description)
	if err := renameio.WriteFile(dest, []byte(body), 0o644); err != nil {
		return ErrorResult(cerr.ErrUnavailable(cerr.CodeLockHeld, "failed to write specification").WithCause(err))
	}
	return ok(Result{"path": dest})
}

// OnboardingProject implements onboarding_project(path): enrich the project
// context and persist a fresh onboarding-status Project, without yet
// writing recipes or skills (that is setup_project's job).
func OnboardingProject(ctx context.Context, cfg *config.Config, path string) Result {
	pc, err := contextenrich.Enrich(ctx, path, cfg.Scanner.GitWindowDays)
	if err != nil {
		return ErrorResult(err)
	}
	store := newStateStore(cfg)
	project, err := store.GetOrCreate(path, "")
	if err != nil {
		return ErrorResult(err)
	}
	if err := store.Save(project); err != nil {
		return ErrorResult(err)
	}
	return ok(Result{
		"project_id":          project.ID,
		"project_type":        pc.ProjectType,
		"architecture_pattern": pc.ArchitecturePattern,
		"languages":           pc.Languages,
		"frameworks":          pc.Frameworks,
	})
}

// SetupProject implements setup_project(path, force): installs the CLI
// skills bundle and ensures the default recipe manifest is cached locally.
func SetupProject(ctx context.Context, cfg *config.Config, path string, force bool) Result {
	if err := skills.InstallProjectSkills(path, force); err != nil {
		return ErrorResult(cerr.ErrUnavailable(cerr.CodeLockHeld, "failed to install skills").WithCause(err))
	}
	breakers := newBreakers(cfg)
	store := newRecipeStore(cfg, breakers)
	source := recipes.SourceSpec{Base: cfg.Recipes.ManifestURL, Branch: "main"}
	result, err := store.EnsureRecipes(ctx, path, cfg.State.DirName, source, force)
	if err != nil {
		return ErrorResult(err)
	}
	return ok(Result{"skills_installed": true, "recipes": result.Files, "recipes_partial": result.Partial})
}

// PublishOnboarding implements publish_onboarding(documents, path, approve):
// when approve is set, writes every named document verbatim under
// <path>/.cde/onboarding/; otherwise reports what would be written without
// touching disk, mirroring the dry-run review step the spec's onboarding
// flow requires before committing generated material.
func PublishOnboarding(cfg *config.Config, documents map[string]string, path string, approve bool) Result {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	sort.Strings(names)

	if !approve {
		return ok(Result{"published": false, "documents": names})
	}

	dir := filepath.Join(path, cfg.State.DirName, "onboarding")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ErrorResult(cerr.ErrUnavailable(cerr.CodeLockHeld, "cannot create onboarding directory").WithCause(err))
	}
	written := make([]string, 0, len(names))
	for _, name := range names {
		dest := filepath.Join(dir, name)
		if err := renameio.WriteFile(dest, []byte(documents[name]), 0o644); err != nil {
			return ErrorResult(cerr.ErrUnavailable(cerr.CodeLockHeld, "failed to write "+name).WithCause(err))
		}
		written = append(written, dest)
	}
	return ok(Result{"published": true, "documents": written})
}

// SourceSkill implements source_skill(query, source, destination): fetches
// a single skill file from a remote recipe source into destination,
// reusing RecipeStore's breaker-guarded HTTP path.
func SourceSkill(ctx context.Context, cfg *config.Config, query, source, destination string) Result {
	breakers := newBreakers(cfg)
	store := newRecipeStore(cfg, breakers)
	body, err := store.Fetch(ctx, recipes.SourceSpec{Base: source, Branch: "main"}, query)
	if err != nil {
		return ErrorResult(err)
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return ErrorResult(cerr.ErrUnavailable(cerr.CodeLockHeld, "cannot create destination directory").WithCause(err))
	}
	if err := renameio.WriteFile(destination, body, 0o644); err != nil {
		return ErrorResult(cerr.ErrUnavailable(cerr.CodeLockHeld, "failed to write skill file").WithCause(err))
	}
	return ok(Result{"destination": destination, "bytes": len(body)})
}

// UpdateSkill implements update_skill(name, topics, max_sources): rewrites
// an existing local skill's tag list, capping how many topic sources are
// retained. It never fetches; source_skill is the only network path.
func UpdateSkill(path, name string, topics []string, maxSources int) Result {
	if maxSources > 0 && len(topics) > maxSources {
		topics = topics[:maxSources]
	}
	dest := filepath.Join(path, name+".md")
	raw, err := os.ReadFile(dest)
	if err != nil {
		return ErrorResult(cerr.ErrNotFound(cerr.CodeRecipeNotFound, "no local skill named "+name).WithCause(err))
	}
	entry, err := recipes.ParseRecipe(dest, raw)
	if err != nil {
		return ErrorResult(err)
	}
	skill := model.Skill{Name: name, Domain: entry.Category, Tags: topics, Body: string(entry.Body)}
	updated := fmt.Sprintf("---\nid: %s\ncategory: %s\ntags: %s\n---\n\n%s",
		name, skill.Domain, strings.Join(skill.Tags, ","), skill.Body)
	if err := renameio.WriteFile(dest, []byte(updated), 0o644); err != nil {
		return ErrorResult(cerr.ErrUnavailable(cerr.CodeLockHeld, "failed to update skill").WithCause(err))
	}
	return ok(Result{"name": name, "topics": skill.Tags})
}

// toolDescriptions is the static catalog search_tools searches over — the
// authoritative operation list, one line each.
var toolDescriptions = map[string]string{
	"scan_documentation":     "Inventory a project's markdown documentation.",
	"analyse_documentation":  "Scan documentation plus derive tech-stack/build/convention signal.",
	"analyse_git":            "Summarise commit history, contributors, hotspots, and activity.",
	"create_specification":   "Write a new feature specification document.",
	"onboarding_project":     "Enrich and persist a fresh project's context.",
	"setup_project":          "Install CLI skills and cache the default recipe manifest.",
	"publish_onboarding":     "Write approved onboarding documents to disk.",
	"select_workflow":        "Classify a prompt and pick its workflow.",
	"download_recipes":       "Fetch the recipe manifest's files into a project.",
	"check_recipes":          "Report recipe cache freshness without fetching.",
	"source_skill":           "Fetch a single skill file from a remote source.",
	"update_skill":           "Rewrite a local skill's topic tags.",
	"list_available_agents":  "List every agent back-end this build knows.",
	"select_agent":           "Pick the best agent for a task without running it.",
	"execute_with_best_agent": "Classify, select, and synchronously run a task.",
	"delegate_task":          "Start a task asynchronously and return its id.",
	"get_task_status":        "Look up one delegated task's status.",
	"list_active_tasks":      "List every non-terminal delegated task.",
	"cancel_task":            "Cancel a delegated task immediately.",
	"health_check":           "Report agent registration and breaker state.",
	"search_tools":           "Search this operation catalog by keyword.",
}

// SearchTools implements search_tools(query, detail).
func SearchTools(query, detail string) Result {
	q := strings.ToLower(strings.TrimSpace(query))
	names := make([]string, 0, len(toolDescriptions))
	for name := range toolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)

	matches := make([]Result, 0, len(names))
	for _, name := range names {
		desc := toolDescriptions[name]
		if q != "" && !strings.Contains(name, q) && !strings.Contains(strings.ToLower(desc), q) {
			continue
		}
		entry := Result{"name": name}
		if detail == "full" {
			entry["description"] = desc
		}
		matches = append(matches, entry)
	}
	return ok(Result{"tools": matches, "count": len(matches)})
}
