// Package contextenrich builds the ProjectContext an agent prompt is
// assembled from, combining Scanner output with framework, architecture,
// and documentation signal.
package contextenrich

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/andywolf/cde/internal/model"
	"github.com/andywolf/cde/internal/scanner"
	"github.com/andywolf/cde/internal/workspace"
)

const defaultGitWindowDays = 30

// projectTypePriority fixes the tie-break order when more than one
// project-type signal matches: mcp-server beats web-app beats api beats
// cli beats library.
var projectTypePriority = []string{"mcp-server", "web-app", "api", "cli", "library"}

// Enrich scans root and produces the ProjectContext used to seed agent
// prompts. It never fails hard on a missing signal: every sub-detector
// degrades to its zero value rather than aborting the whole enrichment.
func Enrich(ctx context.Context, root string, gitWindowDays int) (model.ProjectContext, error) {
	if gitWindowDays <= 0 {
		gitWindowDays = defaultGitWindowDays
	}

	info, err := scanner.New(root).Scan()
	if err != nil {
		return model.ProjectContext{}, err
	}

	pc := model.ProjectContext{
		Frameworks:    frameworksFromInfo(info),
		BuildCommands: info.BuildCommands,
		TestCommands:  info.TestCommands,
	}
	pc.Languages = languageShares(info.Languages)

	pattern, monorepo := detectArchitecturePattern(root, info.Structure)
	pc.ArchitecturePattern = pattern
	pc.Monorepo = monorepo
	if monorepo {
		pc.Packages = detectWorkspacePackages(root)
	}

	pc.ProjectType = detectProjectType(info, pattern)

	doc := synthesiseDocumentation(root)
	pc.TechStackTerms = doc.techStackTerms
	pc.Conventions = doc.conventions
	if len(doc.buildCommands) > 0 {
		pc.BuildCommands = mergeUnique(pc.BuildCommands, doc.buildCommands)
	}
	if len(doc.testCommands) > 0 {
		pc.TestCommands = mergeUnique(pc.TestCommands, doc.testCommands)
	}

	insights, gitErr := scanner.AnalyseGit(ctx, root, gitWindowDays)
	if gitErr == nil {
		pc.GitInsights = insights
	}

	pc.ComputedAt = computedAt(ctx)
	return pc, nil
}

// computedAt reads a deterministic clock from context when injected for
// tests, falling back to wall-clock time in production.
type clockKey struct{}

// WithClock returns a context carrying a fixed time source, used by tests
// that need ProjectContext.ComputedAt to be reproducible.
func WithClock(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, clockKey{}, now)
}

func computedAt(ctx context.Context) time.Time {
	if now, ok := ctx.Value(clockKey{}).(time.Time); ok {
		return now
	}
	return time.Now().UTC()
}

func frameworksFromInfo(info *scanner.ProjectInfo) []string {
	if info.Framework == "" {
		return nil
	}
	return []string{info.Framework}
}

func languageShares(langs []scanner.LanguageInfo) []model.LanguageShare {
	shares := make([]model.LanguageShare, 0, len(langs))
	for _, l := range langs {
		shares = append(shares, model.LanguageShare{
			Name:       l.Name,
			FileCount:  l.FileCount,
			Percentage: l.Percentage,
		})
	}
	return shares
}

func mergeUnique(base, extra []string) []string {
	seen := map[string]bool{}
	for _, b := range base {
		seen[b] = true
	}
	out := append([]string{}, base...)
	for _, e := range extra {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// detectWorkspacePackages prefers an explicit pnpm-workspace.yaml manifest
// (authoritative package list, glob-expanded) and falls back to a directory-
// name heuristic for monorepos that declare packages some other way.
func detectWorkspacePackages(root string) []string {
	if workspace.HasPnpmWorkspace(root) {
		if pkgs, err := workspace.ParsePnpmWorkspace(root); err == nil {
			sort.Strings(pkgs)
			return pkgs
		}
	}
	return detectWorkspacePackagesHeuristic(root)
}

func detectWorkspacePackagesHeuristic(root string) []string {
	var packages []string
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if !e.IsDir() || scanner.IsIgnoredDir(e.Name()) {
			continue
		}
		for _, sub := range []string{"packages", "services", "apps", "cmd"} {
			if e.Name() == sub {
				nested, _ := os.ReadDir(filepath.Join(root, sub))
				for _, n := range nested {
					if n.IsDir() {
						packages = append(packages, filepath.Join(sub, n.Name()))
					}
				}
			}
		}
	}
	sort.Strings(packages)
	return packages
}
