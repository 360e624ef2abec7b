package contextenrich

import (
	"os"
	"path/filepath"

	"github.com/andywolf/cde/internal/scanner"
)

// archSignature is one candidate architecture pattern: it matches when
// either a marker config file exists at root, or at least quorumDirs of
// its directory list are present anywhere under root. This two-step
// quorum generalizes the teacher's single-file framework match into a
// pattern that tolerates partial layouts.
type archSignature struct {
	name        string
	configFiles []string
	dirPatterns []string
	quorumDirs  int
}

var archSignatures = []archSignature{
	{name: "monorepo", configFiles: []string{"pnpm-workspace.yaml", "lerna.json", "nx.json", "turbo.json"}, dirPatterns: []string{"packages", "apps"}, quorumDirs: 1},
	{name: "hexagonal", dirPatterns: []string{"internal/ports", "internal/adapters", "internal/domain", "internal/core"}, quorumDirs: 2},
	{name: "layered", dirPatterns: []string{"controllers", "services", "repositories", "models"}, quorumDirs: 3},
	{name: "clean-architecture", dirPatterns: []string{"entities", "usecases", "interfaces", "infrastructure"}, quorumDirs: 3},
}

// detectArchitecturePattern returns the first matching pattern in
// archSignatures's fixed priority order and whether the tree is a
// multi-package monorepo.
func detectArchitecturePattern(root string, structure scanner.ProjectStructure) (string, bool) {
	monorepo := false
	for _, sig := range archSignatures {
		if matchesConfigFile(root, sig.configFiles) || matchesDirQuorum(root, sig.dirPatterns, sig.quorumDirs) {
			if sig.name == "monorepo" {
				monorepo = true
			}
			return sig.name, monorepo
		}
	}
	return "unknown", monorepo
}

func matchesConfigFile(root string, files []string) bool {
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(root, f)); err == nil {
			return true
		}
	}
	return false
}

func matchesDirQuorum(root string, patterns []string, quorum int) bool {
	if len(patterns) == 0 {
		return false
	}
	hits := 0
	for _, p := range patterns {
		if dirExistsAnywhere(root, p) {
			hits++
		}
	}
	return hits >= quorum
}

// dirExistsAnywhere checks for pattern both at root and one level under
// root (covers cmd/<service>/internal/... layouts) without a full walk.
func dirExistsAnywhere(root, pattern string) bool {
	if info, err := os.Stat(filepath.Join(root, pattern)); err == nil && info.IsDir() {
		return true
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() || scanner.IsIgnoredDir(e.Name()) {
			continue
		}
		if info, err := os.Stat(filepath.Join(root, e.Name(), pattern)); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// projectTypeSignature matches a project type from build/framework signal.
type projectTypeSignature struct {
	name      string
	frameworks []string
	dirHints  []string
}

var projectTypeSignatures = map[string]projectTypeSignature{
	"mcp-server": {name: "mcp-server", dirHints: []string{"mcp", ".mcp"}},
	"web-app":    {name: "web-app", frameworks: []string{"next.js", "nuxt", "sveltekit", "react+vite", "vue"}},
	"api":        {name: "api", frameworks: []string{"gin", "echo", "fiber", "chi", "gorilla", "express", "fastify", "nestjs"}},
	"cli":        {name: "cli", frameworks: []string{"cobra"}},
}

// detectProjectType resolves project type using the fixed priority order
// mcp-server > web-app > api > cli > library > unknown, checking each
// candidate's frameworks or directory hints in turn.
func detectProjectType(info *scanner.ProjectInfo, archPattern string) string {
	for _, name := range projectTypePriority {
		sig := projectTypeSignatures[name]
		for _, fw := range sig.frameworks {
			if info.Framework == fw {
				return name
			}
		}
		for _, hint := range sig.dirHints {
			if hint == info.Structure.CISystem {
				return name
			}
			for _, cfg := range info.Structure.ConfigFiles {
				if filepath.Base(cfg) == hint || filepath.Base(cfg) == hint+".json" {
					return name
				}
			}
		}
	}
	if len(info.Structure.EntryPoints) == 0 && len(info.Languages) > 0 {
		return "library"
	}
	return "unknown"
}
