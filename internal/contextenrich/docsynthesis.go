package contextenrich

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

type docSynthesis struct {
	techStackTerms []string
	conventions    []string
	buildCommands  []string
	testCommands   []string
}

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:bash|sh|shell)?\\n(.*?)```")

var techStackTermPattern = regexp.MustCompile(`\b([A-Z][a-zA-Z0-9]*(?:\.[a-z]+)?)\b`)

var stopWordTerms = map[string]bool{
	"The": true, "This": true, "A": true, "An": true, "It": true, "We": true,
	"In": true, "For": true, "To": true, "And": true, "Is": true, "Are": true,
}

// synthesiseDocumentation reads the project's top-level README/CONTRIBUTING
// files and extracts architecture prose, tech-stack terms, and fenced
// build/test command blocks. Grounded on agentmd.Parser's section-splitting
// idiom, generalized from marker-delimited sections to heading- and
// fence-delimited ones.
func synthesiseDocumentation(root string) docSynthesis {
	var result docSynthesis
	terms := map[string]bool{}

	for _, name := range []string{"README.md", "CONTRIBUTING.md"} {
		content, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		text := string(content)

		for _, m := range techStackTermPattern.FindAllStringSubmatch(text, -1) {
			term := m[1]
			if stopWordTerms[term] || len(term) < 3 {
				continue
			}
			terms[term] = true
		}

		for _, section := range extractSections(text) {
			lower := strings.ToLower(section.heading)
			for _, block := range fencedBlockPattern.FindAllStringSubmatch(section.body, -1) {
				lines := splitNonEmptyLines(block[1])
				switch {
				case strings.Contains(lower, "build") || strings.Contains(lower, "install"):
					result.buildCommands = append(result.buildCommands, lines...)
				case strings.Contains(lower, "test"):
					result.testCommands = append(result.testCommands, lines...)
				}
			}
			if strings.Contains(lower, "convention") || strings.Contains(lower, "style") {
				result.conventions = append(result.conventions, extractBullets(section.body)...)
			}
		}
	}

	result.techStackTerms = sortedKeys(terms)
	return result
}

type mdSection struct {
	heading string
	body    string
}

var headingPattern = regexp.MustCompile(`(?m)^#{1,3}\s+(.+)$`)

// extractSections splits markdown content into heading-delimited
// sections, mirroring agentmd.Parser's split-on-marker approach but using
// heading lines as the delimiter instead of generated-content markers.
func extractSections(content string) []mdSection {
	locs := headingPattern.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		return []mdSection{{heading: "", body: content}}
	}
	sections := make([]mdSection, 0, len(locs))
	for i, loc := range locs {
		heading := content[loc[2]:loc[3]]
		bodyStart := loc[1]
		bodyEnd := len(content)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		sections = append(sections, mdSection{heading: heading, body: content[bodyStart:bodyEnd]})
	}
	return sections
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

func extractBullets(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
			out = append(out, strings.TrimSpace(line[2:]))
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
