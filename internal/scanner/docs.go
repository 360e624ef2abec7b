package scanner

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andywolf/cde/internal/model"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	defaultDocScanTimeout = 30 * time.Second
	frontmatterPeekBytes  = 512
)

// categoryMap maps a file's first two path components to a fixed category
// label, grounded on the directory-quorum style mapping the teacher uses for
// source/test directory detection (internal/scanner/structure.go), extended
// with the documentation-specific categories the spec names.
var categoryMap = map[string]string{
	"specs/features":      "specs/features",
	"docs":                "docs",
	"agent-docs/sessions": "agent-docs/sessions",
}

// rootAllowList is the set of filenames tolerated directly under the
// project root without being flagged orphaned.
var rootAllowList = map[string]bool{
	"README.md": true, "CONTRIBUTING.md": true, "CHANGELOG.md": true,
	"LICENSE.md": true, "CODE_OF_CONDUCT.md": true, "SECURITY.md": true,
}

// listMarkdownFiles enumerates every *.md file under root, skipping ignored
// directories, and returns paths relative to root in sorted order so both
// the parallel and pure scans observe identical, deterministic input.
func listMarkdownFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if fi.IsDir() {
			if path != root && ignoreDirs[fi.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(fi.Name(), ".md") {
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil {
				files = append(files, rel)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// classifyDocFile is the pure, single-file classification function shared
// by both the parallel and the serial scan paths, so their outputs are
// structurally guaranteed to agree (spec §8 Scanner equivalence property).
func classifyDocFile(root, relPath string) model.DocEntry {
	entry := model.DocEntry{RelativePath: relPath}

	abs := filepath.Join(root, relPath)
	info, err := os.Stat(abs)
	if err == nil {
		entry.SizeBytes = info.Size()
	}

	f, err := os.Open(abs)
	if err != nil {
		return entry
	}
	defer f.Close()

	peek := make([]byte, frontmatterPeekBytes)
	n, _ := f.Read(peek)
	peek = peek[:n]
	entry.HasFrontmatter, entry.FrontmatterFields = parseFrontmatter(peek)

	entry.LineCount = countLines(abs)
	entry.Category = categorize(relPath)

	if depth := strings.Count(relPath, string(filepath.Separator)); depth == 0 {
		if !rootAllowList[relPath] {
			entry.Orphaned = true
		}
	}

	return entry
}

func parseFrontmatter(peek []byte) (bool, map[string]bool) {
	const delim = "---\n"
	s := string(peek)
	if !strings.HasPrefix(s, delim) {
		return false, nil
	}
	rest := s[len(delim):]
	end := strings.Index(rest, "\n"+delim)
	if end == -1 {
		return false, nil
	}
	block := rest[:end]

	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
		return true, nil
	}
	fields := make(map[string]bool, len(raw))
	for k := range raw {
		fields[k] = true
	}
	return true, fields
}

func countLines(abs string) int {
	f, err := os.Open(abs)
	if err != nil {
		return 0
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n
}

func categorize(relPath string) string {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) >= 3 {
		key := parts[0] + "/" + parts[1]
		if cat, ok := categoryMap[key]; ok {
			return cat
		}
	}
	if len(parts) >= 2 {
		if cat, ok := categoryMap[parts[0]]; ok {
			return cat
		}
	}
	if len(parts) == 1 {
		return "root"
	}
	return "other"
}

// ScanDocumentationPure is the single-goroutine fallback scan, used when the
// accelerated implementation is unavailable and as the reference
// implementation the parallel path is tested against.
func ScanDocumentationPure(ctx context.Context, root string) (model.DocInventory, error) {
	files, err := listMarkdownFiles(root)
	if err != nil {
		return model.DocInventory{}, err
	}

	deadline, hasDeadline := ctx.Deadline()
	entries := make([]model.DocEntry, 0, len(files))
	for _, rel := range files {
		if hasDeadline && time.Now().After(deadline) {
			return model.DocInventory{Entries: entries, Timeout: true}, nil
		}
		entries = append(entries, classifyDocFile(root, rel))
	}
	return model.DocInventory{Entries: entries}, nil
}

// ScanDocumentation is the accelerated, bounded-worker-pool scan (Regime A):
// files are classified concurrently across workerCount goroutines and
// collected back into the same sorted-by-relative-path order the pure path
// produces, so the two are observably equal on any tree. The fan-out follows
// quorum-ai's internal/service/workflow.go use of errgroup.WithContext: each
// file gets its own Go call, SetLimit caps how many run at once, and the
// group's derived context cancels every in-flight classification as soon as
// the deadline below trips or one call returns an error.
func ScanDocumentation(ctx context.Context, root string, workerCount int, timeout time.Duration) (model.DocInventory, error) {
	if workerCount <= 0 {
		workerCount = 1
	}
	if timeout <= 0 {
		timeout = defaultDocScanTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	files, err := listMarkdownFiles(root)
	if err != nil {
		return model.DocInventory{}, err
	}

	entries := make([]model.DocEntry, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount)

	for i, rel := range files {
		i, rel := i, rel
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			entries[i] = classifyDocFile(root, rel)
			return nil
		})
	}

	timeoutHit := g.Wait() != nil

	return model.DocInventory{Entries: entries, Timeout: timeoutHit}, nil
}
