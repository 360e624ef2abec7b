package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func buildDocFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "README.md"), "# Project\n\nhello\n")
	writeTestFile(t, filepath.Join(root, "docs", "guide.md"), "---\ntitle: Guide\n---\n\nbody\n")
	writeTestFile(t, filepath.Join(root, "specs", "features", "f1.md"), "# Feature one\n")
	writeTestFile(t, filepath.Join(root, "stray.md"), "orphan candidate\n")
	writeTestFile(t, filepath.Join(root, "node_modules", "pkg", "README.md"), "ignored\n")
	return root
}

func TestScanDocumentationEquivalence(t *testing.T) {
	root := buildDocFixture(t)

	pure, err := ScanDocumentationPure(context.Background(), root)
	require.NoError(t, err)

	parallel, err := ScanDocumentation(context.Background(), root, 4, 5*time.Second)
	require.NoError(t, err)

	require.Equal(t, pure.Timeout, parallel.Timeout)
	require.Equal(t, len(pure.Entries), len(parallel.Entries))
	for i := range pure.Entries {
		require.Equal(t, pure.Entries[i], parallel.Entries[i], "entry %d should match between pure and parallel scans", i)
	}
}

func TestScanDocumentationIgnoresVendorDirectories(t *testing.T) {
	root := buildDocFixture(t)
	inv, err := ScanDocumentationPure(context.Background(), root)
	require.NoError(t, err)

	for _, e := range inv.Entries {
		require.NotContains(t, e.RelativePath, "node_modules")
	}
}

func TestClassifyDocFileDetectsFrontmatterAndCategory(t *testing.T) {
	root := buildDocFixture(t)
	entry := classifyDocFile(root, filepath.Join("docs", "guide.md"))
	require.True(t, entry.HasFrontmatter)
	require.True(t, entry.FrontmatterFields["title"])
	require.Equal(t, "docs", entry.Category)
}

func TestClassifyDocFileFlagsOrphanedRootFiles(t *testing.T) {
	root := buildDocFixture(t)
	entry := classifyDocFile(root, "stray.md")
	require.True(t, entry.Orphaned)

	readme := classifyDocFile(root, "README.md")
	require.False(t, readme.Orphaned)
}

func TestScanDocumentationSingleWorkerMatchesMultiWorker(t *testing.T) {
	root := buildDocFixture(t)

	one, err := ScanDocumentation(context.Background(), root, 1, 5*time.Second)
	require.NoError(t, err)
	many, err := ScanDocumentation(context.Background(), root, 8, 5*time.Second)
	require.NoError(t, err)

	require.Equal(t, one.Entries, many.Entries)
}
