// Package recipes implements the RecipeStore (C2): a local recipe cache
// backed by a built-in manifest (grounded on the teacher's embedded
// internal/skills manifest), fetched-and-cached remote recipe bodies with a
// TTL index, and a circuit-breaker-guarded HTTP path.
package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andywolf/cde/internal/breaker"
	"github.com/andywolf/cde/internal/cerr"
	"github.com/andywolf/cde/internal/model"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultCacheTTL = 24 * time.Hour
	recipesDirName  = "recipes"
	cacheFileName   = "cache_index.json"
	httpTimeout     = 60 * time.Second
	maxRedirects    = 3
)

// SourceSpec names the remote repository a recipe manifest is fetched from.
type SourceSpec struct {
	Base   string // e.g. https://raw.githubusercontent.com/org/repo
	Branch string
}

// ManifestFileResult is the per-file outcome of EnsureRecipes.
type ManifestFileResult struct {
	Destination string
	Downloaded  bool
	Skipped     bool
	Failed      bool
	Reason      string
}

// ManifestResult is the aggregate outcome of EnsureRecipes.
type ManifestResult struct {
	Partial bool
	Files   []ManifestFileResult
}

// ManifestEntry is one file a recipe manifest declares.
type ManifestEntry struct {
	SourcePath  string `yaml:"source_path"`
	Destination string `yaml:"destination"`
}

// Store is the RecipeStore (C2).
type Store struct {
	cacheTTL time.Duration
	breakers *breaker.Registry
	client   *http.Client
	manifest []ManifestEntry
}

// Option configures a Store at construction.
type Option func(*Store)

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Store) { s.cacheTTL = ttl }
}

func WithBreakerRegistry(r *breaker.Registry) Option {
	return func(s *Store) { s.breakers = r }
}

func WithManifest(entries []ManifestEntry) Option {
	return func(s *Store) { s.manifest = entries }
}

// New constructs a Store using the built-in default manifest unless
// overridden via WithManifest.
func New(opts ...Option) *Store {
	s := &Store{
		cacheTTL: defaultCacheTTL,
		breakers: breaker.NewRegistry(breaker.DefaultThreshold, breaker.DefaultCooldown),
		client: &http.Client{
			Timeout: httpTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		manifest: defaultManifest,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) recipesDir(projectPath string, stateDirName string) string {
	return filepath.Join(projectPath, stateDirName, recipesDirName)
}

// EnsureRecipes fetches each file the manifest declares into the project's
// recipe directory, skipping files that already exist unless force is set.
// Individual file failures are recorded and do not abort the remaining
// files; the overall result is Partial when any file failed.
func (s *Store) EnsureRecipes(ctx context.Context, projectPath, stateDirName string, source SourceSpec, force bool) (ManifestResult, error) {
	dir := s.recipesDir(projectPath, stateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ManifestResult{}, cerr.ErrUnavailable("E410", "cannot create recipe directory").WithCause(err)
	}

	var result ManifestResult
	br := s.breakers.For(breakerKey(source.Base, "manifest-fetch"))

	for _, entry := range s.manifest {
		dest := filepath.Join(dir, entry.Destination)
		fileResult := ManifestFileResult{Destination: entry.Destination}

		if !force {
			if _, err := os.Stat(dest); err == nil {
				fileResult.Skipped = true
				result.Files = append(result.Files, fileResult)
				continue
			}
		}

		if !br.Allow() {
			fileResult.Failed = true
			fileResult.Reason = "circuit breaker open"
			result.Files = append(result.Files, fileResult)
			result.Partial = true
			continue
		}

		body, err := s.fetch(ctx, source, entry.SourcePath)
		if err != nil {
			br.RecordFailure()
			fileResult.Failed = true
			fileResult.Reason = err.Error()
			result.Files = append(result.Files, fileResult)
			result.Partial = true
			continue
		}
		br.RecordSuccess()

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			fileResult.Failed = true
			fileResult.Reason = err.Error()
			result.Files = append(result.Files, fileResult)
			result.Partial = true
			continue
		}
		if err := renameio.WriteFile(dest, body, 0o644); err != nil {
			fileResult.Failed = true
			fileResult.Reason = err.Error()
			result.Files = append(result.Files, fileResult)
			result.Partial = true
			continue
		}

		fileResult.Downloaded = true
		result.Files = append(result.Files, fileResult)
	}

	return result, nil
}

// Fetch retrieves sourcePath relative to source through the same breaker-
// guarded HTTP path EnsureRecipes uses, for callers that need a single file
// (source_skill) rather than the whole manifest.
func (s *Store) Fetch(ctx context.Context, source SourceSpec, sourcePath string) ([]byte, error) {
	br := s.breakers.For(breakerKey(source.Base, "single-fetch"))
	if !br.Allow() {
		return nil, cerr.ErrUnavailable(cerr.CodeCircuitOpen, "circuit breaker open for "+source.Base)
	}
	body, err := s.fetch(ctx, source, sourcePath)
	if err != nil {
		br.RecordFailure()
		return nil, cerr.ErrTransport(cerr.CodeRecipeFetchFailed, "failed to fetch "+sourcePath).WithCause(err)
	}
	br.RecordSuccess()
	return body, nil
}

func (s *Store) fetch(ctx context.Context, source SourceSpec, sourcePath string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s", strings.TrimRight(source.Base, "/"), source.Branch, strings.TrimLeft(sourcePath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

func breakerKey(host, endpointClass string) string {
	return host + "|" + endpointClass
}

// cacheEnvelope is the on-disk shape of one CacheIndex entry.
type cacheEnvelope struct {
	Timestamp time.Time `json:"timestamp"`
	ETag      string    `json:"etag,omitempty"`
	Body      string    `json:"body"`
}

func cachePath(projectPath, stateDirName, repoKey string) string {
	safe := strings.NewReplacer("/", "_", ":", "_").Replace(repoKey)
	return filepath.Join(projectPath, stateDirName, recipesDirName, "cache", safe+".json")
}

// GetCachedIndex returns the cached body for repoKey if it is fresh, or if
// ignoreTTL is set; otherwise returns (nil, false).
func (s *Store) GetCachedIndex(projectPath, stateDirName, repoKey string, ignoreTTL bool) ([]byte, bool, error) {
	raw, err := os.ReadFile(cachePath(projectPath, stateDirName, repoKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var env cacheEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, cerr.ErrCorrupt(cerr.CodeRecipeCorrupt, "cache entry is corrupt").WithCause(err)
	}
	fresh := time.Since(env.Timestamp) < s.cacheTTL
	if !fresh && !ignoreTTL {
		return nil, false, nil
	}
	return []byte(env.Body), true, nil
}

// SaveCachedIndex writes {timestamp, body} JSON for repoKey.
func (s *Store) SaveCachedIndex(projectPath, stateDirName, repoKey string, body []byte) error {
	path := cachePath(projectPath, stateDirName, repoKey)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	env := cacheEnvelope{Timestamp: time.Now().UTC(), Body: string(body)}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, raw, 0o644)
}

// rawRecipeEntry is the tolerant YAML shape a recipe file may declare at its
// frontmatter; every field is optional.
type rawRecipeEntry struct {
	ID        string                            `yaml:"id"`
	Category  string                            `yaml:"category"`
	Topology  string                             `yaml:"topology"`
	Tools     []string                           `yaml:"tools"`
	Providers map[string]map[string]interface{} `yaml:"providers"`
	Role      string                             `yaml:"role"`
}

// ParseRecipe tolerantly parses a recipe file's YAML frontmatter plus body.
// Missing tools/providers/topology produce empty defaults; the first
// sentence of role, truncated to 200 chars, becomes the description.
func ParseRecipe(localPath string, raw []byte) (model.RecipeEntry, error) {
	frontmatter, body := splitFrontmatter(raw)

	var parsed rawRecipeEntry
	if frontmatter != "" {
		if err := yaml.Unmarshal([]byte(frontmatter), &parsed); err != nil {
			return model.RecipeEntry{}, cerr.ErrCorrupt(cerr.CodeRecipeCorrupt, "recipe frontmatter is not valid YAML").WithCause(err)
		}
	}

	topology := model.TopologySolo
	if parsed.Topology == string(model.TopologyMulti) {
		topology = model.TopologyMulti
	}

	tools := map[string]bool{}
	for _, t := range parsed.Tools {
		tools[t] = true
	}

	providers := parsed.Providers
	if providers == nil {
		providers = map[string]map[string]interface{}{}
	}

	id := parsed.ID
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(localPath), filepath.Ext(localPath))
	}

	return model.RecipeEntry{
		ID:          id,
		Category:    parsed.Category,
		Topology:    topology,
		Tools:       tools,
		Providers:   providers,
		Body:        body,
		LocalPath:   localPath,
		Description: firstSentence(parsed.Role, 200),
	}, nil
}

func splitFrontmatter(raw []byte) (frontmatter string, body []byte) {
	const delim = "---\n"
	s := string(raw)
	if !strings.HasPrefix(s, delim) {
		return "", raw
	}
	rest := s[len(delim):]
	end := strings.Index(rest, "\n"+delim)
	if end == -1 {
		return "", raw
	}
	return rest[:end], []byte(rest[end+len(delim)+1:])
}

func firstSentence(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, ".!?"); idx != -1 {
		s = s[:idx+1]
	}
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
