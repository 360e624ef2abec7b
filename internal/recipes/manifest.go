package recipes

// defaultManifest is the built-in recipe manifest, ensuring cde has a usable
// recipe set even with no network access, the same posture the teacher's
// embedded skills manifest gives the CLI. A project can override this set
// entirely via WithManifest.
var defaultManifest = []ManifestEntry{
	{SourcePath: "recipes/plan.md", Destination: "plan.md"},
	{SourcePath: "recipes/implement.md", Destination: "implement.md"},
	{SourcePath: "recipes/test.md", Destination: "test.md"},
	{SourcePath: "recipes/review.md", Destination: "review.md"},
	{SourcePath: "recipes/docs.md", Destination: "docs.md"},
}
