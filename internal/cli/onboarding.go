package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/andywolf/cde/internal/api"
	"github.com/andywolf/cde/internal/config"
	"github.com/spf13/cobra"
)

var createSpecCmd = &cobra.Command{
	Use:   "create-specification <feature-name>",
	Short: "Write a new feature specification document",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreateSpecification,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard [path]",
	Short: "Enrich and persist a fresh project's context",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runOnboardingProject,
}

var setupProjectCmd = &cobra.Command{
	Use:   "setup-project [path]",
	Short: "Install CLI skills and cache the default recipe manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSetupProject,
}

var publishOnboardingCmd = &cobra.Command{
	Use:   "publish-onboarding <documents.json> [path]",
	Short: "Write approved onboarding documents to disk",
	Long: `Reads a {"name": "content", ...} JSON file and, when --approve is set,
writes each entry under <path>/.cde/onboarding/. Without --approve, reports
what would be written without touching disk.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPublishOnboarding,
}

var sourceSkillCmd = &cobra.Command{
	Use:   "source-skill <query>",
	Short: "Fetch a single skill file from a remote source",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceSkill,
}

var updateSkillCmd = &cobra.Command{
	Use:   "update-skill <name>",
	Short: "Rewrite a local skill's topic tags",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateSkill,
}

func init() {
	rootCmd.AddCommand(createSpecCmd, onboardCmd, setupProjectCmd, publishOnboardingCmd, sourceSkillCmd, updateSkillCmd)

	createSpecCmd.Flags().String("description", "", "feature description")
	createSpecCmd.Flags().String("author", "", "author name")
	createSpecCmd.Flags().String("path", ".", "target repository path")
	createSpecCmd.Flags().Bool("json", false, "emit JSON")

	onboardCmd.Flags().Bool("json", false, "emit JSON")

	setupProjectCmd.Flags().Bool("force", false, "overwrite existing skills/recipes")
	setupProjectCmd.Flags().Bool("json", false, "emit JSON")

	publishOnboardingCmd.Flags().Bool("approve", false, "actually write the documents")
	publishOnboardingCmd.Flags().Bool("json", false, "emit JSON")

	sourceSkillCmd.Flags().String("source", "", "remote recipe source base URL")
	sourceSkillCmd.Flags().String("destination", "", "local destination path")
	sourceSkillCmd.Flags().Bool("json", false, "emit JSON")

	updateSkillCmd.Flags().String("path", ".", "directory containing the local skill file")
	updateSkillCmd.Flags().StringSlice("topics", nil, "replacement topic tags")
	updateSkillCmd.Flags().Int("max-sources", 0, "cap on retained topic tags (0 = unlimited)")
	updateSkillCmd.Flags().Bool("json", false, "emit JSON")
}

func runCreateSpecification(cmd *cobra.Command, args []string) error {
	description, _ := cmd.Flags().GetString("description")
	author, _ := cmd.Flags().GetString("author")
	path, _ := cmd.Flags().GetString("path")
	jsonOut, _ := cmd.Flags().GetBool("json")
	return printResult(api.CreateSpecification(args[0], description, author, path), jsonOut)
}

func runOnboardingProject(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	jsonOut, _ := cmd.Flags().GetBool("json")

	ctx, cancel := rootContext()
	defer cancel()

	res := api.OnboardingProject(ctx, cfg, targetPath(args))
	return printResult(res, jsonOut)
}

func runSetupProject(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	jsonOut, _ := cmd.Flags().GetBool("json")

	ctx, cancel := rootContext()
	defer cancel()

	res := api.SetupProject(ctx, cfg, targetPath(args), force)
	return printResult(res, jsonOut)
}

func runPublishOnboarding(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read documents file: %w", err)
	}
	var documents map[string]string
	if err := json.Unmarshal(raw, &documents); err != nil {
		return fmt.Errorf("documents file must be a JSON object of name -> content: %w", err)
	}
	path := "."
	if len(args) == 2 {
		path = args[1]
	}
	approve, _ := cmd.Flags().GetBool("approve")
	jsonOut, _ := cmd.Flags().GetBool("json")
	return printResult(api.PublishOnboarding(cfg, documents, path, approve), jsonOut)
}

func runSourceSkill(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	source, _ := cmd.Flags().GetString("source")
	destination, _ := cmd.Flags().GetString("destination")
	jsonOut, _ := cmd.Flags().GetBool("json")

	ctx, cancel := rootContext()
	defer cancel()

	res := api.SourceSkill(ctx, cfg, args[0], source, destination)
	return printResult(res, jsonOut)
}

func runUpdateSkill(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("path")
	topics, _ := cmd.Flags().GetStringSlice("topics")
	maxSources, _ := cmd.Flags().GetInt("max-sources")
	jsonOut, _ := cmd.Flags().GetBool("json")
	return printResult(api.UpdateSkill(path, args[0], topics, maxSources), jsonOut)
}
