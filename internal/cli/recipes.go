package cli

import (
	"github.com/andywolf/cde/internal/api"
	"github.com/andywolf/cde/internal/config"
	"github.com/spf13/cobra"
)

var downloadRecipesCmd = &cobra.Command{
	Use:   "download-recipes [path]",
	Short: "Fetch the recipe manifest's files into a project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDownloadRecipes,
}

var checkRecipesCmd = &cobra.Command{
	Use:   "check-recipes [path]",
	Short: "Report recipe cache freshness without fetching",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheckRecipes,
}

var healthCheckCmd = &cobra.Command{
	Use:   "health-check",
	Short: "Report agent registration and breaker state",
	Args:  cobra.NoArgs,
	RunE:  runHealthCheck,
}

func init() {
	rootCmd.AddCommand(downloadRecipesCmd, checkRecipesCmd, healthCheckCmd)

	downloadRecipesCmd.Flags().String("repo", "", "recipe source repository base URL (empty = config default)")
	downloadRecipesCmd.Flags().String("branch", "main", "recipe source branch")
	downloadRecipesCmd.Flags().Bool("force", false, "re-download even if files already exist")
	downloadRecipesCmd.Flags().Bool("json", false, "emit JSON")

	checkRecipesCmd.Flags().Bool("json", false, "emit JSON")
	healthCheckCmd.Flags().Bool("json", false, "emit JSON")
}

func runDownloadRecipes(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	repo, _ := cmd.Flags().GetString("repo")
	if repo == "" {
		repo = cfg.Recipes.ManifestURL
	}
	branch, _ := cmd.Flags().GetString("branch")
	force, _ := cmd.Flags().GetBool("force")
	jsonOut, _ := cmd.Flags().GetBool("json")

	ctx, cancel := rootContext()
	defer cancel()

	res := api.DownloadRecipes(ctx, cfg, targetPath(args), repo, branch, force)
	return printResult(res, jsonOut)
}

func runCheckRecipes(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	jsonOut, _ := cmd.Flags().GetBool("json")
	return printResult(api.CheckRecipes(cfg, targetPath(args)), jsonOut)
}

func runHealthCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	jsonOut, _ := cmd.Flags().GetBool("json")
	return printResult(api.HealthCheck(cfg), jsonOut)
}
