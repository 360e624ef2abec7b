package cli

import (
	"github.com/andywolf/cde/internal/api"
	"github.com/andywolf/cde/internal/config"
	"github.com/spf13/cobra"
)

var scanDocsCmd = &cobra.Command{
	Use:   "scan-documentation [path]",
	Short: "Inventory a project's markdown documentation",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScanDocumentation,
}

var analyseDocsCmd = &cobra.Command{
	Use:   "analyse-documentation [path]",
	Short: "Scan documentation plus tech-stack/build/convention signal",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyseDocumentation,
}

var analyseGitCmd = &cobra.Command{
	Use:   "analyse-git [path]",
	Short: "Summarise commit history, contributors, and hotspots",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyseGit,
}

func init() {
	rootCmd.AddCommand(scanDocsCmd, analyseDocsCmd, analyseGitCmd)

	scanDocsCmd.Flags().String("detail", "summary", "names, summary, or full")
	scanDocsCmd.Flags().Bool("json", false, "emit JSON")

	analyseDocsCmd.Flags().Bool("json", false, "emit JSON")

	analyseGitCmd.Flags().Int("days", 0, "lookback window in days (0 = config default)")
	analyseGitCmd.Flags().Bool("include-all-branches", false, "report every active branch, not just the current one")
	analyseGitCmd.Flags().Bool("json", false, "emit JSON")
}

func targetPath(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "."
}

func runScanDocumentation(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	detail, _ := cmd.Flags().GetString("detail")
	jsonOut, _ := cmd.Flags().GetBool("json")

	ctx, cancel := rootContext()
	defer cancel()

	res := api.ScanDocumentation(ctx, cfg, targetPath(args), detail)
	return printResult(res, jsonOut)
}

func runAnalyseDocumentation(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	jsonOut, _ := cmd.Flags().GetBool("json")

	ctx, cancel := rootContext()
	defer cancel()

	res := api.AnalyseDocumentation(ctx, cfg, targetPath(args))
	return printResult(res, jsonOut)
}

func runAnalyseGit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	days, _ := cmd.Flags().GetInt("days")
	includeAll, _ := cmd.Flags().GetBool("include-all-branches")
	jsonOut, _ := cmd.Flags().GetBool("json")

	ctx, cancel := rootContext()
	defer cancel()

	res := api.AnalyseGit(ctx, cfg, targetPath(args), days, includeAll)
	return printResult(res, jsonOut)
}
