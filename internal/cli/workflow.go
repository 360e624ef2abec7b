package cli

import (
	"github.com/andywolf/cde/internal/api"
	"github.com/spf13/cobra"
)

var selectWorkflowCmd = &cobra.Command{
	Use:   "select-workflow <prompt>",
	Short: "Classify a prompt and pick its workflow",
	Args:  cobra.ExactArgs(1),
	RunE:  runSelectWorkflow,
}

var searchToolsCmd = &cobra.Command{
	Use:   "search-tools [query]",
	Short: "Search the operation catalog by keyword",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearchTools,
}

func init() {
	rootCmd.AddCommand(selectWorkflowCmd, searchToolsCmd)

	selectWorkflowCmd.Flags().Bool("json", false, "emit JSON")

	searchToolsCmd.Flags().String("detail", "names", "names or full")
	searchToolsCmd.Flags().Bool("json", false, "emit JSON")
}

func runSelectWorkflow(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return printResult(api.SelectWorkflow(args[0]), jsonOut)
}

func runSearchTools(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	detail, _ := cmd.Flags().GetString("detail")
	jsonOut, _ := cmd.Flags().GetBool("json")
	return printResult(api.SearchTools(query, detail), jsonOut)
}
