package cli

import (
	"github.com/andywolf/cde/internal/api"
	"github.com/andywolf/cde/internal/config"
	"github.com/spf13/cobra"
)

var listAgentsCmd = &cobra.Command{
	Use:   "list-agents",
	Short: "List every agent back-end this build knows",
	Args:  cobra.NoArgs,
	RunE:  runListAgents,
}

var selectAgentCmd = &cobra.Command{
	Use:   "select-agent <task description>",
	Short: "Pick the best agent for a task without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  runSelectAgent,
}

var executeCmd = &cobra.Command{
	Use:   "execute <task description>",
	Short: "Classify, select, and synchronously run a task with the best available agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecuteWithBestAgent,
}

func init() {
	rootCmd.AddCommand(listAgentsCmd, selectAgentCmd, executeCmd)

	listAgentsCmd.Flags().Bool("json", false, "emit JSON")
	selectAgentCmd.Flags().Bool("json", false, "emit JSON")

	executeCmd.Flags().String("path", ".", "target repository path")
	executeCmd.Flags().String("preferred", "", "preferred agent id")
	executeCmd.Flags().Bool("require-plan-approval", false, "force plan-approval capability requirement")
	executeCmd.Flags().Duration("timeout", 0, "outer routing timeout (0 = config default)")
	executeCmd.Flags().Int("context-size", 0, "override estimated context lines")
	executeCmd.Flags().Bool("json", false, "emit JSON")
}

func runListAgents(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return printResult(api.ListAvailableAgents(), jsonOut)
}

func runSelectAgent(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return printResult(api.SelectAgent(args[0]), jsonOut)
}

func runExecuteWithBestAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("path")
	preferred, _ := cmd.Flags().GetString("preferred")
	requirePlanApproval, _ := cmd.Flags().GetBool("require-plan-approval")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	contextSize, _ := cmd.Flags().GetInt("context-size")
	jsonOut, _ := cmd.Flags().GetBool("json")

	ctx, cancel := rootContext()
	defer cancel()

	res := api.ExecuteWithBestAgent(ctx, cfg, args[0], path, preferred, requirePlanApproval, timeout, contextSize)
	return printResult(res, jsonOut)
}
