package cli

import (
	"github.com/andywolf/cde/internal/api"
	"github.com/andywolf/cde/internal/config"
	"github.com/spf13/cobra"
)

var delegateCmd = &cobra.Command{
	Use:   "delegate <description>",
	Short: "Start a task asynchronously and return its id",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelegateTask,
}

var taskStatusCmd = &cobra.Command{
	Use:   "task-status <task-id>",
	Short: "Look up one delegated task's status",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetTaskStatus,
}

var listTasksCmd = &cobra.Command{
	Use:   "list-tasks",
	Short: "List every non-terminal delegated task",
	Args:  cobra.NoArgs,
	RunE:  runListActiveTasks,
}

var cancelTaskCmd = &cobra.Command{
	Use:   "cancel-task <task-id>",
	Short: "Cancel a delegated task immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancelTask,
}

func init() {
	rootCmd.AddCommand(delegateCmd, taskStatusCmd, listTasksCmd, cancelTaskCmd)

	delegateCmd.Flags().String("type", "", "task type tag")
	delegateCmd.Flags().String("path", ".", "target repository path")
	delegateCmd.Flags().String("preferred-agent", "", "preferred agent id")
	delegateCmd.Flags().StringToString("context", nil, "extra key=value context")
	delegateCmd.Flags().Bool("json", false, "emit JSON")

	taskStatusCmd.Flags().Bool("json", false, "emit JSON")
	listTasksCmd.Flags().Bool("json", false, "emit JSON")
	cancelTaskCmd.Flags().Bool("json", false, "emit JSON")
}

func runDelegateTask(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	taskType, _ := cmd.Flags().GetString("type")
	path, _ := cmd.Flags().GetString("path")
	preferred, _ := cmd.Flags().GetString("preferred-agent")
	extra, _ := cmd.Flags().GetStringToString("context")
	jsonOut, _ := cmd.Flags().GetBool("json")

	res := api.DelegateTask(cfg, args[0], taskType, path, extra, preferred)
	return printResult(res, jsonOut)
}

func runGetTaskStatus(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return printResult(api.GetTaskStatus(args[0]), jsonOut)
}

func runListActiveTasks(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return printResult(api.ListActiveTasks(), jsonOut)
}

func runCancelTask(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return printResult(api.CancelTask(args[0]), jsonOut)
}
