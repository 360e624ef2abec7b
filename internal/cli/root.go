package cli

import (
	"fmt"
	"os"

	"github.com/andywolf/cde/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cde",
	Short: "cde - developer-tooling orchestrator for AI coding agents",
	Long: `cde routes natural-language engineering requests through a deterministic,
phased workflow to external AI coding back-ends. It scans a target repository to
build structured project context, classifies request complexity, selects an agent
via a fallback-aware router, and persists feature/workflow state and prompt recipes.

Example:
  cde delegate --repo github.com/org/myapp "add rate limiting to the auth middleware"`,
	// main.go owns error reporting and exit-code selection (0/1/2/130), so
	// cobra's own "Error: ..." line and usage dump are silenced to avoid
	// printing an operational failure twice.
	SilenceErrors: true,
	SilenceUsage:  true,
	// PersistentPreRunE only runs once cobra's own Args validation for the
	// resolved subcommand has passed, so its having run at all is what lets
	// main.go tell an argument error (exit 2) from an operational one (exit 1).
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		operationStarted = true
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	operationStarted = false
	cancelledBySignal = false
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Set version for --version flag
	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .cde.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".cde")
	}

	viper.SetEnvPrefix("CDE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
