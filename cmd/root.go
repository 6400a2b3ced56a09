package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// errReported marks a failure the command already printed; Execute exits
// non-zero without repeating it.
var errReported = errors.New("failure already reported")

var rootCmd = &cobra.Command{
	Use:   "onto",
	Short: "Ontology graph and lifecycle engine for a markdown corpus",
	Long: "Onto scans a corpus of markdown documents with metadata blocks, validates the\n" +
		"dependency graph they declare, moves documents through their curation lifecycle\n" +
		"and consolidates session logs into the decision history ledger.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits 1 on any failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .onto.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".onto")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("ONTO")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}
