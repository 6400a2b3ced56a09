package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/onto/internal/lifecycle"
	"github.com/papapumpkin/onto/internal/report"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check metadata, graph integrity and staleness across the corpus",
	Long: "Validate scans every root, checks each document's metadata against its schema\n" +
		"version, runs the hierarchy, cycle, depth, broken-link and orphan passes, and\n" +
		"reports stale verifications. Every finding is listed; only duplicate ids (or any\n" +
		"error finding under --strict) make the command fail.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		strict, _ := cmd.Flags().GetBool("strict")
		asJSON, _ := cmd.Flags().GetBool("json")

		c, err := e.scan()
		if err != nil {
			return err
		}
		stale := lifecycle.StaleFindings(e.lifecycle().Stale(c))
		res := report.Validate(c, e.graph(c), stale, report.Options{
			MaxDepth: e.cfg.MaxDepth,
			Strict:   strict,
			Deferred: e.deferred(),
		})
		if asJSON {
			return e.finishJSON(res)
		}
		return e.finish(res)
	},
}

func init() {
	validateCmd.Flags().Bool("strict", false, "fail on any error-severity finding")
	validateCmd.Flags().Bool("json", false, "write the result as JSON to stdout")
	rootCmd.AddCommand(validateCmd)
}
