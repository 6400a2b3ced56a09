package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/onto/internal/metrics"
	"github.com/papapumpkin/onto/internal/report"
	"github.com/papapumpkin/onto/internal/result"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Summarize document counts, connectivity, orphans, broken links and cycles",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		metricsFile, _ := cmd.Flags().GetString("metrics-file")
		asJSON, _ := cmd.Flags().GetBool("json")
		return e.health(metricsFile, asJSON)
	},
}

// health scans, prints the summary and optionally exports it. Duplicate ids
// are reported as a fatal result and nothing is exported.
func (e *env) health(metricsFile string, asJSON bool) error {
	c, err := e.scan()
	if err != nil {
		return err
	}
	if err := c.RequireUnique(); err != nil {
		return e.finish(result.Fatal(err.Error(), nil))
	}
	h := report.BuildHealth(e.graph(c), e.tax, e.deferred())
	if asJSON {
		data, err := report.HealthJSON(h)
		if err != nil {
			return err
		}
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("writing health report: %w", err)
		}
	} else {
		e.printer.Health(h)
	}

	if metricsFile == "" {
		return nil
	}
	exp := metrics.NewExporter()
	exp.Observe(h)
	if err := exp.WriteTextfile(metricsFile); err != nil {
		return err
	}
	e.printer.Info(fmt.Sprintf("metrics written to %s", metricsFile))
	return nil
}

func init() {
	healthCmd.Flags().String("metrics-file", "", "also write Prometheus textfile metrics to this path")
	healthCmd.Flags().Bool("json", false, "write the summary as JSON to stdout")
	rootCmd.AddCommand(healthCmd)
}
