package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/onto/internal/report"
	"github.com/papapumpkin/onto/internal/result"
	"github.com/papapumpkin/onto/internal/ui"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List ids by type or follow an id's relations",
}

var queryIDsCmd = &cobra.Command{
	Use:   "ids",
	Short: "List every id of a document type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		typeName, _ := cmd.Flags().GetString("type")
		q, err := newQuerier()
		if err != nil {
			return err
		}
		ids, err := q.IDs(typeName)
		if err != nil {
			return err
		}
		ui.IDs(os.Stdout, ids)
		return nil
	},
}

var queryDepsCmd = &cobra.Command{
	Use:   "deps <id>",
	Short: "List what a document depends on or impacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelated(cmd, args[0], report.Dependencies)
	},
}

var queryDependentsCmd = &cobra.Command{
	Use:   "dependents <id>",
	Short: "List the documents that reference a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelated(cmd, args[0], report.Dependents)
	},
}

func newQuerier() (*report.Querier, error) {
	e, err := loadEnv()
	if err != nil {
		return nil, err
	}
	return e.querier()
}

// querier scans the corpus and refuses to answer over colliding ids.
func (e *env) querier() (*report.Querier, error) {
	c, err := e.scan()
	if err != nil {
		return nil, err
	}
	if err := c.RequireUnique(); err != nil {
		return nil, e.finish(result.Fatal(err.Error(), nil))
	}
	return report.NewQuerier(e.graph(c), e.tax), nil
}

func runRelated(cmd *cobra.Command, id string, dir report.Direction) error {
	transitive, _ := cmd.Flags().GetBool("transitive")
	q, err := newQuerier()
	if err != nil {
		return err
	}
	ids, err := q.Related(id, dir, transitive)
	if err != nil {
		return err
	}
	ui.IDs(os.Stdout, ids)
	return nil
}

func init() {
	queryIDsCmd.Flags().String("type", "", "document type (kernel, strategy, product, atom, log)")
	_ = queryIDsCmd.MarkFlagRequired("type")
	for _, c := range []*cobra.Command{queryDepsCmd, queryDependentsCmd} {
		c.Flags().Bool("transitive", false, "follow relations all the way down")
	}
	queryCmd.AddCommand(queryIDsCmd, queryDepsCmd, queryDependentsCmd)
	rootCmd.AddCommand(queryCmd)
}
