package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/lifecycle"
	"github.com/papapumpkin/onto/internal/result"
	"github.com/papapumpkin/onto/internal/taxonomy"
	"github.com/papapumpkin/onto/internal/telemetry"
)

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold",
	Short: "Create a level-0 document, or add metadata to untagged files",
	Long: "Scaffold writes a new document at curation level 0 with the given id, type and\n" +
		"goal. With --untagged it instead prepends level-0 metadata to every markdown\n" +
		"file in the corpus that has none, deriving each id from the file name.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		c, err := e.scan()
		if err != nil {
			return err
		}
		eng := e.lifecycle()

		if untagged, _ := cmd.Flags().GetBool("untagged"); untagged {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			outcomes, err := eng.AdoptUntagged(c, dryRun)
			if err != nil {
				return e.finish(result.Fatal(err.Error(), nil))
			}
			if len(outcomes) == 0 {
				e.printer.Info("no untagged files")
				return nil
			}
			e.auditOutcomes(telemetry.KindAdopt, outcomes)
			e.printer.Outcomes("scaffold", outcomes, dryRun)
			return nil
		}

		req := lifecycle.ScaffoldRequest{}
		req.ID, _ = cmd.Flags().GetString("id")
		req.Type, _ = cmd.Flags().GetString("type")
		req.Goal, _ = cmd.Flags().GetString("goal")
		req.Path, _ = cmd.Flags().GetString("path")
		req.Force, _ = cmd.Flags().GetBool("force")
		if req.Path == "" {
			req.Path = e.defaultPath(req.ID, req.Type)
		}

		if err := c.RequireUnique(); err != nil {
			return e.finish(result.Fatal(err.Error(), nil))
		}
		out, err := eng.Scaffold(c, req)
		if err != nil {
			return err
		}
		e.auditOutcomes(telemetry.KindScaffold, []lifecycle.Outcome{out})
		e.printer.Success(fmt.Sprintf("scaffolded %s at %s", out.ID, out.Path))
		return nil
	},
}

// defaultPath places a new document under the first root: logs in logs/ with
// today's date prefix so consolidation can pick them up, everything else in a
// directory named after its type.
func (e *env) defaultPath(id, typeName string) string {
	root := e.cfg.Roots[0]
	dt := e.tax.ParseType(typeName)
	if dt == taxonomy.TypeLog {
		name := time.Now().Format(frontmatter.DateLayout) + "_" + id + ".md"
		return filepath.Join(root, "logs", name)
	}
	return filepath.Join(root, string(dt), id+".md")
}

var promoteCmd = &cobra.Command{
	Use:   "promote [id...]",
	Short: "Advance documents one curation level",
	Long: "Promote moves each named document (or every scaffold and pending document when\n" +
		"none are named) one level up: scaffold → pending_curation → curated. Documents\n" +
		"missing required metadata are reported and left unchanged. Curated documents\n" +
		"advance only through verify.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		check, _ := cmd.Flags().GetBool("check")
		c, err := e.scan()
		if err != nil {
			return err
		}
		outcomes, err := e.lifecycle().Promote(c, args, check)
		if err != nil {
			return e.finish(result.Fatal(err.Error(), nil))
		}
		e.auditOutcomes(telemetry.KindPromote, outcomes)
		e.printer.Outcomes("promote", outcomes, check)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [id...]",
	Short: "Confirm documents still match what they describe",
	Long: "Verify checks that every target a document describes still exists and stamps\n" +
		"describes_verified with today's date. Curated documents become verified.\n" +
		"With --stale every stale document is verified.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		c, err := e.scan()
		if err != nil {
			return err
		}
		eng := e.lifecycle()

		ids := args
		if stale, _ := cmd.Flags().GetBool("stale"); stale {
			for _, s := range eng.Stale(c) {
				ids = append(ids, s.ID)
			}
		}
		if len(ids) == 0 {
			e.printer.Info("nothing to verify")
			return nil
		}
		outcomes, err := eng.Verify(c, ids)
		if err != nil {
			return e.finish(result.Fatal(err.Error(), nil))
		}
		e.auditOutcomes(telemetry.KindVerify, outcomes)
		e.printer.Outcomes("verify", outcomes, false)
		return nil
	},
}

var staleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List documents whose described targets changed after verification",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		c, err := e.scan()
		if err != nil {
			return err
		}
		e.printer.Staleness(e.lifecycle().Stale(c))
		return nil
	},
}

func init() {
	f := scaffoldCmd.Flags()
	f.String("id", "", "document id (lower-case slug)")
	f.String("type", "", "document type (kernel, strategy, product, atom, log)")
	f.String("goal", "", "one-line goal written under ## Goal")
	f.String("path", "", "file to create (default <root>/<type>/<id>.md)")
	f.Bool("force", false, "overwrite an existing file")
	f.Bool("untagged", false, "add metadata to every untagged file instead")
	f.Bool("dry-run", false, "with --untagged, list files without writing")
	scaffoldCmd.MarkFlagsMutuallyExclusive("untagged", "id")

	promoteCmd.Flags().Bool("check", false, "report what would be promoted without writing")
	verifyCmd.Flags().Bool("stale", false, "verify every stale document")

	rootCmd.AddCommand(scaffoldCmd, promoteCmd, verifyCmd, staleCmd)
}
