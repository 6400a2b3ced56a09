package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/onto/internal/consolidate"
	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/ledger"
	"github.com/papapumpkin/onto/internal/result"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Roll old session logs into the History Ledger and archive them",
	Long: "Consolidate selects dated log documents by recency, appends one History Ledger\n" +
		"row per log and moves the originals to the archive directory. Every check runs\n" +
		"before anything is written: a duplicate id, a missing ledger or a taken archive\n" +
		"path aborts the run with the corpus untouched.\n\n" +
		"With no selector flag the configured consolidate.keep (or, when that is 0,\n" +
		"consolidate.max_age_days) applies.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		policy, err := e.policy(cmd)
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		c, err := e.scan()
		if err != nil {
			return err
		}
		rep, err := e.consolidator().Run(c, policy, dryRun)
		e.auditConsolidation(rep)
		if rep != nil {
			e.printer.Consolidation(rep)
		}
		if err != nil {
			return e.finish(result.Fatal("consolidation failed", []result.Finding{consolidationFinding(err, e.cfg.LedgerPath)}))
		}
		if !dryRun && !rep.LoggedRollup && len(rep.Candidates) > 0 {
			e.printer.Info("ledger has no Consolidation Log table; rollup not recorded")
		}
		return nil
	},
}

// policy builds the recency policy from flags, falling back to config.
func (e *env) policy(cmd *cobra.Command) (consolidate.Policy, error) {
	var p consolidate.Policy
	flags := cmd.Flags()
	p.Keep, _ = flags.GetInt("keep")
	p.OlderThanDays, _ = flags.GetInt("older-than")
	if before, _ := flags.GetString("before"); before != "" {
		d, err := time.Parse(frontmatter.DateLayout, before)
		if err != nil {
			return p, fmt.Errorf("--before: want YYYY-MM-DD: %w", err)
		}
		p.Before = d
	}
	switch {
	case flags.Changed("keep"):
		p.By = consolidate.SelectKeep
	case flags.Changed("older-than"):
		p.By = consolidate.SelectOlderThan
	case flags.Changed("before"):
		p.By = consolidate.SelectBefore
	case e.cfg.Consolidate.Keep > 0:
		p.Keep, p.By = e.cfg.Consolidate.Keep, consolidate.SelectKeep
	default:
		p.OlderThanDays, p.By = e.cfg.Consolidate.MaxAgeDays, consolidate.SelectOlderThan
	}
	return p, nil
}

func consolidationFinding(err error, ledgerPath string) result.Finding {
	f := result.Finding{Severity: result.SeverityError, Message: err.Error()}
	var dup *consolidate.DuplicateError
	var lerr *ledger.LedgerError
	switch {
	case errors.As(err, &dup):
		f.Category = result.CatDuplicateID
		f.ID = dup.ID
	case errors.As(err, &lerr):
		f.Category = result.CatLedger
		f.File = ledgerPath
	default:
		f.Category = result.CatLedger
	}
	return f
}

func addPolicyFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("keep", 0, "keep the N newest logs, consolidate the rest")
	f.Int("older-than", 0, "consolidate logs dated more than N days ago")
	f.String("before", "", "consolidate logs dated before YYYY-MM-DD")
	cmd.MarkFlagsMutuallyExclusive("keep", "older-than", "before")
}

func init() {
	addPolicyFlags(consolidateCmd)
	consolidateCmd.Flags().Bool("dry-run", false, "show the rows that would be appended without writing")
	rootCmd.AddCommand(consolidateCmd)
}
