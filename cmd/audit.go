package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/onto/internal/consolidate"
	"github.com/papapumpkin/onto/internal/lifecycle"
	"github.com/papapumpkin/onto/internal/telemetry"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the mutation audit trail",
	Long: `Reads the JSONL audit log configured by audit_log and prints one line per
recorded mutation: scaffolds, adoptions, promotions, verifications, ledger
writes and archive moves.

With --follow (-f), watches the file for new events (like tail -f).`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().String("kind", "", "only show events of this kind")
	auditCmd.Flags().String("doc", "", "only show events for this document id")
	auditCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	rootCmd.AddCommand(auditCmd)
}

// auditFilter selects which events are printed.
type auditFilter struct {
	kind string
	doc  string
}

func (f auditFilter) match(evt telemetry.Event) bool {
	return (f.kind == "" || evt.Kind == f.kind) && (f.doc == "" || evt.Doc == f.doc)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if e.cfg.AuditLog == "" {
		return errors.New("audit: no audit_log configured")
	}
	var filter auditFilter
	filter.kind, _ = cmd.Flags().GetString("kind")
	filter.doc, _ = cmd.Flags().GetString("doc")
	follow, _ := cmd.Flags().GetBool("follow")

	f, err := os.Open(e.cfg.AuditLog)
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", e.cfg.AuditLog, err)
	}
	defer f.Close()

	w := cmd.OutOrStdout()
	reader := bufio.NewReader(f)
	if err := printLines(w, reader, filter); err != nil {
		return fmt.Errorf("audit: read %s: %w", e.cfg.AuditLog, err)
	}
	if !follow {
		return nil
	}

	ctx, cancel := setupSignalContext(e.printer)
	defer cancel()
	return tailFollow(ctx, w, reader, e.cfg.AuditLog, filter)
}

// printLines prints every complete line available from r.
func printLines(w io.Writer, r *bufio.Reader, filter auditFilter) error {
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			printEvent(w, line, filter)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// tailFollow watches the file for new data using fsnotify and prints new
// events until ctx is canceled.
func tailFollow(ctx context.Context, w io.Writer, r *bufio.Reader, path string, filter auditFilter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("audit: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("audit: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			if err := printLines(w, r, filter); err != nil {
				return fmt.Errorf("audit: read %s: %w", path, err)
			}
		}
	}
}

// printEvent decodes a JSONL line and prints a human-readable representation.
func printEvent(w io.Writer, line string, filter auditFilter) {
	var evt telemetry.Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}
	if !filter.match(evt) {
		return
	}

	parts := []string{fmt.Sprintf("[%s]", evt.Timestamp.Local().Format(time.DateTime)), evt.Kind}
	if evt.Doc != "" {
		parts = append(parts, "doc="+evt.Doc)
	}
	if evt.Path != "" {
		parts = append(parts, "path="+evt.Path)
	}
	if evt.Data != nil {
		if m, ok := evt.Data.(map[string]any); ok {
			parts = append(parts, formatDataMap(m))
		} else {
			data, _ := json.Marshal(evt.Data)
			parts = append(parts, string(data))
		}
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}

// formatDataMap formats a data map as key=value pairs sorted by key.
func formatDataMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}

// auditor opens the configured audit log. The nil emitter it returns when
// none is configured records nothing.
func (e *env) auditor() *telemetry.Emitter {
	if e.cfg.AuditLog == "" {
		return nil
	}
	em, err := telemetry.NewEmitter(e.cfg.AuditLog)
	if err != nil {
		e.logger.Warn("audit log unavailable", "path", e.cfg.AuditLog, "error", err)
		return nil
	}
	return em
}

// auditOutcomes records every applied outcome under kind.
func (e *env) auditOutcomes(kind string, outcomes []lifecycle.Outcome) {
	em := e.auditor()
	defer em.Close()
	for _, o := range outcomes {
		if !o.Applied {
			continue
		}
		data := map[string]string{"from": o.From.String(), "to": o.To.String()}
		if err := em.Record(kind, o.ID, o.Path, data); err != nil {
			e.logger.Warn("audit record failed", "kind", kind, "id", o.ID, "error", err)
		}
	}
}

// auditConsolidation records the ledger write and each archive move that
// actually happened.
func (e *env) auditConsolidation(rep *consolidate.Report) {
	if rep == nil || rep.DryRun || len(rep.Rows) == 0 {
		return
	}
	em := e.auditor()
	defer em.Close()
	data := map[string]int{"reviewed": rep.Reviewed, "rows": len(rep.Rows)}
	if err := em.Record(telemetry.KindLedgerWrite, "", e.cfg.LedgerPath, data); err != nil {
		e.logger.Warn("audit record failed", "kind", telemetry.KindLedgerWrite, "error", err)
	}
	for i, dest := range rep.Archived {
		cand := rep.Candidates[i]
		if err := em.Record(telemetry.KindArchive, cand.ID, dest, map[string]string{"from": cand.Path}); err != nil {
			e.logger.Warn("audit record failed", "kind", telemetry.KindArchive, "id", cand.ID, "error", err)
		}
	}
}
