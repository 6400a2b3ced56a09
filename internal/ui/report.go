package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/papapumpkin/onto/internal/consolidate"
	"github.com/papapumpkin/onto/internal/frontmatter"
	"github.com/papapumpkin/onto/internal/lifecycle"
	"github.com/papapumpkin/onto/internal/ontology"
	"github.com/papapumpkin/onto/internal/report"
	"github.com/papapumpkin/onto/internal/watch"
)

// Health prints the corpus health summary.
func (p *Printer) Health(h report.Health) {
	p.Heading("corpus health")
	p.line("Total documents: %d", h.Total)
	for _, tc := range h.Types {
		p.line("  %-10s %d", string(tc.Type)+":", tc.Count)
	}

	conn := h.ConnectivityLine()
	if h.Reached < h.Reachable {
		p.line("%s %s", p.s.warn.Render("⚠"), conn)
	} else {
		p.line("%s %s", p.s.ok.Render("✓"), conn)
	}

	p.section("Orphans", len(h.Orphans), h.Orphans)
	broken := make([]string, len(h.Broken))
	for i, l := range h.Broken {
		broken[i] = fmt.Sprintf("%s -%s-> %s", l.From, l.Kind, l.To)
	}
	p.section("Broken links", len(h.Broken), broken)
	cycles := make([]string, len(h.Cycles))
	for i, c := range h.Cycles {
		cycles[i] = ontology.FormatCycle(c)
	}
	p.section("Cycles", len(h.Cycles), cycles)
}

func (p *Printer) section(title string, n int, items []string) {
	count := p.s.ok.Render("0")
	if n > 0 {
		count = p.s.warn.Render(fmt.Sprint(n))
	}
	p.line("%s: %s", title, count)
	for _, item := range items {
		p.line("  %s %s", p.s.dim.Render("•"), item)
	}
}

// Outcomes prints one line per lifecycle outcome. verb names the operation
// ("promote", "verify", "scaffold") and check marks a dry run.
func (p *Printer) Outcomes(verb string, outcomes []lifecycle.Outcome, check bool) {
	applied, failed := 0, 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			p.line("  %s %-24s %v", p.s.bad.Render("✗"), o.ID, o.Err)
			continue
		}
		transition := o.From.String()
		if o.To != o.From {
			transition += " → " + o.To.String()
		}
		mark := p.s.ok.Render("✓")
		if check {
			mark = p.s.dim.Render("~")
		} else {
			applied++
		}
		p.line("  %s %-24s %s", mark, o.ID, p.s.dim.Render(transition))
	}
	switch {
	case check:
		p.Info(fmt.Sprintf("%s check: %d ready, %d blocked", verb, len(outcomes)-failed, failed))
	case failed > 0:
		p.line("%s %s: %d applied, %d failed", p.s.warn.Render("⚠"), verb, applied, failed)
	default:
		p.Success(fmt.Sprintf("%s: %d applied", verb, applied))
	}
}

// Staleness prints each stale document.
func (p *Printer) Staleness(stale []lifecycle.Staleness) {
	if len(stale) == 0 {
		p.Success("no stale documents")
		return
	}
	p.Heading(fmt.Sprintf("%d stale document(s)", len(stale)))
	for _, s := range stale {
		if s.Never() {
			p.line("  %s %-24s %s", p.s.warn.Render("•"), s.ID, p.s.dim.Render("never verified"))
			continue
		}
		p.line("  %s %-24s verified %s, %s changed %s", p.s.warn.Render("•"), s.ID,
			date(s.Verified), s.Target, date(s.Modified))
	}
}

// Consolidation prints the rows a consolidation appended, or would append.
func (p *Printer) Consolidation(r *consolidate.Report) {
	if len(r.Candidates) == 0 {
		p.Info(fmt.Sprintf("nothing to consolidate (%d dated logs reviewed)", r.Reviewed))
		return
	}
	title := "consolidated"
	if r.DryRun {
		title = "would consolidate"
	}
	p.Heading(fmt.Sprintf("%s %d of %d logs", title, len(r.Candidates), r.Reviewed))
	for _, row := range r.Rows {
		impacts := "—"
		if len(row.Impacts) > 0 {
			impacts = strings.Join(row.Impacts, ", ")
		}
		p.line("  %s %s %-20s %s %s", p.s.ok.Render("+"), row.Date, row.Slug,
			row.Outcome, p.s.dim.Render("["+row.Event+"; "+impacts+"]"))
		p.line("      %s", p.s.dim.Render("→ "+row.ArchivePath))
	}
	if !r.DryRun {
		p.Success(fmt.Sprintf("ledger updated, %d file(s) archived", len(r.Archived)))
	}
}

// Change prints a watch event.
func (p *Printer) Change(c watch.Change) {
	p.line("%s %s %s", p.s.dim.Render(time.Now().Format("15:04:05")), c.Kind, c.Path)
}

func date(t time.Time) string {
	return t.Format(frontmatter.DateLayout)
}
