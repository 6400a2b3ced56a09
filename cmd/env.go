package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/papapumpkin/onto/internal/config"
	"github.com/papapumpkin/onto/internal/consolidate"
	"github.com/papapumpkin/onto/internal/corpus"
	"github.com/papapumpkin/onto/internal/fsio"
	"github.com/papapumpkin/onto/internal/ledger"
	"github.com/papapumpkin/onto/internal/lifecycle"
	"github.com/papapumpkin/onto/internal/logging"
	"github.com/papapumpkin/onto/internal/ontology"
	"github.com/papapumpkin/onto/internal/report"
	"github.com/papapumpkin/onto/internal/result"
	"github.com/papapumpkin/onto/internal/taxonomy"
	"github.com/papapumpkin/onto/internal/ui"
)

// env is what every command builds before doing its work.
type env struct {
	cfg     config.Config
	tax     *taxonomy.Taxonomy
	logger  *slog.Logger
	printer *ui.Printer
	disk    fsio.Disk
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.Verbose)

	tax := taxonomy.Default()
	if cfg.TaxonomyFile != "" {
		tax, err = taxonomy.Load(cfg.TaxonomyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load taxonomy: %w", err)
		}
	}
	return &env{cfg: cfg, tax: tax, logger: logger, printer: ui.New()}, nil
}

// scan reads every configured root.
func (e *env) scan() (*corpus.Corpus, error) {
	s, err := corpus.NewScanner(e.disk, e.tax, e.cfg.SkipPatterns, e.logger)
	if err != nil {
		return nil, err
	}
	c, err := s.Scan(e.cfg.Roots)
	if err != nil {
		return nil, fmt.Errorf("scanning corpus: %w", err)
	}
	e.logger.Debug("scanned corpus", "documents", len(c.Records), "untagged", len(c.Untagged))
	return c, nil
}

func (e *env) graph(c *corpus.Corpus) *ontology.Graph {
	return ontology.Build(c.Records, e.tax)
}

func (e *env) lifecycle() *lifecycle.Engine {
	return lifecycle.New(e.disk, e.tax, e.logger)
}

func (e *env) consolidator() *consolidate.Engine {
	performer := os.Getenv("USER")
	if performer == "" {
		performer = "onto"
	}
	return consolidate.New(e.disk, e.logger, e.cfg.LedgerPath, e.cfg.ArchiveDir,
		consolidate.WithPerformer(performer))
}

// deferred excuses links to logs that were consolidated into the ledger or
// moved to the archive directory. Either source may be absent.
func (e *env) deferred() func(id string) bool {
	var ledgered, archived []string

	led, err := e.consolidator().LoadLedger()
	var lerr *ledger.LedgerError
	switch {
	case err == nil:
		ledgered = led.Slugs()
	case errors.As(err, &lerr):
		e.logger.Debug("no usable ledger for link deferral", "error", err)
	default:
		e.logger.Warn("reading ledger", "error", err)
	}

	if e.disk.Exists(e.cfg.ArchiveDir) {
		s, err := corpus.NewScanner(e.disk, e.tax, nil, e.logger)
		if err == nil {
			if c, err := s.Scan([]string{e.cfg.ArchiveDir}); err == nil {
				archived = c.IDs()
			}
		}
	}
	return report.Deferred(ledgered, archived)
}

// finish prints res and turns a fatal result into a non-zero exit.
func (e *env) finish(res result.Result) error {
	e.printer.Result(res)
	if res.IsFatal() {
		return errReported
	}
	return nil
}

// finishJSON writes res to stdout as JSON; a fatal result still exits non-zero.
func (e *env) finishJSON(res result.Result) error {
	data, err := report.ResultJSON(res)
	if err != nil {
		return err
	}
	if _, err := os.Stdout.Write(data); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	if res.IsFatal() {
		return errReported
	}
	return nil
}
