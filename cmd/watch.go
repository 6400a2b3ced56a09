package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/onto/internal/corpus"
	"github.com/papapumpkin/onto/internal/ui"
	"github.com/papapumpkin/onto/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the health report whenever a corpus file changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		metricsFile, _ := cmd.Flags().GetString("metrics-file")

		skips, err := corpus.NewScanner(e.disk, e.tax, e.cfg.SkipPatterns, e.logger)
		if err != nil {
			return err
		}
		w, err := watch.New(e.cfg.Roots, watch.WithIgnore(skips.Skipped))
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()

		ctx, cancel := setupSignalContext(e.printer)
		defer cancel()

		if err := e.health(metricsFile, false); err != nil {
			return err
		}
		e.printer.Info("watching for changes (ctrl-c to stop)")
		for {
			select {
			case <-ctx.Done():
				return nil
			case change, ok := <-w.Changes:
				if !ok {
					return nil
				}
				e.printer.Change(change)
				if err := e.health(metricsFile, false); err != nil && !errors.Is(err, errReported) {
					e.printer.Error(err.Error())
				}
			}
		}
	},
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			printer.Info("\nstopping watch...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func init() {
	watchCmd.Flags().String("metrics-file", "", "rewrite Prometheus textfile metrics after every change")
	rootCmd.AddCommand(watchCmd)
}
