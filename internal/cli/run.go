package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"reconciler/internal/models"
)

// RunOptions - флаги команды run
type RunOptions struct {
	*RootOptions
	FailOnErrors bool
	Timeout      time.Duration
	JSON         bool
}

// NewRunCommand создаёт команду run: один проход сверки
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass",
		Long: `Fetch every PENDING order with a venue order id, query the venue and apply
the result. Per-order failures are logged and counted; the pass continues.

Exit codes:
  0  pass finished
  1  fatal error (config, database, fetching pending orders)
  2  pass had per-order errors or was aborted (only with --fail-on-errors)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.FailOnErrors, "fail-on-errors", false, "exit 2 when any order failed or the pass was aborted")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "override RUN_TIMEOUT for this pass")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the run summary as JSON")

	return cmd
}

func runOnce(cmd *cobra.Command, opts *RunOptions) error {
	cfg := opts.Config
	if opts.Timeout > 0 {
		cfg.Run.Timeout = opts.Timeout
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to initialize", err)
	}
	defer a.Close()

	run, err := a.runner.Run(ctx, models.RunTriggerCLI)
	if err != nil {
		return WrapExitError(ExitFailure, "reconciliation pass failed", err)
	}

	if err := printRun(cmd.OutOrStdout(), run, opts.JSON); err != nil {
		return WrapExitError(ExitFailure, "failed to print summary", err)
	}

	return runResultError(run, opts.FailOnErrors)
}

// runResultError переводит итог прохода в код завершения
func runResultError(run *models.Run, failOnErrors bool) error {
	if !failOnErrors {
		return nil
	}
	switch {
	case run.Aborted:
		return NewExitError(ExitRunErrors, fmt.Sprintf("pass aborted after %d of %d orders: %s",
			processed(run), run.Total, run.LastError))
	case run.HasErrors():
		return NewExitError(ExitRunErrors, fmt.Sprintf("%d of %d orders failed, last error: %s",
			run.Errors, run.Total, run.LastError))
	}
	return nil
}

func processed(run *models.Run) int {
	return run.Completed + run.Cancelled + run.Failed + run.StillPending + run.Skipped + run.Errors
}

func printRun(w io.Writer, run *models.Run, asJSON bool) error {
	if asJSON {
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	_, err := fmt.Fprintf(w,
		"run %d (%s): total=%d completed=%d cancelled=%d failed=%d pending=%d skipped=%d settled=%d errors=%d aborted=%t duration=%s\n",
		run.ID, run.Trigger, run.Total, run.Completed, run.Cancelled, run.Failed,
		run.StillPending, run.Skipped, run.Settled, run.Errors, run.Aborted,
		run.Duration().Round(time.Millisecond),
	)
	return err
}
