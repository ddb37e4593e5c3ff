package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/metrics"
	"newsreel/internal/notifications"
	"newsreel/internal/orchestrator"
	"newsreel/internal/pipeline"
	"newsreel/internal/runstate"
)

type runOptions struct {
	runID    string
	pipeline string
	json     bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline, resuming when the run id already exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := executeRun(cmd, ctx, opts)
			if result.Status == "" {
				return err
			}

			if opts.json {
				if jsonErr := writeJSON(cmd, result); jsonErr != nil {
					return jsonErr
				}
			} else {
				out := cmd.OutOrStdout()
				printRunResult(out, result, shouldColorize(out))
			}

			if err != nil && result.Status != orchestrator.StatusInterrupted {
				return err
			}
			if code := result.ExitCode(); code != 0 {
				return &exitError{code: code, status: string(result.Status)}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.runID, "run-id", "", "Run identifier to start or resume (generated when empty)")
	cmd.Flags().StringVarP(&opts.pipeline, "pipeline", "p", "", "Pipeline definition file (.yaml or .toml) overriding the configured steps")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the run result as JSON")
	return cmd
}

func executeRun(cmd *cobra.Command, ctx *commandContext, opts runOptions) (orchestrator.Result, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return orchestrator.Result{}, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return orchestrator.Result{}, fmt.Errorf("init logger: %w", err)
	}

	runID := strings.TrimSpace(opts.runID)
	if runID == "" {
		runID = runstate.NewRunID(time.Now())
	}
	if err := runstate.ValidateRunID(runID); err != nil {
		return orchestrator.Result{}, err
	}

	defs, err := runDefinitions(cfg, opts.pipeline)
	if err != nil {
		return orchestrator.Result{}, err
	}
	if len(defs) == 0 {
		return orchestrator.Result{}, errors.New("no pipeline steps configured (add [[pipeline.steps]] or pass --pipeline)")
	}

	lock, err := runstate.AcquireLock(cfg.Paths.RunDir, runID)
	if err != nil {
		return orchestrator.Result{}, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release run lock failed", logging.Error(err), logging.String(logging.FieldRunID, runID))
		}
	}()

	store, err := runstate.Open(cfg)
	if err != nil {
		return orchestrator.Result{}, fmt.Errorf("open run state: %w", err)
	}
	defer store.Close()

	steps, err := pipeline.Build(defs, runID, cfg.Paths.RunDir, logger)
	if err != nil {
		return orchestrator.Result{}, err
	}

	options := []orchestrator.Option{
		orchestrator.WithStore(store),
		orchestrator.WithLogger(logger),
		orchestrator.WithTracker(notifications.NewTracker(notifications.NewService(cfg), cfg.Notifications)),
	}
	if cfg.Metrics.Enabled {
		options = append(options, orchestrator.WithTracker(metrics.NewTracker(cfg.Metrics.TextfileDir, store, logger)))
	}

	orch := orchestrator.New(runID, steps, cfg.Paths.RunDir, options...)
	return orch.Execute(cmd.Context())
}

func runDefinitions(cfg *config.Config, override string) ([]config.StepDefinition, error) {
	override = strings.TrimSpace(override)
	if override == "" {
		return pipeline.Definitions(cfg)
	}
	path, err := config.ExpandPath(override)
	if err != nil {
		return nil, fmt.Errorf("resolve pipeline path: %w", err)
	}
	return pipeline.LoadDefinition(path)
}

func printRunResult(out io.Writer, result orchestrator.Result, colorize bool) {
	for _, line := range renderSectionHeader("Run "+result.RunID, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", resultKind(result.Status), statusLabel(string(result.Status)), colorize))
	fmt.Fprintln(out, renderStatusLine("Attempt", statusInfo, fmt.Sprintf("%d (resumed: %s)", result.Attempt, yesNo(result.Resumed)), colorize))
	fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, result.Duration.Round(time.Millisecond).String(), colorize))
	fmt.Fprintln(out, renderStatusLine("Checkpoint", statusInfo, result.Checkpoint, colorize))

	if len(result.Outputs) > 0 {
		fmt.Fprintln(out)
		names := make([]string, 0, len(result.Outputs))
		for name := range result.Outputs {
			names = append(names, name)
		}
		slices.Sort(names)
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rows = append(rows, []string{name, result.Outputs[name]})
		}
		fmt.Fprintln(out, renderTable([]string{"Step", "Output"}, rows, nil))
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorText("Errors:", statusError, colorize))
		for _, msg := range result.Errors {
			fmt.Fprintf(out, "%s- %s\n", statusIndent, msg)
		}
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
