package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newsreel/internal/runstate"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect run history",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			summaries, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if limit > 0 && len(summaries) > limit {
				summaries = summaries[:limit]
			}
			if asJSON {
				return writeJSON(cmd, summaries)
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunTable(summaries, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print summaries as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many runs")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the full record of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := strings.TrimSpace(args[0])
			if err := runstate.ValidateRunID(runID); err != nil {
				return err
			}
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			state, found, err := store.Load(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("load run %s: %w", runID, err)
			}
			if !found {
				return fmt.Errorf("run %s not found at %s", runID, store.Location(runID))
			}
			if asJSON {
				return writeJSON(cmd, state)
			}
			out := cmd.OutOrStdout()
			printRunState(out, state, store.Location(runID), shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the record as JSON")
	return cmd
}

func openStore(ctx *commandContext) (runstate.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := runstate.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open run state: %w", err)
	}
	return store, nil
}

func renderRunTable(summaries []runstate.Summary, colorize bool) string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		status := statusLabel(string(s.Status))
		kind := runStatusKind(s.Status)
		if s.Corrupt {
			status = "Corrupt"
			kind = statusError
		}
		rows = append(rows, []string{
			s.RunID,
			colorText(status, kind, colorize),
			formatTimestamp(s.StartedAt),
			formatCompleted(s.CompletedAt),
			strconv.Itoa(s.CompletedSteps),
			strconv.Itoa(s.ErrorCount),
			strconv.Itoa(s.Attempts),
		})
	}
	return renderTable(
		[]string{"Run", "Status", "Started", "Completed", "Steps", "Errors", "Attempts"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func printRunState(out io.Writer, state *runstate.State, location string, colorize bool) {
	for _, line := range renderSectionHeader("Run "+state.RunID, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", runStatusKind(state.Status), statusLabel(string(state.Status)), colorize))
	fmt.Fprintln(out, renderStatusLine("Started", statusInfo, formatTimestamp(state.StartedAt), colorize))
	fmt.Fprintln(out, renderStatusLine("Completed", statusInfo, formatCompleted(state.CompletedAt), colorize))
	fmt.Fprintln(out, renderStatusLine("Attempts", statusInfo, strconv.Itoa(state.Attempts), colorize))
	fmt.Fprintln(out, renderStatusLine("Checkpoint", statusInfo, location, colorize))

	names := make([]string, 0, len(state.StepStatuses))
	for name := range state.StepStatuses {
		names = append(names, name)
	}
	for _, name := range state.CompletedSteps {
		if _, ok := state.StepStatuses[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	names = slices.Compact(names)

	if len(names) > 0 {
		fmt.Fprintln(out)
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			status := string(state.StepStatuses[name])
			if status == "" && state.IsCompleted(name) {
				status = string(runstate.StepSuccess)
			}
			rows = append(rows, []string{name, statusLabel(status), state.Outputs[name]})
		}
		fmt.Fprintln(out, renderTable([]string{"Step", "Status", "Output"}, rows, nil))
	}

	if len(state.Errors) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorText("Errors:", statusError, colorize))
		for _, msg := range state.Errors {
			fmt.Fprintf(out, "%s- %s\n", statusIndent, msg)
		}
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatCompleted(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTimestamp(*t)
}
