package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"newsreel/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var pipelinePath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, notifications, and provider availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			defs, err := runDefinitions(cfg, pipelinePath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg, defs)
			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, r := range results {
				fmt.Fprintln(out, renderStatusLine(r.Name, checkKind(r), r.Detail, colorize))
			}

			if verbose && len(defs) > 0 {
				fmt.Fprintln(out)
				rows := make([][]string, 0)
				for _, p := range preflight.CheckProviders(defs) {
					state := "ready"
					if !p.Available {
						state = p.Detail
					}
					rows = append(rows, []string{p.Step, p.Name, strconv.Itoa(p.Priority), p.Command, state})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Step", "Provider", "Priority", "Command", "Status"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
			}

			if preflight.Failed(results) {
				failed := make([]string, 0)
				for _, r := range results {
					if !r.Passed && !r.Optional {
						failed = append(failed, r.Name)
					}
				}
				return errors.New("preflight failed: " + strings.Join(failed, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&pipelinePath, "pipeline", "p", "", "Pipeline definition file to check instead of the configured steps")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every provider")
	return cmd
}

func checkKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Optional:
		return statusWarn
	default:
		return statusError
	}
}
