package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"newsreel/internal/config"
	"newsreel/internal/deps"
	"newsreel/internal/logging"
	"newsreel/internal/services"
)

// partialSuffix marks an artifact still being written by a provider.
const partialSuffix = ".partial"

// commandWaitDelay bounds how long output pipes may stay open after the
// command is killed.
const commandWaitDelay = 5 * time.Second

// outputTailBytes bounds the command output kept for error messages.
const outputTailBytes = 2048

// CommandProvider runs an external command to produce a step output.
type CommandProvider struct {
	step   string
	def    config.ProviderDefinition
	logger *slog.Logger
}

// NewCommandProvider builds a provider for stepName from its definition.
func NewCommandProvider(stepName string, def config.ProviderDefinition, logger *slog.Logger) *CommandProvider {
	return &CommandProvider{
		step:   stepName,
		def:    def,
		logger: logging.NewComponentLogger(logger, "provider"),
	}
}

func (p *CommandProvider) Name() string { return p.def.Name }

func (p *CommandProvider) Priority() int { return p.def.Priority }

// Requirement describes what the provider needs to be runnable.
func (p *CommandProvider) Requirement() deps.Requirement {
	return deps.Requirement{
		Name:        p.def.Name,
		Command:     p.def.Command,
		Env:         p.def.RequiresEnv,
		Description: "provider for " + p.step,
	}
}

// Available reports whether the command is on PATH and its environment is set.
func (p *CommandProvider) Available(context.Context) bool {
	return deps.Check(p.Requirement()).Available
}

// Execute runs the command, retrying per the definition. The command writes
// to a temporary path that is renamed onto the output only after success, so
// a failed attempt never leaves something that looks like a finished artifact.
func (p *CommandProvider) Execute(ctx context.Context, req Request) (string, error) {
	partial := req.Output + partialSuffix
	cmdReq := req
	cmdReq.Output = partial
	args, err := expandArgs(p.def.Args, cmdReq)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return "", services.Wrap(services.ErrExecution, req.Step, p.def.Name, "create run directory", err)
	}

	logger := logging.WithContext(ctx, p.logger)
	attempts := uint(max(p.def.Retries, 0) + 1)
	delay := time.Duration(p.def.RetryDelaySeconds) * time.Second

	err = retry.Do(
		func() error {
			return p.runOnce(ctx, cmdReq, args)
		},
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(error) bool {
			return ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			logging.WarnWithContext(logger, "provider attempt failed, retrying", "provider_retry",
				logging.Int("attempt", int(n)+1),
				logging.Int("max_attempts", int(attempts)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "step delayed"),
			)
		}),
	)
	if err != nil {
		_ = os.Remove(partial)
		return "", err
	}

	if err := os.Rename(partial, req.Output); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Commands that ignore ${output} may write the final path directly.
			if _, statErr := os.Stat(req.Output); statErr == nil {
				return req.Output, nil
			}
			return "", services.Wrap(services.ErrExternalTool, req.Step, p.def.Name,
				fmt.Sprintf("%s exited 0 without writing output", p.def.Command), nil)
		}
		return "", services.Wrap(services.ErrExecution, req.Step, p.def.Name, "finalize output", err)
	}
	return req.Output, nil
}

func (p *CommandProvider) runOnce(ctx context.Context, req Request, args []string) error {
	runCtx := ctx
	if p.def.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(p.def.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, p.def.Command, args...)
	cmd.Dir = req.RunDir
	cmd.Env = append(os.Environ(),
		"NEWSREEL_RUN_ID="+req.RunID,
		"NEWSREEL_RUN_DIR="+req.RunDir,
		"NEWSREEL_STEP="+req.Step,
		"NEWSREEL_OUTPUT="+req.Output,
	)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = commandWaitDelay

	start := time.Now()
	err := cmd.Run()
	p.logger.Debug("provider command finished",
		logging.String(logging.FieldStep, req.Step),
		logging.String(logging.FieldProvider, p.def.Name),
		logging.String("command", p.def.Command),
		logging.Duration("elapsed", time.Since(start)),
		logging.Bool("ok", err == nil),
	)
	if err == nil {
		return nil
	}
	_ = os.Remove(req.Output)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	message := fmt.Sprintf("%s failed", p.def.Command)
	if runCtx.Err() != nil {
		message = fmt.Sprintf("%s timed out after %ds", p.def.Command, p.def.TimeoutSeconds)
	}
	if tail := tailOf(output.Bytes()); tail != "" {
		message += ": " + tail
	}
	return services.Wrap(services.ErrExternalTool, req.Step, p.def.Name, message, err)
}

func tailOf(out []byte) string {
	if len(out) > outputTailBytes {
		out = out[len(out)-outputTailBytes:]
	}
	return strings.TrimSpace(string(out))
}
