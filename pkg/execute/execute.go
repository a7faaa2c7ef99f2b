// pkg/execute/execute.go

package execute

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DefaultTimeout applies when Options.Timeout is zero.
const DefaultTimeout = 2 * time.Minute

// Options describes one external command. Commands are never run through a shell.
type Options struct {
	Command string
	Args    []string
	Dir     string
	// Env is appended to the current environment.
	Env []string
	// AsUser drops to the given identity before exec.
	AsUser *Credential
	// Capture returns combined stdout and stderr.
	Capture bool
	// Interactive wires the child to the terminal instead of capturing output.
	Interactive bool
	Timeout     time.Duration
	Retries     int
	Delay       time.Duration
	DryRun      bool
}

// Credential names the identity a command runs as.
type Credential struct {
	Username string
	UID      uint32
	GID      uint32
	HomeDir  string
}

// Runner runs external commands. Components depend on it so tests can
// substitute a fake.
type Runner interface {
	Run(ctx context.Context, opts Options) (string, error)
}

// System runs commands on the local machine.
type System struct{}

// Run executes opts with the System runner.
func Run(ctx context.Context, opts Options) (string, error) {
	return System{}.Run(ctx, opts)
}

// Run executes a command with structured logging, a telemetry span and a timeout.
// A failed command returns a command-class error carrying a summary of its output.
func (System) Run(ctx context.Context, opts Options) (string, error) {
	logger := otelzap.Ctx(ctx)
	cmdStr := CommandString(opts.Command, opts.Args...)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runCtx, span := telemetry.Start(runCtx, "execute.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", opts.Command),
		attribute.String("args", strings.Join(opts.Args, " ")),
	)
	if opts.AsUser != nil {
		span.SetAttributes(attribute.String("as_user", opts.AsUser.Username))
	}

	if opts.DryRun {
		logger.Info("Dry run mode - command not executed", zap.String("command", cmdStr))
		return "", nil
	}

	logger.Debug("Starting execution", zap.String("command", cmdStr), zap.String("dir", opts.Dir))

	var output string
	var err error
	start := time.Now()
	attempts := max(1, opts.Retries)
	for i := 1; i <= attempts; i++ {
		output, err = runOnce(runCtx, opts)
		if err == nil {
			logger.Debug("Execution succeeded", zap.String("command", cmdStr))
			break
		}

		span.RecordError(err)
		logger.Warn("Execution failed",
			zap.Int("attempt", i),
			zap.String("command", cmdStr),
			zap.String("summary", hermes_err.ExtractSummary(output, 2)),
			zap.Error(err))

		if i == attempts {
			break
		}
		if waitErr := wait(runCtx, opts.Delay); waitErr != nil {
			logger.Warn("Retry abandoned", zap.String("command", cmdStr), zap.Error(waitErr))
			break
		}
	}

	telemetry.RecordCommand(ctx, opts.Command, time.Since(start), err)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if cerr.Is(err, exec.ErrNotFound) {
			return output, hermes_err.NewDependencyError(opts.Command, "running "+cmdStr, err,
				"Run 'hermes check deps' to install missing tools")
		}
		return output, hermes_err.NewCommandError(cmdStr, err, hermes_err.ExtractSummary(output, 2))
	}

	if opts.Capture {
		return output, nil
	}
	return "", nil
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func runOnce(ctx context.Context, opts Options) (string, error) {
	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	cmd.Dir = opts.Dir

	env := append(os.Environ(), opts.Env...)
	if opts.AsUser != nil {
		env = append(env,
			"HOME="+opts.AsUser.HomeDir,
			"USER="+opts.AsUser.Username,
			"LOGNAME="+opts.AsUser.Username,
		)
		if err := applyCredential(cmd, opts.AsUser); err != nil {
			return "", err
		}
	}
	cmd.Env = env

	if opts.Interactive {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return "", cmd.Run()
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}

// ExitStatus reports the exit status of a failed command, or -1 when err did not
// come from a process that ran to completion.
func ExitStatus(err error) int {
	var exitErr *exec.ExitError
	if cerr.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// CommandString renders a command line for logs.
func CommandString(command string, args ...string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}
