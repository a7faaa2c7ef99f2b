// pkg/privilege_check/elevate.go

package privilege_check

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// SessionTimeout bounds the elevated child, which may sit at interactive prompts.
const SessionTimeout = time.Hour

// Elevator re-executes hermes through sudo when it lacks root.
type Elevator struct {
	Runner     execute.Runner
	Geteuid    func() int
	Environ    func() []string
	Executable func() (string, error)
	Sudo       string
	EnvBinary  string
}

// NewElevator returns an elevator for the running process.
func NewElevator(runner execute.Runner) *Elevator {
	return &Elevator{
		Runner:     runner,
		Geteuid:    os.Geteuid,
		Environ:    os.Environ,
		Executable: os.Executable,
		Sudo:       "sudo",
		EnvBinary:  "/usr/bin/env",
	}
}

// IsRoot reports whether the process already runs with root privileges.
func (e *Elevator) IsRoot() bool {
	return e.Geteuid() == 0
}

// Elevate makes sure the remaining work runs as root. When the process is not
// root it runs `sudo /usr/bin/env HERMES_ELEVATED=1 <exe> <args>` with the
// terminal attached and waits for it. handedOff is true when the child did the
// work; a non-zero child status comes back as a *hermes_err.ExitError.
func (e *Elevator) Elevate(ctx context.Context, args []string) (handedOff bool, err error) {
	logger := otelzap.Ctx(ctx)

	// ASSESS
	if e.IsRoot() {
		logger.Debug("Already running with root privileges")
		return false, nil
	}

	env := e.Environ()
	if lookupEnv(env, shared.EnvElevated) == "1" {
		return false, hermes_err.NewPermissionError("hermes", "elevate",
			cerr.New("sudo returned without root privileges"),
			"Check the sudoers policy for this user")
	}

	exe, err := e.Executable()
	if err != nil {
		return false, cerr.Wrap(err, "locate hermes executable")
	}

	// INTERVENE
	sudoArgs := []string{e.EnvBinary, shared.EnvElevated + "=1"}
	sudoArgs = append(sudoArgs, ForwardedEnv(env)...)
	sudoArgs = append(sudoArgs, exe)
	sudoArgs = append(sudoArgs, args...)

	logger.Info("terminal prompt: hermes needs administrator rights to edit the hosts file and gateway config; re-running with sudo")
	_, runErr := e.Runner.Run(ctx, execute.Options{
		Command:     e.Sudo,
		Args:        sudoArgs,
		Interactive: true,
		Timeout:     SessionTimeout,
	})

	// EVALUATE
	if runErr == nil {
		logger.Debug("Elevated process finished")
		return true, nil
	}
	status := execute.ExitStatus(runErr)
	if status < 0 {
		return true, cerr.Wrap(runErr, "re-run hermes with sudo")
	}
	logger.Debug("Elevated process failed", zap.Int("status", status))
	return true, &hermes_err.ExitError{Code: status}
}

// ForwardedEnv returns the HERMES_ and LOG_LEVEL variables from env, sorted,
// except HERMES_ELEVATED. sudo resets the environment, so these travel as
// /usr/bin/env arguments.
func ForwardedEnv(env []string) []string {
	var out []string
	for _, kv := range env {
		key, _, ok := strings.Cut(kv, "=")
		if !ok || key == shared.EnvElevated {
			continue
		}
		if strings.HasPrefix(key, shared.EnvPrefix+"_") || key == shared.EnvLogLevel {
			out = append(out, kv)
		}
	}
	sort.Strings(out)
	return out
}

func lookupEnv(env []string, key string) string {
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}
