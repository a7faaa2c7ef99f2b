package nginx

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Validator runs the gateway syntax check, `nginx -t` by default.
type Validator struct {
	Runner  execute.Runner
	Command []string
}

// NewValidator returns a validator running command (argv form).
func NewValidator(runner execute.Runner, command []string) *Validator {
	return &Validator{Runner: runner, Command: command}
}

// Check runs the validator and returns its combined output.
func (v *Validator) Check(ctx context.Context) (string, error) {
	if len(v.Command) == 0 {
		return "", cerr.AssertionFailedf("gateway validator command is empty")
	}
	return v.Runner.Run(ctx, execute.Options{
		Command: v.Command[0],
		Args:    v.Command[1:],
		Capture: true,
	})
}

var fileRef = regexp.MustCompile(` in "?(/[^":\s]+)"?:\d+`)

// ReferencedFiles returns the config files named in validator output, in order.
func ReferencedFiles(output string) []string {
	var files []string
	seen := map[string]bool{}
	for _, m := range fileRef.FindAllStringSubmatch(output, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			files = append(files, m[1])
		}
	}
	return files
}

// StaleReport describes a gateway tree that was already broken before hermes
// wrote anything, and the hermes-managed files that may be to blame.
type StaleReport struct {
	Output     string
	Referenced []string
	Candidates []string
}

// FindStale validates the existing tree. It returns nil when the tree is valid,
// when the failure only concerns ours (about to be overwritten), or when there
// are no other hermes-managed files in configDir to remove.
func FindStale(ctx context.Context, v *Validator, configDir, ours string) (*StaleReport, error) {
	logger := otelzap.Ctx(ctx)

	out, err := v.Check(ctx)
	if err == nil {
		logger.Debug("Existing gateway config is valid")
		return nil, nil
	}
	if execute.ExitStatus(err) < 0 {
		return nil, cerr.Wrap(err, "run gateway validator")
	}

	report := &StaleReport{Output: out, Referenced: ReferencedFiles(out)}

	foreign := len(report.Referenced) == 0
	for _, f := range report.Referenced {
		if f != ours && filepath.Dir(f) == filepath.Clean(configDir) {
			foreign = true
		}
	}
	if !foreign {
		logger.Debug("Validator only complains about our own config", zap.String("path", ours))
		return nil, nil
	}

	managed, err := ManagedFiles(configDir)
	if err != nil {
		return nil, err
	}
	for _, f := range managed {
		if f != ours {
			report.Candidates = append(report.Candidates, f)
		}
	}
	if len(report.Candidates) == 0 {
		return nil, nil
	}

	logger.Warn("Existing gateway config fails validation",
		zap.Strings("referenced", report.Referenced),
		zap.Strings("managed", report.Candidates))
	return report, nil
}

// Purge removes files, collecting every failure.
func Purge(ctx context.Context, files []string, dryRun bool) error {
	logger := otelzap.Ctx(ctx)
	var result error
	for _, f := range files {
		if dryRun {
			logger.Info("Dry run - stale config kept", zap.String("path", f))
			continue
		}
		if err := os.Remove(f); err != nil {
			result = multierror.Append(result, cerr.Wrapf(err, "remove %s", f))
			continue
		}
		logger.Info("Removed stale gateway config", zap.String("path", f))
	}
	return result
}
