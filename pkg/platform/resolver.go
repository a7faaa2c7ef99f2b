package platform

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-version"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Dependency is an external tool hermes needs on PATH.
type Dependency struct {
	Command string `mapstructure:"command" yaml:"command" validate:"required"`
	Package string `mapstructure:"package" yaml:"package" validate:"required"`
	// MinVersion is compared against the first version number found in the
	// output of Command VersionArgs.
	MinVersion  string   `mapstructure:"min_version" yaml:"min_version,omitempty"`
	VersionArgs []string `mapstructure:"version_args" yaml:"version_args,omitempty"`
}

// Status describes one dependency after resolution.
type Status struct {
	Dependency Dependency
	Path       string
	Version    string
	// Installed is true when hermes installed the tool during this run.
	Installed bool
}

// Resolver makes sure every dependency is on PATH, installing missing ones.
type Resolver struct {
	Runner   execute.Runner
	Manager  *PackageManager
	LookPath func(string) (string, error)
	Geteuid  func() int
	// DryRun reports missing tools without installing them.
	DryRun bool

	prepared bool
}

// NewResolver returns a resolver for the given package manager.
func NewResolver(runner execute.Runner, manager *PackageManager, geteuid func() int) *Resolver {
	return &Resolver{
		Runner:   runner,
		Manager:  manager,
		LookPath: exec.LookPath,
		Geteuid:  geteuid,
	}
}

// BeforeElevation reports whether dependencies must be resolved before hermes
// re-runs itself as root.
func (r *Resolver) BeforeElevation() bool {
	return r.Manager != nil && r.Manager.ForbidsRoot
}

// Ensure resolves every dependency in order and stops at the first one that
// cannot be made available.
func (r *Resolver) Ensure(ctx context.Context, deps []Dependency) ([]Status, error) {
	statuses := make([]Status, 0, len(deps))
	for _, dep := range deps {
		st, err := r.ensureOne(ctx, dep)
		if err != nil {
			return statuses, err
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func (r *Resolver) ensureOne(ctx context.Context, dep Dependency) (Status, error) {
	logger := otelzap.Ctx(ctx)
	st := Status{Dependency: dep}

	// ASSESS
	path, err := r.LookPath(dep.Command)
	if err != nil {
		if r.DryRun {
			return st, hermes_err.NewDependencyError(dep.Command, "provisioning", err,
				fmt.Sprintf("Install the %s package", dep.Package))
		}

		// INTERVENE
		logger.Info("terminal prompt: Installing missing dependency",
			zap.String("command", dep.Command),
			zap.String("package", dep.Package))
		if err := r.install(ctx, dep); err != nil {
			return st, err
		}
		st.Installed = true

		path, err = r.LookPath(dep.Command)
		if err != nil {
			return st, hermes_err.NewDependencyError(dep.Command, "provisioning",
				cerr.Wrapf(err, "%s still not on PATH after installing %s", dep.Command, dep.Package),
				"Check that the package manager's bin directory is on PATH")
		}
	}
	st.Path = path

	// EVALUATE
	if dep.MinVersion != "" {
		v, err := r.version(ctx, dep)
		if err != nil {
			return st, err
		}
		st.Version = v
	}

	logger.Debug("Dependency available",
		zap.String("command", dep.Command),
		zap.String("path", st.Path),
		zap.String("version", st.Version))
	return st, nil
}

func (r *Resolver) install(ctx context.Context, dep Dependency) error {
	if r.Manager == nil {
		return hermes_err.NewDependencyError(dep.Command, "provisioning",
			cerr.New("no package manager available"),
			fmt.Sprintf("Install the %s package manually", dep.Package))
	}
	if r.Manager.ForbidsRoot && r.Geteuid() == 0 {
		return hermes_err.NewDependencyError(dep.Command, "provisioning",
			cerr.Newf("%s refuses to run as root", r.Manager.Name),
			"Run 'hermes check deps' without sudo first")
	}

	if _, err := r.LookPath(r.Manager.Binary); err != nil {
		if r.Manager.Name != Homebrew.Name {
			return hermes_err.NewDependencyError(r.Manager.Binary, "installing "+dep.Package, err)
		}
		if err := bootstrapHomebrew(ctx, r.Runner); err != nil {
			return hermes_err.NewDependencyError(r.Manager.Binary, "installing "+dep.Package, err)
		}
		if _, err := r.LookPath(r.Manager.Binary); err != nil {
			return hermes_err.NewDependencyError(r.Manager.Binary, "installing "+dep.Package, err,
				"Add Homebrew to PATH (eval \"$(/opt/homebrew/bin/brew shellenv)\") and rerun")
		}
	}

	if !r.prepared && len(r.Manager.Prepare) > 0 {
		if _, err := r.Runner.Run(ctx, execute.Options{
			Command: r.Manager.Binary,
			Args:    r.Manager.Prepare,
			Timeout: InstallTimeout,
		}); err != nil {
			return cerr.Wrapf(err, "refresh %s package index", r.Manager.Name)
		}
		r.prepared = true
	}

	args := append(append([]string{}, r.Manager.Install...), dep.Package)
	if _, err := r.Runner.Run(ctx, execute.Options{
		Command: r.Manager.Binary,
		Args:    args,
		Timeout: InstallTimeout,
	}); err != nil {
		return hermes_err.NewDependencyError(dep.Command, "provisioning", err,
			fmt.Sprintf("Install %s manually with %s", dep.Package, r.Manager.Binary))
	}
	return nil
}

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

func (r *Resolver) version(ctx context.Context, dep Dependency) (string, error) {
	args := dep.VersionArgs
	if len(args) == 0 {
		args = []string{"--version"}
	}
	out, err := r.Runner.Run(ctx, execute.Options{Command: dep.Command, Args: args, Capture: true})
	if err != nil {
		return "", cerr.Wrapf(err, "query %s version", dep.Command)
	}
	return CheckVersion(dep, out)
}

// CheckVersion extracts a version number from output and compares it with
// dep.MinVersion.
func CheckVersion(dep Dependency, output string) (string, error) {
	raw := versionPattern.FindString(output)
	if raw == "" {
		return "", hermes_err.NewDependencyError(dep.Command, "provisioning",
			cerr.Newf("no version number in %q", output))
	}
	have, err := version.NewVersion(raw)
	if err != nil {
		return "", cerr.Wrapf(err, "parse %s version %q", dep.Command, raw)
	}
	want, err := version.NewVersion(dep.MinVersion)
	if err != nil {
		return "", hermes_err.NewValidationError(
			fmt.Sprintf("invalid min_version %q for %s", dep.MinVersion, dep.Command), err)
	}
	if have.LessThan(want) {
		return have.String(), hermes_err.NewDependencyError(
			fmt.Sprintf("%s >= %s", dep.Command, want), "provisioning",
			cerr.Newf("found %s %s", dep.Command, have),
			fmt.Sprintf("Upgrade the %s package", dep.Package))
	}
	return have.String(), nil
}
