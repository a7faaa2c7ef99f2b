package devenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/certs"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/docker"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/fileops"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hostsfile"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/nginx"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/profile"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/system"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/templates"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/user"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Options tune a provisioning run.
type Options struct {
	DryRun bool
	// PurgeStale answers the stale-config prompt with yes.
	PurgeStale bool
	SkipReload bool
}

// Result lists what a run produced.
type Result struct {
	CertDir       string
	CertFile      string
	KeyFile       string
	HostsFile     string
	HostsLine     string
	GatewayConfig string
	Override      string
	Purged        []string
	Reloaded      bool
}

// GatewayResolver returns the address containers use to reach the host.
type GatewayResolver func(ctx context.Context, network, fallback string) string

// Provisioner applies a Session to the machine: certificate, hosts alias,
// gateway vhost and compose override, then reloads the gateway.
type Provisioner struct {
	Profile  *profile.Profile
	Identity *user.Identity
	Runner   execute.Runner
	Renderer *templates.Renderer
	Prompter Prompter
	Options  Options
	// Gateway is consulted when the profile asks for the bridge gateway IP.
	Gateway GatewayResolver
	// Privileged reports whether the validator can read pid and log files.
	Privileged func() bool
}

// NewProvisioner wires the default renderer and Docker gateway lookup.
func NewProvisioner(p *profile.Profile, id *user.Identity, runner execute.Runner, prompter Prompter, opts Options) *Provisioner {
	return &Provisioner{
		Profile:    p,
		Identity:   id,
		Runner:     runner,
		Renderer:   templates.NewRenderer(),
		Prompter:   prompter,
		Options:    opts,
		Gateway:    docker.ResolveWithEngine,
		Privileged: isRoot,
	}
}

func isRoot() bool { return os.Geteuid() == 0 }

// Provision runs every step in order and stops at the first failure.
// Artifacts already written stay in place; rerunning is safe. A gateway
// validation failure is reported only after every artifact is written.
func (p *Provisioner) Provision(ctx context.Context, s *Session) (*Result, error) {
	logger := otelzap.Ctx(ctx)
	res := &Result{}
	dry := p.Options.DryRun

	logger.Info("terminal prompt: Provisioning development gateway",
		zap.String("client", s.Client),
		zap.String("domain", s.Domain),
		zap.String("project_dir", s.ProjectDir),
		zap.String("owner", p.Identity.String()),
		zap.Bool("dry_run", dry))

	// Render the vhost before anything on the machine changes.
	certsRoot := p.Profile.CertsRoot(p.Identity.HomeDir)
	layout := certs.Layout(certsRoot, s.Client, s.Domain)
	content, err := nginx.Render(ctx, p.Renderer, nginx.Build(p.Profile, s.Client, s.Domain, layout.Dir))
	if err != nil {
		return res, cerr.Wrap(err, "gateway config")
	}

	// Certificate
	issuer := &certs.Provisioner{
		Runner: p.Runner,
		Tool:   p.Profile.Certs.Tool,
		Chown: func(path string, id *user.Identity) error {
			return fileops.Chown(ctx, path, id)
		},
		DryRun: dry,
	}
	art, err := issuer.Issue(ctx, certsRoot, s.Client, s.Domain, p.Identity)
	if err != nil {
		return res, cerr.Wrap(err, "certificate")
	}
	res.CertDir, res.CertFile, res.KeyFile = art.Dir, art.CertFile, art.KeyFile

	// Hosts alias
	entry := HostsEntry(p.Profile, s.Domain)
	if _, err := hostsfile.Register(ctx, p.Profile.Hosts.File, entry, dry); err != nil {
		return res, cerr.Wrap(err, "hosts file")
	}
	res.HostsFile, res.HostsLine = p.Profile.Hosts.File, entry.Line()

	// Gateway config
	validator := nginx.NewValidator(p.Runner, p.Profile.Gateway.Validate)
	ours := nginx.ConfigPath(p.Profile, s.Client)
	purged, err := p.clearStale(ctx, validator, ours)
	if err != nil {
		return res, err
	}
	res.Purged = purged

	if err := nginx.Write(ctx, ours, content, dry); err != nil {
		return res, cerr.Wrap(err, "gateway config")
	}
	res.GatewayConfig = ours

	// Container bridge
	address := p.Profile.Bridge.HostGateway
	if p.Profile.Bridge.ResolveGateway && p.Gateway != nil {
		address = p.Gateway(ctx, p.Profile.Bridge.Network, address)
	}
	override, err := docker.WriteOverride(ctx, s.ProjectDir, p.Profile.Bridge, s.Domain, address, dry)
	if err != nil {
		return res, cerr.Wrap(err, "compose override")
	}
	res.Override = override

	// Ownership
	if !dry {
		if err := fileops.Normalize(ctx, p.Identity, []string{art.Dir}, []string{override}); err != nil {
			return res, cerr.Wrap(err, "ownership")
		}
	}

	// Reload
	if dry || p.Options.SkipReload {
		logger.Info("terminal prompt: Gateway not reloaded",
			zap.Bool("dry_run", dry),
			zap.Bool("skip_reload", p.Options.SkipReload))
		return res, nil
	}
	reloader := &nginx.Reloader{
		Validator: validator,
		Services:  system.NewServiceManager(p.Runner, p.Profile.Gateway.ServiceManager),
		Service:   p.Profile.Gateway.Service,
	}
	if err := reloader.Reload(ctx); err != nil {
		return res, err
	}
	res.Reloaded = true
	return res, nil
}

// HostsEntry is the hosts-file alias line the profile asks for.
func HostsEntry(p *profile.Profile, domain string) hostsfile.Entry {
	return hostsfile.Entry{
		Address: p.Hosts.Address,
		Domain:  domain,
		Labels:  p.Hosts.Labels,
		Token:   p.Hosts.Match == profile.MatchToken,
	}
}

// clearStale offers to remove earlier hermes configs when the existing tree
// is already broken by one of them.
func (p *Provisioner) clearStale(ctx context.Context, v *nginx.Validator, ours string) ([]string, error) {
	logger := otelzap.Ctx(ctx)

	if p.Options.DryRun && p.Privileged != nil && !p.Privileged() {
		logger.Info("Dry run without root - stale config check skipped, nginx -t cannot open its pid and log files")
		return nil, nil
	}

	report, err := nginx.FindStale(ctx, v, p.Profile.Gateway.ConfigDir, ours)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, nil
	}

	logger.Info("terminal prompt: The existing gateway configuration does not validate",
		zap.String("output", report.Output))

	purge := p.Options.PurgeStale
	if !purge {
		if p.Prompter == nil || !p.Prompter.Interactive() {
			logger.Warn("Stale gateway configs left in place; pass --purge-stale to remove them",
				zap.Strings("files", report.Candidates))
			return nil, nil
		}
		question := fmt.Sprintf("Remove %d earlier hermes config(s) from %s?",
			len(report.Candidates), filepath.Clean(p.Profile.Gateway.ConfigDir))
		purge, err = p.Prompter.PromptYesNo(ctx, question, false)
		if err != nil {
			return nil, err
		}
	}
	if !purge {
		logger.Info("Keeping existing gateway configs", zap.Strings("files", report.Candidates))
		return nil, nil
	}

	if err := nginx.Purge(ctx, report.Candidates, p.Options.DryRun); err != nil {
		return nil, cerr.Wrap(err, "purge stale gateway configs")
	}
	if p.Options.DryRun {
		return nil, nil
	}
	return report.Candidates, nil
}
