package devenv

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/interaction"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/nginx"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/profile"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/testutil"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hostsBefore = "127.0.0.1\tlocalhost\n::1\tlocalhost\n127.0.0.1  api.acme.dev.local acme.dev.local\n"

type fixture struct {
	profile *profile.Profile
	id      *user.Identity
	runner  *testutil.FakeRunner
	session *Session
	root    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	p := profile.DefaultFor("linux")
	p.Hosts.File = testutil.WriteFile(t, root, "etc/hosts", hostsBefore, 0o644)
	p.Gateway.ConfigDir = filepath.Join(root, "nginx", "conf.d")
	require.NoError(t, os.MkdirAll(p.Gateway.ConfigDir, 0o755))
	p.Certs.Root = "~/certs"

	project := filepath.Join(root, "project")
	require.NoError(t, os.MkdirAll(project, 0o755))
	home := filepath.Join(root, "home")
	require.NoError(t, os.MkdirAll(home, 0o755))

	return &fixture{
		profile: p,
		id:      &user.Identity{Username: "dev", UID: uint32(os.Getuid()), GID: uint32(os.Getgid()), HomeDir: home},
		runner:  testutil.NewFakeRunner().On("mkcert", testutil.MkcertResponse()),
		session: &Session{Client: "acme", Domain: "acme.dev.local", ProjectDir: project},
		root:    root,
	}
}

func (f *fixture) provisioner(prompter Prompter, opts Options) *Provisioner {
	if prompter == nil {
		prompter = interaction.New(strings.NewReader(""), io.Discard, false)
	}
	p := NewProvisioner(f.profile, f.id, f.runner, prompter, opts)
	p.Gateway = nil
	p.Privileged = func() bool { return true }
	return p
}

// exitError returns a real *exec.ExitError so callers see a non-zero status.
func exitError(t *testing.T) error {
	t.Helper()
	err := exec.Command("sh", "-c", "exit 1").Run()
	require.Error(t, err)
	return hermes_err.NewCommandError("nginx -t", err, "")
}

func TestProvisionWritesEveryArtifact(t *testing.T) {
	ctx := testutil.Context(t)
	f := newFixture(t)

	res, err := f.provisioner(nil, Options{}).Provision(ctx, f.session)
	require.NoError(t, err)

	certDir := filepath.Join(f.id.HomeDir, "certs", "acme")
	assert.Equal(t, certDir, res.CertDir)
	assert.FileExists(t, filepath.Join(certDir, "cert.pem"))
	assert.FileExists(t, filepath.Join(certDir, "key.pem"))

	hosts := testutil.ReadFile(t, f.profile.Hosts.File)
	assert.Equal(t,
		"127.0.0.1\tlocalhost\n::1\tlocalhost\n127.0.0.1  api.acme.dev.local auth.acme.dev.local console.acme.dev.local db-admin.acme.dev.local app.acme.dev.local acme.dev.local\n",
		hosts)

	conf := testutil.ReadFile(t, filepath.Join(f.profile.Gateway.ConfigDir, "acme.conf"))
	assert.True(t, strings.HasPrefix(conf, "# managed by hermes: acme\n"))
	assert.Contains(t, conf, `ssl_certificate "`+filepath.Join(certDir, "cert.pem")+`";`)

	override := testutil.ReadFile(t, filepath.Join(f.session.ProjectDir, "docker-compose.override.yml"))
	assert.Contains(t, override, "api.acme.dev.local:host-gateway")

	assert.True(t, res.Reloaded)
	assert.Equal(t, []string{
		"mkcert -install",
		"mkcert -cert-file " + res.CertFile + " -key-file " + res.KeyFile + " acme.dev.local *.acme.dev.local localhost 127.0.0.1",
		"nginx -t",
		"nginx -t",
		"systemctl restart nginx",
	}, f.runner.CommandLines())
}

func TestProvisionIsIdempotent(t *testing.T) {
	ctx := testutil.Context(t)
	f := newFixture(t)
	prov := f.provisioner(nil, Options{})

	first, err := prov.Provision(ctx, f.session)
	require.NoError(t, err)
	hosts1 := testutil.ReadFile(t, f.profile.Hosts.File)
	conf1 := testutil.ReadFile(t, first.GatewayConfig)
	override1 := testutil.ReadFile(t, first.Override)

	second, err := prov.Provision(ctx, f.session)
	require.NoError(t, err)
	assert.Equal(t, hosts1, testutil.ReadFile(t, f.profile.Hosts.File))
	assert.Equal(t, conf1, testutil.ReadFile(t, second.GatewayConfig))
	assert.Equal(t, override1, testutil.ReadFile(t, second.Override))
	assert.Equal(t, 1, strings.Count(hosts1, "acme.dev.local\n"))
}

func TestProvisionInvalidGatewayBlocksRestart(t *testing.T) {
	ctx := testutil.Context(t)
	f := newFixture(t)
	ours := filepath.Join(f.profile.Gateway.ConfigDir, "acme.conf")
	f.runner.On("nginx -t", testutil.Response{
		Output: "nginx: [emerg] host not found in upstream in " + ours + ":9\n",
		Err:    exitError(t),
	})

	res, err := f.provisioner(nil, Options{}).Provision(ctx, f.session)
	require.Error(t, err)
	assert.Equal(t, 2, hermes_err.GetExitCode(err))
	assert.False(t, f.runner.Ran("systemctl"))
	assert.False(t, res.Reloaded)

	assert.FileExists(t, res.GatewayConfig)
	assert.FileExists(t, res.Override)
	assert.FileExists(t, res.CertFile)
}

// brokenThenValid fails the first validator run and passes afterwards.
func brokenThenValid(t *testing.T) testutil.Response {
	fail := exitError(t)
	calls := 0
	return testutil.Response{Do: func(execute.Options) error {
		calls++
		if calls == 1 {
			return fail
		}
		return nil
	}}
}

func TestProvisionStaleConfigs(t *testing.T) {
	tests := []struct {
		name       string
		prompter   Prompter
		opts       Options
		wantPurged bool
	}{
		{name: "purge flag", opts: Options{PurgeStale: true}, wantPurged: true},
		{name: "operator agrees", prompter: interaction.New(strings.NewReader("y\n"), io.Discard, true), wantPurged: true},
		{name: "operator declines", prompter: interaction.New(strings.NewReader("\n"), io.Discard, true)},
		{name: "no terminal", prompter: interaction.New(strings.NewReader(""), io.Discard, false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutil.Context(t)
			f := newFixture(t)
			marker, err := nginx.Marker("old")
			require.NoError(t, err)
			old := testutil.WriteFile(t, f.profile.Gateway.ConfigDir, "old.conf", marker+"\nserver { broken\n", 0o644)
			foreign := testutil.WriteFile(t, f.profile.Gateway.ConfigDir, "default.conf", "server {}\n", 0o644)
			f.runner.On("nginx -t", brokenThenValid(t))

			res, err := f.provisioner(tt.prompter, tt.opts).Provision(ctx, f.session)
			require.NoError(t, err)
			assert.FileExists(t, foreign)
			if tt.wantPurged {
				assert.NoFileExists(t, old)
				assert.Equal(t, []string{old}, res.Purged)
			} else {
				assert.FileExists(t, old)
				assert.Empty(t, res.Purged)
			}
		})
	}
}

func TestProvisionDryRunWritesNothing(t *testing.T) {
	ctx := testutil.Context(t)
	f := newFixture(t)

	res, err := f.provisioner(nil, Options{DryRun: true}).Provision(ctx, f.session)
	require.NoError(t, err)

	assert.NoDirExists(t, filepath.Join(f.id.HomeDir, "certs"))
	assert.Equal(t, hostsBefore, testutil.ReadFile(t, f.profile.Hosts.File))
	assert.NoFileExists(t, res.GatewayConfig)
	assert.NoFileExists(t, res.Override)
	assert.False(t, res.Reloaded)
	assert.Equal(t, []string{"nginx -t"}, f.runner.CommandLines())
}

func TestProvisionDryRunReportsNothingPurged(t *testing.T) {
	ctx := testutil.Context(t)
	f := newFixture(t)
	marker, err := nginx.Marker("old")
	require.NoError(t, err)
	old := testutil.WriteFile(t, f.profile.Gateway.ConfigDir, "old.conf", marker+"\nserver { broken\n", 0o644)
	f.runner.On("nginx -t", brokenThenValid(t))

	res, err := f.provisioner(nil, Options{DryRun: true, PurgeStale: true}).Provision(ctx, f.session)
	require.NoError(t, err)
	assert.FileExists(t, old)
	assert.Empty(t, res.Purged)
}

func TestProvisionDryRunWithoutRootSkipsStaleCheck(t *testing.T) {
	ctx := testutil.Context(t)
	f := newFixture(t)
	f.runner.On("nginx -t", testutil.Response{
		Output: "nginx: [alert] could not open error log file: open() \"/var/log/nginx/error.log\" failed (13: Permission denied)\n",
		Err:    exitError(t),
	})

	prov := f.provisioner(interaction.New(strings.NewReader("y\n"), io.Discard, true), Options{DryRun: true})
	prov.Privileged = func() bool { return false }
	res, err := prov.Provision(ctx, f.session)
	require.NoError(t, err)
	assert.Empty(t, res.Purged)
	assert.False(t, f.runner.Ran("nginx"))
}

func TestProvisionSkipReload(t *testing.T) {
	ctx := testutil.Context(t)
	f := newFixture(t)

	res, err := f.provisioner(nil, Options{SkipReload: true}).Provision(ctx, f.session)
	require.NoError(t, err)
	assert.False(t, res.Reloaded)
	assert.False(t, f.runner.Ran("systemctl"))
}

func TestProvisionCertificateFailureStopsEarly(t *testing.T) {
	ctx := testutil.Context(t)
	f := newFixture(t)
	f.runner.On("mkcert", testutil.Response{})

	_, err := f.provisioner(nil, Options{}).Provision(ctx, f.session)
	require.Error(t, err)
	assert.Equal(t, 1, hermes_err.GetExitCode(err))
	assert.Equal(t, hostsBefore, testutil.ReadFile(t, f.profile.Hosts.File))
	assert.NoFileExists(t, filepath.Join(f.profile.Gateway.ConfigDir, "acme.conf"))
	assert.NoFileExists(t, filepath.Join(f.session.ProjectDir, "docker-compose.override.yml"))
}

func TestProvisionUnsafeValueStopsBeforeChanges(t *testing.T) {
	ctx := testutil.Context(t)
	f := newFixture(t)
	f.id.HomeDir = filepath.Join(f.root, "home$x")

	_, err := f.provisioner(nil, Options{}).Provision(ctx, f.session)
	require.Error(t, err)
	assert.Equal(t, 2, hermes_err.GetExitCode(err))
	assert.Empty(t, f.runner.CommandLines())
	assert.Equal(t, hostsBefore, testutil.ReadFile(t, f.profile.Hosts.File))
}

func TestProvisionHomeWithSpace(t *testing.T) {
	ctx := testutil.Context(t)
	f := newFixture(t)
	f.id.HomeDir = filepath.Join(f.root, "John Smith")
	require.NoError(t, os.MkdirAll(f.id.HomeDir, 0o755))

	res, err := f.provisioner(nil, Options{}).Provision(ctx, f.session)
	require.NoError(t, err)
	assert.True(t, res.Reloaded)
	conf := testutil.ReadFile(t, res.GatewayConfig)
	assert.Contains(t, conf, `ssl_certificate "`+filepath.Join(f.root, "John Smith", "certs", "acme", "cert.pem")+`";`)
}

func TestProvisionResolvesBridgeGateway(t *testing.T) {
	ctx := testutil.Context(t)
	f := newFixture(t)
	f.profile.Bridge.ResolveGateway = true

	prov := f.provisioner(nil, Options{SkipReload: true})
	prov.Gateway = func(_ context.Context, network, fallback string) string {
		assert.Equal(t, "bridge", network)
		assert.Equal(t, "host-gateway", fallback)
		return "172.17.0.1"
	}
	res, err := prov.Provision(ctx, f.session)
	require.NoError(t, err)
	assert.Contains(t, testutil.ReadFile(t, res.Override), "api.acme.dev.local:172.17.0.1")
}
