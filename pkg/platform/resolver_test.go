package platform

import (
	"os/exec"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePath simulates PATH; installing a package through the fake runner adds
// the command to it.
type fakePath map[string]bool

func (p fakePath) LookPath(name string) (string, error) {
	if p[name] {
		return "/usr/bin/" + name, nil
	}
	return "", exec.ErrNotFound
}

func newTestResolver(path fakePath, manager *PackageManager, runner *testutil.FakeRunner, euid int) *Resolver {
	r := NewResolver(runner, manager, func() int { return euid })
	r.LookPath = path.LookPath
	return r
}

var deps = []Dependency{
	{Command: "nginx", Package: "nginx"},
	{Command: "mkcert", Package: "mkcert"},
}

func TestEnsureAllPresent(t *testing.T) {
	runner := testutil.NewFakeRunner()
	path := fakePath{"nginx": true, "mkcert": true, "apt-get": true}

	statuses, err := newTestResolver(path, &Apt, runner, 0).Ensure(testutil.Context(t), deps)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "/usr/bin/nginx", statuses[0].Path)
	assert.False(t, statuses[0].Installed)
	assert.Empty(t, runner.Calls)
}

func TestEnsureInstallsMissing(t *testing.T) {
	path := fakePath{"nginx": true, "apt-get": true}
	runner := testutil.NewFakeRunner().On("apt-get install -y mkcert", testutil.Response{
		Do: func(execute.Options) error { path["mkcert"] = true; return nil },
	})

	statuses, err := newTestResolver(path, &Apt, runner, 0).Ensure(testutil.Context(t), deps)
	require.NoError(t, err)
	assert.True(t, statuses[1].Installed)
	assert.Equal(t, []string{"apt-get update", "apt-get install -y mkcert"}, runner.CommandLines())
}

func TestEnsureFailsWhenStillMissingAfterInstall(t *testing.T) {
	path := fakePath{"nginx": true, "apt-get": true}
	runner := testutil.NewFakeRunner()

	_, err := newTestResolver(path, &Apt, runner, 0).Ensure(testutil.Context(t), deps)
	require.Error(t, err)
	assert.Equal(t, hermes_err.CategoryDependency, hermes_err.CategoryOf(err))
	assert.Contains(t, err.Error(), "still not on PATH")
}

func TestEnsureInstallFailureAborts(t *testing.T) {
	path := fakePath{"dnf": true}
	runner := testutil.NewFakeRunner().On("dnf install -y nginx", testutil.Response{
		Err: hermes_err.NewCommandError("dnf install -y nginx", exec.ErrNotFound, "No match for argument: nginx"),
	})

	statuses, err := newTestResolver(path, &Dnf, runner, 0).Ensure(testutil.Context(t), deps)
	require.Error(t, err)
	assert.Empty(t, statuses)
	assert.Equal(t, 1, hermes_err.GetExitCode(err))
	assert.False(t, runner.Ran("dnf install -y mkcert"))
}

func TestHomebrewRefusesRoot(t *testing.T) {
	runner := testutil.NewFakeRunner()
	_, err := newTestResolver(fakePath{"brew": true}, &Homebrew, runner, 0).Ensure(testutil.Context(t), deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refuses to run as root")
	assert.Empty(t, runner.Calls)
}

func TestHomebrewBootstrap(t *testing.T) {
	path := fakePath{}
	runner := testutil.NewFakeRunner().
		On("/bin/bash", testutil.Response{Do: func(execute.Options) error { path["brew"] = true; return nil }}).
		On("brew install nginx", testutil.Response{Do: func(execute.Options) error { path["nginx"] = true; return nil }})

	r := newTestResolver(path, &Homebrew, runner, 501)
	assert.True(t, r.BeforeElevation())

	_, err := r.Ensure(testutil.Context(t), deps[:1])
	require.NoError(t, err)
	assert.True(t, runner.Ran("curl -fsSL -o"))
	assert.True(t, runner.Ran("brew install nginx"))
}

func TestDryRunDoesNotInstall(t *testing.T) {
	runner := testutil.NewFakeRunner()
	r := newTestResolver(fakePath{"apt-get": true}, &Apt, runner, 0)
	r.DryRun = true

	_, err := r.Ensure(testutil.Context(t), deps)
	require.Error(t, err)
	assert.Empty(t, runner.Calls)
}

func TestMinVersion(t *testing.T) {
	dep := Dependency{Command: "nginx", Package: "nginx", MinVersion: "1.20", VersionArgs: []string{"-v"}}
	runner := testutil.NewFakeRunner().On("nginx -v", testutil.Response{Output: "nginx version: nginx/1.25.3\n"})

	statuses, err := newTestResolver(fakePath{"nginx": true}, &Apt, runner, 0).Ensure(testutil.Context(t), []Dependency{dep})
	require.NoError(t, err)
	assert.Equal(t, "1.25.3", statuses[0].Version)
}

func TestCheckVersion(t *testing.T) {
	dep := Dependency{Command: "mkcert", Package: "mkcert", MinVersion: "1.4.4"}

	v, err := CheckVersion(dep, "v1.4.4")
	require.NoError(t, err)
	assert.Equal(t, "1.4.4", v)

	_, err = CheckVersion(dep, "v1.3.0")
	require.Error(t, err)
	assert.Equal(t, hermes_err.CategoryDependency, hermes_err.CategoryOf(err))

	_, err = CheckVersion(dep, "development build")
	require.Error(t, err)
}

func TestManagerFor(t *testing.T) {
	m, err := ManagerFor("macos", "")
	require.NoError(t, err)
	assert.Equal(t, "brew", m.Binary)

	m, err = ManagerFor("linux", "debian")
	require.NoError(t, err)
	assert.Equal(t, "apt-get", m.Binary)

	m, err = ManagerFor("linux", "rhel")
	require.NoError(t, err)
	assert.Equal(t, "dnf", m.Binary)

	_, err = ManagerFor("linux", "unknown")
	assert.Error(t, err)
}

func TestDetectLinuxDistro(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		content string
		want    string
	}{
		{"ID=ubuntu\nID_LIKE=debian\n", "debian"},
		{"ID=\"fedora\"\n", "rhel"},
		{"ID=\"rocky\"\nID_LIKE=\"rhel centos fedora\"\n", "rhel"},
		{"ID=alpine\n", "unknown"},
	}
	for _, tt := range tests {
		path := testutil.WriteFile(t, dir, "os-release", tt.content, 0o644)
		assert.Equalf(t, tt.want, DetectLinuxDistro(path), "content %q", tt.content)
	}
	assert.Equal(t, "unknown", DetectLinuxDistro(dir+"/missing"))
}
