package profile

import (
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultsAreValid(t *testing.T) {
	for _, osPlatform := range []string{"linux", "macos"} {
		p := DefaultFor(osPlatform)
		require.NoError(t, p.Validate(), osPlatform)
	}
	assert.Equal(t, ServiceManagerBrew, DefaultFor("macos").Gateway.ServiceManager)
	assert.Equal(t, "/etc/nginx/conf.d", DefaultFor("linux").Gateway.ConfigDir)
}

func TestLoadBuiltIn(t *testing.T) {
	p, err := LoadWith(testutil.Context(t), "", DefaultFor("linux"))
	require.NoError(t, err)

	assert.Equal(t, 8081, p.Port("graphql"))
	assert.Equal(t, 8080, p.Port("auth"))
	assert.Equal(t, 8000, p.Port("gateway"))
	assert.Equal(t, 8082, p.Port("db-admin"))
	require.Len(t, p.Routes, 7)
	assert.Equal(t, Route{Subdomain: "api", Path: "/graphql", Role: "graphql", WebSocket: true}, p.Routes[0])
	assert.Equal(t, []string{"api", "auth", "console", "db-admin", "app"}, p.Hosts.Labels)
	assert.Equal(t, MatchSubstring, p.Hosts.Match)
	assert.Equal(t, []string{"nginx", "-t"}, p.Gateway.Validate)
	assert.Equal(t, "host-gateway", p.Bridge.HostGateway)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "profile.yaml", `
ports:
  graphql: 9091
routes:
  - subdomain: api
    path: /graphql
    role: graphql
    websocket: true
hosts:
  match: token
`, 0o644)

	p, err := LoadWith(testutil.Context(t), path, DefaultFor("linux"))
	require.NoError(t, err)
	assert.Equal(t, 9091, p.Port("graphql"))
	assert.Equal(t, 8080, p.Port("auth"), "unlisted ports keep their defaults")
	assert.Len(t, p.Routes, 1, "lists are replaced, not merged")
	assert.Equal(t, MatchToken, p.Hosts.Match)
	assert.Equal(t, "/etc/hosts", p.Hosts.File)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HERMES_HOSTS_FILE", "/tmp/hosts")
	t.Setenv("HERMES_GATEWAY_LISTEN_PORT", "8443")
	t.Setenv("HERMES_PORTS_AUTH", "18080")

	p, err := LoadWith(testutil.Context(t), "", DefaultFor("linux"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hosts", p.Hosts.File)
	assert.Equal(t, 8443, p.Gateway.ListenPort)
	assert.Equal(t, 18080, p.Port("auth"))
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown role":   "routes:\n  - subdomain: api\n    role: search\n",
		"bad match mode": "hosts:\n  match: regex\n",
		"bad port":       "ports:\n  auth: 70000\n",
		"bad address":    "hosts:\n  address: localhost\n",
		"relative path":  "routes:\n  - subdomain: api\n    path: graphql\n    role: graphql\n",
		"not yaml":       "ports: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), "profile.yaml", content, 0o644)
			_, err := LoadWith(testutil.Context(t), path, DefaultFor("linux"))
			require.Error(t, err)
			assert.Equal(t, 2, hermes_err.GetExitCode(err))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadWith(testutil.Context(t), "/nonexistent/profile.yaml", DefaultFor("linux"))
	require.Error(t, err)
	assert.Equal(t, 2, hermes_err.GetExitCode(err))
}

func TestYAMLRoundTrip(t *testing.T) {
	p := DefaultFor("linux")
	data, err := p.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "config_dir: /etc/nginx/conf.d")

	var back Profile
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, p.Routes, back.Routes)
}

func TestLocate(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := Locate("")
	require.NoError(t, err)
	assert.Empty(t, path)

	xdgPath := DefaultPath()
	testutil.WriteFile(t, filepath.Dir(xdgPath), FileName, "{}\n", 0o644)
	path, err = Locate("")
	require.NoError(t, err)
	assert.Equal(t, xdgPath, path)

	path, err = Locate("relative.yaml")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
}

func TestExpandHome(t *testing.T) {
	assert.Equal(t, "/home/bob/certs", ExpandHome("~/certs", "/home/bob"))
	assert.Equal(t, "/home/bob", ExpandHome("~", "/home/bob"))
	assert.Equal(t, "/srv/certs", ExpandHome("/srv/certs", "/home/bob"))
	assert.Equal(t, "/home/bob/certs", DefaultFor("linux").CertsRoot("/home/bob"))
}
