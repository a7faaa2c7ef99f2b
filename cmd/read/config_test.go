package read

import (
	"bytes"
	"strings"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/profile"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderAll(t *testing.T) {
	ctx := testutil.Context(t)
	var out bytes.Buffer

	prof := profile.DefaultFor("linux")
	require.NoError(t, RenderAll(ctx, &out, prof, "acme", "acme.dev.local", "/home/dev"))

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "# /etc/nginx/conf.d/acme.conf\n# managed by hermes: acme\n"))
	assert.Contains(t, got, `ssl_certificate "/home/dev/certs/acme/cert.pem";`)
	assert.Contains(t, got, "# /etc/hosts\n127.0.0.1  api.acme.dev.local auth.acme.dev.local")
	assert.Contains(t, got, "# <project>/docker-compose.override.yml\nservices:\n")
	assert.Contains(t, got, "- api.acme.dev.local:host-gateway")
}

func TestRenderAllNormalizesDomain(t *testing.T) {
	ctx := testutil.Context(t)
	prof := profile.DefaultFor("linux")
	prof.Hosts.Match = profile.MatchToken

	var want, got bytes.Buffer
	require.NoError(t, RenderAll(ctx, &want, prof, "acme", "acme.dev.local", "/home/dev"))
	require.NoError(t, RenderAll(ctx, &got, prof, "acme", "Acme.Dev.Local.", "/home/dev"))
	assert.Equal(t, want.String(), got.String())
	assert.NotContains(t, got.String(), "Acme")
}

func TestRenderAllRejectsUnsafeDomain(t *testing.T) {
	ctx := testutil.Context(t)
	var out bytes.Buffer

	err := RenderAll(ctx, &out, profile.DefaultFor("linux"), "acme", "acme.dev.local;evil", "/home/dev")
	require.Error(t, err)
	assert.Empty(t, out.String())
}
