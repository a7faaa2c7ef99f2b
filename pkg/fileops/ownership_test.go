package fileops

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/testutil"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordChown replaces Lchown for the duration of a test.
func recordChown(t *testing.T, fail map[string]bool) *[]string {
	t.Helper()
	var seen []string
	orig := Lchown
	Lchown = func(path string, uid, gid int) error {
		seen = append(seen, path)
		if fail[filepath.Base(path)] {
			return errors.New("operation not permitted")
		}
		return nil
	}
	t.Cleanup(func() { Lchown = orig })
	return &seen
}

var elevated = &user.Identity{Username: "dev", UID: 1000, GID: 1000, Elevated: true}

func TestChownTreeWalksEverything(t *testing.T) {
	ctx := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFile(t, root, "acme/cert.pem", "c", 0o644)
	testutil.WriteFile(t, root, "acme/key.pem", "k", 0o600)

	seen := recordChown(t, nil)
	require.NoError(t, ChownTree(ctx, root, elevated))

	got := append([]string(nil), (*seen)...)
	sort.Strings(got)
	assert.Equal(t, []string{
		root,
		filepath.Join(root, "acme"),
		filepath.Join(root, "acme", "cert.pem"),
		filepath.Join(root, "acme", "key.pem"),
	}, got)
}

func TestChownTreeAggregatesFailures(t *testing.T) {
	ctx := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFile(t, root, "cert.pem", "c", 0o644)
	testutil.WriteFile(t, root, "key.pem", "k", 0o600)

	seen := recordChown(t, map[string]bool{"cert.pem": true, "key.pem": true})
	err := ChownTree(ctx, root, elevated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Len(t, *seen, 3, "a failure must not stop the walk")
}

func TestChownNoopWhenNotElevated(t *testing.T) {
	ctx := testutil.Context(t)
	seen := recordChown(t, nil)

	plain := &user.Identity{Username: "dev", UID: 1000, GID: 1000}
	require.NoError(t, ChownTree(ctx, t.TempDir(), plain))
	require.NoError(t, Chown(ctx, "/does/not/matter", plain))
	require.NoError(t, Chown(ctx, "/does/not/matter", nil))
	assert.Empty(t, *seen)
}

func TestNormalize(t *testing.T) {
	ctx := testutil.Context(t)
	root := t.TempDir()
	override := testutil.WriteFile(t, root, "project/docker-compose.override.yml", "services: {}\n", 0o644)
	certDir := filepath.Join(root, "certs")
	require.NoError(t, os.MkdirAll(certDir, 0o755))

	seen := recordChown(t, nil)
	require.NoError(t, Normalize(ctx, elevated, []string{certDir}, []string{override}))
	assert.Equal(t, []string{certDir, override}, *seen)

	err := Normalize(ctx, elevated, []string{filepath.Join(root, "missing")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
