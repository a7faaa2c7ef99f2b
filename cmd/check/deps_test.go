package check

import (
	"bytes"
	"errors"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/platform"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAllReportsEveryDependency(t *testing.T) {
	ctx := testutil.Context(t)
	r := platform.NewResolver(testutil.NewFakeRunner(), &platform.Apt, func() int { return 1000 })
	r.DryRun = true
	r.LookPath = func(name string) (string, error) {
		if name == "nginx" {
			return "/usr/sbin/nginx", nil
		}
		return "", errors.New("executable file not found in $PATH")
	}

	deps := []platform.Dependency{
		{Command: "mkcert", Package: "mkcert"},
		{Command: "nginx", Package: "nginx"},
	}
	rows, err := CheckAll(ctx, r, deps)
	require.Error(t, err)
	require.Len(t, rows, 2)
	assert.Error(t, rows[0].Err)
	assert.NoError(t, rows[1].Err)
	assert.Equal(t, "/usr/sbin/nginx", rows[1].Status.Path)

	var out bytes.Buffer
	PrintStatus(&out, rows)
	assert.Equal(t,
		"COMMAND  PACKAGE  STATUS   VERSION  PATH\n"+
			"mkcert   mkcert   missing  -        -\n"+
			"nginx    nginx    ok       -        /usr/sbin/nginx\n",
		out.String())
}
