//go:build !unix

package execute

import (
	"os/exec"

	cerr "github.com/cockroachdb/errors"
)

func applyCredential(_ *exec.Cmd, c *Credential) error {
	return cerr.Newf("running commands as %s is not supported on this platform", c.Username)
}
