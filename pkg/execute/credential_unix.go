//go:build unix

package execute

import (
	"os"
	"os/exec"
	"syscall"
)

// applyCredential switches the child to c when running elevated. An unprivileged
// process can only run as itself, so the credential is left unset then.
func applyCredential(cmd *exec.Cmd, c *Credential) error {
	if os.Geteuid() != 0 || c.UID == 0 {
		return nil
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Credential: &syscall.Credential{Uid: c.UID, Gid: c.GID},
	}
	return nil
}
