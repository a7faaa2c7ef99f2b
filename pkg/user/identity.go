package user

import (
	"context"
	"fmt"
	"os"
	osuser "os/user"
	"strconv"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Identity is the person who invoked hermes, captured once after elevation.
// Generated artifacts are handed back to this identity.
type Identity struct {
	Username string
	UID      uint32
	GID      uint32
	HomeDir  string
	// Elevated is true when hermes itself runs as root on behalf of Username.
	Elevated bool
}

// Credential returns the identity in the form execute.Options.AsUser expects.
func (id Identity) Credential() *execute.Credential {
	return &execute.Credential{
		Username: id.Username,
		UID:      id.UID,
		GID:      id.GID,
		HomeDir:  id.HomeDir,
	}
}

func (id Identity) String() string {
	return fmt.Sprintf("%s (uid=%d gid=%d)", id.Username, id.UID, id.GID)
}

// Resolver looks up the invoking user. The function fields exist so tests can
// simulate running under sudo.
type Resolver struct {
	Geteuid func() int
	Getenv  func(string) string
	Current func() (*osuser.User, error)
	Lookup  func(string) (*osuser.User, error)
}

// NewResolver returns a resolver backed by the operating system.
func NewResolver() *Resolver {
	return &Resolver{
		Geteuid: os.Geteuid,
		Getenv:  os.Getenv,
		Current: osuser.Current,
		Lookup:  osuser.Lookup,
	}
}

// ResolveInvokingUser resolves the invoking identity with the OS resolver.
func ResolveInvokingUser(ctx context.Context, owner string) (*Identity, error) {
	return NewResolver().Resolve(ctx, owner)
}

// Resolve returns the real user behind this process. When running as root the
// user comes from SUDO_USER, then from owner; root itself is never assumed.
func (r *Resolver) Resolve(ctx context.Context, owner string) (*Identity, error) {
	logger := otelzap.Ctx(ctx)

	// ASSESS
	euid := r.Geteuid()
	logger.Debug("Assessing invoking user", zap.Int("euid", euid))

	if euid != 0 {
		current, err := r.Current()
		if err != nil {
			return nil, cerr.Wrap(err, "look up current user")
		}
		return toIdentity(current, false)
	}

	// INTERVENE
	name := r.Getenv(shared.EnvSudoUser)
	source := shared.EnvSudoUser
	if name == "" || name == "root" {
		name, source = owner, "--owner"
	}
	if name == "" {
		return nil, hermes_err.NewValidationError(
			"cannot determine the invoking user while running as root", nil,
			"Run hermes through sudo from your own account",
			"Or name the user that should own the artifacts with --owner (HERMES_OWNER)")
	}

	u, err := r.Lookup(name)
	if err != nil {
		return nil, hermes_err.NewValidationError(
			fmt.Sprintf("user %q from %s does not exist", name, source), err)
	}

	id, err := toIdentity(u, true)
	if err != nil {
		return nil, err
	}

	// EVALUATE
	logger.Info("Resolved invoking user",
		zap.String("user", id.Username),
		zap.Uint32("uid", id.UID),
		zap.String("source", source),
		zap.String("home", id.HomeDir))
	return id, nil
}

func toIdentity(u *osuser.User, elevated bool) (*Identity, error) {
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, cerr.Wrapf(err, "parse uid %q of %s", u.Uid, u.Username)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, cerr.Wrapf(err, "parse gid %q of %s", u.Gid, u.Username)
	}
	return &Identity{
		Username: u.Username,
		UID:      uint32(uid),
		GID:      uint32(gid),
		HomeDir:  u.HomeDir,
		Elevated: elevated,
	}, nil
}
