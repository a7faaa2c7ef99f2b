// Package certs issues the per-client development certificate with mkcert.
package certs

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/user"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Artifact is an issued certificate and key.
type Artifact struct {
	Dir      string
	CertFile string
	KeyFile  string
	Names    []string
}

// Provisioner runs the local CA tool as the invoking user, so the CA lands in
// that user's trust store rather than root's.
type Provisioner struct {
	Runner execute.Runner
	// Tool is the mkcert binary.
	Tool string
	// Chown hands a path to the identity; nil when running unprivileged.
	Chown  func(path string, id *user.Identity) error
	DryRun bool
}

// SubjectNames returns the names every certificate covers: the domain, its
// wildcard, localhost and the loopback address.
func SubjectNames(domain string) []string {
	return []string{domain, "*." + domain, shared.LocalhostName, shared.LoopbackAddress}
}

// Layout returns where the certificate for slug lives under root, without
// touching the filesystem.
func Layout(root, slug, domain string) *Artifact {
	dir := filepath.Join(root, slug)
	return &Artifact{
		Dir:      dir,
		CertFile: filepath.Join(dir, shared.CertFileName),
		KeyFile:  filepath.Join(dir, shared.KeyFileName),
		Names:    SubjectNames(domain),
	}
}

// Issue creates <root>/<slug>, installs the local CA and mints cert.pem and
// key.pem there, overwriting earlier ones. The result is checked before it is
// returned.
func (p *Provisioner) Issue(ctx context.Context, root, slug, domain string, id *user.Identity) (*Artifact, error) {
	logger := otelzap.Ctx(ctx)

	art := Layout(root, slug, domain)
	dir := art.Dir

	// ASSESS
	logger.Info("Issuing development certificate",
		zap.String("dir", dir),
		zap.Strings("names", art.Names),
		zap.String("as_user", id.Username))

	if p.DryRun {
		logger.Info("Dry run - certificate not issued", zap.String("dir", dir))
		return art, nil
	}

	// INTERVENE
	if err := os.MkdirAll(dir, shared.DirPermStandard); err != nil {
		return nil, hermes_err.NewPermissionError(dir, "create", err)
	}
	if p.Chown != nil {
		for _, d := range []string{root, dir} {
			if err := p.Chown(d, id); err != nil {
				return nil, cerr.Wrapf(err, "hand %s to %s", d, id.Username)
			}
		}
	}

	cred := id.Credential()
	if _, err := p.Runner.Run(ctx, execute.Options{
		Command: p.Tool,
		Args:    []string{"-install"},
		AsUser:  cred,
		Dir:     dir,
	}); err != nil {
		return nil, cerr.WithHint(cerr.Wrap(err, "install local CA"),
			"mkcert -install may need the NSS tools (libnss3-tools) for browser trust stores")
	}

	args := append([]string{"-cert-file", art.CertFile, "-key-file", art.KeyFile}, art.Names...)
	if _, err := p.Runner.Run(ctx, execute.Options{
		Command: p.Tool,
		Args:    args,
		AsUser:  cred,
		Dir:     dir,
	}); err != nil {
		return nil, cerr.Wrap(err, "issue certificate")
	}

	// EVALUATE
	if err := Verify(art); err != nil {
		return nil, err
	}
	logger.Info("Certificate issued", zap.String("cert", art.CertFile), zap.String("key", art.KeyFile))
	return art, nil
}

// Verify checks that both files exist and are non-empty and that the
// certificate covers every name in art.Names.
func Verify(art *Artifact) error {
	for _, f := range []string{art.CertFile, art.KeyFile} {
		info, err := os.Stat(f)
		if err != nil {
			return hermes_err.NewFilesystemError("certificate artifact missing: "+f, err,
				"Run mkcert manually to see its error output")
		}
		if info.Size() == 0 {
			return hermes_err.NewFilesystemError("certificate artifact is empty: "+f, nil)
		}
	}

	data, err := os.ReadFile(art.CertFile)
	if err != nil {
		return hermes_err.NewFilesystemError("cannot read "+art.CertFile, err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return hermes_err.NewFilesystemError(art.CertFile+" does not contain a PEM certificate", nil)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return hermes_err.NewFilesystemError("cannot parse "+art.CertFile, err)
	}

	if missing := MissingNames(cert, art.Names); len(missing) > 0 {
		return hermes_err.NewFilesystemError(
			fmt.Sprintf("certificate %s does not cover %v", art.CertFile, missing), nil)
	}
	return nil
}

// MissingNames returns the names not present in the certificate's SANs.
func MissingNames(cert *x509.Certificate, names []string) []string {
	dns := map[string]bool{}
	for _, n := range cert.DNSNames {
		dns[n] = true
	}
	var missing []string
	for _, n := range names {
		if ip := net.ParseIP(n); ip != nil {
			found := false
			for _, have := range cert.IPAddresses {
				if have.Equal(ip) {
					found = true
					break
				}
			}
			if !found {
				missing = append(missing, n)
			}
			continue
		}
		if !dns[n] {
			missing = append(missing, n)
		}
	}
	return missing
}
