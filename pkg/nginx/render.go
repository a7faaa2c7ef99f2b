// Package nginx renders, installs and activates the per-client gateway vhost.
package nginx

import (
	"context"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/profile"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/templates"
	cerr "github.com/cockroachdb/errors"
)

//go:embed templates/vhost.conf.tmpl
var templateFS embed.FS

const vhostTemplate = "templates/vhost.conf.tmpl"

// Config is everything the vhost template needs.
type Config struct {
	Slug       string
	Domain     string
	ListenPort int
	Upstream   string
	CertFile   string
	KeyFile    string
	Servers    []Server
}

// Server is one virtual host.
type Server struct {
	Host string
	// LargeBuffers enables large client header buffers for the whole vhost.
	LargeBuffers bool
	Locations    []Location
}

type Location struct {
	Path          string
	Port          int
	WebSocket     bool
	LargeBuffers  bool
	ForwardClient bool
}

// Build turns the profile route table into vhosts, one per subdomain in order
// of first appearance.
func Build(p *profile.Profile, slug, domain, certDir string) Config {
	cfg := Config{
		Slug:       slug,
		Domain:     domain,
		ListenPort: p.Gateway.ListenPort,
		Upstream:   p.Gateway.Upstream,
		CertFile:   filepath.Join(certDir, shared.CertFileName),
		KeyFile:    filepath.Join(certDir, shared.KeyFileName),
	}

	index := map[string]int{}
	for _, r := range p.Routes {
		i, ok := index[r.Subdomain]
		if !ok {
			i = len(cfg.Servers)
			index[r.Subdomain] = i
			cfg.Servers = append(cfg.Servers, Server{Host: r.Subdomain + "." + domain})
		}
		srv := &cfg.Servers[i]
		srv.LargeBuffers = srv.LargeBuffers || r.LargeBuffers
		srv.Locations = append(srv.Locations, Location{
			Path:          r.Location(),
			Port:          p.Port(r.Role),
			WebSocket:     r.WebSocket,
			LargeBuffers:  r.LargeBuffers,
			ForwardClient: r.ForwardClient,
		})
	}
	return cfg
}

// Render produces the vhost file. Output is deterministic for a given Config.
func Render(ctx context.Context, r *templates.Renderer, cfg Config) (string, error) {
	opts := templates.DefaultRenderOptions()
	opts.Funcs = template.FuncMap{
		"nginx":  Token,
		"quote":  Quote,
		"marker": Marker,
	}
	out, err := r.RenderFS(ctx, templateFS, vhostTemplate, cfg, opts)
	if err != nil {
		var unsafe *UnsafeValueError
		if cerr.As(err, &unsafe) {
			return "", hermes_err.NewValidationError("value cannot be used in the gateway config", unsafe)
		}
		return "", hermes_err.NewInternalError("render gateway config", err)
	}
	return out, nil
}

// Marker returns the first line of every file hermes manages.
func Marker(slug string) (string, error) {
	tok, err := Token(slug)
	if err != nil {
		return "", err
	}
	return shared.ManagedMarkerPrefix + " " + tok, nil
}

// UnsafeValueError reports a value that would change the meaning of the config.
type UnsafeValueError struct {
	Value  string
	Reason string
}

func (e *UnsafeValueError) Error() string {
	return fmt.Sprintf("%q %s", e.Value, e.Reason)
}

const forbidden = ";{}\"'\\$#"

// Token returns v unchanged if it is safe as a bare nginx token. Quotes,
// braces, semicolons, backslashes, variables, comments, whitespace and control
// characters are rejected.
func Token(v any) (string, error) {
	s := fmt.Sprint(v)
	if s == "" {
		return "", &UnsafeValueError{Value: s, Reason: "is empty"}
	}
	if i := strings.IndexAny(s, forbidden); i >= 0 {
		return "", &UnsafeValueError{Value: s, Reason: fmt.Sprintf("contains %q", s[i])}
	}
	for _, c := range s {
		if unicode.IsSpace(c) || unicode.IsControl(c) {
			return "", &UnsafeValueError{Value: s, Reason: "contains whitespace or control characters"}
		}
	}
	return s, nil
}

// Quote returns v as an nginx double-quoted string, for file paths that may
// contain spaces. Backslashes and double quotes are escaped; variables and
// control characters are rejected.
func Quote(v any) (string, error) {
	s := fmt.Sprint(v)
	if s == "" {
		return "", &UnsafeValueError{Value: s, Reason: "is empty"}
	}
	if strings.Contains(s, "$") {
		return "", &UnsafeValueError{Value: s, Reason: `contains '$'`}
	}
	for _, c := range s {
		if unicode.IsControl(c) {
			return "", &UnsafeValueError{Value: s, Reason: "contains control characters"}
		}
	}
	return `"` + quoteEscaper.Replace(s) + `"`, nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
