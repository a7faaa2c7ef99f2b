// Package devenv collects the per-run inputs and drives provisioning of one
// client's local development gateway.
package devenv

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sys/unix"
)

// Session is what one run provisions. It is fixed once collected.
type Session struct {
	// Client names the certificate directory and gateway config file.
	Client     string `validate:"required,slug"`
	Domain     string `validate:"required,fqdn"`
	ProjectDir string `validate:"required"`
}

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,62}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateClient checks that slug is safe as a file and directory name.
func ValidateClient(slug string) error {
	if err := validate.Var(slug, "required,slug"); err != nil {
		return hermes_err.NewValidationError(
			fmt.Sprintf("invalid client slug %q", slug), err,
			"Use letters, digits, '-' and '_' only, starting with a letter or digit")
	}
	return nil
}

// NormalizeDomain lowercases domain and drops a trailing root dot, so that
// every command derives the same artifacts from the same name.
func NormalizeDomain(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// ValidateDomain checks that domain is a fully qualified DNS name.
func ValidateDomain(domain string) error {
	if err := validate.Var(domain, "required,fqdn"); err != nil {
		return hermes_err.NewValidationError(
			fmt.Sprintf("invalid domain %q", domain), err,
			"Use a DNS name such as acme.dev.local")
	}
	return nil
}

// ValidateProjectDir checks that dir is an existing, writable directory and
// returns its absolute form.
func ValidateProjectDir(dir string) (string, error) {
	if dir == "" {
		return "", hermes_err.NewValidationError("project directory is required", nil)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", hermes_err.NewValidationError("cannot resolve project directory "+dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", hermes_err.NewValidationError("project directory does not exist: "+abs, err)
	}
	if !info.IsDir() {
		return "", hermes_err.NewValidationError("project path is not a directory: "+abs, nil)
	}
	if err := unix.Access(abs, unix.W_OK); err != nil {
		return "", hermes_err.NewValidationError("project directory is not writable: "+abs, err)
	}
	return abs, nil
}

// Validate checks every field and normalizes ProjectDir to an absolute path.
func (s *Session) Validate() error {
	if err := ValidateClient(s.Client); err != nil {
		return err
	}
	if err := ValidateDomain(s.Domain); err != nil {
		return err
	}
	abs, err := ValidateProjectDir(s.ProjectDir)
	if err != nil {
		return err
	}
	s.ProjectDir = abs
	if err := validate.Struct(s); err != nil {
		return hermes_err.NewValidationError("invalid session", err)
	}
	return nil
}
