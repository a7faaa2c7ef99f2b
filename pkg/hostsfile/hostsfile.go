// Package hostsfile maintains the single alias line hermes owns per domain in
// the system hosts file.
package hostsfile

import (
	"context"
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Entry is the alias line for one domain.
type Entry struct {
	Address string
	Domain  string
	// Labels become <label>.<Domain>, in order, followed by the apex.
	Labels []string
	// Token matches whole whitespace-separated names instead of raw substrings
	// when removing old lines.
	Token bool
}

// Line renders the entry: address, two spaces, then space-separated names.
func (e Entry) Line() string {
	return e.Address + "  " + strings.Join(e.Names(), " ")
}

// Names returns every hostname the entry maps.
func (e Entry) Names() []string {
	names := make([]string, 0, len(e.Labels)+1)
	for _, label := range e.Labels {
		names = append(names, label+"."+e.Domain)
	}
	return append(names, e.Domain)
}

// Mentions reports whether line refers to the entry's domain and would be
// replaced by it.
func (e Entry) Mentions(line string) bool {
	if !e.Token {
		return strings.Contains(line, e.Domain)
	}
	content, _, _ := strings.Cut(line, "#")
	fields := strings.Fields(content)
	if len(fields) < 2 {
		return false
	}
	for _, name := range fields[1:] {
		if name == e.Domain || strings.HasSuffix(name, "."+e.Domain) {
			return true
		}
	}
	return false
}

// Rewrite drops every line mentioning the domain, keeps all other lines in
// order, and appends the entry line. The result always ends with a newline.
func Rewrite(content string, e Entry) string {
	var b strings.Builder
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for _, line := range lines {
		if e.Mentions(line) {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(e.Line())
	b.WriteByte('\n')
	return b.String()
}

// Register rewrites the hosts file at path so that it holds exactly one line
// for the entry's domain. The file mode is preserved. When dryRun is set the
// new content is returned without writing.
func Register(ctx context.Context, path string, e Entry, dryRun bool) (string, error) {
	logger := otelzap.Ctx(ctx)

	// ASSESS
	info, err := os.Stat(path)
	if err != nil {
		return "", hermes_err.NewFilesystemError("cannot stat hosts file "+path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", hermes_err.NewPermissionError(path, "read", err)
	}

	// INTERVENE
	updated := Rewrite(string(data), e)
	if dryRun {
		logger.Info("Dry run - hosts file not modified", zap.String("path", path), zap.String("line", e.Line()))
		return updated, nil
	}
	if updated == string(data) {
		logger.Debug("Hosts file already up to date", zap.String("path", path))
		return updated, nil
	}

	// Write in place: /etc/hosts may be a bind mount that cannot be renamed over.
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return "", hermes_err.NewPermissionError(path, "write", err,
			"Run hermes with sudo so it can edit the hosts file")
	}
	if err := os.Chmod(path, info.Mode().Perm()); err != nil {
		return "", cerr.Wrapf(err, "restore mode of %s", path)
	}

	// EVALUATE
	logger.Info("Hosts file updated",
		zap.String("path", path),
		zap.String("line", e.Line()),
		zap.Int("removed", countMentions(string(data), e)))
	return updated, nil
}

func countMentions(content string, e Entry) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if e.Mentions(line) {
			n++
		}
	}
	return n
}
