// pkg/interaction/prompt.go

package interaction

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const (
	DefaultYesPrompt = "Y/n"
	DefaultNoPrompt  = "y/N"
)

const (
	YesShort = "y"
	YesLong  = "yes"
	NoShort  = "n"
	NoLong   = "no"
)

// ErrNoTerminal is returned when a value is missing and nobody can be asked for it.
var ErrNoTerminal = cerr.New("no terminal available for interactive input")

// Prompter asks the operator questions. Prompts are written to out so that
// stdout stays clean for command output.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// New returns a prompter over arbitrary streams.
func New(in io.Reader, out io.Writer, interactive bool) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, interactive: interactive}
}

// NewTerminal returns a prompter on stdin/stderr. It refuses to prompt when
// stdin is not a TTY.
func NewTerminal() *Prompter {
	return New(os.Stdin, os.Stderr, term.IsTerminal(int(os.Stdin.Fd())))
}

// Interactive reports whether the prompter can ask questions.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// ReadLine prompts with a label and returns a trimmed line of input.
func (p *Prompter) ReadLine(ctx context.Context, label string) (string, error) {
	logger := otelzap.Ctx(ctx)
	if !p.interactive {
		return "", hermes_err.NewValidationError(
			fmt.Sprintf("%s: value not provided", label), ErrNoTerminal,
			"Pass the value as a flag or HERMES_ environment variable")
	}

	logger.Debug("Prompting user for input", zap.String("label", label))
	_, _ = fmt.Fprint(p.out, label+": ")

	text, err := p.in.ReadString('\n')
	if err != nil && !(cerr.Is(err, io.EOF) && text != "") {
		logger.Error("Failed to read user input", zap.Error(err))
		if cerr.Is(err, io.EOF) {
			return "", hermes_err.NewUserCancelledError("input closed at " + label)
		}
		return "", cerr.Wrapf(err, "read %s", label)
	}

	value := strings.TrimSpace(text)
	logger.Debug("User input received", zap.String("label", label), zap.String("value", value))
	return value, nil
}

// PromptInput asks for input and falls back to defaultVal when the answer is empty.
func (p *Prompter) PromptInput(ctx context.Context, prompt, defaultVal string) (string, error) {
	label := prompt
	if defaultVal != "" {
		label = fmt.Sprintf("%s [%s]", prompt, defaultVal)
	}
	input, err := p.ReadLine(ctx, label)
	if err != nil {
		return "", err
	}
	if input == "" {
		otelzap.Ctx(ctx).Debug("Using default value", zap.String("default", defaultVal))
		return defaultVal, nil
	}
	return input, nil
}

// PromptYesNo asks a yes/no question. Empty or unrecognised answers take the default.
func (p *Prompter) PromptYesNo(ctx context.Context, prompt string, defaultYes bool) (bool, error) {
	defPrompt := DefaultYesPrompt
	if !defaultYes {
		defPrompt = DefaultNoPrompt
	}

	input, err := p.ReadLine(ctx, fmt.Sprintf("%s [%s]", prompt, defPrompt))
	if err != nil {
		return false, err
	}

	if answer, ok := NormalizeYesNoInput(input); ok {
		otelzap.Ctx(ctx).Debug("User input parsed", zap.Bool("answer", answer))
		return answer, nil
	}

	otelzap.Ctx(ctx).Info("Default applied", zap.String("prompt", prompt), zap.Bool("default_yes", defaultYes))
	return defaultYes, nil
}

// NormalizeYesNoInput reports the answer and whether the input was recognised.
func NormalizeYesNoInput(input string) (answer bool, ok bool) {
	switch strings.TrimSpace(strings.ToLower(input)) {
	case YesShort, YesLong:
		return true, true
	case NoShort, NoLong:
		return false, true
	}
	return false, false
}
