package devenv

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Flag names shared by the create and read commands.
const (
	FlagClient     = "client"
	FlagDomain     = "domain"
	FlagProjectDir = "project-dir"
	FlagYes        = "yes"
)

// Prompter asks the operator for missing values.
type Prompter interface {
	Interactive() bool
	PromptInput(ctx context.Context, prompt, defaultVal string) (string, error)
	PromptYesNo(ctx context.Context, prompt string, defaultYes bool) (bool, error)
}

// Collector gathers a Session from flags and environment, prompting for
// whatever is still missing.
type Collector struct {
	Viper    *viper.Viper
	Prompter Prompter
	Getwd    func() (string, error)
}

// NewCollector returns a collector that uses the process working directory.
func NewCollector(v *viper.Viper, p Prompter) *Collector {
	return &Collector{Viper: v, Prompter: p, Getwd: os.Getwd}
}

// CollectSession asks for the client slug, the domain and the project root,
// in that order. Each answer is checked as soon as it is given and the first
// invalid one ends the run.
func CollectSession(ctx context.Context, v *viper.Viper, p Prompter) (*Session, error) {
	return NewCollector(v, p).Collect(ctx)
}

func (c *Collector) Collect(ctx context.Context) (*Session, error) {
	logger := otelzap.Ctx(ctx)
	s := &Session{}

	client, err := c.value(ctx, FlagClient, "Client slug")
	if err != nil {
		return nil, err
	}
	if err := ValidateClient(client); err != nil {
		return nil, err
	}
	s.Client = client

	domain, err := c.value(ctx, FlagDomain, "Domain")
	if err != nil {
		return nil, err
	}
	domain = NormalizeDomain(domain)
	if err := ValidateDomain(domain); err != nil {
		return nil, err
	}
	s.Domain = domain

	dir, err := c.projectDir(ctx)
	if err != nil {
		return nil, err
	}
	s.ProjectDir = dir

	if err := s.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Session collected",
		zap.String("client", s.Client),
		zap.String("domain", s.Domain),
		zap.String("project_dir", s.ProjectDir))
	return s, nil
}

func (c *Collector) value(ctx context.Context, key, label string) (string, error) {
	if v := strings.TrimSpace(c.Viper.GetString(key)); v != "" {
		otelzap.Ctx(ctx).Debug("Using configured value", zap.String("key", key), zap.String("value", v))
		return v, nil
	}
	return c.Prompter.PromptInput(ctx, label, "")
}

func (c *Collector) projectDir(ctx context.Context) (string, error) {
	if dir := strings.TrimSpace(c.Viper.GetString(FlagProjectDir)); dir != "" {
		return dir, nil
	}

	cwd, err := c.Getwd()
	if err != nil {
		return "", err
	}
	if c.Viper.GetBool(FlagYes) {
		return cwd, nil
	}

	isRoot, err := c.Prompter.PromptYesNo(ctx, fmt.Sprintf("Is %s the project root?", cwd), true)
	if err != nil {
		return "", err
	}
	if isRoot {
		return cwd, nil
	}
	return c.Prompter.PromptInput(ctx, "Project directory path", "")
}
