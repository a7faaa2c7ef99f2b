// pkg/system/service.go

package system

import (
	"context"
	"fmt"
	"time"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Service manager kinds.
const (
	Systemctl = "systemctl"
	Brew      = "brew"
)

// ServiceManager restarts services through systemctl or brew services.
type ServiceManager struct {
	Runner  execute.Runner
	Kind    string
	Retries int
	Delay   time.Duration
}

// NewServiceManager returns a manager of the given kind.
func NewServiceManager(runner execute.Runner, kind string) *ServiceManager {
	return &ServiceManager{Runner: runner, Kind: kind, Retries: 2, Delay: 2 * time.Second}
}

// RestartArgs returns the command line that restarts unit.
func (m *ServiceManager) RestartArgs(unit string) (string, []string, error) {
	switch m.Kind {
	case Systemctl:
		return "systemctl", []string{"restart", unit}, nil
	case Brew:
		return "brew", []string{"services", "restart", unit}, nil
	}
	return "", nil, cerr.Newf("unknown service manager %q", m.Kind)
}

// Restart restarts unit with retries.
func (m *ServiceManager) Restart(ctx context.Context, unit string) error {
	logger := otelzap.Ctx(ctx)

	command, args, err := m.RestartArgs(unit)
	if err != nil {
		return err
	}

	logger.Info("Restarting service", zap.String("unit", unit), zap.String("manager", m.Kind))
	if _, err := m.Runner.Run(ctx, execute.Options{
		Command: command,
		Args:    args,
		Retries: m.Retries,
		Delay:   m.Delay,
	}); err != nil {
		logger.Error("Service restart failed", zap.String("unit", unit), zap.Error(err))
		if m.Kind == Systemctl {
			logger.Info(fmt.Sprintf("terminal prompt: Run `systemctl status %s -l` or `journalctl -u %s` to investigate further", unit, unit))
		}
		return cerr.Wrapf(err, "restart %s", unit)
	}

	logger.Info("Service restarted", zap.String("unit", unit))
	return nil
}
