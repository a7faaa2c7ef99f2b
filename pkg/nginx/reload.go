package nginx

import (
	"context"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/system"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Reloader validates the gateway tree and restarts the service only when the
// tree is valid.
type Reloader struct {
	Validator *Validator
	Services  *system.ServiceManager
	Service   string
}

// Reload runs the validator, then restarts the service. A failed validation
// leaves the running gateway untouched and returns a validation error that
// carries the validator output.
func (r *Reloader) Reload(ctx context.Context) error {
	logger := otelzap.Ctx(ctx)

	// ASSESS
	out, err := r.Validator.Check(ctx)
	if err != nil {
		logger.Error("Gateway config failed validation, not restarting",
			zap.String("service", r.Service),
			zap.Error(err))
		if out != "" {
			logger.Info("terminal prompt: Validator output", zap.String("output", out))
		}
		return hermes_err.NewValidationError(
			"gateway configuration is invalid; "+r.Service+" was not restarted", err,
			"Fix the file named above and check with: sudo "+strings.Join(r.Validator.Command, " "),
			"If the failing file is an old hermes config, rerun with --purge-stale")
	}
	logger.Debug("Gateway config is valid", zap.String("output", out))

	// INTERVENE
	if err := r.Services.Restart(ctx, r.Service); err != nil {
		return err
	}

	// EVALUATE
	logger.Info("terminal prompt: Gateway reloaded", zap.String("service", r.Service))
	return nil
}
