/*
main.go

hermes provisions local HTTPS development gateways.
*/
package main

import (
	"context"
	"os"
	"time"

	"github.com/CodeMonkeyCybersecurity/hermes/cmd"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/telemetry"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .hermes.env never overrides variables already set in the environment.
	envErr := godotenv.Load(shared.ProjectEnvFile)

	logger.InitializeWithFallback()
	log := logger.L()
	if envErr == nil {
		log.Debug("Loaded project env file", zap.String("path", shared.ProjectEnvFile))
	} else if !os.IsNotExist(envErr) {
		log.Warn("Could not read project env file", zap.String("path", shared.ProjectEnvFile), zap.Error(envErr))
	}

	if err := telemetry.Init(shared.HermesID); err != nil {
		log.Warn("Telemetry disabled", zap.Error(err))
	}

	err := cmd.Execute()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if shutdownErr := telemetry.Shutdown(ctx); shutdownErr != nil {
		log.Debug("Telemetry shutdown failed", zap.Error(shutdownErr))
	}
	cancel()
	_ = logger.Sync()

	os.Exit(hermes_err.GetExitCode(err))
}
