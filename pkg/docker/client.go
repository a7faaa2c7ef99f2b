package docker

import (
	"context"
	"time"

	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// NetworkInspector is the part of the engine API used to find the bridge gateway.
type NetworkInspector interface {
	NetworkInspect(ctx context.Context, networkID string, options network.InspectOptions) (network.Inspect, error)
}

// New establishes a Docker client using environment configuration with API version negotiation enabled.
func New() (*client.Client, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

// GatewayAddress asks the engine for the gateway of the named network.
func GatewayAddress(ctx context.Context, api NetworkInspector, name string) (string, error) {
	inspectCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	nw, err := api.NetworkInspect(inspectCtx, name, network.InspectOptions{})
	if err != nil {
		return "", err
	}
	for _, cfg := range nw.IPAM.Config {
		if cfg.Gateway != "" {
			return cfg.Gateway, nil
		}
	}
	return "", errNoGateway
}

// ResolveHostAddress returns the address containers should use to reach the
// host. Any engine error falls back to fallback.
func ResolveHostAddress(ctx context.Context, api NetworkInspector, name, fallback string) string {
	logger := otelzap.Ctx(ctx)

	addr, err := GatewayAddress(ctx, api, name)
	if err != nil {
		logger.Warn("Could not read bridge gateway from Docker, using fallback",
			zap.String("network", name),
			zap.String("fallback", fallback),
			zap.Error(err))
		return fallback
	}
	logger.Debug("Resolved bridge gateway", zap.String("network", name), zap.String("gateway", addr))
	return addr
}

// ResolveWithEngine connects to the local engine and resolves the gateway,
// falling back when the engine cannot be reached.
func ResolveWithEngine(ctx context.Context, name, fallback string) string {
	cli, err := New()
	if err != nil {
		otelzap.Ctx(ctx).Warn("Docker client unavailable, using fallback",
			zap.String("fallback", fallback), zap.Error(err))
		return fallback
	}
	defer cli.Close()
	return ResolveHostAddress(ctx, cli, name, fallback)
}
