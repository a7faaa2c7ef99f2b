package profile

import (
	"os"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/platform"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
)

// Homebrew prefixes for Apple silicon and Intel Macs.
const (
	BrewPrefixARM   = "/opt/homebrew"
	BrewPrefixIntel = "/usr/local"
)

// Default returns the built-in profile for the running platform.
func Default() *Profile {
	return DefaultFor(platform.GetOSPlatform())
}

// DefaultFor returns the built-in profile for "macos" or "linux".
func DefaultFor(osPlatform string) *Profile {
	p := &Profile{
		Ports: map[string]int{
			"graphql":  8081,
			"console":  8081,
			"auth":     8080,
			"storage":  9000,
			"gateway":  8000,
			"db-admin": 8082,
		},
		Routes: []Route{
			{Subdomain: "api", Path: "/graphql", Role: "graphql", WebSocket: true},
			{Subdomain: "api", Path: "/auth", Role: "auth", LargeBuffers: true},
			{Subdomain: "api", Path: "/storage", Role: "storage"},
			{Subdomain: "api", Path: "/", Role: "gateway", ForwardClient: true},
			{Subdomain: "auth", Path: "/", Role: "auth"},
			{Subdomain: "console", Path: "/", Role: "console"},
			{Subdomain: "db-admin", Path: "/", Role: "db-admin"},
		},
		Hosts: Hosts{
			File:    "/etc/hosts",
			Address: shared.LoopbackAddress,
			Labels:  []string{"api", "auth", "console", "db-admin", "app"},
			Match:   MatchSubstring,
		},
		Gateway: Gateway{
			ConfigDir:      "/etc/nginx/conf.d",
			Extension:      shared.GatewayConfigExtension,
			ListenPort:     443,
			Upstream:       shared.LoopbackAddress,
			Validate:       []string{"nginx", "-t"},
			Service:        "nginx",
			ServiceManager: ServiceManagerSystemctl,
		},
		Certs: Certs{
			Root: "~/certs",
			Tool: "mkcert",
		},
		Bridge: Bridge{
			File:        shared.ComposeOverrideFile,
			Services:    []string{"graphql", "auth", "storage", "functions"},
			Labels:      []string{"api", "auth"},
			HostGateway: shared.HostGateway,
			Network:     "bridge",
		},
		Dependencies: []platform.Dependency{
			{Command: "nginx", Package: "nginx", VersionArgs: []string{"-v"}},
			{Command: "mkcert", Package: "mkcert", VersionArgs: []string{"-version"}},
		},
	}

	if osPlatform == "macos" {
		prefix := BrewPrefixIntel
		if _, err := os.Stat(BrewPrefixARM); err == nil {
			prefix = BrewPrefixARM
		}
		p.Gateway.ConfigDir = prefix + "/etc/nginx/servers"
		p.Gateway.ServiceManager = ServiceManagerBrew
	}
	return p
}
