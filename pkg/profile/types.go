package profile

import (
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/platform"
)

// Match modes for hosts-file cleanup.
const (
	MatchSubstring = "substring"
	MatchToken     = "token"
)

// Service managers the gateway can be restarted with.
const (
	ServiceManagerBrew      = "brew"
	ServiceManagerSystemctl = "systemctl"
)

// Profile is the port map, route table and artifact locations for one
// deployment flavour. Everything hermes writes is derived from it.
type Profile struct {
	Ports        map[string]int        `mapstructure:"ports" yaml:"ports" validate:"required,min=1,dive,keys,required,endkeys,min=1,max=65535"`
	Routes       []Route               `mapstructure:"routes" yaml:"routes" validate:"required,min=1,dive"`
	Hosts        Hosts                 `mapstructure:"hosts" yaml:"hosts"`
	Gateway      Gateway               `mapstructure:"gateway" yaml:"gateway"`
	Certs        Certs                 `mapstructure:"certs" yaml:"certs"`
	Bridge       Bridge                `mapstructure:"bridge" yaml:"bridge"`
	Dependencies []platform.Dependency `mapstructure:"dependencies" yaml:"dependencies" validate:"dive"`
}

// Route sends requests for Subdomain.<domain><Path> to the port of Role.
type Route struct {
	Subdomain string `mapstructure:"subdomain" yaml:"subdomain" validate:"required,hostname_rfc1123"`
	Path      string `mapstructure:"path" yaml:"path,omitempty" validate:"omitempty,startswith=/"`
	Role      string `mapstructure:"role" yaml:"role" validate:"required"`
	// WebSocket adds HTTP/1.1 upgrade headers.
	WebSocket bool `mapstructure:"websocket" yaml:"websocket,omitempty"`
	// LargeBuffers enlarges proxy buffers for big bearer tokens.
	LargeBuffers bool `mapstructure:"large_buffers" yaml:"large_buffers,omitempty"`
	// ForwardClient passes the client address and scheme upstream.
	ForwardClient bool `mapstructure:"forward_client" yaml:"forward_client,omitempty"`
}

// Location returns the path prefix, "/" when unset.
func (r Route) Location() string {
	if r.Path == "" {
		return "/"
	}
	return r.Path
}

type Hosts struct {
	File    string   `mapstructure:"file" yaml:"file" validate:"required"`
	Address string   `mapstructure:"address" yaml:"address" validate:"required,ip"`
	Labels  []string `mapstructure:"labels" yaml:"labels" validate:"dive,hostname_rfc1123"`
	Match   string   `mapstructure:"match" yaml:"match" validate:"oneof=substring token"`
}

type Gateway struct {
	ConfigDir      string   `mapstructure:"config_dir" yaml:"config_dir" validate:"required"`
	Extension      string   `mapstructure:"extension" yaml:"extension" validate:"required,startswith=."`
	ListenPort     int      `mapstructure:"listen_port" yaml:"listen_port" validate:"min=1,max=65535"`
	Upstream       string   `mapstructure:"upstream" yaml:"upstream" validate:"required,ip|hostname_rfc1123"`
	Validate       []string `mapstructure:"validate" yaml:"validate" validate:"min=1"`
	Service        string   `mapstructure:"service" yaml:"service" validate:"required"`
	ServiceManager string   `mapstructure:"service_manager" yaml:"service_manager" validate:"oneof=brew systemctl"`
}

type Certs struct {
	// Root may start with ~/, which expands to the invoking user's home.
	Root string `mapstructure:"root" yaml:"root" validate:"required"`
	Tool string `mapstructure:"tool" yaml:"tool" validate:"required"`
}

type Bridge struct {
	File        string   `mapstructure:"file" yaml:"file" validate:"required,excludesall=/\\"`
	Services    []string `mapstructure:"services" yaml:"services" validate:"min=1,dive,required"`
	Labels      []string `mapstructure:"labels" yaml:"labels" validate:"min=1,dive,hostname_rfc1123"`
	HostGateway string   `mapstructure:"host_gateway" yaml:"host_gateway" validate:"required"`
	// ResolveGateway asks the Docker engine for the bridge gateway address.
	ResolveGateway bool   `mapstructure:"resolve_gateway" yaml:"resolve_gateway"`
	Network        string `mapstructure:"network" yaml:"network" validate:"required"`
}
