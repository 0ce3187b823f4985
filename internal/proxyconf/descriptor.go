package proxyconf

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lockwave-io/hostforge/internal/catalog"
	"github.com/lockwave-io/hostforge/internal/config"
)

// ProxyImage is the container image the descriptor pins.
const ProxyImage = "caddy:2.8-alpine"

type composeFile struct {
	Name     string                    `yaml:"name"`
	Services map[string]composeService `yaml:"services"`
	Networks map[string]composeNetwork `yaml:"networks"`
	Volumes  map[string]map[string]any `yaml:"volumes"`
}

type composeService struct {
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name"`
	Restart       string            `yaml:"restart"`
	Ports         []string          `yaml:"ports"`
	Volumes       []string          `yaml:"volumes"`
	Networks      []string          `yaml:"networks"`
	Labels        map[string]string `yaml:"labels"`
}

type composeNetwork struct {
	External bool `yaml:"external"`
}

// Descriptor returns the container descriptor (a compose document) that runs
// the reverse proxy with the generated config mounted. Networks are external
// because the docker_networks step creates them.
func Descriptor(domain string, profile config.Profile) ([]byte, error) {
	if err := config.ValidateDomain(domain); err != nil {
		return nil, err
	}
	spec, ok := catalog.Lookup(profile)
	if !ok {
		return nil, fmt.Errorf("proxyconf: unknown profile %q", profile)
	}

	networks := make(map[string]composeNetwork, len(spec.Networks))
	for _, n := range spec.Networks {
		networks[n] = composeNetwork{External: true}
	}

	doc := composeFile{
		Name: "hostforge-proxy",
		Services: map[string]composeService{
			"caddy": {
				Image:         ProxyImage,
				ContainerName: "caddy",
				Restart:       "unless-stopped",
				Ports:         []string{"80:80", "443:443", "443:443/udp"},
				Volumes: []string{
					"./Caddyfile:/etc/caddy/Caddyfile:ro",
					"caddy_data:/data",
					"caddy_config:/config",
				},
				Networks: spec.Networks,
				Labels: map[string]string{
					"io.hostforge.domain":  domain,
					"io.hostforge.profile": string(profile),
				},
			},
		},
		Networks: networks,
		Volumes: map[string]map[string]any{
			"caddy_data":   {},
			"caddy_config": {},
		},
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("proxyconf: marshal descriptor: %w", err)
	}
	return out, nil
}
