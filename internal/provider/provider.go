package provider

import (
	"context"
	"fmt"

	"github.com/arohner/shale/internal/config"
)

// Provider is the source of truth for which worker endpoints are live in real
// infrastructure. Adding capacity is an infrastructure concern; the pool only
// ever lists and removes.
type Provider interface {
	// ListLiveNodes returns the urls of all currently live worker endpoints.
	ListLiveNodes(ctx context.Context) ([]string, error)

	// Remove tears down the infrastructure behind url, if any.
	Remove(ctx context.Context, url string) error
}

// CloudDocker is the only supported cloud provider discriminator.
const CloudDocker = "docker"

// DefaultNodeURL is used when neither a custom provider, a cloud section nor
// a node list is configured.
const DefaultNodeURL = "http://localhost:5555/wd/hub"

const defaultNodePort = 5555

// UnsupportedCloudError is a fatal configuration error: the cloud section
// names a provider this build cannot drive.
type UnsupportedCloudError struct {
	Provider string
}

func (e *UnsupportedCloudError) Error() string {
	return fmt.Sprintf("unsupported cloud provider %q (supported: %q)", e.Provider, CloudDocker)
}

// Select builds the provider for cfg. A non-nil custom implementation is
// installed as-is. Otherwise a configured cloud section must name a supported
// provider, and failing both, the static list (or the default endpoint) wins.
func Select(cfg config.Provider, custom Provider) (Provider, error) {
	if custom != nil {
		return custom, nil
	}
	if cfg.Cloud != nil {
		if cfg.Cloud.Provider != CloudDocker {
			return nil, &UnsupportedCloudError{Provider: cfg.Cloud.Provider}
		}
		port := cfg.Cloud.Port
		if port <= 0 {
			port = defaultNodePort
		}
		return NewDockerProvider(cfg.Cloud.Label, port)
	}
	nodes := cfg.Nodes
	if len(nodes) == 0 {
		nodes = []string{DefaultNodeURL}
	}
	return NewStaticProvider(nodes), nil
}
