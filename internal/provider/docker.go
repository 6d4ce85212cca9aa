package provider

import (
	"context"
	"fmt"
	"log"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// urlLabel lets a container advertise its node url directly. Containers
// without it fall back to their first network address plus the configured
// node port.
const urlLabel = "shale.url"

// DockerProvider treats running containers carrying a configured label as the
// live node set; Remove terminates the matching container.
type DockerProvider struct {
	cli   *client.Client
	label string
	port  int
}

// NewDockerProvider connects to the local Docker daemon from the environment.
func NewDockerProvider(label string, port int) (*DockerProvider, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithVersion("1.44"))
	if err != nil {
		return nil, err
	}
	return &DockerProvider{cli: cli, label: label, port: port}, nil
}

func (p *DockerProvider) ListLiveNodes(ctx context.Context) ([]string, error) {
	containers, err := p.list(ctx)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(containers))
	for _, c := range containers {
		if url := p.nodeURL(c); url != "" {
			urls = append(urls, url)
		}
	}
	return urls, nil
}

// Remove terminates the container backing url.
func (p *DockerProvider) Remove(ctx context.Context, url string) error {
	containers, err := p.list(ctx)
	if err != nil {
		return err
	}
	for _, c := range containers {
		if p.nodeURL(c) != url {
			continue
		}
		log.Printf("[Provider] Removing container %s for node %s", shortID(c.ID), url)
		return p.cli.ContainerRemove(ctx, c.ID, types.ContainerRemoveOptions{Force: true})
	}
	return fmt.Errorf("no live container found for node %s", url)
}

func (p *DockerProvider) list(ctx context.Context) ([]types.Container, error) {
	return p.cli.ContainerList(ctx, types.ContainerListOptions{
		Filters: filters.NewArgs(filters.Arg("label", p.label)),
	})
}

func (p *DockerProvider) nodeURL(c types.Container) string {
	if url, ok := c.Labels[urlLabel]; ok && url != "" {
		return url
	}
	if c.NetworkSettings == nil {
		return ""
	}
	for _, nw := range c.NetworkSettings.Networks {
		if nw.IPAddress != "" {
			return fmt.Sprintf("http://%s:%d/wd/hub", nw.IPAddress, p.port)
		}
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
