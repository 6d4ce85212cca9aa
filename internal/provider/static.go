package provider

import "context"

// StaticProvider serves a fixed, configured set of urls. Remove is a no-op:
// there is no infrastructure behind a configured list to tear down.
type StaticProvider struct {
	urls []string
}

func NewStaticProvider(urls []string) *StaticProvider {
	copied := make([]string, len(urls))
	copy(copied, urls)
	return &StaticProvider{urls: copied}
}

func (p *StaticProvider) ListLiveNodes(_ context.Context) ([]string, error) {
	out := make([]string, len(p.urls))
	copy(out, p.urls)
	return out, nil
}

func (p *StaticProvider) Remove(_ context.Context, _ string) error { return nil }
