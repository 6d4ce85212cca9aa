package pool

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// NormalizeURL resolves the host portion of rawURL to a concrete address so
// stored urls compare by address rather than by name and repeated lookups are
// cheap. Hosts that are already addresses pass through; hosts that fail to
// resolve are kept as-is so a transient resolver outage never aborts a write.
func NormalizeURL(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse node url %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("node url %q has no host", rawURL)
	}

	host := u.Hostname()
	if host == "" || net.ParseIP(host) != nil {
		return u.String(), nil
	}

	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil || len(addrs) == 0 {
		return u.String(), nil
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(addrs[0], port)
	} else if strings.Contains(addrs[0], ":") {
		u.Host = "[" + addrs[0] + "]"
	} else {
		u.Host = addrs[0]
	}
	return u.String(), nil
}
