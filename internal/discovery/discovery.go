// Package discovery resolves partner discovery ids to TCP endpoints via
// mDNS/DNS-SD, and announces a running data server the same way so partners
// can address this host by instance name instead of IP.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// Service is the DNS-SD service type shareclip instances register under.
	Service = "_shareclip._tcp"
	Domain  = "local."

	defaultTimeout = 3 * time.Second
)

// Zeroconf implements address discovery over mDNS.
type Zeroconf struct {
	// Timeout bounds one browse; zero means the default.
	Timeout time.Duration
}

// Discover browses for the instance named id and returns its address and
// port. The first answer wins; IPv4 is preferred when both families are
// advertised.
func (z *Zeroconf) Discover(ctx context.Context, id string) (string, int, error) {
	timeout := z.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", 0, fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 8)
	if err := resolver.Lookup(ctx, id, Service, Domain, entries); err != nil {
		return "", 0, fmt.Errorf("mdns lookup %q: %w", id, err)
	}

	for entry := range entries {
		if entry.Instance != id {
			continue
		}
		if len(entry.AddrIPv4) > 0 {
			return entry.AddrIPv4[0].String(), entry.Port, nil
		}
		if len(entry.AddrIPv6) > 0 {
			return entry.AddrIPv6[0].String(), entry.Port, nil
		}
	}
	return "", 0, fmt.Errorf("partner %q not found via mdns", id)
}

// Announce registers this host's data server under instance so partners can
// dial it by name. The returned stop function withdraws the registration.
func Announce(instance string, port int) (func(), error) {
	srv, err := zeroconf.Register(instance, Service, Domain, port, []string{"role=server"}, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	slog.Info("announced via mdns", "instance", instance, "service", Service, "port", port)
	return srv.Shutdown, nil
}

// Browse collects every shareclip instance visible on the local network
// within the timeout. Used by the status command.
func Browse(ctx context.Context, timeout time.Duration) ([]*zeroconf.ServiceEntry, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(ctx, Service, Domain, entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	var out []*zeroconf.ServiceEntry
	for entry := range entries {
		out = append(out, entry)
	}
	return out, nil
}
