// Package pubip finds out the public address a host is seen with when
// traffic leaves through a given local address.
package pubip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/pion/transport/v3"
	"github.com/pion/transport/v3/stdnet"
	"github.com/scitags/ifprobe-go/types"
)

var ErrNotRoutable = errors.New("address is not routable")

type cacheEntry struct {
	addr netip.Addr
	ts   time.Time
}

type Resolver struct {
	Config

	mapping map[netip.Addr]netip.Addr
	nw      transport.Net

	// Lookups, replaceable in tests.
	stun func(ctx context.Context, nw transport.Net, server string, local netip.Addr) (netip.Addr, error)
	http func(ctx context.Context, nw transport.Net, services map[string]string, local netip.Addr) (netip.Addr, error)

	services map[string]string

	mu    sync.Mutex
	cache map[netip.Addr]cacheEntry
	now   func() time.Time
}

func NewResolver(c *Config) (*Resolver, error) {
	conf := DefaultConfig
	if c != nil {
		conf = *c
	}

	mapping := map[netip.Addr]netip.Addr{}
	for k, v := range conf.ManualMapping {
		priv, err := netip.ParseAddr(k)
		if err != nil {
			return nil, fmt.Errorf("couldn't parse provided IP address %q: %w", k, err)
		}

		pub, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("couldn't parse provided IP address %q: %w", v, err)
		}

		mapping[priv] = pub
	}

	nw, err := stdnet.NewNet()
	if err != nil {
		return nil, fmt.Errorf("failed to create network for STUN client: %w", err)
	}

	return &Resolver{
		Config:   conf,
		mapping:  mapping,
		nw:       nw,
		stun:     lookupSTUN,
		http:     lookupHTTP,
		services: serviceURLs,
		cache:    map[netip.Addr]cacheEntry{},
		now:      time.Now,
	}, nil
}

func (r *Resolver) String() string {
	return "public address resolver"
}

// Resolve returns the public address traffic sourced from local is seen
// with. Public addresses resolve to themselves and loopback or link-local
// ones are ErrNotRoutable. Private addresses are looked up over STUN and,
// if enabled, HTTP. Successful lookups are cached.
func (r *Resolver) Resolve(ctx context.Context, local netip.Addr) (netip.Addr, error) {
	local = local.Unmap()

	if pub, ok := r.mapping[local]; ok {
		slog.Debug("using manual mapping", "privIp", local, "pubIp", pub)
		return pub, nil
	}

	switch types.ClassifyAddr(local) {
	case types.ClassPublic:
		return local, nil
	case types.ClassLoopback, types.ClassLinkLocal:
		return netip.Addr{}, fmt.Errorf("%w: %s", ErrNotRoutable, local)
	}

	if pub, ok := r.cached(local); ok {
		return pub, nil
	}

	pub, err := r.lookup(ctx, local)
	if err != nil {
		return netip.Addr{}, err
	}

	r.mu.Lock()
	r.cache[local] = cacheEntry{pub, r.now()}
	r.mu.Unlock()

	return pub, nil
}

func (r *Resolver) cached(local netip.Addr) (netip.Addr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.cache[local]
	if !ok {
		return netip.Addr{}, false
	}

	if r.now().Sub(e.ts) >= time.Duration(r.CacheTTLMs)*time.Millisecond {
		delete(r.cache, local)
		return netip.Addr{}, false
	}

	return e.addr, true
}

func (r *Resolver) lookup(ctx context.Context, local netip.Addr) (netip.Addr, error) {
	var errs error

	for _, server := range r.StunServers {
		pub, err := r.stun(ctx, r.nw, server, local)
		if err == nil {
			slog.Debug("got public ip over STUN", "server", server, "privIp", local, "pubIp", pub)
			return pub, nil
		}
		if ctx.Err() != nil {
			return netip.Addr{}, ctx.Err()
		}
		slog.Debug("couldn't resolve public ip over STUN", "server", server, "err", err)
		errs = errors.Join(errs, err)
	}

	if r.UseHTTP {
		pub, err := r.http(ctx, r.nw, r.services, local)
		if err == nil {
			slog.Debug("got public ip over HTTP", "privIp", local, "pubIp", pub)
			return pub, nil
		}
		errs = errors.Join(errs, err)
	}

	if errs == nil {
		return netip.Addr{}, fmt.Errorf("no lookup method configured for %s", local)
	}
	return netip.Addr{}, fmt.Errorf("couldn't resolve the public address of %s: %w", local, errs)
}
