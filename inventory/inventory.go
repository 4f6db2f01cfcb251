// Package inventory joins the addresses reported over netlink with the link
// attributes found in sysfs, producing one record per interface.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sort"
	"strconv"
	"strings"

	"github.com/scitags/ifprobe-go/internal/route"
	"github.com/scitags/ifprobe-go/sysclass"
	"github.com/scitags/ifprobe-go/types"
)

var ErrNotFound = errors.New("no such interface")

// AddressSource is satisfied by both netlink.Dumper and netlink.Session.
type AddressSource interface {
	ListAddresses(ctx context.Context) ([]types.Address, error)
}

// Attributes is satisfied by sysclass.Reader.
type Attributes interface {
	Interfaces() ([]string, error)
	Index(iface string) (int, bool)
	InterfaceType(iface string) types.InterfaceType
	SpeedBps(iface string) (uint64, bool)
	Details(iface string) (*sysclass.Details, error)
}

type Interface struct {
	Name      string              `structs:"name" lean:"name"`
	Index     int                 `structs:"index" lean:"index"`
	Type      types.InterfaceType `structs:"type" lean:"type"`
	SpeedBps  *uint64             `structs:"speedBps,omitempty" lean:"speedBps,omitempty"`
	Default   bool                `structs:"default" lean:"default"`
	Details   *sysclass.Details   `structs:"details,omitempty" lean:"-"`
	Addresses []types.Address     `structs:"addresses" lean:"addresses"`

	// Public holds the addresses the default interface is seen with from
	// the outside, when public address resolution is enabled.
	Public []netip.Addr `structs:"public,omitempty" lean:"public,omitempty"`
}

// PublicResolver is satisfied by pubip.Resolver.
type PublicResolver interface {
	Resolve(ctx context.Context, local netip.Addr) (netip.Addr, error)
}

type Collector struct {
	Config

	addrs AddressSource
	attrs Attributes
	probe netip.Addr

	// defaultIface resolves the default interface's name.
	defaultIface func(probe netip.Addr) (string, error)

	public PublicResolver
}

func NewCollector(c *Config, addrs AddressSource, attrs Attributes) (*Collector, error) {
	conf := DefaultConfig
	if c != nil {
		conf = *c
	}

	col := Collector{
		Config:       conf,
		addrs:        addrs,
		attrs:        attrs,
		defaultIface: defaultIfaceName,
	}

	if conf.DefaultRouteProbe != "" {
		probe, err := netip.ParseAddr(conf.DefaultRouteProbe)
		if err != nil {
			return nil, fmt.Errorf("couldn't parse the default route probe: %w", err)
		}
		col.probe = probe
	}

	return &col, nil
}

// SetPublicResolver enables the resolution of the default interface's
// public addresses.
func (c *Collector) SetPublicResolver(r PublicResolver) {
	c.public = r
}

func defaultIfaceName(probe netip.Addr) (string, error) {
	i, err := route.DefaultInterface(probe)
	if err != nil {
		return "", err
	}
	return i.Name, nil
}

// Collect enumerates the interfaces sysfs knows about plus any other
// interface owning an address. Interfaces are sorted by index. A failed
// address dump is an error; missing sysfs information is not.
func (c *Collector) Collect(ctx context.Context) ([]Interface, error) {
	addrs, err := c.addrs.ListAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("couldn't dump the addresses: %w", err)
	}

	names, err := c.attrs.Interfaces()
	if err != nil {
		slog.Warn("couldn't list the interfaces in sysfs", "err", err)
	}

	byIndex := map[int]*Interface{}
	for _, name := range names {
		idx, ok := c.attrs.Index(name)
		if !ok {
			slog.Debug("skipping interface without an index", "iface", name)
			continue
		}
		byIndex[idx] = c.describe(name, idx)
	}

	for _, a := range addrs {
		idx := int(a.Index)
		iface, ok := byIndex[idx]
		if !ok {
			iface = c.describe(nameFromAddress(a), idx)
			byIndex[idx] = iface
		}
		iface.Addresses = append(iface.Addresses, a)
	}

	if c.probe.IsValid() {
		if name, err := c.defaultIface(c.probe); err != nil {
			slog.Warn("couldn't find the default interface", "probe", c.probe, "err", err)
		} else {
			for _, iface := range byIndex {
				if iface.Name == name {
					iface.Default = true
					c.resolvePublic(ctx, iface)
				}
			}
		}
	}

	ifaces := make([]Interface, 0, len(byIndex))
	for _, iface := range byIndex {
		ifaces = append(ifaces, *iface)
	}
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Index < ifaces[j].Index })

	slog.Debug("collected interfaces", "n", len(ifaces), "addresses", len(addrs))
	return ifaces, nil
}

func (c *Collector) describe(name string, idx int) *Interface {
	iface := Interface{
		Name:      name,
		Index:     idx,
		Type:      c.attrs.InterfaceType(name),
		Addresses: []types.Address{},
	}

	if bps, ok := c.attrs.SpeedBps(name); ok {
		iface.SpeedBps = &bps
	}

	if c.WithDetails {
		d, err := c.attrs.Details(name)
		if err != nil {
			slog.Debug("couldn't get interface details", "iface", name, "err", err)
		} else {
			iface.Details = d
		}
	}

	return &iface
}

func (c *Collector) resolvePublic(ctx context.Context, iface *Interface) {
	if c.public == nil {
		return
	}

	seen := map[netip.Addr]bool{}
	for _, a := range iface.Addresses {
		pub, err := c.public.Resolve(ctx, a.Addr())
		if ctx.Err() != nil {
			slog.Warn("gave up resolving the public addresses", "iface", iface.Name, "err", ctx.Err())
			return
		}
		if err != nil {
			slog.Debug("couldn't resolve the public address", "iface", iface.Name, "addr", a.Addr(), "err", err)
			continue
		}
		if !seen[pub] {
			seen[pub] = true
			iface.Public = append(iface.Public, pub)
		}
	}
}

// nameFromAddress guesses the interface name for addresses whose interface
// isn't visible in sysfs (e.g. when it lives in another mount namespace).
// IPv4 labels carry the name, possibly followed by an alias suffix.
func nameFromAddress(a types.Address) string {
	if a.Label != "" {
		name, _, _ := strings.Cut(a.Label, ":")
		return name
	}
	return "if" + strconv.Itoa(int(a.Index))
}

// Lookup returns the named interface out of ifaces.
func Lookup(ifaces []Interface, name string) (*Interface, error) {
	for i := range ifaces {
		if ifaces[i].Name == name {
			return &ifaces[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}
