//go:build linux

// Package route answers routing questions through RTM_GETROUTE requests.
package route

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/jsimonetti/rtnetlink/rtnl"
)

// DefaultProbe is an IPv4 address known to be public. We've chosen the
// Quad9 DNS resolver. Whatever interface routes towards it is deemed to be
// the default one.
var DefaultProbe = netip.MustParseAddr("9.9.9.9")

// DefaultInterface returns the interface the kernel would send traffic for
// probe through.
func DefaultInterface(probe netip.Addr) (*net.Interface, error) {
	if !probe.IsValid() {
		return nil, fmt.Errorf("invalid probe address")
	}

	conn, err := rtnl.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't open a rtnl connection: %w", err)
	}
	defer conn.Close()

	r, err := conn.RouteGet(net.IP(probe.Unmap().AsSlice()))
	if err != nil {
		return nil, fmt.Errorf("couldn't get the route to %s: %w", probe, err)
	}

	if r.Interface == nil {
		return nil, fmt.Errorf("the route to %s has no output interface", probe)
	}

	return r.Interface, nil
}
