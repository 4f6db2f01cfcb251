//go:build !linux

package route

import (
	"errors"
	"net"
	"net/netip"
)

var DefaultProbe = netip.MustParseAddr("9.9.9.9")

func DefaultInterface(probe netip.Addr) (*net.Interface, error) {
	return nil, errors.New("route lookups are only supported on linux")
}
