package pubip

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/pion/stun/v3"
	"github.com/pion/transport/v3"
)

// Lookups against a silent server time out after 36 RTOs (8 attempts with
// linear backoff).
var (
	stunRTO         = 100 * time.Millisecond
	stunTimeoutRate = 5 * time.Millisecond
)

func udpNetwork(local netip.Addr) string {
	if local.Unmap().Is4() {
		return "udp4"
	}
	return "udp6"
}

// lookupSTUN sends a binding request to server from local and returns the
// address reported in the XOR-MAPPED-ADDRESS attribute. Servers can be
// given as stun: URIs or as plain host:port pairs.
func lookupSTUN(ctx context.Context, nw transport.Net, server string, local netip.Addr) (netip.Addr, error) {
	if !strings.HasPrefix(server, "stun:") {
		server = "stun:" + server
	}

	u, err := stun.ParseURI(server)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("couldn't parse the STUN uri: %w", err)
	}

	// Dial by hand instead of going through DialURI so that requests leave
	// through the address being resolved.
	network := udpNetwork(local)
	raddr, err := nw.ResolveUDPAddr(network, net.JoinHostPort(u.Host, fmt.Sprint(u.Port)))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("couldn't resolve %s: %w", u.Host, err)
	}

	conn, err := nw.DialUDP(network, &net.UDPAddr{IP: local.AsSlice(), Zone: local.Zone()}, raddr)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to dial: %w", err)
	}

	c, err := stun.NewClient(conn, stun.WithRTO(stunRTO), stun.WithTimeoutRate(stunTimeoutRate))
	if err != nil {
		conn.Close()
		return netip.Addr{}, fmt.Errorf("error creating the client: %w", err)
	}
	defer c.Close()

	// Building binding request with random transaction id.
	message, err := stun.Build(stun.TransactionID, stun.BindingRequest)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error building the request: %w", err)
	}

	res := make(chan stunResult, 1)
	if err := c.Start(message, func(e stun.Event) {
		res <- decodeBinding(e)
	}); err != nil {
		return netip.Addr{}, fmt.Errorf("error making the request: %w", err)
	}

	select {
	case r := <-res:
		if r.err != nil {
			return netip.Addr{}, fmt.Errorf("error in the STUN response: %w", r.err)
		}
		return r.addr, nil
	case <-ctx.Done():
		return netip.Addr{}, ctx.Err()
	}
}

type stunResult struct {
	addr netip.Addr
	err  error
}

// decodeBinding pulls the XOR-MAPPED-ADDRESS out of a binding response. The
// event's message is only valid during the callback.
func decodeBinding(e stun.Event) stunResult {
	if e.Error != nil {
		return stunResult{err: e.Error}
	}

	var xorAddr stun.XORMappedAddress
	if err := xorAddr.GetFrom(e.Message); err != nil {
		return stunResult{err: err}
	}

	ip, ok := netip.AddrFromSlice(xorAddr.IP)
	if !ok {
		return stunResult{err: fmt.Errorf("invalid mapped address %v", xorAddr.IP)}
	}
	return stunResult{addr: ip.Unmap()}
}
