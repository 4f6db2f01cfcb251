//go:build linux

package netlink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mdlayher/socket"
	"golang.org/x/sys/unix"
)

// conn is the subset of *socket.Conn the drivers rely on.
type conn interface {
	Sendmsg(ctx context.Context, p, oob []byte, to unix.Sockaddr, flags int) (int, error)
	Recvmsg(ctx context.Context, p, oob []byte, flags int) (int, int, int, unix.Sockaddr, error)
	Close() error
}

type dialFunc func(c *Config) (conn, error)

// dialRoute opens a NETLINK_ROUTE socket bound to a kernel-assigned port ID.
// The socket is non-blocking under the hood so reads honour contexts and
// deadlines.
func dialRoute(c *Config) (conn, error) {
	sc, err := socket.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_ROUTE, "netlink", nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't open the socket: %w", err)
	}

	if err := sc.Bind(&unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("couldn't bind the socket: %w", err)
	}

	if c.ExtendedAck {
		if err := sc.SetsockoptInt(unix.SOL_NETLINK, unix.NETLINK_EXT_ACK, 1); err != nil {
			slog.Warn("couldn't enable extended acknowledgements", "err", err)
		}
	}

	return sc, nil
}

// kernelAddr is where requests go: port ID 0 is the kernel itself.
var kernelAddr = &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Pid: 0}
