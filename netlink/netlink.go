//go:build linux

package netlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/mdlayher/netlink"
	"github.com/scitags/ifprobe-go/types"
	"golang.org/x/sys/unix"
)

// Dumper enumerates interface addresses opening a fresh socket for each
// enumeration. It's safe for concurrent use.
type Dumper struct {
	Config

	dial dialFunc
	seq  atomic.Uint32
}

func NewDumper(c *Config) (*Dumper, error) {
	conf, err := configOrDefault(c)
	if err != nil {
		return nil, err
	}
	return &Dumper{Config: conf, dial: dialRoute}, nil
}

func (d *Dumper) String() string {
	return "netlink dumper"
}

// WalkAddresses performs an RTM_GETADDR dump calling fn for every address the
// kernel reports, in the order they arrive. Returning false from fn stops the
// walk early without an error. The socket is closed before returning.
func (d *Dumper) WalkAddresses(ctx context.Context, fn func(types.Address) bool) error {
	c, err := d.dial(&d.Config)
	if err != nil {
		return &OpError{Op: OpOpen, Err: err}
	}
	defer func() {
		if err := c.Close(); err != nil {
			slog.Warn("couldn't close the netlink socket", "err", err)
		}
	}()

	return newExchange(c, &d.Config).walkAddresses(ctx, d.seq.Add(1), fn)
}

// ListAddresses collects every address reported by a dump.
func (d *Dumper) ListAddresses(ctx context.Context) ([]types.Address, error) {
	return collect(ctx, d.WalkAddresses)
}

func collect(ctx context.Context, walk func(context.Context, func(types.Address) bool) error) ([]types.Address, error) {
	addrs := []types.Address{}
	if err := walk(ctx, func(a types.Address) bool {
		addrs = append(addrs, a)
		return true
	}); err != nil {
		return nil, err
	}
	return addrs, nil
}

// exchange drives request/response cycles over an already open socket.
type exchange struct {
	c   conn
	buf []byte

	conf *Config
}

func newExchange(c conn, conf *Config) *exchange {
	return &exchange{c: c, buf: make([]byte, conf.bufferSize()), conf: conf}
}

func (x *exchange) walkAddresses(ctx context.Context, seq uint32, fn func(types.Address) bool) error {
	req, err := newAddressDumpRequest(seq, x.conf.family())
	if err != nil {
		return &OpError{Op: OpSend, Err: err}
	}

	return x.dump(ctx, req, func(m netlink.Message) (bool, error) {
		if m.Header.Type != unix.RTM_NEWADDR {
			slog.Debug("skipping unexpected message", "type", m.Header.Type, "seq", m.Header.Sequence)
			return true, nil
		}

		a, err := decodeAddress(m.Data)
		if err != nil {
			return false, &OpError{Op: OpDecode, Err: err}
		}
		slog.Log(ctx, types.LevelTrace, "decoded address", "index", a.Index, "label", a.Label, "prefix", a.Prefix())

		return fn(a), nil
	})
}

// dump sends req and hands every data message belonging to it to fn until
// the kernel signals NLMSG_DONE, fn asks to stop or something fails.
func (x *exchange) dump(ctx context.Context, req netlink.Message, fn func(netlink.Message) (bool, error)) error {
	if t := x.conf.timeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	if err := x.send(ctx, req); err != nil {
		return err
	}

	var (
		seq         = req.Header.Sequence
		nMsgs       = 0
		interrupted = false
	)
	for {
		msgs, err := x.receive(ctx)
		if err != nil {
			return err
		}

		for _, m := range msgs {
			if m.Header.Sequence != seq {
				slog.Debug("dropping stale message", "seq", m.Header.Sequence, "want", seq, "type", m.Header.Type)
				continue
			}

			if m.Header.Flags&netlink.DumpInterrupted != 0 && !interrupted {
				interrupted = true
				slog.Warn("dump was interrupted and may be inconsistent", "seq", seq)
			}

			switch m.Header.Type {
			case netlink.Done:
				slog.Debug("dump done", "seq", seq, "messages", nMsgs)
				return nil
			case netlink.Noop:
				continue
			case netlink.Overrun:
				return &OpError{Op: OpReceive, Err: ErrOverrun}
			case netlink.Error:
				code, err := parseErrno(m.Data)
				if err != nil {
					return &OpError{Op: OpDecode, Err: err}
				}
				// A zero errno is a plain acknowledgement.
				if code == 0 {
					continue
				}
				return &OpError{Op: OpReceive, Err: unix.Errno(-code)}
			}

			nMsgs++
			if x.conf.MaxMessages > 0 && nMsgs > x.conf.MaxMessages {
				return &OpError{Op: OpReceive, Err: fmt.Errorf("%w: more than %d messages", ErrMessageLimit, x.conf.MaxMessages)}
			}

			more, err := fn(m)
			if err != nil {
				return err
			}
			if !more {
				slog.Debug("walk stopped by the caller", "seq", seq, "messages", nMsgs)
				return nil
			}
		}
	}
}

func (x *exchange) send(ctx context.Context, req netlink.Message) error {
	b, err := req.MarshalBinary()
	if err != nil {
		return &OpError{Op: OpSend, Err: fmt.Errorf("couldn't marshal the request: %w", err)}
	}

	n, err := x.c.Sendmsg(ctx, b, nil, kernelAddr, 0)
	if err != nil {
		return &OpError{Op: OpSend, Err: withContext(ctx, err)}
	}
	if n != len(b) {
		return &OpError{Op: OpSend, Err: fmt.Errorf("%w: sent %d of %d bytes", ErrShortWrite, n, len(b))}
	}

	slog.Debug("sent request", "type", req.Header.Type, "flags", req.Header.Flags, "seq", req.Header.Sequence, "len", n)
	return nil
}

// receive reads a single datagram. The datagram is peeked at first so the
// buffer can be grown beforehand; reading straight away would silently
// drop whatever doesn't fit. The buffer is cleared before every read.
func (x *exchange) receive(ctx context.Context) ([]netlink.Message, error) {
	for {
		n, _, _, _, err := x.c.Recvmsg(ctx, x.buf, nil, unix.MSG_PEEK|unix.MSG_TRUNC)
		if err != nil {
			return nil, &OpError{Op: OpReceive, Err: withContext(ctx, err)}
		}
		if n <= len(x.buf) {
			break
		}
		slog.Debug("growing the receive buffer", "from", len(x.buf), "to", nlmsgAlign(n))
		x.buf = make([]byte, nlmsgAlign(n))
	}

	clear(x.buf)
	n, _, _, _, err := x.c.Recvmsg(ctx, x.buf, nil, 0)
	if err != nil {
		return nil, &OpError{Op: OpReceive, Err: withContext(ctx, err)}
	}
	if n == 0 {
		return nil, &OpError{Op: OpDecode, Err: fmt.Errorf("%w: empty datagram", ErrTruncated)}
	}

	msgs, err := parseMessages(x.buf[:n])
	if err != nil {
		return nil, &OpError{Op: OpDecode, Err: err}
	}
	return msgs, nil
}

// withContext makes sure cancellations and expired deadlines can be told
// apart with errors.Is no matter how the socket layer reported them.
func withContext(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
		return fmt.Errorf("%w: %w", cerr, err)
	}
	return err
}
