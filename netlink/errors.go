package netlink

import (
	"errors"
	"fmt"
)

// Op names the step of an enumeration that failed.
type Op string

const (
	OpOpen    Op = "open"
	OpSend    Op = "send"
	OpReceive Op = "receive"
	OpDecode  Op = "decode"
)

var (
	// ErrShortWrite signals the kernel accepted fewer bytes than the request holds.
	ErrShortWrite = errors.New("short write on netlink socket")

	// ErrTruncated signals a frame whose header or body doesn't fit in the
	// bytes that were received.
	ErrTruncated = errors.New("truncated netlink message")

	// ErrOverrun signals the kernel dropped messages (NLMSG_OVERRUN).
	ErrOverrun = errors.New("netlink buffer overrun")

	// ErrMessageLimit signals a dump produced more messages than allowed.
	ErrMessageLimit = errors.New("netlink message limit reached")

	// ErrNotSupported is returned on platforms without routing netlink.
	ErrNotSupported = errors.New("netlink is not supported on this platform")

	// ErrClosed is returned when using a Session after calling Close.
	ErrClosed = errors.New("netlink session closed")
)

// OpError is the error returned by every enumeration. Err is either one of
// the sentinels above, a unix.Errno reported by the kernel, a context error
// or the underlying socket error.
type OpError struct {
	Op  Op
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("netlink %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
