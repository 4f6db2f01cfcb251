package netlink

import (
	"bytes"
	"fmt"

	"github.com/josharian/native"
	"github.com/mdlayher/netlink"
)

const (
	// sizeof(struct nlmsghdr)
	headerLen = 16

	nlmsgAlignTo = 4
)

func nlmsgAlign(n int) int {
	return (n + nlmsgAlignTo - 1) & ^(nlmsgAlignTo - 1)
}

// finalize stamps the header length so it covers the header and the payload.
// It must be called once the payload is final and before MarshalBinary,
// which refuses messages whose length doesn't match.
func finalize(m *netlink.Message) {
	m.Header.Length = uint32(nlmsgAlign(headerLen + len(m.Data)))
}

// parseMessages splits a datagram into its messages. Bounds are checked
// before every access so truncated or corrupt input yields ErrTruncated
// instead of a panic. Message data is copied out of b given the caller
// reuses the receive buffer.
func parseMessages(b []byte) ([]netlink.Message, error) {
	var msgs []netlink.Message

	for len(b) > 0 {
		if len(b) < headerLen {
			return nil, fmt.Errorf("%w: %d trailing bytes can't hold a header", ErrTruncated, len(b))
		}

		l := int(native.Endian.Uint32(b[:4]))
		if l < headerLen || l > len(b) {
			return nil, fmt.Errorf("%w: header claims %d bytes with %d available", ErrTruncated, l, len(b))
		}
		if l != nlmsgAlign(l) {
			return nil, fmt.Errorf("%w: header claims %d bytes, not a multiple of %d", ErrTruncated, l, nlmsgAlignTo)
		}

		var m netlink.Message
		if err := m.UnmarshalBinary(b[:l]); err != nil {
			return nil, fmt.Errorf("couldn't unmarshal message of %d bytes: %w", l, err)
		}
		m.Data = bytes.Clone(m.Data)
		msgs = append(msgs, m)

		b = b[l:]
	}

	return msgs, nil
}

// parseErrno extracts the (negated) errno heading an NLMSG_ERROR payload.
func parseErrno(data []byte) (int32, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("%w: error message carries %d bytes", ErrTruncated, len(data))
	}
	return int32(native.Endian.Uint32(data[:4])), nil
}
