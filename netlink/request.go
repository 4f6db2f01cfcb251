//go:build linux

package netlink

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/jsimonetti/rtnetlink"
	"github.com/mdlayher/netlink"
	"github.com/scitags/ifprobe-go/types"
	"golang.org/x/sys/unix"
)

// newAddressDumpRequest crafts an RTM_GETADDR dump request. The ifaddrmsg
// body is left zeroed but for the family: the kernel ignores every other
// field on non-strict dumps and an unspecified family asks for all of them.
func newAddressDumpRequest(seq uint32, family types.Family) (netlink.Message, error) {
	body := rtnetlink.AddressMessage{Family: uint8(family)}

	data, err := body.MarshalBinary()
	if err != nil {
		return netlink.Message{}, fmt.Errorf("couldn't marshal the ifaddrmsg: %w", err)
	}

	m := netlink.Message{
		Header: netlink.Header{
			Type:     unix.RTM_GETADDR,
			Flags:    netlink.Request | netlink.Dump,
			Sequence: seq,
		},
		Data: data,
	}
	finalize(&m)

	return m, nil
}

// decodeAddress turns an RTM_NEWADDR payload into an Address.
func decodeAddress(data []byte) (types.Address, error) {
	var am rtnetlink.AddressMessage
	if err := am.UnmarshalBinary(data); err != nil {
		return types.Address{}, fmt.Errorf("couldn't unmarshal the address message: %w", err)
	}

	a := types.Address{
		Family:       types.Family(am.Family),
		PrefixLength: am.PrefixLength,
		Flags:        types.AddressFlags(am.Flags),
		Scope:        types.Scope(am.Scope),
		Index:        am.Index,
	}

	if am.Attributes == nil {
		return a, nil
	}

	// IFA_FLAGS supersedes the 8 bits available in the header.
	if am.Attributes.Flags != 0 {
		a.Flags = types.AddressFlags(am.Attributes.Flags)
	}
	a.Label = am.Attributes.Label
	a.Address = toAddr(am.Attributes.Address)
	a.Local = toAddr(am.Attributes.Local)
	a.Broadcast = toAddr(am.Attributes.Broadcast)

	return a, nil
}

func toAddr(ip net.IP) netip.Addr {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}
	}
	return addr
}
