package types

import (
	"net/netip"
	"strconv"
	"strings"
)

// Address is a single interface address as reported by an RTM_NEWADDR
// message. The struct tags control what gets marshalled for each
// verbosity (see Map).
type Address struct {
	Family       Family       `structs:"family" lean:"family"`
	PrefixLength uint8        `structs:"prefixLength" lean:"prefixLength"`
	Flags        AddressFlags `structs:"flags" lean:"-"`
	Scope        Scope        `structs:"scope" lean:"-"`
	Index        uint32       `structs:"index" lean:"index"`
	Label        string       `structs:"label,omitempty" lean:"-"`
	Address      netip.Addr   `structs:"address,omitnested,omitempty" lean:"address,omitnested,omitempty"`
	Local        netip.Addr   `structs:"local,omitnested,omitempty" lean:"-"`
	Broadcast    netip.Addr   `structs:"broadcast,omitnested,omitempty" lean:"-"`
}

// Addr returns the address identifying the interface. On point-to-point
// links IFA_ADDRESS holds the peer, so IFA_LOCAL takes precedence there.
func (a Address) Addr() netip.Addr {
	if a.Local.IsValid() {
		return a.Local
	}
	return a.Address
}

func (a Address) Prefix() netip.Prefix {
	return netip.PrefixFrom(a.Addr(), int(a.PrefixLength))
}

// Scope mirrors the rtnetlink rt_scope_t values.
type Scope uint8

const (
	ScopeUniverse Scope = 0
	ScopeSite     Scope = 200
	ScopeLink     Scope = 253
	ScopeHost     Scope = 254
	ScopeNowhere  Scope = 255
)

var scopeName = map[Scope]string{
	ScopeUniverse: "global",
	ScopeSite:     "site",
	ScopeLink:     "link",
	ScopeHost:     "host",
	ScopeNowhere:  "nowhere",
}

func (s Scope) String() string {
	if n, ok := scopeName[s]; ok {
		return n
	}
	return strconv.Itoa(int(s))
}

func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AddressFlags holds the IFA_F_* bits of an address.
type AddressFlags uint32

const (
	FlagSecondary      AddressFlags = 0x01
	FlagNoDAD          AddressFlags = 0x02
	FlagOptimistic     AddressFlags = 0x04
	FlagDADFailed      AddressFlags = 0x08
	FlagHomeAddress    AddressFlags = 0x10
	FlagDeprecated     AddressFlags = 0x20
	FlagTentative      AddressFlags = 0x40
	FlagPermanent      AddressFlags = 0x80
	FlagManageTempAddr AddressFlags = 0x100
	FlagNoPrefixRoute  AddressFlags = 0x200
	FlagMCAutoJoin     AddressFlags = 0x400
	FlagStablePrivacy  AddressFlags = 0x800
)

// Ordered as iproute2 prints them.
var addressFlagNames = []struct {
	f AddressFlags
	n string
}{
	{FlagSecondary, "secondary"},
	{FlagNoDAD, "nodad"},
	{FlagOptimistic, "optimistic"},
	{FlagDADFailed, "dadfailed"},
	{FlagHomeAddress, "home"},
	{FlagDeprecated, "deprecated"},
	{FlagTentative, "tentative"},
	{FlagPermanent, "permanent"},
	{FlagManageTempAddr, "mngtmpaddr"},
	{FlagNoPrefixRoute, "noprefixroute"},
	{FlagMCAutoJoin, "autojoin"},
	{FlagStablePrivacy, "stable-privacy"},
}

func (f AddressFlags) Strings() []string {
	names := []string{}
	for _, fn := range addressFlagNames {
		if f&fn.f != 0 {
			names = append(names, fn.n)
		}
	}
	return names
}

func (f AddressFlags) String() string {
	return strings.Join(f.Strings(), ",")
}

func (f AddressFlags) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}
