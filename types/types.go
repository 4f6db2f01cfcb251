package types

import (
	"strconv"
	"strings"
)

// Family is an address family as carried in rtnetlink headers. The values
// are the linux ones so they can be compared against the kernel's replies
// regardless of the platform we're built on.
type Family uint8

const (
	Unspec Family = 0
	IPv4   Family = 2  // unix.AF_INET on linux
	IPv6   Family = 10 // unix.AF_INET6 on linux
)

var (
	familyMap = map[string]Family{
		"":     Unspec,
		"ALL":  Unspec,
		"IPV4": IPv4,
		"IPV6": IPv6,
	}

	ylimafMap = map[Family]string{
		Unspec: "unspec",
		IPv4:   "ipv4",
		IPv6:   "ipv6",
	}
)

func (f Family) String() string {
	if s, ok := ylimafMap[f]; ok {
		return s
	}
	return "family(" + strconv.Itoa(int(f)) + ")"
}

func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func ParseFamily(family string) (Family, bool) {
	f, ok := familyMap[strings.ToUpper(family)]
	return f, ok
}

// Server is implemented by the long-running components (i.e. the API and
// the exporters) driven by the serve command.
type Server interface {
	Init() error
	Run(<-chan struct{})
	Cleanup() error
	String() string
}
