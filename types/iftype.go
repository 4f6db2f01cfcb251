package types

import (
	"strconv"
	"strings"
)

// InterfaceType is the link-layer kind of a network interface as reported
// by the kernel through /sys/class/net/<iface>/type. Unknown is returned for
// any code we don't know about, so the zero value is always meaningful.
type InterfaceType uint8

const (
	Unknown InterfaceType = iota
	Ethernet
	ExperimentalEthernet
	AX25
	ProNET
	Chaos
	TokenRing
	ARCnet
	AppleTalk
	DLCI
	ATM
	Metricom
	IEEE1394
	EUI64
	InfiniBand
	SLIP
	CAN
	PPP
	HDLC
	LAPB
	Tunnel
	Tunnel6
	FRAD
	Loopback
	LocalTalk
	FDDI
	SIT
	IPGRE
	FibreChannel
	Wireless80211
	Wireless80211Prism
	Wireless80211Radiotap
	IEEE802154
	IEEE802154Monitor
	PhoNet
	CAIF
	IP6GRE
	Netlink
	SixLoWPAN
	VSOCKMon
	None
	Void
)

// All of these codes come from include/uapi/linux/if_arp.h. We keep the raw
// numbers given the ARPHRD_* constants are only defined by x/sys/unix on linux.
var arphrdMap = map[uint32]InterfaceType{
	1:     Ethernet,              // ARPHRD_ETHER
	2:     ExperimentalEthernet,  // ARPHRD_EETHER
	3:     AX25,                  // ARPHRD_AX25
	4:     ProNET,                // ARPHRD_PRONET
	5:     Chaos,                 // ARPHRD_CHAOS
	6:     TokenRing,             // ARPHRD_IEEE802
	7:     ARCnet,                // ARPHRD_ARCNET
	8:     AppleTalk,             // ARPHRD_APPLETLK
	15:    DLCI,                  // ARPHRD_DLCI
	19:    ATM,                   // ARPHRD_ATM
	23:    Metricom,              // ARPHRD_METRICOM
	24:    IEEE1394,              // ARPHRD_IEEE1394
	27:    EUI64,                 // ARPHRD_EUI64
	32:    InfiniBand,            // ARPHRD_INFINIBAND
	256:   SLIP,                  // ARPHRD_SLIP
	257:   SLIP,                  // ARPHRD_CSLIP
	258:   SLIP,                  // ARPHRD_SLIP6
	259:   SLIP,                  // ARPHRD_CSLIP6
	280:   CAN,                   // ARPHRD_CAN
	512:   PPP,                   // ARPHRD_PPP
	513:   HDLC,                  // ARPHRD_CISCO
	516:   LAPB,                  // ARPHRD_LAPB
	768:   Tunnel,                // ARPHRD_TUNNEL
	769:   Tunnel6,               // ARPHRD_TUNNEL6
	770:   FRAD,                  // ARPHRD_FRAD
	772:   Loopback,              // ARPHRD_LOOPBACK
	773:   LocalTalk,             // ARPHRD_LOCALTLK
	774:   FDDI,                  // ARPHRD_FDDI
	776:   SIT,                   // ARPHRD_SIT
	778:   IPGRE,                 // ARPHRD_IPGRE
	784:   FibreChannel,          // ARPHRD_FCPP
	785:   FibreChannel,          // ARPHRD_FCAL
	786:   FibreChannel,          // ARPHRD_FCPL
	787:   FibreChannel,          // ARPHRD_FCFABRIC
	800:   TokenRing,             // ARPHRD_IEEE802_TR
	801:   Wireless80211,         // ARPHRD_IEEE80211
	802:   Wireless80211Prism,    // ARPHRD_IEEE80211_PRISM
	803:   Wireless80211Radiotap, // ARPHRD_IEEE80211_RADIOTAP
	804:   IEEE802154,            // ARPHRD_IEEE802154
	805:   IEEE802154Monitor,     // ARPHRD_IEEE802154_MONITOR
	820:   PhoNet,                // ARPHRD_PHONET
	821:   PhoNet,                // ARPHRD_PHONET_PIPE
	822:   CAIF,                  // ARPHRD_CAIF
	823:   IP6GRE,                // ARPHRD_IP6GRE
	824:   Netlink,               // ARPHRD_NETLINK
	825:   SixLoWPAN,             // ARPHRD_6LOWPAN
	826:   VSOCKMon,              // ARPHRD_VSOCKMON
	65534: None,                  // ARPHRD_NONE
	65535: Void,                  // ARPHRD_VOID
}

var (
	ifTypeName = map[InterfaceType]string{
		Unknown:               "unknown",
		Ethernet:              "ethernet",
		ExperimentalEthernet:  "experimental-ethernet",
		AX25:                  "ax25",
		ProNET:                "pronet",
		Chaos:                 "chaos",
		TokenRing:             "token-ring",
		ARCnet:                "arcnet",
		AppleTalk:             "appletalk",
		DLCI:                  "dlci",
		ATM:                   "atm",
		Metricom:              "metricom",
		IEEE1394:              "ieee1394",
		EUI64:                 "eui64",
		InfiniBand:            "infiniband",
		SLIP:                  "slip",
		CAN:                   "can",
		PPP:                   "ppp",
		HDLC:                  "hdlc",
		LAPB:                  "lapb",
		Tunnel:                "tunnel",
		Tunnel6:               "tunnel6",
		FRAD:                  "frad",
		Loopback:              "loopback",
		LocalTalk:             "localtalk",
		FDDI:                  "fddi",
		SIT:                   "sit",
		IPGRE:                 "ipgre",
		FibreChannel:          "fibre-channel",
		Wireless80211:         "wireless80211",
		Wireless80211Prism:    "wireless80211-prism",
		Wireless80211Radiotap: "wireless80211-radiotap",
		IEEE802154:            "ieee802154",
		IEEE802154Monitor:     "ieee802154-monitor",
		PhoNet:                "phonet",
		CAIF:                  "caif",
		IP6GRE:                "ip6gre",
		Netlink:               "netlink",
		SixLoWPAN:             "6lowpan",
		VSOCKMon:              "vsockmon",
		None:                  "none",
		Void:                  "void",
	}

	ifNameType = func() map[string]InterfaceType {
		m := make(map[string]InterfaceType, len(ifTypeName))
		for t, n := range ifTypeName {
			m[n] = t
		}
		return m
	}()
)

// InterfaceTypeFromCode maps a raw ARPHRD_* code onto an InterfaceType.
// Codes we don't recognise become Unknown.
func InterfaceTypeFromCode(code uint32) InterfaceType {
	if t, ok := arphrdMap[code]; ok {
		return t
	}
	return Unknown
}

func (t InterfaceType) String() string {
	if n, ok := ifTypeName[t]; ok {
		return n
	}
	return "interface-type(" + strconv.Itoa(int(t)) + ")"
}

func (t InterfaceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func ParseInterfaceType(name string) (InterfaceType, bool) {
	t, ok := ifNameType[strings.ToLower(name)]
	return t, ok
}
