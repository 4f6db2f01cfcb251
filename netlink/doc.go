// Package netlink enumerates the addresses configured on the host's network
// interfaces by talking to the kernel's routing netlink family directly. Be
// sure to check netlink(7) and rtnetlink(7) for further information on the
// protocol as a whole.
//
// An enumeration is a single RTM_GETADDR request carrying the NLM_F_DUMP
// flag. The kernel answers with as many datagrams as it needs, each holding
// one or more length-prefixed messages, and closes the dump with an
// NLMSG_DONE message. The entry point on the kernel side is
// inet_dump_ifaddr [0] for IPv4 and inet6_dump_ifaddr [1] for IPv6; both are
// driven by the generic dump machinery in netlink_dump [2], which is why a
// single dump can span several recvmsg(2) calls.
//
// Two drivers are provided. A Dumper opens a fresh socket for every
// enumeration and closes it before returning. A Session keeps one socket
// open and serialises enumerations from any number of goroutines onto it,
// which is better suited to servers polling the kernel periodically.
//
// Every enumeration is bounded: the caller's context, the configured
// timeout and an optional cap on the number of messages all abort the
// receive loop. Failures are reported as *OpError values naming the step
// that failed (open, send, receive or decode).
//
// 0: https://elixir.bootlin.com/linux/v6.12.4/source/net/ipv4/devinet.c#L1870
//
// 1: https://elixir.bootlin.com/linux/v6.12.4/source/net/ipv6/addrconf.c#L5400
//
// 2: https://elixir.bootlin.com/linux/v6.12.4/source/net/netlink/af_netlink.c#L2240
package netlink
