package pubip

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/pion/stun/v3"
	"github.com/pion/transport/v3/stdnet"
)

// startSTUNServer answers binding requests with mapped or, when nil, with
// the request's source address. Requests are dropped when silent is set.
func startSTUNServer(t *testing.T, mapped net.IP, silent bool) string {
	t.Helper()

	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("error listening: %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	go func() {
		buf := make([]byte, 1500)
		for {
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			if silent {
				continue
			}

			req := &stun.Message{Raw: append([]byte{}, buf[:n]...)}
			if err := req.Decode(); err != nil {
				t.Logf("error decoding the request: %v", err)
				continue
			}

			src := addr.(*net.UDPAddr)
			ip := mapped
			if ip == nil {
				ip = src.IP
			}

			resp, err := stun.Build(
				stun.NewTransactionIDSetter(req.TransactionID),
				stun.BindingSuccess,
				&stun.XORMappedAddress{IP: ip, Port: src.Port},
				stun.Fingerprint,
			)
			if err != nil {
				t.Logf("error building the response: %v", err)
				continue
			}

			if _, err := pc.WriteTo(resp.Raw, addr); err != nil {
				return
			}
		}
	}()

	return pc.LocalAddr().String()
}

func TestLookupSTUN(t *testing.T) {
	nw, err := stdnet.NewNet()
	if err != nil {
		t.Fatalf("error creating the network: %v", err)
	}

	local := netip.MustParseAddr("127.0.0.1")

	tests := []struct {
		name   string
		mapped net.IP
		want   netip.Addr
	}{
		{"reflected", nil, local},
		{"mapped", net.ParseIP("203.0.113.77"), netip.MustParseAddr("203.0.113.77")},
	}

	for _, test := range tests {
		server := startSTUNServer(t, test.mapped, false)

		for _, s := range []string{server, "stun:" + server} {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			got, err := lookupSTUN(ctx, nw, s, local)
			cancel()

			if err != nil {
				t.Errorf("%s (%s): %v", test.name, s, err)
				continue
			}
			if got != test.want {
				t.Errorf("%s (%s): got %s, want %s", test.name, s, got, test.want)
			}
		}
	}
}

func TestLookupSTUNCancelled(t *testing.T) {
	nw, err := stdnet.NewNet()
	if err != nil {
		t.Fatalf("error creating the network: %v", err)
	}

	server := startSTUNServer(t, nil, true)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := lookupSTUN(ctx, nw, server, netip.MustParseAddr("127.0.0.1")); err != context.DeadlineExceeded {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("lookup took %v despite the deadline", elapsed)
	}
}

func TestLookupSTUNSilent(t *testing.T) {
	nw, err := stdnet.NewNet()
	if err != nil {
		t.Fatalf("error creating the network: %v", err)
	}

	rto := stunRTO
	stunRTO = 5 * time.Millisecond
	t.Cleanup(func() { stunRTO = rto })

	server := startSTUNServer(t, nil, true)

	start := time.Now()
	_, err = lookupSTUN(context.Background(), nw, server, netip.MustParseAddr("127.0.0.1"))
	if !errors.Is(err, stun.ErrTransactionTimeOut) {
		t.Errorf("got %v, want %v", err, stun.ErrTransactionTimeOut)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("lookup took %v to time out", elapsed)
	}
}

func TestLookupSTUNBadServer(t *testing.T) {
	nw, err := stdnet.NewNet()
	if err != nil {
		t.Fatalf("error creating the network: %v", err)
	}

	if _, err := lookupSTUN(context.Background(), nw, "turn:[::1", netip.MustParseAddr("127.0.0.1")); err == nil {
		t.Errorf("got no error for a bogus server")
	}
}
