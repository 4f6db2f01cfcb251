//go:build linux

package netlink

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/josharian/native"
	"github.com/mdlayher/netlink"
	"github.com/scitags/ifprobe-go/types"
	"golang.org/x/sys/unix"
)

func init() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time.
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Remove the directory from the source's filename.
			if a.Key == slog.SourceKey {
				source := a.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return a
		},
	}))
	slog.SetDefault(logger)
}

// fakeConn plays the kernel's part. Datagrams produced by respond are queued
// when a request is sent and handed out one per read, honouring MSG_PEEK and
// MSG_TRUNC like a netlink socket does.
type fakeConn struct {
	mu sync.Mutex

	respond func(req netlink.Message) [][]byte
	queue   [][]byte
	sent    []netlink.Message

	short   bool
	sendErr error
	closed  bool
	reads   int
}

func (c *fakeConn) Sendmsg(ctx context.Context, p, oob []byte, to unix.Sockaddr, flags int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendErr != nil {
		return 0, c.sendErr
	}

	if sa, ok := to.(*unix.SockaddrNetlink); !ok || sa.Pid != 0 {
		return 0, unix.EINVAL
	}

	msgs, err := parseMessages(p)
	if err != nil || len(msgs) != 1 {
		return 0, unix.EINVAL
	}
	c.sent = append(c.sent, msgs[0])

	if c.respond != nil {
		c.queue = append(c.queue, c.respond(msgs[0])...)
	}

	if c.short {
		return len(p) - 1, nil
	}
	return len(p), nil
}

func (c *fakeConn) Recvmsg(ctx context.Context, p, oob []byte, flags int) (int, int, int, unix.Sockaddr, error) {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		<-ctx.Done()
		return 0, 0, 0, nil, ctx.Err()
	}

	d := c.queue[0]
	if flags&unix.MSG_PEEK == 0 {
		c.queue = c.queue[1:]
		c.reads++
	}
	c.mu.Unlock()

	n := copy(p, d)
	if flags&unix.MSG_TRUNC != 0 {
		n = len(d)
	}
	return n, 0, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newFakeDumper(c *fakeConn, conf Config) *Dumper {
	return &Dumper{Config: conf, dial: func(*Config) (conn, error) { return c, nil }}
}

func frame(t *testing.T, typ netlink.HeaderType, flags netlink.HeaderFlags, seq uint32, data []byte) []byte {
	t.Helper()
	m := netlink.Message{
		Header: netlink.Header{Type: typ, Flags: flags, Sequence: seq},
		Data:   data,
	}
	finalize(&m)
	b, err := m.MarshalBinary()
	if err != nil {
		t.Fatalf("error marshalling frame: %v", err)
	}
	return b
}

func doneFrame(t *testing.T, seq uint32) []byte {
	return frame(t, netlink.Done, netlink.Multi, seq, make([]byte, 4))
}

func errorFrame(t *testing.T, seq uint32, errno unix.Errno) []byte {
	data := make([]byte, 4+headerLen)
	code := -int32(errno)
	native.Endian.PutUint32(data[:4], uint32(code))
	return frame(t, netlink.Error, 0, seq, data)
}

type addrSpec struct {
	index  uint32
	prefix uint8
	addr   string
	label  string
	flags  uint32
}

func (a addrSpec) want() types.Address {
	ip := netip.MustParseAddr(a.addr)
	f := types.IPv6
	if ip.Is4() {
		f = types.IPv4
	}
	return types.Address{
		Family:       f,
		PrefixLength: a.prefix,
		Flags:        types.AddressFlags(a.flags),
		Index:        a.index,
		Label:        a.label,
		Address:      ip,
		Local:        ip,
	}
}

func addrFrame(t *testing.T, seq uint32, a addrSpec) []byte {
	t.Helper()
	ip := netip.MustParseAddr(a.addr)

	body := make([]byte, unix.SizeofIfAddrmsg)
	body[0] = unix.AF_INET6
	if ip.Is4() {
		body[0] = unix.AF_INET
	}
	body[1] = a.prefix
	native.Endian.PutUint32(body[4:8], a.index)

	ae := netlink.NewAttributeEncoder()
	ae.Bytes(unix.IFA_ADDRESS, ip.AsSlice())
	ae.Bytes(unix.IFA_LOCAL, ip.AsSlice())
	if a.label != "" {
		ae.String(unix.IFA_LABEL, a.label)
	}
	ae.Uint32(unix.IFA_FLAGS, a.flags)
	attrs, err := ae.Encode()
	if err != nil {
		t.Fatalf("error encoding attributes: %v", err)
	}

	return frame(t, unix.RTM_NEWADDR, netlink.Multi, seq, append(body, attrs...))
}

func concat(bs ...[]byte) []byte {
	out := []byte{}
	for _, b := range bs {
		out = append(out, b...)
	}
	return out
}

// netip.Addr carries unexported fields cmp won't look into.
var addrComparer = cmp.Comparer(func(x, y netip.Addr) bool { return x == y })

var (
	lo4  = addrSpec{index: 1, prefix: 8, addr: "127.0.0.1", label: "lo", flags: 0x80}
	eth4 = addrSpec{index: 2, prefix: 24, addr: "192.168.1.10", label: "eth0", flags: 0x80}
	lo6  = addrSpec{index: 1, prefix: 128, addr: "::1", flags: 0x80 | 0x200}
)

func TestDumpRequest(t *testing.T) {
	for _, f := range []types.Family{types.Unspec, types.IPv4, types.IPv6} {
		req, err := newAddressDumpRequest(1, f)
		if err != nil {
			t.Fatalf("%v: error crafting the request: %v", f, err)
		}

		b, err := req.MarshalBinary()
		if err != nil {
			t.Fatalf("%v: error marshalling the request: %v", f, err)
		}

		if int(req.Header.Length) != len(b) || len(b)%4 != 0 {
			t.Errorf("%v: header length %d for a %d byte request", f, req.Header.Length, len(b))
		}

		msgs, err := parseMessages(b)
		if err != nil {
			t.Fatalf("%v: error parsing the request back: %v", f, err)
		}
		if len(msgs) != 1 {
			t.Fatalf("%v: got %d messages, want 1", f, len(msgs))
		}

		got := msgs[0]
		if got.Header.Type != unix.RTM_GETADDR {
			t.Errorf("%v: got type %v, want RTM_GETADDR", f, got.Header.Type)
		}
		if got.Header.Flags != netlink.Request|netlink.Dump {
			t.Errorf("%v: got flags %v, want request|dump", f, got.Header.Flags)
		}
		if got.Header.Sequence != 1 || got.Header.PID != 0 {
			t.Errorf("%v: got seq %d and pid %d", f, got.Header.Sequence, got.Header.PID)
		}
		if len(got.Data) < unix.SizeofIfAddrmsg || got.Data[0] != uint8(f) {
			t.Errorf("%v: unexpected body %v", f, got.Data)
		}
		for i, c := range got.Data[1:unix.SizeofIfAddrmsg] {
			if c != 0 {
				t.Errorf("%v: body byte %d is %d, want 0", f, i+1, c)
			}
		}
	}
}

func TestFinalize(t *testing.T) {
	for dataLen, want := range map[int]uint32{0: 16, 1: 20, 4: 20, 8: 24, 13: 32} {
		m := netlink.Message{Data: make([]byte, dataLen)}
		finalize(&m)
		if m.Header.Length != want {
			t.Errorf("%d bytes of data: got length %d, want %d", dataLen, m.Header.Length, want)
		}
	}
}

func TestParseMessagesTruncated(t *testing.T) {
	valid := doneFrame(t, 1)

	claims := func(l uint32) []byte {
		b := make([]byte, 20)
		native.Endian.PutUint32(b[:4], l)
		return b
	}

	tests := map[string][]byte{
		"short header":     valid[:10],
		"length too large": claims(100),
		"length too small": claims(8),
		"unaligned length": claims(18),
		"trailing garbage": concat(valid, []byte{1, 2, 3}),
		"cut body":         addrFrame(t, 1, eth4)[:30],
	}

	for name, b := range tests {
		msgs, err := parseMessages(b)
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("%s: got %v (%d messages), want ErrTruncated", name, err, len(msgs))
		}
	}

	msgs, err := parseMessages(concat(addrFrame(t, 1, eth4), valid))
	if err != nil {
		t.Fatalf("error parsing valid frames: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Header.Type != netlink.Done {
		t.Errorf("got %+v, want an address and a done message", msgs)
	}
}

func TestWalkSingleDatagram(t *testing.T) {
	fc := &fakeConn{respond: func(req netlink.Message) [][]byte {
		// One datagram: an address followed by the done marker.
		return [][]byte{concat(addrFrame(t, req.Header.Sequence, eth4), doneFrame(t, req.Header.Sequence))}
	}}

	got, err := newFakeDumper(fc, DefaultConfig).ListAddresses(context.Background())
	if err != nil {
		t.Fatalf("error dumping addresses: %v", err)
	}

	if diff := cmp.Diff([]types.Address{eth4.want()}, got, addrComparer); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if len(fc.sent) != 1 {
		t.Errorf("sent %d requests, want 1", len(fc.sent))
	}
	if !fc.isClosed() {
		t.Errorf("socket left open")
	}
}

func TestWalkMultipleDatagrams(t *testing.T) {
	specs := []addrSpec{lo4, eth4, lo6}

	fc := &fakeConn{respond: func(req netlink.Message) [][]byte {
		seq := req.Header.Sequence
		return [][]byte{
			concat(addrFrame(t, seq, lo4), addrFrame(t, seq, eth4)),
			addrFrame(t, seq, lo6),
			doneFrame(t, seq),
		}
	}}

	got, err := newFakeDumper(fc, DefaultConfig).ListAddresses(context.Background())
	if err != nil {
		t.Fatalf("error dumping addresses: %v", err)
	}

	want := []types.Address{}
	for _, s := range specs {
		want = append(want, s.want())
	}
	if diff := cmp.Diff(want, got, addrComparer); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if fc.reads != 3 {
		t.Errorf("got %d reads, want 3", fc.reads)
	}
}

func TestWalkGrowsBuffer(t *testing.T) {
	const n = 200

	fc := &fakeConn{respond: func(req netlink.Message) [][]byte {
		seq := req.Header.Sequence
		big := []byte{}
		for i := 0; i < n; i++ {
			big = append(big, addrFrame(t, seq, eth4)...)
		}
		return [][]byte{big, doneFrame(t, seq)}
	}}

	d := newFakeDumper(fc, DefaultConfig)
	got, err := d.ListAddresses(context.Background())
	if err != nil {
		t.Fatalf("error dumping addresses: %v", err)
	}
	if len(got) != n {
		t.Errorf("got %d addresses, want %d", len(got), n)
	}
}

func TestWalkDropsStaleMessages(t *testing.T) {
	fc := &fakeConn{respond: func(req netlink.Message) [][]byte {
		seq := req.Header.Sequence
		return [][]byte{
			concat(addrFrame(t, seq+41, lo4), doneFrame(t, seq+41)),
			concat(addrFrame(t, seq, eth4), doneFrame(t, seq)),
		}
	}}

	got, err := newFakeDumper(fc, DefaultConfig).ListAddresses(context.Background())
	if err != nil {
		t.Fatalf("error dumping addresses: %v", err)
	}
	if diff := cmp.Diff([]types.Address{eth4.want()}, got, addrComparer); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkStopsEarly(t *testing.T) {
	fc := &fakeConn{respond: func(req netlink.Message) [][]byte {
		seq := req.Header.Sequence
		return [][]byte{concat(addrFrame(t, seq, lo4), addrFrame(t, seq, eth4), doneFrame(t, seq))}
	}}

	n := 0
	err := newFakeDumper(fc, DefaultConfig).WalkAddresses(context.Background(), func(types.Address) bool {
		n++
		return false
	})
	if err != nil {
		t.Fatalf("error walking addresses: %v", err)
	}
	if n != 1 {
		t.Errorf("callback ran %d times, want 1", n)
	}
	if !fc.isClosed() {
		t.Errorf("socket left open")
	}
}

func TestWalkSkipsNoise(t *testing.T) {
	fc := &fakeConn{respond: func(req netlink.Message) [][]byte {
		seq := req.Header.Sequence
		return [][]byte{concat(
			frame(t, netlink.Noop, 0, seq, nil),
			errorFrame(t, seq, 0),
			frame(t, unix.RTM_NEWLINK, netlink.Multi, seq, make([]byte, 16)),
			addrFrame(t, seq, lo6),
			doneFrame(t, seq),
		)}
	}}

	got, err := newFakeDumper(fc, DefaultConfig).ListAddresses(context.Background())
	if err != nil {
		t.Fatalf("error dumping addresses: %v", err)
	}
	if diff := cmp.Diff([]types.Address{lo6.want()}, got, addrComparer); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkErrors(t *testing.T) {
	tests := map[string]struct {
		fc      *fakeConn
		conf    Config
		wantOp  Op
		wantErr error
	}{
		"kernel error": {
			fc: &fakeConn{respond: func(req netlink.Message) [][]byte {
				return [][]byte{errorFrame(t, req.Header.Sequence, unix.EOPNOTSUPP)}
			}},
			conf:    DefaultConfig,
			wantOp:  OpReceive,
			wantErr: unix.EOPNOTSUPP,
		},
		"short write": {
			fc:      &fakeConn{short: true},
			conf:    DefaultConfig,
			wantOp:  OpSend,
			wantErr: ErrShortWrite,
		},
		"send failure": {
			fc:      &fakeConn{sendErr: unix.ENOBUFS},
			conf:    DefaultConfig,
			wantOp:  OpSend,
			wantErr: unix.ENOBUFS,
		},
		"truncated frame": {
			fc: &fakeConn{respond: func(req netlink.Message) [][]byte {
				return [][]byte{addrFrame(t, req.Header.Sequence, eth4)[:20]}
			}},
			conf:    DefaultConfig,
			wantOp:  OpDecode,
			wantErr: ErrTruncated,
		},
		"overrun": {
			fc: &fakeConn{respond: func(req netlink.Message) [][]byte {
				return [][]byte{frame(t, netlink.Overrun, 0, req.Header.Sequence, nil)}
			}},
			conf:    DefaultConfig,
			wantOp:  OpReceive,
			wantErr: ErrOverrun,
		},
		"message limit": {
			fc: &fakeConn{respond: func(req netlink.Message) [][]byte {
				seq := req.Header.Sequence
				return [][]byte{concat(addrFrame(t, seq, lo4), addrFrame(t, seq, eth4), doneFrame(t, seq))}
			}},
			conf:    Config{ReceiveBufferSize: 4096, TimeoutMs: 1000, MaxMessages: 1},
			wantOp:  OpReceive,
			wantErr: ErrMessageLimit,
		},
		"kernel silence": {
			fc:      &fakeConn{},
			conf:    Config{ReceiveBufferSize: 4096, TimeoutMs: 50},
			wantOp:  OpReceive,
			wantErr: context.DeadlineExceeded,
		},
	}

	for name, test := range tests {
		got, err := newFakeDumper(test.fc, test.conf).ListAddresses(context.Background())
		if err == nil {
			t.Errorf("%s: got %v and no error", name, got)
			continue
		}

		var opErr *OpError
		if !errors.As(err, &opErr) {
			t.Errorf("%s: got %T (%v), want *OpError", name, err, err)
			continue
		}
		if opErr.Op != test.wantOp {
			t.Errorf("%s: got op %q, want %q", name, opErr.Op, test.wantOp)
		}
		if !errors.Is(err, test.wantErr) {
			t.Errorf("%s: got %v, want %v", name, err, test.wantErr)
		}
		if !test.fc.isClosed() {
			t.Errorf("%s: socket left open", name)
		}
	}
}

func TestWalkRecordDecodeError(t *testing.T) {
	fc := &fakeConn{respond: func(req netlink.Message) [][]byte {
		seq := req.Header.Sequence
		return [][]byte{concat(frame(t, unix.RTM_NEWADDR, netlink.Multi, seq, make([]byte, 4)), doneFrame(t, seq))}
	}}

	_, err := newFakeDumper(fc, DefaultConfig).ListAddresses(context.Background())

	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != OpDecode {
		t.Errorf("got %v, want a decode error", err)
	}
}

func TestOpenError(t *testing.T) {
	d := &Dumper{Config: DefaultConfig, dial: func(*Config) (conn, error) { return nil, unix.EPERM }}

	err := d.WalkAddresses(context.Background(), func(types.Address) bool { return true })

	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != OpOpen || !errors.Is(err, unix.EPERM) {
		t.Errorf("got %v, want an open error wrapping EPERM", err)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFakeDumper(&fakeConn{}, DefaultConfig).ListAddresses(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestBadConfig(t *testing.T) {
	for _, c := range []Config{
		{Family: "ipx"},
		{TimeoutMs: -1},
		{MaxMessages: -3},
	} {
		if _, err := NewDumper(&c); err == nil {
			t.Errorf("%+v: got no error", c)
		}
	}
}

func TestLiveDump(t *testing.T) {
	d, err := NewDumper(nil)
	if err != nil {
		t.Fatalf("error creating the dumper: %v", err)
	}

	addrs, err := d.ListAddresses(context.Background())
	if err != nil {
		var opErr *OpError
		if errors.As(err, &opErr) && opErr.Op == OpOpen {
			t.Skipf("can't open a routing socket: %v", err)
		}
		t.Fatalf("error dumping addresses: %v", err)
	}

	for _, a := range addrs {
		t.Logf("index %d label %q prefix %s flags %s", a.Index, a.Label, a.Prefix(), a.Flags)
		if a.Family != types.IPv4 && a.Family != types.IPv6 {
			t.Errorf("unexpected family %v", a.Family)
		}
	}
}
