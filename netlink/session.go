//go:build linux

package netlink

import (
	"context"
	"log/slog"
	"sync"

	"github.com/scitags/ifprobe-go/types"
)

type sessionRequest struct {
	ctx  context.Context
	fn   func(types.Address) bool
	errc chan error
}

// Session owns a single routing netlink socket and serves enumerations on it
// from a dedicated goroutine. Callers on any goroutine may enumerate
// concurrently: requests are queued and answered one at a time. Each request
// carries its own sequence number so leftovers from a walk that stopped
// early are told apart and dropped.
type Session struct {
	Config

	reqs chan sessionRequest
	quit chan struct{}
	done chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func NewSession(c *Config) (*Session, error) {
	return newSession(c, dialRoute)
}

func newSession(c *Config, dial dialFunc) (*Session, error) {
	conf, err := configOrDefault(c)
	if err != nil {
		return nil, err
	}

	sc, err := dial(&conf)
	if err != nil {
		return nil, &OpError{Op: OpOpen, Err: err}
	}

	s := &Session{
		Config: conf,
		reqs:   make(chan sessionRequest),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run(newExchange(sc, &s.Config))

	return s, nil
}

func (s *Session) String() string {
	return "netlink session"
}

func (s *Session) run(x *exchange) {
	slog.Debug("netlink session started")
	defer close(s.done)
	defer func() {
		s.closeErr = x.c.Close()
		slog.Debug("netlink session stopped", "err", s.closeErr)
	}()

	var seq uint32
	for {
		select {
		case <-s.quit:
			return
		case r := <-s.reqs:
			seq++
			r.errc <- x.walkAddresses(r.ctx, seq, r.fn)
		}
	}
}

// WalkAddresses behaves like Dumper.WalkAddresses but reuses the session's
// socket. Note fn runs on the session's goroutine: calling back into the
// same Session from fn blocks until ctx is done (forever without a deadline).
func (s *Session) WalkAddresses(ctx context.Context, fn func(types.Address) bool) error {
	errc := make(chan error, 1)

	select {
	case s.reqs <- sessionRequest{ctx: ctx, fn: fn, errc: errc}:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return &OpError{Op: OpSend, Err: ctx.Err()}
	}

	return <-errc
}

func (s *Session) ListAddresses(ctx context.Context) ([]types.Address, error) {
	return collect(ctx, s.WalkAddresses)
}

// Close stops the session and closes its socket, waiting for an ongoing
// enumeration to finish. It's safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
	return s.closeErr
}
