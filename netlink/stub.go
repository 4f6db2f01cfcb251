//go:build !linux

package netlink

import (
	"context"

	"github.com/scitags/ifprobe-go/types"
)

type Dumper struct {
	Config
}

func NewDumper(c *Config) (*Dumper, error) {
	conf, err := configOrDefault(c)
	if err != nil {
		return nil, err
	}
	return &Dumper{Config: conf}, nil
}

func (d *Dumper) String() string {
	return "netlink dumper"
}

func (d *Dumper) WalkAddresses(ctx context.Context, fn func(types.Address) bool) error {
	return &OpError{Op: OpOpen, Err: ErrNotSupported}
}

func (d *Dumper) ListAddresses(ctx context.Context) ([]types.Address, error) {
	return nil, &OpError{Op: OpOpen, Err: ErrNotSupported}
}

type Session struct {
	Config
}

func NewSession(c *Config) (*Session, error) {
	return nil, &OpError{Op: OpOpen, Err: ErrNotSupported}
}

func (s *Session) String() string {
	return "netlink session"
}

func (s *Session) WalkAddresses(ctx context.Context, fn func(types.Address) bool) error {
	return ErrClosed
}

func (s *Session) ListAddresses(ctx context.Context) ([]types.Address, error) {
	return nil, ErrClosed
}

func (s *Session) Close() error {
	return nil
}
