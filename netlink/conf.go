package netlink

import (
	"fmt"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/scitags/ifprobe-go/types"
)

// MinReceiveBufferSize is the smallest receive buffer we'll work with. The
// kernel sizes dump datagrams after the page size, so anything smaller
// would just force a reallocation on the first read.
const MinReceiveBufferSize = 4096

type Config struct {
	ReceiveBufferSize int    `yaml:"receiveBufferSize"`
	TimeoutMs         int    `yaml:"timeoutMs"`
	MaxMessages       int    `yaml:"maxMessages"`
	Family            string `yaml:"family"`
	ExtendedAck       bool   `yaml:"extendedAck"`
}

var DefaultConfig = Config{
	ReceiveBufferSize: MinReceiveBufferSize,
	TimeoutMs:         5000,
	MaxMessages:       0,
	Family:            "",
	ExtendedAck:       true,
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := config(DefaultConfig)

	if err := yaml.Unmarshal(b, &def); err != nil {
		return err
	}

	*c = Config(def)

	return nil
}

func (c *Config) validate() error {
	if _, ok := types.ParseFamily(c.Family); !ok {
		return fmt.Errorf("unknown address family %q", c.Family)
	}
	if c.TimeoutMs < 0 {
		return fmt.Errorf("negative timeout %d", c.TimeoutMs)
	}
	if c.MaxMessages < 0 {
		return fmt.Errorf("negative message limit %d", c.MaxMessages)
	}
	return nil
}

func (c *Config) family() types.Family {
	f, _ := types.ParseFamily(c.Family)
	return f
}

func (c *Config) timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c *Config) bufferSize() int {
	return nlmsgAlign(max(c.ReceiveBufferSize, MinReceiveBufferSize))
}

func configOrDefault(c *Config) (Config, error) {
	if c == nil {
		return DefaultConfig, nil
	}
	if err := c.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid netlink configuration: %w", err)
	}
	return *c, nil
}
