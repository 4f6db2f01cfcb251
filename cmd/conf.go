package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/scitags/ifprobe-go/backends/prometheus"
	"github.com/scitags/ifprobe-go/internal/pubip"
	"github.com/scitags/ifprobe-go/inventory"
	"github.com/scitags/ifprobe-go/netlink"
	"github.com/scitags/ifprobe-go/plugins/api"
	"github.com/scitags/ifprobe-go/sysclass"
)

type Config struct {
	LogLevel string `yaml:"logLevel"`

	Netlink    *netlink.Config    `yaml:"netlink,omitempty"`
	Sysfs      *sysclass.Config   `yaml:"sysfs,omitempty"`
	Inventory  *inventory.Config  `yaml:"inventory,omitempty"`
	Api        *api.Config        `yaml:"api,omitempty"`
	Prometheus *prometheus.Config `yaml:"prometheus,omitempty"`

	PublicAddresses *pubip.Config `yaml:"publicAddresses,omitempty"`
}

func (c Config) String() string {
	m, err := yaml.MarshalWithOptions(c, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return "marshalling error..."
	}
	return string(m)
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := &config{
		LogLevel: "info",
	}

	if err := yaml.Unmarshal(b, def); err != nil {
		return err
	}

	*c = Config(*def)

	return nil
}

// withDefaults fills in the sections the dump and inventory commands always
// need. The server and public address sections are left alone as their
// presence is what enables them.
func (c Config) withDefaults() Config {
	if c.Netlink == nil {
		c.Netlink = &netlink.DefaultConfig
	}
	if c.Sysfs == nil {
		c.Sysfs = &sysclass.DefaultConfig
	}
	if c.Inventory == nil {
		c.Inventory = &inventory.DefaultConfig
	}
	return c
}

func ReadConf(path string) (*Config, error) {
	r, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the configuration file: %w", err)
	}

	conf := Config{}
	if err := yaml.Unmarshal(r, &conf); err != nil {
		return nil, fmt.Errorf("error unmarshaling the configuration: %w", err)
	}

	return &conf, nil
}

// loadConf reads the configuration at path. An empty path yields the
// defaults.
func loadConf(path string) (*Config, error) {
	if path == "" {
		return &Config{LogLevel: "info"}, nil
	}
	return ReadConf(path)
}
