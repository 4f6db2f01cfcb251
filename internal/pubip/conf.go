package pubip

import (
	"github.com/goccy/go-yaml"
)

type Config struct {
	// ManualMapping pins the public address of local addresses, skipping
	// any lookup. Both keys and values are IP addresses.
	ManualMapping map[string]string `yaml:"manualMapping"`

	StunServers []string `yaml:"stunServers"`

	// UseHTTP enables the HTTP discovery services as a fallback.
	UseHTTP bool `yaml:"useHttp"`

	CacheTTLMs int `yaml:"cacheTtlMs"`
}

var DefaultConfig = Config{
	ManualMapping: nil,

	StunServers: []string{
		"stun.l.google.com:3478",
		"stun1.l.google.com:3478",
		"stun2.l.google.com:3478",
		"stun3.l.google.com:3478",
		"stun4.l.google.com:3478",
	},

	UseHTTP:    true,
	CacheTTLMs: 10 * 60 * 1000,
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
