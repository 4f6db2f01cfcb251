package inventory

import (
	"github.com/goccy/go-yaml"
)

type Config struct {
	// DefaultRouteProbe is the destination used to find the default
	// interface. Leave it empty to skip the lookup.
	DefaultRouteProbe string `yaml:"defaultRouteProbe"`
	CacheTTLMs        int    `yaml:"cacheTtlMs"`
	WithDetails       bool   `yaml:"withDetails"`
}

var DefaultConfig = Config{
	DefaultRouteProbe: "9.9.9.9",
	CacheTTLMs:        1000,
	WithDetails:       true,
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
