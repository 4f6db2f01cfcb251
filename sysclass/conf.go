package sysclass

import (
	"github.com/goccy/go-yaml"
	"github.com/prometheus/procfs/sysfs"
)

type Config struct {
	MountPoint string `yaml:"mountPoint"`
}

var DefaultConfig = Config{
	MountPoint: sysfs.DefaultMountPoint,
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
