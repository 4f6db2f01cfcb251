package main

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/scitags/ifprobe-go/backends/prometheus"
	"github.com/scitags/ifprobe-go/internal/pubip"
	"github.com/scitags/ifprobe-go/inventory"
	"github.com/scitags/ifprobe-go/netlink"
	"github.com/scitags/ifprobe-go/plugins/api"
	"github.com/scitags/ifprobe-go/sysclass"
)

func TestYAMLAndJSON(t *testing.T) {
	testDir := "testdata/yaml_json"
	d, err := os.ReadDir(testDir)
	if err != nil {
		t.Fatalf("error reading testdata: %v", err)
	}

	confs := []*Config{}
	for _, n := range d {
		c, err := ReadConf(testDir + "/" + n.Name())
		if err != nil {
			t.Fatalf("error parsing %q: %v", n.Name(), err)
		}
		t.Logf("%s:\n%s", n.Name(), c)
		confs = append(confs, c)
	}

	if len(confs) != 2 {
		t.Fatalf("expected two configurations but got %d", len(confs))
	}

	if !cmp.Equal(confs[0], confs[1]) {
		t.Errorf("configurations are not equal: %s", cmp.Diff(confs[0], confs[1]))
	}

	// Omitted keys keep their defaults.
	want := netlink.DefaultConfig
	want.ReceiveBufferSize, want.TimeoutMs, want.Family = 32768, 1000, "ipv6"
	if diff := cmp.Diff(&want, confs[0].Netlink); diff != "" {
		t.Errorf("netlink mismatch (-want +got):\n%s", diff)
	}
}

func TestSections(t *testing.T) {
	tests := map[string]Config{
		"defaults.yaml": {
			LogLevel:   "info",
			Netlink:    &netlink.DefaultConfig,
			Sysfs:      &sysclass.DefaultConfig,
			Inventory:  &inventory.DefaultConfig,
			Api:        &api.DefaultConfig,
			Prometheus: &prometheus.DefaultConfig,

			PublicAddresses: &pubip.DefaultConfig,
		},
		"none.yaml": {
			LogLevel: "warn",
		},
		"populated.yaml": {
			LogLevel: "error",
			Netlink: &netlink.Config{
				ReceiveBufferSize: 65536,
				TimeoutMs:         250,
				MaxMessages:       1024,
				Family:            "ipv4",
				ExtendedAck:       false,
			},
			Sysfs: &sysclass.Config{MountPoint: "/sys"},
			Inventory: &inventory.Config{
				DefaultRouteProbe: "",
				CacheTTLMs:        0,
				WithDetails:       false,
			},
			Api: &api.Config{BindAddress: "0.0.0.0", BindPort: 80},
			Prometheus: &prometheus.Config{
				Log:               false,
				BindAddress:       "0.0.0.0",
				Port:              9842,
				RefreshIntervalMs: 1000,
			},
			PublicAddresses: &pubip.Config{
				ManualMapping: map[string]string{"10.0.0.1": "203.0.113.1"},
				StunServers:   []string{"stun:stun.example.org:3478"},
				UseHTTP:       false,
				CacheTTLMs:    60000,
			},
		},
	}

	for name, want := range tests {
		got, err := ReadConf("testdata/sections/" + name)
		if err != nil {
			t.Fatalf("error parsing %q: %v", name, err)
		}

		t.Logf("\n%s", got)

		if diff := cmp.Diff(&want, got); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	got, err := ReadConf("testdata/sections/none.yaml")
	if err != nil {
		t.Fatalf("error parsing none.yaml: %v", err)
	}

	c := got.withDefaults()
	if c.Netlink == nil || c.Sysfs == nil || c.Inventory == nil {
		t.Errorf("missing defaults: %+v", c)
	}
	if c.Api != nil || c.Prometheus != nil {
		t.Errorf("servers enabled by default: %+v", c)
	}

	if got.Netlink != nil {
		t.Errorf("withDefaults modified the original configuration")
	}
}

func TestMissingConf(t *testing.T) {
	if _, err := ReadConf("testdata/nope.yaml"); err == nil {
		t.Errorf("got no error for a missing file")
	}

	c, err := loadConf("")
	if err != nil {
		t.Fatalf("error loading the default configuration: %v", err)
	}
	if c.LogLevel != "info" {
		t.Errorf("got log level %q, want info", c.LogLevel)
	}
}
