package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/scitags/ifprobe-go/backends/prometheus"
	"github.com/scitags/ifprobe-go/inventory"
	"github.com/scitags/ifprobe-go/netlink"
	"github.com/scitags/ifprobe-go/plugins/api"
	"github.com/scitags/ifprobe-go/types"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interface inventory over HTTP and Prometheus.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := conf.withDefaults()

		sess, err := netlink.NewSession(c.Netlink)
		if err != nil {
			return fmt.Errorf("couldn't open the netlink session: %w", err)
		}
		defer func() {
			if err := sess.Close(); err != nil {
				slog.Warn("error closing the netlink session", "err", err)
			}
		}()

		col, err := newCollector(c, sess)
		if err != nil {
			return err
		}

		servers, err := createServers(c, col)
		if err != nil {
			return err
		}

		if err := initServers(servers); err != nil {
			return err
		}
		defer cleanupServers(servers)

		done := make(chan struct{})
		for _, server := range servers {
			go server.Run(done)
		}

		if confPath != "" {
			if err := watchConf(confPath, done); err != nil {
				slog.Warn("configuration changes won't be picked up", "err", err)
			}
		}

		slog.Info("serving", "servers", len(servers))

		<-cmd.Context().Done()
		slog.Info("shutting down", "cause", cmd.Context().Err())
		close(done)

		return nil
	},
}

// createServers instantiates the servers enabled in the configuration.
// When none is, the API is started with its defaults.
func createServers(c Config, col *inventory.Collector) ([]types.Server, error) {
	servers := []types.Server{}

	apiConf := c.Api
	if apiConf == nil && c.Prometheus == nil {
		slog.Warn("no server configured, starting the api with its defaults")
		apiConf = &api.DefaultConfig
	}

	if apiConf != nil {
		ttl := time.Duration(c.Inventory.CacheTTLMs) * time.Millisecond
		p, err := api.New(apiConf, inventory.NewCache(col, ttl))
		if err != nil {
			return nil, fmt.Errorf("couldn't create the api: %w", err)
		}
		servers = append(servers, p)
	}

	if c.Prometheus != nil {
		b, err := prometheus.NewPrometheusBackend(c.Prometheus, col)
		if err != nil {
			return nil, fmt.Errorf("couldn't create the prometheus backend: %w", err)
		}
		servers = append(servers, b)
	}

	return servers, nil
}
