package main

import (
	"fmt"
	"log/slog"

	"github.com/scitags/ifprobe-go/types"
)

func initServers(servers []types.Server) error {
	for _, server := range servers {
		if err := server.Init(); err != nil {
			return fmt.Errorf("error setting up server %s: %w", server, err)
		}
	}
	return nil
}

func cleanupServers(servers []types.Server) {
	for _, server := range servers {
		if err := server.Cleanup(); err != nil {
			slog.Error("error cleaning up server", "server", server, "err", err)
		}
	}
}
