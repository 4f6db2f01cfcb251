// Package api exposes the interface inventory over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type ApiPlugin struct {
	Config

	server    *echo.Echo
	snapshots Snapshotter
}

func New(c *Config, snapshots Snapshotter) (*ApiPlugin, error) {
	if snapshots == nil {
		return nil, fmt.Errorf("no snapshot source provided")
	}

	conf := DefaultConfig
	if c != nil {
		conf = *c
	}

	return &ApiPlugin{Config: conf, snapshots: snapshots}, nil
}

func (p *ApiPlugin) String() string {
	return "api"
}

func (p *ApiPlugin) Init() error {
	slog.Debug("initialising the api plugin")
	p.server = echo.New()

	// Configure the methods for each path
	p.server.GET("/", handleRoot)
	p.server.GET("/interfaces", handleInterfaces)
	p.server.GET("/interfaces/:name", handleInterface)
	p.server.GET("/addresses", handleAddresses)

	// Prevent the banner from showing up in the log
	p.server.HideBanner = true
	p.server.HidePort = true

	// Configure the middleware for extending the context of the
	// different handlers with the routes and the snapshot source.
	routes := p.server.Routes()
	p.server.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&extendedContext{c, routes, p.snapshots})
		}
	})

	return nil
}

func (p *ApiPlugin) Run(done <-chan struct{}) {
	slog.Debug("running the api plugin")

	go func() {
		if err := p.server.Start(fmt.Sprintf("%s:%d", p.BindAddress, p.BindPort)); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("couldn't start the API server", "err", err)
		}
	}()

	// Simply wait until we're done
	<-done
	slog.Debug("cleanly exiting the api plugin")
}

func (p *ApiPlugin) Cleanup() error {
	slog.Debug("cleaning up the api plugin")
	if err := p.server.Shutdown(context.TODO()); err != nil {
		return fmt.Errorf("error shutting down the API server: %w", err)
	}
	return nil
}
