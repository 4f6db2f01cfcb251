package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/scitags/ifprobe-go/inventory"
)

const (
	JSON_PRETTY_INDENT string = "    "
)

// Snapshotter hands out interface snapshots. inventory.Cache implements it.
type Snapshotter interface {
	Get(ctx context.Context) ([]inventory.Interface, error)
}

type rootResponse struct {
	ApiRoutes []*echo.Route
}

type errorResponse struct {
	Error string `json:"error"`
}

type extendedContext struct {
	echo.Context
	apiRoutes []*echo.Route
	snapshots Snapshotter
}
