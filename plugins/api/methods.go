package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/scitags/ifprobe-go/inventory"
	"github.com/scitags/ifprobe-go/types"
)

func handleRoot(c echo.Context) error {
	cc := c.(*extendedContext)
	return c.JSONPretty(http.StatusOK, &rootResponse{
		ApiRoutes: cc.apiRoutes,
	}, JSON_PRETTY_INDENT)
}

func handleInterfaces(c echo.Context) error {
	cc := c.(*extendedContext)

	verbosity, ok := verbosityParam(c)
	if !ok {
		return badRequest(c, "invalid verbosity %q", verbosity)
	}

	ifaces, err := cc.snapshots.Get(c.Request().Context())
	if err != nil {
		return unavailable(c, err)
	}

	return c.JSONPretty(http.StatusOK, types.Maps(ifaces, verbosity), JSON_PRETTY_INDENT)
}

func handleInterface(c echo.Context) error {
	cc := c.(*extendedContext)

	verbosity, ok := verbosityParam(c)
	if !ok {
		return badRequest(c, "invalid verbosity %q", verbosity)
	}

	ifaces, err := cc.snapshots.Get(c.Request().Context())
	if err != nil {
		return unavailable(c, err)
	}

	iface, err := inventory.Lookup(ifaces, c.Param("name"))
	if errors.Is(err, inventory.ErrNotFound) {
		return c.JSONPretty(http.StatusNotFound, &errorResponse{Error: err.Error()}, JSON_PRETTY_INDENT)
	}

	return c.JSONPretty(http.StatusOK, types.Map(iface, verbosity), JSON_PRETTY_INDENT)
}

func handleAddresses(c echo.Context) error {
	cc := c.(*extendedContext)

	verbosity, ok := verbosityParam(c)
	if !ok {
		return badRequest(c, "invalid verbosity %q", verbosity)
	}

	family, ok := types.ParseFamily(c.QueryParam("family"))
	if !ok {
		return badRequest(c, "invalid family %q", c.QueryParam("family"))
	}

	ifaces, err := cc.snapshots.Get(c.Request().Context())
	if err != nil {
		return unavailable(c, err)
	}

	addrs := []types.Address{}
	for _, iface := range ifaces {
		for _, a := range iface.Addresses {
			if family == types.Unspec || a.Family == family {
				addrs = append(addrs, a)
			}
		}
	}

	return c.JSONPretty(http.StatusOK, types.Maps(addrs, verbosity), JSON_PRETTY_INDENT)
}

func verbosityParam(c echo.Context) (string, bool) {
	v := c.QueryParam("verbosity")
	return v, types.ValidVerbosity(v)
}

func badRequest(c echo.Context, format string, args ...any) error {
	return c.JSONPretty(http.StatusBadRequest, &errorResponse{
		Error: fmt.Sprintf(format, args...),
	}, JSON_PRETTY_INDENT)
}

func unavailable(c echo.Context, err error) error {
	slog.Error("couldn't get an interface snapshot", "err", err)
	return c.JSONPretty(http.StatusServiceUnavailable, &errorResponse{Error: err.Error()}, JSON_PRETTY_INDENT)
}
