package pubip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/pion/transport/v3"
)

// The serviceURLs map contains the URLs where HTTP-based discovery services can be
// contacted together with the JSON key where the public IP is expected to be found.
var serviceURLs = map[string]string{
	"https://api64.ipify.org?format=json": "ip",
	"https://ipconfig.io/json":            "ip",
}

// lookupHTTP leverages HTTP-based services allowing us to retrieve our public IPv4 or
// IPv6 address. Connections are bound to local so that the answer matches the address
// being resolved. Every service is tried until one answers.
func lookupHTTP(ctx context.Context, nw transport.Net, services map[string]string, local netip.Addr) (netip.Addr, error) {
	network := "tcp6"
	if local.Unmap().Is4() {
		network = "tcp4"
	}

	dialer := nw.CreateDialer(&net.Dialer{
		LocalAddr: &net.TCPAddr{IP: local.AsSlice(), Zone: local.Zone()},
		Timeout:   5 * time.Second,
	})

	client := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		},
	}}
	defer client.CloseIdleConnections()

	// Let's try every endpoint until one works!
	for url, key := range services {
		slog.Debug("trying to get public IP over HTTP", "url", url, "local", local)

		pIP, err := doRequest(ctx, client, url, key)
		if err != nil {
			slog.Warn("error getting the raw public IP", "url", url, "err", err)
			continue
		}

		return pIP, nil
	}
	return netip.Addr{}, fmt.Errorf("couldn't get public IP address and we exhausted URLs")
}

// Function doRequest simply carries out an HTTP request to an IP discovery service to then
// extract the public IP from the returned payload as a string.
func doRequest(ctx context.Context, client *http.Client, url, key string) (netip.Addr, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return netip.Addr{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return netip.Addr{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("got status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return netip.Addr{}, err
	}

	rawPayload := map[string]interface{}{}
	if err := json.Unmarshal(body, &rawPayload); err != nil {
		return netip.Addr{}, fmt.Errorf("error unmarshaling the payload: %w", err)
	}

	rawIP, ok := rawPayload[key]
	if !ok {
		return netip.Addr{}, fmt.Errorf("key %q not found in rawPayload", key)
	}

	ipStr, ok := rawIP.(string)
	if !ok {
		return netip.Addr{}, fmt.Errorf("raw IP %v could't be cast to a string", rawIP)
	}

	pIP, err := netip.ParseAddr(ipStr)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("couldn't parse the raw IP %q", ipStr)
	}

	return pIP, nil
}
