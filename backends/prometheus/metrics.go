package prometheus

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/scitags/ifprobe-go/inventory"
	"github.com/scitags/ifprobe-go/types"
)

// Metric labels (note these are **always** strings):
//
//	iface: interface name
//	type: interface type as reported by sysfs (i.e. ethernet, loopback...)
//	index: interface index
//	family: address family (ipv4 or ipv6)
//	class: address class (public, private, link-local or loopback)
//	op: step of the netlink dump that failed, or other
var (
	ifaceLabels = []string{"iface"}
	infoLabels  = []string{"iface", "type", "index"}
	addrLabels  = []string{"iface", "family", "class"}
	errLabels   = []string{"op"}
)

type metrics struct {
	Info         *prometheus.GaugeVec
	Speed        *prometheus.GaugeVec
	Mtu          *prometheus.GaugeVec
	OperUp       *prometheus.GaugeVec
	Addresses    *prometheus.GaugeVec
	DefaultRoute *prometheus.GaugeVec

	Refreshes       prometheus.Counter
	RefreshErrors   *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	LastRefresh     prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		Info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ifprobe_interface_info",
			Help: "Interface metadata; always 1",
		}, infoLabels),
		Speed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ifprobe_interface_speed_bps",
			Help: "Negotiated link speed [bps]",
		}, ifaceLabels),
		Mtu: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ifprobe_interface_mtu_bytes",
			Help: "Interface MTU [B]",
		}, ifaceLabels),
		OperUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ifprobe_interface_oper_up",
			Help: "Whether the interface's operational state is up",
		}, ifaceLabels),
		Addresses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ifprobe_interface_addresses",
			Help: "Number of addresses configured on the interface",
		}, addrLabels),
		DefaultRoute: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ifprobe_interface_default_route",
			Help: "Whether the default route goes through the interface",
		}, ifaceLabels),

		Refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ifprobe_refreshes_total",
			Help: "Number of inventory refreshes attempted",
		}),
		RefreshErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ifprobe_refresh_errors_total",
			Help: "Number of failed inventory refreshes",
		}, errLabels),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ifprobe_refresh_duration_seconds",
			Help:    "Time taken by inventory refreshes [s]",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		LastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ifprobe_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful refresh [s]",
		}),
	}

	return m
}

// (Nastily) use reflection to avoid having to manually register everything.
func (m *metrics) register(req prometheus.Registerer) error {
	v := reflect.ValueOf(*m)

	i := 0
	for i = 0; i < v.NumField(); i++ {
		vv, ok := v.Field(i).Interface().(prometheus.Collector)
		if !ok {
			return fmt.Errorf("error casting the interface for index %d", i)
		}
		if err := req.Register(vv); err != nil {
			return fmt.Errorf("error registering index %d: %w", i, err)
		}
	}
	logger.Log(context.Background(), types.LevelTrace, "registered collectors", "i", i)

	return nil
}

// update replaces the per-interface series so vanished interfaces and
// addresses stop being exported.
func (m *metrics) update(ifaces []inventory.Interface) {
	m.Info.Reset()
	m.Speed.Reset()
	m.Mtu.Reset()
	m.OperUp.Reset()
	m.Addresses.Reset()
	m.DefaultRoute.Reset()

	for _, iface := range ifaces {
		m.Info.WithLabelValues(iface.Name, iface.Type.String(), strconv.Itoa(iface.Index)).Set(1)

		if iface.SpeedBps != nil {
			m.Speed.WithLabelValues(iface.Name).Set(float64(*iface.SpeedBps))
		}

		if iface.Details != nil {
			if iface.Details.MTU != nil {
				m.Mtu.WithLabelValues(iface.Name).Set(float64(*iface.Details.MTU))
			}
			m.OperUp.WithLabelValues(iface.Name).Set(boolToFloat(iface.Details.OperState == "up"))
		}

		for _, a := range iface.Addresses {
			m.Addresses.WithLabelValues(iface.Name, a.Family.String(), types.ClassifyAddr(a.Addr()).String()).Inc()
		}

		m.DefaultRoute.WithLabelValues(iface.Name).Set(boolToFloat(iface.Default))
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
