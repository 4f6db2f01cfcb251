// Package sysclass reads per-interface attributes the kernel exposes under
// /sys/class/net/<iface>/. Lookups are total: whenever an attribute is
// missing, unreadable or malformed callers get a neutral answer (an Unknown
// type, an absent speed) instead of an error, given virtual interfaces
// routinely lack some of these attributes.
package sysclass

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/procfs/sysfs"
	"github.com/scitags/ifprobe-go/types"
)

const (
	netClassPath = "class/net"

	bpsPerMbps = 1_000_000
)

// Reader resolves interface attributes below a sysfs mount point.
type Reader struct {
	Config

	fs sysfs.FS
}

// Details bundles secondary link attributes. Pointers are nil when the
// kernel doesn't report the attribute.
type Details struct {
	MTU          *int64 `structs:"mtu,omitempty" lean:"-"`
	OperState    string `structs:"operState,omitempty" lean:"operState,omitempty"`
	HardwareAddr string `structs:"hardwareAddr,omitempty" lean:"-"`
	Carrier      *int64 `structs:"carrier,omitempty" lean:"-"`
	Duplex       string `structs:"duplex,omitempty" lean:"-"`
}

var defaultReader = &Reader{Config: DefaultConfig}

func NewReader(c *Config) (*Reader, error) {
	conf := DefaultConfig
	if c != nil {
		conf = *c
	}

	fs, err := sysfs.NewFS(conf.MountPoint)
	if err != nil {
		return nil, fmt.Errorf("couldn't open sysfs at %q: %w", conf.MountPoint, err)
	}

	return &Reader{Config: conf, fs: fs}, nil
}

func (r *Reader) String() string {
	return "sysfs reader at " + r.MountPoint
}

// InterfaceType classifies iface from the ARPHRD_* code in its type
// attribute on the default /sys mount.
func InterfaceType(iface string) types.InterfaceType {
	return defaultReader.InterfaceType(iface)
}

// SpeedBps returns the link speed of iface in bits per second as reported
// on the default /sys mount.
func SpeedBps(iface string) (uint64, bool) {
	return defaultReader.SpeedBps(iface)
}

// InterfaceType classifies iface from the ARPHRD_* code in its type
// attribute. Anything short of a valid unsigned 32-bit code yields
// types.Unknown.
func (r *Reader) InterfaceType(iface string) types.InterfaceType {
	raw, ok := r.readAttr(iface, "type")
	if !ok {
		return types.Unknown
	}

	code, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		slog.Debug("couldn't parse the interface type", "iface", iface, "raw", raw, "err", err)
		return types.Unknown
	}

	return types.InterfaceTypeFromCode(uint32(code))
}

// SpeedBps returns the link speed of iface in bits per second. The kernel
// reports Mbps; links without a negotiated speed report -1 (or fail the
// read altogether), in which case the speed is absent.
func (r *Reader) SpeedBps(iface string) (uint64, bool) {
	raw, ok := r.readAttr(iface, "speed")
	if !ok {
		return 0, false
	}

	mbps, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		slog.Debug("couldn't parse the interface speed", "iface", iface, "raw", raw, "err", err)
		return 0, false
	}

	if mbps > math.MaxUint64/bpsPerMbps {
		slog.Debug("interface speed overflows", "iface", iface, "mbps", mbps)
		return 0, false
	}

	return mbps * bpsPerMbps, true
}

// Index returns the interface index of iface as found in its ifindex
// attribute.
func (r *Reader) Index(iface string) (int, bool) {
	raw, ok := r.readAttr(iface, "ifindex")
	if !ok {
		return 0, false
	}

	idx, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || idx <= 0 {
		return 0, false
	}

	return int(idx), true
}

// Interfaces lists the interfaces present under class/net.
func (r *Reader) Interfaces() ([]string, error) {
	ifaces, err := r.fs.NetClassDevices()
	if err != nil {
		return nil, fmt.Errorf("couldn't list the network interfaces: %w", err)
	}
	return ifaces, nil
}

// Details gathers secondary attributes of iface.
func (r *Reader) Details(iface string) (*Details, error) {
	if !validName(iface) {
		return nil, fmt.Errorf("invalid interface name %q", iface)
	}

	nc, err := r.fs.NetClassByIface(iface)
	if err != nil {
		return nil, fmt.Errorf("couldn't read the attributes of %q: %w", iface, err)
	}

	return &Details{
		MTU:          nc.MTU,
		OperState:    nc.OperState,
		HardwareAddr: nc.Address,
		Carrier:      nc.Carrier,
		Duplex:       nc.Duplex,
	}, nil
}

func (r *Reader) readAttr(iface, attr string) (string, bool) {
	if !validName(iface) {
		slog.Debug("refusing to read attribute of invalid interface", "iface", iface, "attr", attr)
		return "", false
	}

	raw, err := os.ReadFile(filepath.Join(r.MountPoint, netClassPath, iface, attr))
	if err != nil {
		slog.Debug("couldn't read interface attribute", "iface", iface, "attr", attr, "err", err)
		return "", false
	}

	return strings.TrimSpace(string(raw)), true
}

// validName rejects names that would make us leave class/net.
func validName(iface string) bool {
	return iface != "" && iface != "." && iface != ".." && !strings.ContainsAny(iface, "/\x00")
}
