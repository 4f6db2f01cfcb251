package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/scitags/ifprobe-go/types"
)

const (
	SpeedKey string = "speedBps"
)

var logLevelMap = map[string]slog.Level{
	"trace": types.LevelTrace,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// logLevel can be changed at runtime (i.e. when the configuration is
// reloaded) without swapping the handler.
var logLevel = new(slog.LevelVar)

func setLogLevel(level string) error {
	if level == "" {
		level = "info"
	}

	l, ok := logLevelMap[strings.ToLower(level)]
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	if logLevel.Level() != l {
		slog.Debug("setting the log level", "level", l)
		logLevel.Set(l)
	}

	return nil
}

func logReplacements(groups []string, a slog.Attr) slog.Attr {
	// Remove time.
	if a.Key == slog.TimeKey && len(groups) == 0 && !logTimeFlag {
		return slog.Attr{}
	}

	// Remove the directory from the source's filename.
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		source.File = filepath.Base(source.File)
	}

	// Add a human readable rendition of link speeds.
	if a.Key == SpeedKey && a.Value.Kind() == slog.KindUint64 {
		bps := a.Value.Uint64()
		return slog.Attr{Key: a.Key, Value: slog.StringValue(fmt.Sprintf("%d(%s)", bps, humanBps(bps)))}
	}

	return a
}

func humanBps(bps uint64) string {
	units := []string{"bps", "Kbps", "Mbps", "Gbps", "Tbps"}

	i, v := 0, float64(bps)
	for v >= 1000 && i < len(units)-1 {
		v /= 1000
		i++
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + units[i]
}
