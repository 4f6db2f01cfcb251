package main

import (
	"fmt"
	"log/slog"

	"github.com/rjeczalik/notify"
)

// watchConf re-applies the log level whenever the configuration file at
// path is written to. The rest of the configuration is only read on start.
func watchConf(path string, done <-chan struct{}) error {
	// A buffered channel guarantees that we don't loose events even
	// if writes take place at the exact same time
	c := make(chan notify.EventInfo, 1)

	if err := notify.Watch(path, c, notify.Write|notify.Remove); err != nil {
		return fmt.Errorf("couldn't watch %q: %w", path, err)
	}

	go func() {
		defer notify.Stop(c)
		for {
			select {
			case e := <-c:
				switch e.Event() {
				case notify.Write:
					reloadLogLevel(path)
				case notify.Remove:
					slog.Warn("the configuration file was removed, no longer watching it", "path", e.Path())
					return
				}
			case <-done:
				slog.Debug("stopped watching the configuration", "path", path)
				return
			}
		}
	}()

	return nil
}

func reloadLogLevel(path string) {
	// The flag always wins.
	if logLevelFlag != "" {
		return
	}

	c, err := ReadConf(path)
	if err != nil {
		slog.Warn("couldn't reload the configuration", "err", err)
		return
	}

	if err := setLogLevel(c.LogLevel); err != nil {
		slog.Warn("couldn't apply the new log level", "err", err)
	}
}
