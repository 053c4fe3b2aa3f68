package main

import (
	"os"

	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
)

var (
	logger applog.AppLogger
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if logger != nil {
			logger.Error("Command failed", "err", err)
		}
		os.Exit(1)
	}
}
