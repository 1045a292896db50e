package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the shared application logger. InitLogger must run at startup;
// packages that log before that still get a usable default.
var Log = logrus.New()

// InitLogger configures the shared logrus instance: JSON to stdout, level
// from LOG_LEVEL (info by default, debug in dev mode).
func InitLogger(dev bool) {
	Log.SetFormatter(&logrus.JSONFormatter{})
	Log.SetOutput(os.Stdout)

	level := logrus.InfoLevel
	if dev {
		level = logrus.DebugLevel
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := logrus.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	Log.SetLevel(level)
}
