package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the service logger: JSON to stdout at the configured
// level, falling back to info on an unknown level string.
func NewLogger(cfg LogConfig) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
