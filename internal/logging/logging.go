// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup applies level and format ("json" or "text") to the standard logger.
func Setup(level, format string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	logger := logrus.StandardLogger()
	logger.SetLevel(lvl)
	if out != nil {
		logger.SetOutput(out)
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("logging: unknown format %q", format)
	}
	return nil
}

// Component returns a logger tagged with the emitting component.
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}
