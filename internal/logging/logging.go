// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/wesleyorama2/loadlab/internal/config"
)

// Configure sets the level, formatter and output of the standard logger.
func Configure(cfg config.LoggingConfig) error {
	return ConfigureTo(cfg, os.Stdout)
}

// ConfigureTo is Configure with an explicit output.
func ConfigureTo(cfg config.LoggingConfig, out io.Writer) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}

	formatter, err := NewFormatter(cfg.Format)
	if err != nil {
		return err
	}

	log.SetLevel(level)
	log.SetFormatter(formatter)
	log.SetOutput(out)
	return nil
}

// NewFormatter returns the logrus formatter for a format name.
func NewFormatter(format string) (log.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &log.TextFormatter{FullTimestamp: true}, nil
	case "json":
		return &log.JSONFormatter{}, nil
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
}
