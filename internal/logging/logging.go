// Package logging builds the logrus logger used by the sigslot command.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/dshills/sigslot/internal/config"
)

// New creates a logger writing to out with the level and format from cfg.
// With the auto format, out gets colored text when it is a terminal and
// JSON otherwise.
func New(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)

	switch cfg.Format {
	case config.FormatText:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case config.FormatJSON:
		log.SetFormatter(&logrus.JSONFormatter{})
	case config.FormatAuto, "":
		if IsTerminal(out) {
			log.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true})
		} else {
			log.SetFormatter(&logrus.JSONFormatter{})
		}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return log, nil
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// WithComponent returns an entry tagged with the component field.
func WithComponent(log logrus.FieldLogger, component string) *logrus.Entry {
	return log.WithField("component", component)
}
