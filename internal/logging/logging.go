// Package logging builds the logrus loggers shared by the mapping engine
// and the CLI.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to w (stderr when nil). Verbose output
// enables debug lines for schema builds, plan generation and executed SQL.
func New(verbose bool, w io.Writer) *logrus.Logger {
	if w == nil {
		w = os.Stderr
	}

	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// Discard returns an entry that drops everything. Components default to it
// when no logger is supplied.
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

// Component returns an entry tagged with the component name.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	if log == nil {
		return Discard().WithField("component", name)
	}
	return log.WithField("component", name)
}
