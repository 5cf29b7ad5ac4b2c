// Package logging wires up the structured logger shared by every
// subsystem, tagging each with a "component" field instead of a bespoke
// per-package prefix.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the root logger. Output is unbuffered text to stderr with
// full timestamps, matching what an operator tailing a long-running
// download expects to see.
func New(level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// For returns a child entry tagged with the given component name, e.g.
// "engine" or "furrentctl".
func For(l *logrus.Logger, component string) *logrus.Entry {
	return l.WithField("component", component)
}
