// Package fdtlog wires fdt.ErrorSink to logrus, the structured-logging
// library the front ends (fdtdump, fdtserve) use throughout.
package fdtlog

import (
	log "github.com/sirupsen/logrus"
)

// Sink is an fdt.ErrorSink that forwards every diagnostic to a logrus
// entry at warn level, tagged with component="fdt" so parser/serializer
// errors are easy to filter out of a server's general request log.
type Sink struct {
	Entry *log.Entry
}

// New returns a Sink logging through logger, or the package-level
// standard logger if logger is nil.
func New(logger *log.Logger) Sink {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return Sink{Entry: logger.WithField("component", "fdt")}
}

// OnError implements fdt.ErrorSink.
func (s Sink) OnError(message string) {
	s.Entry.Warn(message)
}
