package logger

import (
	"errors"

	"go.trai.ch/sweet/internal/core/ports"
)

var _ ports.EventSink = (*Events)(nil)

// Events routes session messages to a Logger, prefixing each with its session.
type Events struct {
	log ports.Logger
}

// NewEvents creates an EventSink writing to log.
func NewEvents(log ports.Logger) *Events {
	return &Events{log: log}
}

// Output logs message at info level.
func (e *Events) Output(session, message string) {
	e.log.Info(prefix(session, message))
}

// Warning logs message at warn level.
func (e *Events) Warning(session, message string) {
	e.log.Warn(prefix(session, message))
}

// Error logs message at error level.
func (e *Events) Error(session, message string) {
	e.log.Error(errors.New(prefix(session, message)))
}

func prefix(session, message string) string {
	if session == "" {
		return message
	}
	return "[" + session + "] " + message
}
