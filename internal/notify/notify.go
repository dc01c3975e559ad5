// Package notify defines the user-facing notification port. The session
// and store layers emit outcome messages through it instead of rendering
// anything themselves.
package notify

import "fintrack/internal/log"

// Notifier receives user-facing outcome messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

// LogNotifier routes notifications to the structured logger. It is the
// default sink when no UI is attached.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier builds a notifier backed by the given logger.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent(log.ComponentNotify)}
}

func (n *LogNotifier) Success(msg string) { n.logger.Info(msg) }
func (n *LogNotifier) Error(msg string)   { n.logger.Error(msg) }
func (n *LogNotifier) Info(msg string)    { n.logger.Info(msg) }

// Discard is a Notifier that drops every message.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}
func (Discard) Info(string)    {}
