// Package logging wires the structured logger shared by every component.
package logging

import (
	"go.uber.org/zap"
)

// New builds a production logger for environment != "development", and a
// human-readable development logger otherwise.
func New(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Noop returns a logger that discards everything, for tests and
// components constructed without explicit logging configuration.
func Noop() *zap.Logger {
	return zap.NewNop()
}
