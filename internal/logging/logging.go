// Package logging builds the process's structured logger.
package logging

import "go.uber.org/zap"

// New builds a zap.Logger suitable for the server process: human-
// readable console output in debug mode, JSON production output
// otherwise.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
