package env

import (
	zap "go.uber.org/zap"
)

// MakeLogger builds the production JSON logger. debug lowers the level so
// packet traces are written.
func MakeLogger(debug bool) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logConfig.Encoding = "json"

	return logConfig.Build()
}
