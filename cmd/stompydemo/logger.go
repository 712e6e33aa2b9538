package main

import "go.uber.org/zap"

// makeLogger builds the structured JSON logger every other component in
// this demo writes through.
func makeLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.Encoding = "json"
	return cfg.Build()
}
