package main

import (
	"os"

	"github.com/nimasrn/momo-analyzer/pkg/logger"
)

// envPath returns path if the file exists; a missing .env falls back to the process environment.
func envPath(path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		logger.Warn("env file not found, using environment only", "path", path)
		return ""
	}
	return path
}
