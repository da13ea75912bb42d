// Package server exposes the boot ISO builder over HTTP.
package server

import (
	"fmt"
	"os"
	"time"
)

// Config holds server configuration
type Config struct {
	// Listen address
	Address string
	Port    int

	// Timeouts. WriteTimeout is generous because genisoimage runs inside
	// the request.
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{
		Address:         "",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    5 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}

	// Override with environment variables if set
	if addr := os.Getenv("VCTOOLS_API_ADDR"); addr != "" {
		cfg.Address = addr
	}

	if portStr := os.Getenv("VCTOOLS_API_PORT"); portStr != "" {
		var port int
		if _, err := fmt.Sscanf(portStr, "%d", &port); err == nil {
			cfg.Port = port
		}
	}

	return cfg
}
