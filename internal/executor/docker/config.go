package docker

import (
	"fmt"
	"time"
)

// Config holds the configuration for running tests inside containers.
type Config struct {
	// Image must provide sh, the MPI launcher and the simulation executable.
	Image string
	// MountDir is bind-mounted into every container at the same path.
	// Test working directories must live below it.
	MountDir string
	// User the test processes run as; empty keeps the image default.
	User string
	// MemoryLimit is the maximum amount of memory a container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs a container can use.
	CPULimit float64
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int
	// AcquireTimeout bounds how long Start waits for an idle container.
	AcquireTimeout time.Duration
}

// DefaultConfig provides defaults for an MPI simulation image.
func DefaultConfig() Config {
	return Config{
		Image: "opensn/opensn:latest",
		// 4 GB, simulations are memory hungry
		MemoryLimit: 4 * 1024 * 1024 * 1024,
		// MPI ranks need real cores
		CPULimit: 4,

		PoolSize:       2,
		AcquireTimeout: 30 * time.Second,
	}
}

func (c Config) validate() error {
	if c.Image == "" {
		return fmt.Errorf("docker: image is required")
	}
	if c.MountDir == "" {
		return fmt.Errorf("docker: mount directory is required")
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("docker: pool size must be at least 1, got %d", c.PoolSize)
	}
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("docker: acquire timeout must be positive, got %s", c.AcquireTimeout)
	}
	return nil
}
