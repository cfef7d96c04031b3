// Package config holds the service runtime's tunables: host/port,
// keepalive interval, and the opportunistic GC threshold (spec.md §4.6,
// §9). It is loaded from YAML the same way the teacher loads a
// project's settings (internal/daemon/project.go uses gopkg.in/yaml.v3
// against a project.yaml); here it is optional, since an embedder
// normally just constructs a ServiceConfig with Defaults() and
// overrides a field or two.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig holds everything the service runtime needs besides the
// socket itself.
type ServiceConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// KeepaliveInterval is how often the keepalive activity enqueues a
	// KEEP_ALIVE message (spec.md §4.6). The source's default is 30s;
	// servers have been observed to be sensitive to higher rates.
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`

	// GraphGCThreshold is the node count at which the receive loop
	// opportunistically runs Graph.GC between DATA_UPDATE batches
	// (spec.md §9). Zero disables GC entirely.
	GraphGCThreshold int `yaml:"graph_gc_threshold"`

	// YieldEvery is how many records the DATA_UPDATE decoder applies
	// before yielding to the send loop (spec.md §4.6: "after every
	// N=100 records, yield").
	YieldEvery int `yaml:"yield_every"`

	// SendQueueCapacity bounds the outbound send queue (spec.md §5:
	// "an implementation SHOULD cap it and apply bounded-blocking put").
	// Zero selects the default capacity of 256; the queue is never
	// unbounded.
	SendQueueCapacity int `yaml:"send_queue_capacity"`

	Discovery DiscoveryConfig `yaml:"discovery"`
}

// DiscoveryConfig configures the UDP broadcast accessory (spec.md §6.2).
type DiscoveryConfig struct {
	Port      int           `yaml:"port"`
	Repeats   int           `yaml:"repeats"`
	Timeout   time.Duration `yaml:"timeout"`
	AllowBusy bool          `yaml:"allow_busy"`
}

// DefaultPort is the TCP port the companion-app server listens on
// (spec.md §6.1).
const DefaultPort = 27000

// DefaultDiscoveryPort is the UDP broadcast port for autodiscovery
// (spec.md §6.2).
const DefaultDiscoveryPort = 28000

// Defaults returns a ServiceConfig with the values the source protocol
// and its design notes recommend.
func Defaults() ServiceConfig {
	return ServiceConfig{
		Port:              DefaultPort,
		KeepaliveInterval: 30 * time.Second,
		GraphGCThreshold:  4096,
		YieldEvery:        100,
		Discovery: DiscoveryConfig{
			Port:    DefaultDiscoveryPort,
			Repeats: 5,
			Timeout: 1 * time.Second,
		},
	}
}

// Load reads a ServiceConfig from a YAML file, applying Defaults() for
// any field the file does not set.
func Load(path string) (ServiceConfig, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return ServiceConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ServiceConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
