package config

import (
	"fmt"
	"strings"
)

// Config holds the full runtime configuration for the node control plane,
// grouped by functional domain.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Endpoint  EndpointConfig  `yaml:"endpoint" json:"endpoint"`
	Pool      PoolConfig      `yaml:"pool" json:"pool"`
	Restart   RestartConfig   `yaml:"restart" json:"restart"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Security  SecurityConfig  `yaml:"security" json:"security"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port string `yaml:"port" json:"port"`
}

// EndpointConfig describes the SOCKS5 endpoint whose reachability and
// credentials this process manages.
type EndpointConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// PoolConfig configures the on-disk credential pool.
type PoolConfig struct {
	PasswordDir string `yaml:"password_dir" json:"password_dir"`
	// DefaultLeaseMinutes is used when a caller does not specify a lease length.
	DefaultLeaseMinutes int `yaml:"default_lease_minutes" json:"default_lease_minutes"`
}

// RestartConfig configures how the proxy service is restarted on pool exhaustion.
type RestartConfig struct {
	// ComposeFiles are tried in order; the first successful restart wins.
	ComposeFiles []string `yaml:"compose_files" json:"compose_files"`
	ServiceName  string   `yaml:"service_name" json:"service_name"`
	// ContainerName is the target of the direct `docker restart` fallback and of
	// the post-restart inspect verification.
	ContainerName string `yaml:"container_name" json:"container_name"`
}

// StorageConfig selects and configures the lease store backend. An empty
// RedisAddr selects the in-memory store.
type StorageConfig struct {
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix" json:"key_prefix"`
}

// SecurityConfig holds debug/logging and management-auth settings.
type SecurityConfig struct {
	Debug bool `yaml:"debug" json:"debug"`
	// LogFile, when set, duplicates log output into the given file.
	LogFile string `yaml:"log_file" json:"log_file"`
	// ManagementKeyHash is a bcrypt hash; when set, API callers must present the
	// matching key. When empty the API is open (trusted-network deployments).
	ManagementKeyHash string `yaml:"management_key_hash" json:"management_key_hash"`
}

// RateLimitConfig bounds request rates on the provisioning API.
type RateLimitConfig struct {
	RPS   int `yaml:"rps" json:"rps"`
	Burst int `yaml:"burst" json:"burst"`
}

// Validate checks invariants that must hold before any work begins.
// A missing endpoint host is a fatal configuration error.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Endpoint.Host) == "" {
		return fmt.Errorf("endpoint host is required (set TPN_ENDPOINT_HOST)")
	}
	if c.Endpoint.Port <= 0 || c.Endpoint.Port > 65535 {
		return fmt.Errorf("endpoint port %d out of range", c.Endpoint.Port)
	}
	if strings.TrimSpace(c.Pool.PasswordDir) == "" {
		return fmt.Errorf("password directory is required")
	}
	return nil
}
