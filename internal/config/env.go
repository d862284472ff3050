package config

import (
	"os"
	"strings"
)

func (c *Config) mergeEnvVars() {
	if v := os.Getenv("TPN_ENDPOINT_HOST"); v != "" {
		c.Endpoint.Host = v
	}
	if v := os.Getenv("TPN_ENDPOINT_PORT"); v != "" {
		if port, err := parsePort(v); err == nil {
			c.Endpoint.Port = port
		}
	}
	if v := os.Getenv("TPN_PASSWORD_DIR"); v != "" {
		c.Pool.PasswordDir = v
	}
	if v := os.Getenv("TPN_DEFAULT_LEASE_MINUTES"); v != "" {
		if n, err := parseInt(v); err == nil && n > 0 {
			c.Pool.DefaultLeaseMinutes = n
		}
	}
	if v := os.Getenv("TPN_SERVER_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("TPN_COMPOSE_FILES"); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			c.Restart.ComposeFiles = out
		}
	}
	if v := os.Getenv("TPN_PROXY_SERVICE"); v != "" {
		c.Restart.ServiceName = v
	}
	if v := os.Getenv("TPN_PROXY_CONTAINER"); v != "" {
		c.Restart.ContainerName = v
	}
	if v := os.Getenv("TPN_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("TPN_REDIS_PASSWORD"); v != "" {
		c.Storage.RedisPassword = v
	}
	if v := os.Getenv("TPN_REDIS_DB"); v != "" {
		if n, err := parseInt(v); err == nil {
			c.Storage.RedisDB = n
		}
	}
	if v := os.Getenv("TPN_KEY_PREFIX"); v != "" {
		c.Storage.KeyPrefix = v
	}
	if v := os.Getenv("TPN_MANAGEMENT_KEY_HASH"); v != "" {
		c.Security.ManagementKeyHash = v
	}
	if v := os.Getenv("TPN_LOG_FILE"); v != "" {
		c.Security.LogFile = v
	}
	if v := os.Getenv("TPN_DEBUG"); v != "" {
		c.Security.Debug = parseBool(v)
	}
	if v := os.Getenv("TPN_RATE_RPS"); v != "" {
		if n, err := parseInt(v); err == nil && n > 0 {
			c.RateLimit.RPS = n
		}
	}
	if v := os.Getenv("TPN_RATE_BURST"); v != "" {
		if n, err := parseInt(v); err == nil && n > 0 {
			c.RateLimit.Burst = n
		}
	}
}
