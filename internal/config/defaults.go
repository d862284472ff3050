package config

// Defaults returns a configuration pre-filled with the values a bare node uses
// when neither file nor environment overrides them.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "3000",
		},
		Endpoint: EndpointConfig{
			Port: 1080,
		},
		Pool: PoolConfig{
			PasswordDir:         "/passwords",
			DefaultLeaseMinutes: 30,
		},
		Restart: RestartConfig{
			ComposeFiles:  []string{"docker-compose.yml", "docker-compose.ci.yml"},
			ServiceName:   "tpn-proxy",
			ContainerName: "tpn-proxy",
		},
		Storage: StorageConfig{
			KeyPrefix: "tpn:",
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
	}
}
