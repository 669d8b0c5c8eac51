package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration using Viper.
// Priority order: environment variables > config file > defaults.
func LoadConfig(configPath string) (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("server")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/mindmatch")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// These allow both MINDMATCH-style dotted keys and the bare names
	// common in container environments.
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")
	v.BindEnv("server.ratelimit", "RATE_LIMIT")
	v.BindEnv("server.ratelimitburst", "RATE_LIMIT_BURST")
	v.BindEnv("server.maxrequestsize", "MAX_REQUEST_SIZE")
	v.BindEnv("server.maxframesize", "MAX_FRAME_SIZE")

	defaults := DefaultConfig().Server
	v.SetDefault("server.host", defaults.Host)
	v.SetDefault("server.port", defaults.Port)
	v.SetDefault("server.readtimeout", defaults.ReadTimeout)
	v.SetDefault("server.writetimeout", defaults.WriteTimeout)
	v.SetDefault("server.idletimeout", defaults.IdleTimeout)
	v.SetDefault("server.shutdowntimeout", defaults.ShutdownTimeout)
	v.SetDefault("server.ratelimit", defaults.RateLimit)
	v.SetDefault("server.ratelimitburst", defaults.RateLimitBurst)
	v.SetDefault("server.maxrequestsize", defaults.MaxRequestSize)
	v.SetDefault("server.maxframesize", defaults.MaxFrameSize)
	v.SetDefault("server.wsreadbuffersize", defaults.WSReadBufferSize)
	v.SetDefault("server.wswritebuffersize", defaults.WSWriteBufferSize)
	v.SetDefault("server.roomcodelength", defaults.RoomCodeLength)

	// The config file is optional; env vars and defaults are enough.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !strings.Contains(err.Error(), "no such file or directory") {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := &ServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
