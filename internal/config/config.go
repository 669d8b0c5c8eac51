package config

import (
	"fmt"
	"time"
)

// This file defines the configuration structures; loading is handled by
// viper in viper_config.go.

// ServerConfig is the relay server configuration.
type ServerConfig struct {
	Server ServerSettings `yaml:"server"`
}

// ServerSettings contains server-wide settings.
type ServerSettings struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`

	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"` // 0 keeps websockets alive
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// Rate limiting (golang.org/x/time/rate)
	RateLimit      float64 `yaml:"rateLimit"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`

	// Request and frame limits
	MaxRequestSize int64 `yaml:"maxRequestSize"`
	MaxFrameSize   int64 `yaml:"maxFrameSize"` // per websocket message

	// Websocket buffers
	WSReadBufferSize  int `yaml:"wsReadBufferSize"`
	WSWriteBufferSize int `yaml:"wsWriteBufferSize"`

	// Room settings
	RoomCodeLength int `yaml:"roomCodeLength"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: "8080",

			ReadTimeout:     0, // 0 for long-lived websockets
			WriteTimeout:    0,
			IdleTimeout:     0,
			ShutdownTimeout: 30 * time.Second,

			RateLimit:      10,
			RateLimitBurst: 20,

			MaxRequestSize: 1 << 20, // 1MB
			MaxFrameSize:   64 << 10,

			WSReadBufferSize:  1024,
			WSWriteBufferSize: 1024,

			RoomCodeLength: 6,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *ServerConfig) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must be set")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host must be set")
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("rateLimit must be positive")
	}
	if c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("rateLimitBurst must be at least 1")
	}
	if c.Server.MaxRequestSize < 1 {
		return fmt.Errorf("maxRequestSize must be positive")
	}
	if c.Server.MaxFrameSize < 1 {
		return fmt.Errorf("maxFrameSize must be positive")
	}
	if c.Server.RoomCodeLength < 4 {
		return fmt.Errorf("roomCodeLength must be at least 4")
	}
	return nil
}
