package admin

import "time"

// Config holds the admin HTTP surface's configuration settings.
type Config struct {
	Host           string        // Server host address
	Port           int           // Server port
	ReadTimeout    time.Duration // HTTP read timeout
	WriteTimeout   time.Duration // HTTP write timeout
	IdleTimeout    time.Duration // HTTP idle timeout
	MaxRequestSize int64         // Maximum request body size in bytes
	EnableCORS     bool          // Enable CORS middleware
	AllowedOrigins []string      // CORS allowed origins
	EnableLogging  bool          // Enable request logging
	EnableGraphQL  bool          // Enable the read-only GraphQL stats endpoint
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxRequestSize: 1 << 20, // 1MB: this surface takes no document bodies
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		EnableLogging:  true,
		EnableGraphQL:  true,
	}
}
