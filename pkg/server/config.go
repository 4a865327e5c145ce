package server

import "time"

// Config holds server configuration settings.
type Config struct {
	Host string // Server host address
	Port int    // Server port

	Directory        string // Table data directory
	Fanout           int    // Per-level component fanout before merge (R)
	MemtableCapacity int    // Records held before a flush (L)

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64

	EnableCORS     bool
	AllowedOrigins []string
	EnableLogging  bool
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:             "localhost",
		Port:             8080,
		Directory:        "./data",
		Fanout:           10,
		MemtableCapacity: 1000,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     30 * time.Second,
		IdleTimeout:      120 * time.Second,
		MaxRequestSize:   1 * 1024 * 1024,
		EnableCORS:       true,
		AllowedOrigins:   []string{"*"},
		EnableLogging:    true,
	}
}
