package server

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// Config holds server configuration
type Config struct {
	DatabaseMode bool
	HTTPAddr     string
	DatabaseURL  string
	Port         int
	SpecFiles    []string
}

// LoadConfig loads configuration from environment variables and command line arguments
func LoadConfig(args []string) (*Config, error) {
	config := &Config{
		HTTPAddr: ":8080",
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.DatabaseMode = true
		config.DatabaseURL = dbURL
		log.Println("Database mode enabled")
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		config.HTTPAddr = addr
	}

	skip := false
	for i, arg := range args {
		if skip {
			skip = false
			continue
		}
		if arg == "--http" && i+1 < len(args) {
			config.HTTPAddr = args[i+1]
			skip = true
			continue
		}
		config.SpecFiles = append(config.SpecFiles, arg)
	}

	if config.HTTPAddr != "" && config.HTTPAddr[0] == ':' {
		if port, err := strconv.Atoi(config.HTTPAddr[1:]); err == nil {
			config.Port = port
		}
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabaseMode && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for database mode")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("no HTTP listen address configured")
	}
	return nil
}

// LogConfiguration logs the current configuration
func (c *Config) LogConfiguration() {
	if c.DatabaseMode {
		log.Println("Running in database mode")
		log.Printf("Database URL: %s", maskSensitive(c.DatabaseURL))
	} else {
		log.Printf("Running in file mode with %d spec files", len(c.SpecFiles))
	}
	log.Printf("HTTP server will start on %s", c.HTTPAddr)
}

// maskSensitive masks sensitive parts of URLs for logging
func maskSensitive(url string) string {
	if len(url) > 20 {
		return url[:8] + "***" + url[len(url)-8:]
	}
	return "***"
}
