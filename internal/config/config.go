// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port int
	Host string
	// PublicBaseURL is the externally reachable root of this server,
	// used when issuing public URLs for stored media.
	PublicBaseURL string
}

// DatabaseConfig holds MongoDB connection settings
type DatabaseConfig struct {
	URI  string
	Name string
}

// AuthConfig holds token issuance settings
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// StorageConfig selects and configures the object store backend.
// Backend is "gridfs" (default) or "cloudinary".
type StorageConfig struct {
	Backend       string
	CloudinaryURL string
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	Auth           *AuthConfig
	Storage        *StorageConfig
	AllowedOrigins []string
	Debug          bool
}

// DefaultServerConfig provides default server settings
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:          8080,
		Host:          "0.0.0.0",
		PublicBaseURL: "http://localhost:8080",
	}
}

// DefaultDatabaseConfig provides default database settings
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URI:  "mongodb://127.0.0.1:27017",
		Name: "inkframe",
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env file from multiple possible locations
	envLocations := []string{
		".env",       // Current directory
		"../../.env", // Project root when running from cmd/inkframe
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		// Silent failure if no .env exists, which is fine
		_ = godotenv.Load()
	}

	serverConfig := DefaultServerConfig()

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			serverConfig.Port = port
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		serverConfig.Host = host
	}

	if base := os.Getenv("PUBLIC_BASE_URL"); base != "" {
		serverConfig.PublicBaseURL = strings.TrimRight(base, "/")
	}

	dbConfig := DefaultDatabaseConfig()

	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		dbConfig.URI = uri
	}

	if name := os.Getenv("MONGODB_DATABASE"); name != "" {
		dbConfig.Name = name
	}

	authConfig := &AuthConfig{
		JWTSecret:   os.Getenv("JWT_SECRET"),
		TokenExpiry: 24 * time.Hour,
	}

	if authConfig.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if expiryStr := os.Getenv("TOKEN_EXPIRY"); expiryStr != "" {
		expiry, err := time.ParseDuration(expiryStr)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_EXPIRY value %q: %v", expiryStr, err)
		}
		authConfig.TokenExpiry = expiry
	}

	storageConfig := &StorageConfig{
		Backend:       getEnvOrDefault("STORAGE_BACKEND", "gridfs"),
		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),
	}

	switch storageConfig.Backend {
	case "gridfs":
	case "cloudinary":
		if storageConfig.CloudinaryURL == "" {
			return nil, fmt.Errorf("CLOUDINARY_URL environment variable is required when STORAGE_BACKEND is cloudinary")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", storageConfig.Backend)
	}

	config := &Config{
		Server:         serverConfig,
		Database:       dbConfig,
		Auth:           authConfig,
		Storage:        storageConfig,
		AllowedOrigins: []string{"*"}, // Default to allow all origins
		Debug:          false,
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		config.Debug = true
	}

	return config, nil
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
