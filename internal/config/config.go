package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"route_mapper/internal/imagecheck"
)

// Limits bound the aggregate sizes. They are part of the immutable
// configuration rather than scattered package constants.
type Limits struct {
	MaxPointsPerRoute int
	MaxImagesPerPoint int
}

// Config holds all application configuration
type Config struct {
	ServerAddr string
	MediaRoot  string
	LogFile    string

	Policy imagecheck.Policy
	Limits Limits

	AuthEnabled       bool
	AdminEmail        string
	AdminPasswordHash string
}

// Load reads configuration from the environment (with defaults), loading a
// .env file first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found – relying on env vars")
	}

	policy := imagecheck.DefaultPolicy()
	policy.MaxSizeBytes = getEnvAsInt64("MAX_IMAGE_SIZE_BYTES", policy.MaxSizeBytes)
	policy.AllowedExtensions = getEnvAsList("ALLOWED_IMAGE_EXTENSIONS", policy.AllowedExtensions)
	policy.AllowedMIMETypes = getEnvAsList("ALLOWED_MIME_TYPES", policy.AllowedMIMETypes)
	policy.SniffContent = getEnvAsBool("SNIFF_IMAGE_CONTENT", policy.SniffContent)

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0:8080"),
		MediaRoot:  getEnv("MEDIA_ROOT", "./media"),
		LogFile:    getEnv("LOG_FILE", "./logs/app.log"),
		Policy:     policy,
		Limits: Limits{
			MaxPointsPerRoute: getEnvAsInt("MAX_POINTS_PER_ROUTE", 20),
			MaxImagesPerPoint: getEnvAsInt("MAX_IMAGES_PER_POINT", 4),
		},
		AuthEnabled:       getEnvAsBool("AUTH_ENABLED", false),
		AdminEmail:        getEnv("ADMIN_EMAIL", "admin@localhost"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
	}
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("invalid int for %s: %q, using default %d", key, v, defaultValue)
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if v, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		log.Printf("invalid int for %s: %q, using default %d", key, v, defaultValue)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("invalid bool for %s: %q, using default %t", key, v, defaultValue)
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
