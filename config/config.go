package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Placeholder value that marks MONGO_URI as "not configured". Deployment
// templates ship with this literal, so it must select local mode.
const mongoURISentinel = "YOUR_MONGO_URI"

// Config holds the application configuration.
type Config struct {
	// MongoURI selects cloud storage when set to a real connection string.
	// Empty or the placeholder value selects the local file store.
	MongoURI string

	// GeminiAPIKey authenticates calls to the Gemini API.
	GeminiAPIKey string

	// DataDir is where the local file store and the device identity live.
	DataDir string

	// GCSBucket enables receipt image archival when non-empty (cloud mode only).
	GCSBucket string

	// GoogleCredentialsFile optionally points at a service account key for GCS.
	GoogleCredentialsFile string

	// NotionToken and NotionDatabaseID configure the ledger export.
	NotionToken      string
	NotionDatabaseID string

	// Port is the HTTP server listen port.
	Port string
}

// Load reads configuration from a .env file (if present) and the environment.
func Load(log zerolog.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded, using environment variables")
	}

	return &Config{
		MongoURI:              getEnv("MONGO_URI", ""),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		DataDir:               getEnv("DATA_DIR", "./data"),
		GCSBucket:             getEnv("GCS_BUCKET", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		NotionToken:           getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID:      getEnv("NOTION_DATABASE_ID", ""),
		Port:                  getEnv("PORT", "8080"),
	}
}

// CloudMode reports whether a usable document store connection is configured.
// The decision is made once at startup and never revisited.
func (c *Config) CloudMode() bool {
	uri := strings.TrimSpace(c.MongoURI)
	return uri != "" && uri != mongoURISentinel
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}
