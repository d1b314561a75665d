package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int

	// JWTSecret signs login credentials. Required to start the server.
	JWTSecret string

	// IDSalt feeds the reversible user-id codec. Changing it invalidates
	// every previously issued external id.
	IDSalt string

	// BotTokens are the shared secrets accepted on the bot facade
	// (X-Token header). BotTokenHashes holds bcrypt digests of tokens,
	// for deployments that do not want plaintext secrets in the env.
	BotTokens      []string
	BotTokenHashes []string

	// FormOwnerCheck restricts form modification to the form's owner.
	// Off by default to match the behavior the frontend relies on.
	FormOwnerCheck bool

	Database DatabaseConfig
	Discord  OauthProviderConfig
	Line     OauthProviderConfig
	Relay    RelayConfig
	Storage  StorageConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type OauthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	APIEndpoint  string
}

// RelayConfig selects the optional cross-instance event relay backend.
// Backend is one of "", "rabbitmq", "pubsub".
type RelayConfig struct {
	Backend  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

// StorageConfig selects the boss-image object storage backend.
// Backend is one of "", "minio", "gcs".
type StorageConfig struct {
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	ProjectID       string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "randosoru"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "randosoru_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	return Config{
		ServerPort:     getEnvInt("SERVER_PORT", 8080),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		IDSalt:         getEnv("ID_SECRET", ""),
		BotTokens:      getEnvList("BOT_TOKENS"),
		BotTokenHashes: getEnvList("BOT_TOKEN_HASHES"),
		FormOwnerCheck: getEnvBool("FORM_OWNER_CHECK", false),
		Database:       dbConfig,
		Discord: OauthProviderConfig{
			ClientID:     getEnv("DISCORD_CLIENT_ID", ""),
			ClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("DISCORD_REDIRECT_URL", ""),
			APIEndpoint:  getEnv("DISCORD_API_ENDPOINT", "https://discordapp.com/api"),
		},
		Line: OauthProviderConfig{
			ClientID:     getEnv("LINE_CLIENT_ID", ""),
			ClientSecret: getEnv("LINE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("LINE_REDIRECT_URL", ""),
			APIEndpoint:  getEnv("LINE_API_ENDPOINT", "https://api.line.me"),
		},
		Relay: RelayConfig{
			Backend: getEnv("RELAY_BACKEND", ""),
			RabbitMQ: RabbitMQConfig{
				URL:             getEnv("RABBITMQ_URL", ""),
				QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", false),
				QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", true),
				PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH_COUNT", 0),
			},
			PubSub: PubSubConfig{
				ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
				CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
				SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
			},
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", ""),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "boss-images"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(valueStr)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			values = append(values, value)
		}
	}
	return values
}
