package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Content backends selectable with CONTENT_BACKEND.
const (
	BackendFile   = "file"
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Content    ContentConfig
	MongoDB    MongoDBConfig
	Redis      RedisConfig
	Revalidate RevalidateConfig
	MinIO      MinIOConfig
	Keycloak   KeycloakConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level string
}

type ContentConfig struct {
	Backend    string
	FilePath   string
	SQLitePath string
	Collection string
	MaxDepth   int
	CacheTTL   time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type RevalidateConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
	Channel string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
}

type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

// SetDefaults registers defaults and env bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5020")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CONTENT_BACKEND", BackendFile)
	v.SetDefault("CONTENT_FILE", "data/content.json")
	v.SetDefault("CONTENT_SQLITE_PATH", "data/content.db")
	v.SetDefault("CONTENT_COLLECTION", "content")
	v.SetDefault("CONTENT_MAX_DEPTH", 25)
	v.SetDefault("CONTENT_CACHE_TTL_SECONDS", 60)
	v.SetDefault("MONGODB_DATABASE", "gogotex")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REVALIDATE_TIMEOUT_SECONDS", 5)
	v.SetDefault("REVALIDATE_CHANNEL", "content:revalidate")
	v.SetDefault("MINIO_BUCKET", "content-snapshots")
	v.SetDefault("JWT_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("RATE_LIMIT_RPS", 2)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	v := viper.GetViper()
	SetDefaults(v)
	return Load(v)
}

// Load builds a Config from an already populated viper instance.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{Level: v.GetString("LOG_LEVEL")},
		Content: ContentConfig{
			Backend:    strings.ToLower(strings.TrimSpace(v.GetString("CONTENT_BACKEND"))),
			FilePath:   v.GetString("CONTENT_FILE"),
			SQLitePath: v.GetString("CONTENT_SQLITE_PATH"),
			Collection: v.GetString("CONTENT_COLLECTION"),
			MaxDepth:   v.GetInt("CONTENT_MAX_DEPTH"),
			CacheTTL:   time.Duration(v.GetInt("CONTENT_CACHE_TTL_SECONDS")) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Revalidate: RevalidateConfig{
			URL:     v.GetString("REVALIDATE_URL"),
			Secret:  os.Getenv("REVALIDATE_SECRET"),
			Timeout: time.Duration(v.GetInt("REVALIDATE_TIMEOUT_SECONDS")) * time.Second,
			Channel: v.GetString("REVALIDATE_CHANNEL"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		Keycloak: KeycloakConfig{
			URL:      v.GetString("KEYCLOAK_URL"),
			Realm:    v.GetString("KEYCLOAK_REALM"),
			ClientID: v.GetString("KEYCLOAK_CLIENT_ID"),
		},
		JWT: JWTConfig{
			Secret:   os.Getenv("JWT_SECRET"),
			TokenTTL: time.Duration(v.GetInt("JWT_TOKEN_TTL_MINUTES")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Content.Backend {
	case BackendFile:
		if strings.TrimSpace(c.Content.FilePath) == "" {
			return fmt.Errorf("CONTENT_FILE is required for the file backend")
		}
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Content.SQLitePath) == "" {
			return fmt.Errorf("CONTENT_SQLITE_PATH is required for the sqlite backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown CONTENT_BACKEND %q (want file, mongo, sqlite or memory)", c.Content.Backend)
	}
	if c.Content.MaxDepth < 1 {
		return fmt.Errorf("CONTENT_MAX_DEPTH must be positive, got %d", c.Content.MaxDepth)
	}
	return nil
}
