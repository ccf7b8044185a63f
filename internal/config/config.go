package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	AWS     AWSConfig
	Uploads UploadsConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port               string        `env:"SERVER_PORT" envDefault:"8080"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"2m"`
	CorsAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

type MongoConfig struct {
	URI      string `env:"MONGODB_URI,required,notEmpty"`
	Database string `env:"MONGODB_DATABASE" envDefault:"car_compare_db"`
}

// RedisConfig is optional. An empty Addr disables the catalog cache.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	CacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"10m"`
}

// AWSConfig is optional. An empty ImageBucket disables car image uploads.
type AWSConfig struct {
	Region      string `env:"AWS_REGION"`
	ImageBucket string `env:"AWS_S3_IMAGE_BUCKET"`
	AccessKey   string `env:"AWS_ACCESS_KEY"`
	SecretKey   string `env:"AWS_SECRET_KEY"`
}

type UploadsConfig struct {
	Dir          string `env:"UPLOAD_DIR" envDefault:"/app/uploads"`
	MaxTotalSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"1073741824"`
}

type LoggingConfig struct {
	CrashDir string `env:"CRASH_LOG_DIR" envDefault:"/app/logs/crash"`
	MaxLogs  int    `env:"CRASH_LOG_LINES" envDefault:"10"`
}

// ImagesEnabled reports whether enough AWS settings are present to store car images
func (c AWSConfig) ImagesEnabled() bool {
	return c.ImageBucket != "" && c.Region != ""
}

// GetConfig loads .env (when present) into the environment and parses it
func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return config, nil
}
