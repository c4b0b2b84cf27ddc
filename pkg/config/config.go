package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Encryption   EncryptionConfig
	Tokens       TokenConfig
	Certificates CertificateConfig
	Courses      CourseConfig
	Exports      ExportConfig
	CORS         CORSConfig
	Log          LogConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// EncryptionConfig carries the key material for at-rest field encryption.
// Both values are mandatory; the process must refuse to start without them.
type EncryptionConfig struct {
	Key  string
	Salt string
}

// TokenConfig sets lifetimes for the two confirmation token kinds.
type TokenConfig struct {
	RegistrationTTL time.Duration
	ElevationTTL    time.Duration
}

// CertificateConfig holds the static strings printed on every certificate.
type CertificateConfig struct {
	Issuer     string
	SignerName string
	Copyright  string
}

// CourseConfig tunes the read-side course catalogue.
type CourseConfig struct {
	CacheTTL time.Duration
}

// ExportConfig tunes asynchronous report exports.
type ExportConfig struct {
	Dir       string
	ResultTTL time.Duration
	Workers   int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Encryption = EncryptionConfig{
		Key:  v.GetString("ENCRYPTION_KEY"),
		Salt: v.GetString("ENCRYPTION_SALT"),
	}

	cfg.Tokens = TokenConfig{
		RegistrationTTL: parseDuration(v.GetString("REGISTRATION_TOKEN_TTL"), 24*time.Hour),
		ElevationTTL:    parseDuration(v.GetString("ELEVATION_TOKEN_TTL"), time.Hour),
	}

	cfg.Certificates = CertificateConfig{
		Issuer:     v.GetString("CERTIFICATE_ISSUER"),
		SignerName: v.GetString("CERTIFICATE_SIGNER_NAME"),
		Copyright:  v.GetString("CERTIFICATE_COPYRIGHT"),
	}

	cfg.Courses = CourseConfig{
		CacheTTL: parseDuration(v.GetString("COURSE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Exports = ExportConfig{
		Dir:       v.GetString("EXPORT_DIR"),
		ResultTTL: parseDuration(v.GetString("EXPORT_RESULT_TTL"), 24*time.Hour),
		Workers:   v.GetInt("EXPORT_WORKERS"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations that must never reach runtime. Missing
// encryption material is a startup error, not something to discover on the
// first encrypt call.
func (c *Config) Validate() error {
	if c.Encryption.Key == "" {
		return fmt.Errorf("config: ENCRYPTION_KEY is required")
	}
	if c.Encryption.Salt == "" {
		return fmt.Errorf("config: ENCRYPTION_SALT is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "course_enroll")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "course-enroll-api")

	v.SetDefault("REGISTRATION_TOKEN_TTL", "24h")
	v.SetDefault("ELEVATION_TOKEN_TTL", "1h")

	v.SetDefault("CERTIFICATE_ISSUER", "Course Enrollment Academy")
	v.SetDefault("CERTIFICATE_SIGNER_NAME", "Programme Director")
	v.SetDefault("CERTIFICATE_COPYRIGHT", "Course Enrollment Academy. All rights reserved.")

	v.SetDefault("COURSE_CACHE_TTL", "10m")

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_RESULT_TTL", "24h")
	v.SetDefault("EXPORT_WORKERS", 2)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
