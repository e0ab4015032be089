package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported values for Database.Driver.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrMissingJWTSecret is returned by Validate when no signing secret is set.
var ErrMissingJWTSecret = errors.New("auth jwt secret is required")

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr            string
		Port            string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}
	Auth struct {
		JWTSecret  string
		TokenTTL   time.Duration
		BcryptCost int
	}
	Database struct {
		Driver   string
		Path     string
		FilePath string
		DSN      string
		Timeout  time.Duration
	}
	Storage struct {
		Bucket        string
		KeyPrefix     string
		Region        string
		Endpoint      string
		PublicBaseURL string
		MaxImageBytes int
	}
	AWS struct {
		Profile string
	}
	Email struct {
		BrevoAPIKey string
		SenderName  string
		SenderEmail string
		Workers     int
		QueueSize   int
		Timeout     time.Duration
	}
	Log struct {
		Level string
	}
}

// legacyEnv maps config keys to the unprefixed variable names older
// deployments export.
var legacyEnv = map[string]string{
	"server.port":       "PORT",
	"auth.jwtsecret":    "JWT_SECRET",
	"database.dsn":      "DATABASE_URL",
	"email.brevoapikey": "BREVO_API_KEY",
}

// Load reads configuration from environment variables and optional config files.
// A .env file in the working directory is loaded first; it never overrides
// variables that are already set.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("VOTRONIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:10000")
	v.SetDefault("server.port", "")
	v.SetDefault("server.readtimeout", 15*time.Second)
	v.SetDefault("server.writetimeout", 30*time.Second)
	v.SetDefault("server.shutdowntimeout", 10*time.Second)
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", time.Hour)
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/votronix.db")
	v.SetDefault("database.filepath", "data/users.json")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.timeout", 5*time.Second)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "votronix")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicbaseurl", "")
	v.SetDefault("storage.maximagebytes", 10<<20)
	v.SetDefault("aws.profile", "")
	v.SetDefault("email.brevoapikey", "")
	v.SetDefault("email.sendername", "Votronix")
	v.SetDefault("email.senderemail", "no-reply@votronix.com")
	v.SetDefault("email.workers", 2)
	v.SetDefault("email.queuesize", 100)
	v.SetDefault("email.timeout", 10*time.Second)
	v.SetDefault("log.level", "info")

	for key, legacy := range legacyEnv {
		envKey := "VOTRONIX_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Server.Port != "" {
		host, _, err := net.SplitHostPort(cfg.Server.Addr)
		if err != nil {
			host = ""
		}
		cfg.Server.Addr = net.JoinHostPort(host, cfg.Server.Port)
	}

	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	switch c.Database.Driver {
	case DriverMemory, DriverFile, DriverSQLite:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	return nil
}
