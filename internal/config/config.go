// Package config loads service configuration with viper: defaults, then an
// optional config file, then SHAREHUB_* environment variables, then flags
// bound by the caller.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "SHAREHUB"

const (
	MediaLocal  = "local"
	MediaGCS    = "gcs"
	MediaGridFS = "gridfs"
)

// Config holds all configuration for the service.
type Config struct {
	Port     int            `mapstructure:"port"`
	Database DatabaseConfig `mapstructure:"database"`
	Media    MediaConfig    `mapstructure:"media"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Frontend FrontendConfig `mapstructure:"frontend"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

type MediaConfig struct {
	Backend       string `mapstructure:"backend"`
	Dir           string `mapstructure:"dir"`
	PublicURL     string `mapstructure:"public_url"`
	GCSBucket     string `mapstructure:"gcs_bucket"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

// AdminConfig configures the shared-secret gate. An empty password means
// the built-in default.
type AdminConfig struct {
	Password      string `mapstructure:"password"`
	SessionSecret string `mapstructure:"session_secret"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type FrontendConfig struct {
	Dir string `mapstructure:"dir"`
}

// SetDefaults registers every key so environment variables are picked up
// by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.url", "./sharehub.db")
	v.SetDefault("media.backend", MediaLocal)
	v.SetDefault("media.dir", "./media")
	v.SetDefault("media.public_url", "/media")
	v.SetDefault("media.gcs_bucket", "")
	v.SetDefault("media.mongo_uri", "")
	v.SetDefault("media.mongo_database", "sharehub")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.session_secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:*", "http://127.0.0.1:*"})
	v.SetDefault("frontend.dir", "../frontend/dist")
}

// Load reads configuration into a Config. v may carry flags already bound
// by the caller; nil means a fresh instance. configFile is optional.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("sharehub")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Media.Backend = strings.ToLower(strings.TrimSpace(c.Media.Backend))
	origins := c.CORS.AllowedOrigins[:0]
	for _, o := range c.CORS.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORS.AllowedOrigins = origins
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("config: database.url is required")
	}
	switch c.Media.Backend {
	case MediaLocal:
		if strings.TrimSpace(c.Media.Dir) == "" {
			return errors.New("config: media.dir is required for the local backend")
		}
	case MediaGCS:
		if strings.TrimSpace(c.Media.GCSBucket) == "" {
			return errors.New("config: media.gcs_bucket is required for the gcs backend")
		}
	case MediaGridFS:
		if strings.TrimSpace(c.Media.MongoURI) == "" {
			return errors.New("config: media.mongo_uri is required for the gridfs backend")
		}
	default:
		return fmt.Errorf("config: unsupported media.backend %q", c.Media.Backend)
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
