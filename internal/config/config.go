package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/lazysauce/collector/internal/store"
)

const envPrefix = "LAZYSAUCE"

type Config struct {
	Port string

	DBDriver          string
	DataDir           string
	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DirectoryDB       string
	DirectoryPoolSize int
	ShardPoolSize     int
	QueryTimeout      time.Duration

	CacheSize int

	GeoIPPath     string
	IPStackAPIKey string
	IPStackURL    string
	GeoTimeout    time.Duration

	DatacenterCheck bool

	CheckpointBuffer int
	CheckpointFlush  time.Duration

	RateRPS   float64
	RateBurst int

	CORSOrigins []string

	LogMode string
	LogDir  string
	LogFile string
}

// Load reads configuration from the environment, after merging an optional
// .env file from the working directory. Every key carries the LAZYSAUCE_ prefix.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DIRECTORY_DB", "lazysauce")
	v.SetDefault("DIRECTORY_POOL_SIZE", 10)
	v.SetDefault("SHARD_POOL_SIZE", 5)
	v.SetDefault("QUERY_TIMEOUT", 5*time.Second)
	v.SetDefault("CACHE_SIZE", 10000)
	v.SetDefault("GEOIP_PATH", "")
	v.SetDefault("IPSTACK_API_KEY", "")
	v.SetDefault("IPSTACK_URL", "http://api.ipstack.com")
	v.SetDefault("GEO_TIMEOUT", 3*time.Second)
	v.SetDefault("DATACENTER_CHECK", false)
	v.SetDefault("CHECKPOINT_BUFFER", 10000)
	v.SetDefault("CHECKPOINT_FLUSH", 2*time.Second)
	v.SetDefault("RATE_RPS", 0)
	v.SetDefault("RATE_BURST", 20)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_MODE", "release")
	v.SetDefault("LOG_DIR", "./logs")
	v.SetDefault("LOG_FILE", "collector.log")

	cfg := &Config{
		Port:              v.GetString("PORT"),
		DBDriver:          strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
		DataDir:           v.GetString("DATA_DIR"),
		DBHost:            v.GetString("DB_HOST"),
		DBPort:            v.GetInt("DB_PORT"),
		DBUser:            v.GetString("DB_USER"),
		DBPassword:        v.GetString("DB_PASSWORD"),
		DirectoryDB:       v.GetString("DIRECTORY_DB"),
		DirectoryPoolSize: v.GetInt("DIRECTORY_POOL_SIZE"),
		ShardPoolSize:     v.GetInt("SHARD_POOL_SIZE"),
		QueryTimeout:      v.GetDuration("QUERY_TIMEOUT"),
		CacheSize:         v.GetInt("CACHE_SIZE"),
		GeoIPPath:         v.GetString("GEOIP_PATH"),
		IPStackAPIKey:     v.GetString("IPSTACK_API_KEY"),
		IPStackURL:        strings.TrimRight(v.GetString("IPSTACK_URL"), "/"),
		GeoTimeout:        v.GetDuration("GEO_TIMEOUT"),
		DatacenterCheck:   v.GetBool("DATACENTER_CHECK"),
		CheckpointBuffer:  v.GetInt("CHECKPOINT_BUFFER"),
		CheckpointFlush:   v.GetDuration("CHECKPOINT_FLUSH"),
		RateRPS:           v.GetFloat64("RATE_RPS"),
		RateBurst:         v.GetInt("RATE_BURST"),
		CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
		LogMode:           v.GetString("LOG_MODE"),
		LogDir:            v.GetString("LOG_DIR"),
		LogFile:           v.GetString("LOG_FILE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBDriver != "sqlite" && c.DBDriver != "mysql" {
		return fmt.Errorf("%s_DB_DRIVER must be sqlite or mysql, got %q", envPrefix, c.DBDriver)
	}
	if c.DBHost == "" {
		return fmt.Errorf("%s_DB_HOST is required", envPrefix)
	}
	if c.DirectoryDB == "" {
		return fmt.Errorf("%s_DIRECTORY_DB is required", envPrefix)
	}
	positive := []struct {
		key string
		val int64
	}{
		{"DIRECTORY_POOL_SIZE", int64(c.DirectoryPoolSize)},
		{"SHARD_POOL_SIZE", int64(c.ShardPoolSize)},
		{"QUERY_TIMEOUT", int64(c.QueryTimeout)},
		{"CACHE_SIZE", int64(c.CacheSize)},
		{"GEO_TIMEOUT", int64(c.GeoTimeout)},
		{"CHECKPOINT_BUFFER", int64(c.CheckpointBuffer)},
		{"CHECKPOINT_FLUSH", int64(c.CheckpointFlush)},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return fmt.Errorf("%s_%s must be positive", envPrefix, p.key)
		}
	}
	if c.RateRPS < 0 {
		return fmt.Errorf("%s_RATE_RPS must not be negative", envPrefix)
	}
	if c.RateRPS > 0 && c.RateBurst <= 0 {
		return fmt.Errorf("%s_RATE_BURST must be positive when rate limiting is enabled", envPrefix)
	}
	return nil
}

// RateLimited reports whether the per-client token bucket is enabled.
func (c *Config) RateLimited() bool {
	return c.RateRPS > 0
}

// StoreOptions maps the database settings onto the shard router.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:            c.DBDriver,
		DataDir:           c.DataDir,
		DirectoryHost:     c.DBHost,
		DirectoryDB:       c.DirectoryDB,
		Port:              c.DBPort,
		User:              c.DBUser,
		Password:          c.DBPassword,
		DirectoryPoolSize: c.DirectoryPoolSize,
		ShardPoolSize:     c.ShardPoolSize,
		QueryTimeout:      c.QueryTimeout,
	}
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
