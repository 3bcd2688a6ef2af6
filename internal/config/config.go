// internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/warestock/replenishd/internal/domain"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// EngineConfig carries the run fan-out plus the replenishment policy knobs.
type EngineConfig struct {
	WorkerCount             int
	LookbackDays            int
	TargetCoverageDays      int
	SafetyStockDays         int
	CriticalThresholdDays   float64
	LowThresholdDays        float64
	ExcessThresholdDays     float64
	MinADSForRecommendation float64
	MaxOrderMultiplier      float64
}

// ReplenishmentPolicy maps the engine block onto the domain config value
// object. Validation happens per run, not here.
func (e EngineConfig) ReplenishmentPolicy() domain.ReplenishmentConfig {
	return domain.ReplenishmentConfig{
		LookbackDays:            e.LookbackDays,
		TargetCoverageDays:      e.TargetCoverageDays,
		SafetyStockDays:         e.SafetyStockDays,
		CriticalThresholdDays:   e.CriticalThresholdDays,
		LowThresholdDays:        e.LowThresholdDays,
		ExcessThresholdDays:     e.ExcessThresholdDays,
		MinADSForRecommendation: e.MinADSForRecommendation,
		MaxOrderMultiplier:      e.MaxOrderMultiplier,
	}
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		defaults := domain.DefaultReplenishmentConfig()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "replenishd")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_TTL_SECONDS", 60)
		viper.SetDefault("STORAGE_ENABLED", false)
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_BUCKET", "replenishd-exports")
		viper.SetDefault("STORAGE_REGION", "")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("ENGINE_WORKER_COUNT", 8)
		viper.SetDefault("REPL_LOOKBACK_DAYS", defaults.LookbackDays)
		viper.SetDefault("REPL_TARGET_COVERAGE_DAYS", defaults.TargetCoverageDays)
		viper.SetDefault("REPL_SAFETY_STOCK_DAYS", defaults.SafetyStockDays)
		viper.SetDefault("REPL_CRITICAL_THRESHOLD_DAYS", defaults.CriticalThresholdDays)
		viper.SetDefault("REPL_LOW_THRESHOLD_DAYS", defaults.LowThresholdDays)
		viper.SetDefault("REPL_EXCESS_THRESHOLD_DAYS", defaults.ExcessThresholdDays)
		viper.SetDefault("REPL_MIN_ADS", defaults.MinADSForRecommendation)
		viper.SetDefault("REPL_MAX_ORDER_MULTIPLIER", defaults.MaxOrderMultiplier)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				TTLSeconds:    viper.GetInt("CACHE_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Enabled:   viper.GetBool("STORAGE_ENABLED"),
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				Region:    viper.GetString("STORAGE_REGION"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			},
			Engine: EngineConfig{
				WorkerCount:             viper.GetInt("ENGINE_WORKER_COUNT"),
				LookbackDays:            viper.GetInt("REPL_LOOKBACK_DAYS"),
				TargetCoverageDays:      viper.GetInt("REPL_TARGET_COVERAGE_DAYS"),
				SafetyStockDays:         viper.GetInt("REPL_SAFETY_STOCK_DAYS"),
				CriticalThresholdDays:   viper.GetFloat64("REPL_CRITICAL_THRESHOLD_DAYS"),
				LowThresholdDays:        viper.GetFloat64("REPL_LOW_THRESHOLD_DAYS"),
				ExcessThresholdDays:     viper.GetFloat64("REPL_EXCESS_THRESHOLD_DAYS"),
				MinADSForRecommendation: viper.GetFloat64("REPL_MIN_ADS"),
				MaxOrderMultiplier:      viper.GetFloat64("REPL_MAX_ORDER_MULTIPLIER"),
			},
		}
	})

	return instance
}
