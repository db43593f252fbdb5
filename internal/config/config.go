package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// MaxForecastHorizonDays caps every forecast request
const MaxForecastHorizonDays = 30

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Engine   EngineConfig
	LogLevel string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	// AutoMigrate applies the embedded schema when the server starts
	AutoMigrate bool
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
}

// ForecastTTL is the lifetime of a cached forecast
func (c CacheConfig) ForecastTTL() time.Duration {
	return time.Duration(c.ForecastTTLSeconds) * time.Second
}

// StorageConfig selects where batch exports are written. An empty endpoint writes to ExportDir.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	ExportDir string
}

type DriveConfig struct {
	CredentialsJSON string
	CredentialsFile string
	SalesFolderID   string
	StockFolderID   string
}

type EngineConfig struct {
	StoreDriver          string
	BatchWorkers         int
	DefaultMargin        float64
	AnomalyLookbackDays  int
	RedetectionTTL       time.Duration
	ForecastHorizonDays  int
	MonitoringWindowDays int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("DB_DRIVER", "pgx")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "optiflow")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_AUTO_MIGRATE", true)
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_FORECAST_TTL_SECONDS", 86400)
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_BUCKET", "optiflow-exports")
		viper.SetDefault("STORAGE_REGION", "us-east-1")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("STORAGE_EXPORT_DIR", "./data/exports")
		viper.SetDefault("STORE_DRIVER", StorePostgres)
		viper.SetDefault("ENGINE_BATCH_WORKERS", 8)
		viper.SetDefault("ENGINE_DEFAULT_MARGIN", 15.0)
		viper.SetDefault("ENGINE_ANOMALY_LOOKBACK_DAYS", 7)
		viper.SetDefault("ENGINE_REDETECTION_TTL_SECONDS", 600)
		viper.SetDefault("ENGINE_FORECAST_HORIZON_DAYS", MaxForecastHorizonDays)
		viper.SetDefault("ENGINE_MONITORING_WINDOW_DAYS", 30)

		// Read from environment variables
		viper.AutomaticEnv()

		horizon := viper.GetInt("ENGINE_FORECAST_HORIZON_DAYS")
		if horizon <= 0 || horizon > MaxForecastHorizonDays {
			horizon = MaxForecastHorizonDays
		}

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Driver:   viper.GetString("DB_DRIVER"),
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),

				AutoMigrate: viper.GetBool("DB_AUTO_MIGRATE"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				ForecastTTLSeconds: viper.GetInt("CACHE_FORECAST_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				Region:    viper.GetString("STORAGE_REGION"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
				ExportDir: viper.GetString("STORAGE_EXPORT_DIR"),
			},
			Drive: DriveConfig{
				CredentialsJSON: viper.GetString("GOOGLE_CREDENTIALS_JSON"),
				CredentialsFile: viper.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
				SalesFolderID:   viper.GetString("DRIVE_SALES_FOLDER_ID"),
				StockFolderID:   viper.GetString("DRIVE_STOCK_FOLDER_ID"),
			},
			Engine: EngineConfig{
				StoreDriver:          viper.GetString("STORE_DRIVER"),
				BatchWorkers:         viper.GetInt("ENGINE_BATCH_WORKERS"),
				DefaultMargin:        viper.GetFloat64("ENGINE_DEFAULT_MARGIN"),
				AnomalyLookbackDays:  viper.GetInt("ENGINE_ANOMALY_LOOKBACK_DAYS"),
				RedetectionTTL:       time.Duration(viper.GetInt("ENGINE_REDETECTION_TTL_SECONDS")) * time.Second,
				ForecastHorizonDays:  horizon,
				MonitoringWindowDays: viper.GetInt("ENGINE_MONITORING_WINDOW_DAYS"),
			},
			LogLevel: viper.GetString("LOG_LEVEL"),
		}

		if instance.Storage.Endpoint == "" {
			ensureDir(instance.Storage.ExportDir)
		}
	})

	return instance
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
