package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all the configuration for the application.
// It is loaded once in main and passed explicitly to constructors.
type Config struct {
	Env          string `yaml:"env" env:"ENV" env-default:"production"`
	HTTPServer   `yaml:"http_server"`
	Database     `yaml:"database"`
	Cache        `yaml:"cache"`
	URLShortener `yaml:"url_shortener"`
	Analytics    `yaml:"analytics"`
	JWT          `yaml:"jwt"`
	UserAgent    `yaml:"user_agent"`
}

// HTTPServer holds HTTP listener settings.
type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"30s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000,http://127.0.0.1:3000,http://localhost:8080,http://127.0.0.1:8080"`
}

// Database holds storage connection settings.
// Driver "memory" keeps everything in process and ignores the rest.
type Database struct {
	Driver          string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string `yaml:"password" env:"DB_PASSWORD"`
	DBName          string `yaml:"dbname" env:"DB_NAME" env-default:"shrtlink"`
	SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	Timezone        string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"100"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
	SeedData        bool   `yaml:"seed_data" env:"DB_SEED_DATA" env-default:"true"`
	LogQueries      bool   `yaml:"log_queries" env:"DB_LOG_QUERIES" env-default:"false"`
}

// Cache holds resolution cache settings.
type Cache struct {
	Driver          string        `yaml:"driver" env:"CACHE_DRIVER" env-default:"memory"` // memory, redis, none
	TTL             time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"30m"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CACHE_CLEANUP_INTERVAL" env-default:"10m"`
	RedisAddr       string        `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword   string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB         int           `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
}

// URLShortener holds link creation and redirect settings.
type URLShortener struct {
	BaseURL          string        `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	CodeLength       int           `yaml:"code_length" env:"CODE_LENGTH" env-default:"6"`
	MaxCodeLength    int           `yaml:"max_code_length" env:"MAX_CODE_LENGTH" env-default:"12"`
	MaxAttempts      int           `yaml:"max_attempts" env:"CODE_MAX_ATTEMPTS" env-default:"10"`
	ResolveTimeout   time.Duration `yaml:"resolve_timeout" env:"RESOLVE_TIMEOUT" env-default:"2s"`
	PasswordCost     int           `yaml:"password_cost" env:"LINK_PASSWORD_COST" env-default:"12"`
	PasswordPagePath string        `yaml:"password_page_path" env:"PASSWORD_PAGE_PATH" env-default:"/password-required"`
	ExpiredPagePath  string        `yaml:"expired_page_path" env:"EXPIRED_PAGE_PATH" env-default:"/link-expired"`
}

// Analytics holds click ingestion and reporting settings.
type Analytics struct {
	Transport       string        `yaml:"transport" env:"ANALYTICS_TRANSPORT" env-default:"local"` // local, nats
	Workers         int           `yaml:"workers" env:"ANALYTICS_WORKERS" env-default:"3"`
	BufferSize      int           `yaml:"buffer_size" env:"ANALYTICS_BUFFER_SIZE" env-default:"1000"`
	RetryAttempts   int           `yaml:"retry_attempts" env:"ANALYTICS_RETRY_ATTEMPTS" env-default:"3"`
	RetryDelay      time.Duration `yaml:"retry_delay" env:"ANALYTICS_RETRY_DELAY" env-default:"1s"`
	JobTimeout      time.Duration `yaml:"job_timeout" env:"ANALYTICS_JOB_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"ANALYTICS_SHUTDOWN_TIMEOUT" env-default:"30s"`
	NodeID          int64         `yaml:"node_id" env:"ANALYTICS_NODE_ID" env-default:"1"`
	DefaultDays     int           `yaml:"default_days" env:"ANALYTICS_DEFAULT_DAYS" env-default:"30"`
	MaxDays         int           `yaml:"max_days" env:"ANALYTICS_MAX_DAYS" env-default:"365"`
	NATSURL         string        `yaml:"nats_url" env:"NATS_URL" env-default:"nats://localhost:4222"`
	NATSSubject     string        `yaml:"nats_subject" env:"NATS_SUBJECT" env-default:"clicks.recorded"`
	NATSQueueGroup  string        `yaml:"nats_queue_group" env:"NATS_QUEUE_GROUP" env-default:"click-recorders"`
}

// JWT holds settings for validating bearer tokens.
type JWT struct {
	Secret         string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	Issuer         string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"ShrtLink-Backend"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"JWT_ACCESS_TOKEN_TTL" env-default:"15m"`
	Leeway         time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"30s"`
}

// UserAgent holds the optional uap-go regexes location.
type UserAgent struct {
	RegexesPath string `yaml:"regexes_path" env:"UA_REGEXES_PATH"`
}

// MustLoad loads the application configuration.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load reads CONFIG_PATH (default config/local.yml) or, when the file is
// absent, the environment only.
func Load() (*Config, error) {
	// Try to load .env file (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yml"
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, err
		}
	} else {
		log.Println("Config file not found, using environment variables only")
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}
