package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ardenoak"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	Redis     RedisConfig
	Commerce  CommerceConfig
	JWT       JWTConfig
	Cart      CartConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Commerce.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ARDENOAK_APP_ENV" required:"true"`
	Port         string `envconfig:"ARDENOAK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ARDENOAK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"ARDENOAK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"ARDENOAK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"ARDENOAK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ARDENOAK_REDIS_ADDR"`
	Password     string        `envconfig:"ARDENOAK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ARDENOAK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ARDENOAK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ARDENOAK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ARDENOAK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ARDENOAK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ARDENOAK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CommerceConfig points the storefront at the upstream commerce REST API that
// owns products, variations, and authenticated carts.
type CommerceConfig struct {
	BaseURL        string        `envconfig:"ARDENOAK_COMMERCE_BASE_URL" required:"true"`
	AssetBaseURL   string        `envconfig:"ARDENOAK_COMMERCE_ASSET_BASE_URL"`
	RequestTimeout time.Duration `envconfig:"ARDENOAK_COMMERCE_REQUEST_TIMEOUT" default:"10s"`
	APIKey         string        `envconfig:"ARDENOAK_COMMERCE_API_KEY"`
}

func (c CommerceConfig) validate() error {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return fmt.Errorf("ARDENOAK_COMMERCE_BASE_URL is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("commerce base url must be http(s), got %q", base)
	}
	return nil
}

type JWTConfig struct {
	Secret            string `envconfig:"ARDENOAK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ARDENOAK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ARDENOAK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CartConfig struct {
	GuestTTL            time.Duration `envconfig:"ARDENOAK_CART_GUEST_TTL" default:"720h"`
	PlaceholderImageURL string        `envconfig:"ARDENOAK_CART_PLACEHOLDER_IMAGE" default:"/images/product-placeholder.jpg"`
	SyncMaxAttempts     int           `envconfig:"ARDENOAK_CART_SYNC_MAX_ATTEMPTS" default:"5"`
	SyncBaseBackoff     time.Duration `envconfig:"ARDENOAK_CART_SYNC_BASE_BACKOFF" default:"500ms"`
	SyncMaxBackoff      time.Duration `envconfig:"ARDENOAK_CART_SYNC_MAX_BACKOFF" default:"30s"`
}

type RateLimitConfig struct {
	Window     time.Duration `envconfig:"ARDENOAK_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"ARDENOAK_RATE_LIMIT_IP" default:"120"`
	TokenLimit int           `envconfig:"ARDENOAK_RATE_LIMIT_TOKEN" default:"60"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ARDENOAK_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}
