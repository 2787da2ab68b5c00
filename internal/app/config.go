package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (FLYER_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (FLYER_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	PublicBaseURL string `default:"" usage:"Public storefront origin used in redirects (e.g. https://flyers.example)" flag:"public-base-url"`
	TempDir       string `default:"/tmp/flyer-uploads" usage:"Root directory for staged upload files" flag:"temp-dir"`

	Stripe   StripeConfig
	OrderAPI OrderAPIConfig
	Email    EmailConfig

	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StripeConfig configures the payment provider client.
type StripeConfig struct {
	SecretKey  string `usage:"Stripe secret key (FLYER_STRIPE_SECRET_KEY)" flag:"stripe-secret-key"`
	MaxRetries int64  `default:"2" usage:"Stripe client network retries" flag:"stripe-max-retries"`
}

// OrderAPIConfig configures the order-management backend client.
type OrderAPIConfig struct {
	BaseURL    string        `usage:"Order backend base URL (FLYER_ORDER_API_BASE_URL)" flag:"order-api-base-url"`
	Timeout    time.Duration `default:"30s" usage:"Per-call order backend timeout" flag:"order-api-timeout"`
	MaxRetries uint64        `default:"2" usage:"Retries for transient order backend failures" flag:"order-api-max-retries"`
}

// EmailConfig configures confirmation email delivery. An empty From disables
// sending.
type EmailConfig struct {
	From string `default:"" usage:"Verified SES sender address; empty disables email" flag:"email-from"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "FLYER",
		Files:     []string{"config.yaml", "/etc/flyer/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set FLYER_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Stripe.SecretKey == "" {
		return nil, errors.New("stripe secret key is required: set FLYER_STRIPE_SECRET_KEY")
	}
	if cfg.OrderAPI.BaseURL == "" {
		return nil, errors.New("order backend URL is required: set FLYER_ORDER_API_BASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's FLYER_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.Stripe.SecretKey == "" {
		if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
			c.Stripe.SecretKey = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
