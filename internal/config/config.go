package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/luanatech/storefront/pkg/config"
	"github.com/luanatech/storefront/pkg/validator"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort        int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	RequestTimeout  time.Duration `env:"STOREFRONT_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"STOREFRONT_SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// Remote catalog API
	APIURL                  string        `env:"API_URL" envDefault:"https://luanatech.pe"`
	CatalogCategoriesOrigin string        `env:"CATALOG_CATEGORIES_ORIGIN"`
	CatalogTimeout          time.Duration `env:"CATALOG_TIMEOUT" envDefault:"10s"`
	CatalogMaxRetries       int           `env:"CATALOG_MAX_RETRIES" envDefault:"0"`
	CatalogRetryWaitMin     time.Duration `env:"CATALOG_RETRY_WAIT_MIN" envDefault:"200ms"`
	CatalogRetryWaitMax     time.Duration `env:"CATALOG_RETRY_WAIT_MAX" envDefault:"2s"`
	CatalogMaxConnsPerHost  int           `env:"CATALOG_MAX_CONNS_PER_HOST" envDefault:"20"`
	CatalogMaxBodyBytes     int64         `env:"CATALOG_MAX_BODY_BYTES" envDefault:"8388608"`

	// Circuit breaker for catalog calls
	CBEnabled      bool    `env:"CB_ENABLED" envDefault:"false"`
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Kafka failure events
	KafkaEnabled            bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers            []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaTopicCatalogFailed string   `env:"KAFKA_TOPIC_CATALOG_FAILED" envDefault:"storefront.catalog.query_failed"`

	// Rate limiting (per client IP). RPS 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"100"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	CORSMaxAge         int      `env:"CORS_MAX_AGE" envDefault:"3600"`

	// IP allowlists in CIDR notation
	MetricsAllowedCIDRs []string `env:"METRICS_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
	PprofAllowedCIDRs   []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Home page sections
	HomeTitle              string `env:"HOME_TITLE" envDefault:"Corporacion Luana"`
	HomeDescription        string `env:"HOME_DESCRIPTION" envDefault:"Tienda de corporacion luana"`
	HomeLaptopsTitle       string `env:"HOME_LAPTOPS_TITLE" envDefault:"Laptops"`
	HomeLaptopsCategory    string `env:"HOME_LAPTOPS_CATEGORY" envDefault:"02"`
	HomeLaptopsSubcategory string `env:"HOME_LAPTOPS_SUBCATEGORY" envDefault:"095"`
	HomeAdaptersTitle      string `env:"HOME_ADAPTERS_TITLE" envDefault:"Adquiere lo mejor en adaptadores"`
	HomeAdaptersBrand      string `env:"HOME_ADAPTERS_BRAND" envDefault:"ugreen"`
}

// Load reads configuration from the given dotenv files, if present, and the
// environment. Environment variables win over file values.
func Load(files ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithFiles(cfg, files...); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if err := validateOrigin("API_URL", c.APIURL); err != nil {
		return err
	}
	if c.CatalogCategoriesOrigin != "" {
		if err := validateOrigin("CATALOG_CATEGORIES_ORIGIN", c.CatalogCategoriesOrigin); err != nil {
			return err
		}
	}
	if c.CatalogTimeout <= 0 {
		return fmt.Errorf("CATALOG_TIMEOUT must be positive, got %s", c.CatalogTimeout)
	}
	if c.CatalogMaxRetries < 0 {
		return fmt.Errorf("CATALOG_MAX_RETRIES must not be negative, got %d", c.CatalogMaxRetries)
	}
	if c.CatalogRetryWaitMin > c.CatalogRetryWaitMax {
		return fmt.Errorf("CATALOG_RETRY_WAIT_MIN (%s) exceeds CATALOG_RETRY_WAIT_MAX (%s)", c.CatalogRetryWaitMin, c.CatalogRetryWaitMax)
	}
	if c.CBEnabled && (c.CBFailureRatio <= 0 || c.CBFailureRatio > 1.0) {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0.0, 1.0], got %f", c.CBFailureRatio)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %f", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1, got %d", c.RateLimitBurst)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	for _, p := range []struct{ name, value string }{
		{"HOME_LAPTOPS_CATEGORY", c.HomeLaptopsCategory},
		{"HOME_LAPTOPS_SUBCATEGORY", c.HomeLaptopsSubcategory},
		{"HOME_ADAPTERS_BRAND", c.HomeAdaptersBrand},
	} {
		if !validator.IsSlug(p.value) {
			return fmt.Errorf("%s must be a catalog slug, got %q", p.name, p.value)
		}
	}
	return nil
}

func validateOrigin(name, raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", name, raw)
	}
	return nil
}
