package relay

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/giantswarm/twitter-connect-relay/internal/logging"
	"github.com/giantswarm/twitter-connect-relay/security"
	"github.com/giantswarm/twitter-connect-relay/server"
)

// Connector modes
const (
	ConnectorModeHTTP = "http"
	ConnectorModeMock = "mock"
)

// Log formats
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config holds the relay configuration, read once from the environment at
// start-up. Structured using composition for better organization.
type Config struct {
	// Listener settings
	Listen ListenConfig

	// Twitter/X OAuth client settings
	Twitter TwitterConfig

	// Downstream social-connect API settings
	Downstream DownstreamConfig

	// CORS settings for the browser frontend
	CORS CORSConfig

	// Security settings
	Security SecurityConfig

	// Logging settings
	Logging LoggingConfig

	// Metrics and tracing settings
	Observability ObservabilityConfig

	// RequestTimeoutMs bounds each outbound call in milliseconds
	RequestTimeoutMs int `env:"REQUEST_TIMEOUT_MS" envDefault:"30000"`

	// MaxRequestSize limits inbound request bodies in bytes
	MaxRequestSize int64 `env:"MAX_REQUEST_SIZE" envDefault:"10485760"`
}

// ListenConfig holds listener settings
type ListenConfig struct {
	// Port is the plain HTTP port
	Port int `env:"PORT" envDefault:"3001"`

	// HTTPSPort is the HTTPS port, used only when TLS files are set
	HTTPSPort int `env:"HTTPS_PORT" envDefault:"3443"`

	// TLSCertFile and TLSKeyFile enable the HTTPS listener when both are set
	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`
}

// TLSEnabled reports whether the HTTPS listener should be started
func (l ListenConfig) TLSEnabled() bool {
	return l.TLSCertFile != "" && l.TLSKeyFile != ""
}

// TwitterConfig holds Twitter/X OAuth client settings.
// Credentials have no defaults.
type TwitterConfig struct {
	ClientID     string `env:"TWITTER_CLIENT_ID"`
	ClientSecret string `env:"TWITTER_CLIENT_SECRET"`
	RedirectURI  string `env:"TWITTER_REDIRECT_URI" envDefault:"https://localhost:5173/auth/twitter/callback"`
	TokenURL     string `env:"TWITTER_TOKEN_URL" envDefault:"https://api.x.com/2/oauth2/token"`
}

// DownstreamConfig holds downstream connector settings
type DownstreamConfig struct {
	// BaseURL is the social-connect API base
	BaseURL string `env:"FIRESTARTER_API_BASE_URL" envDefault:"http://localhost:3002/api/v1/trustcore"`

	// Mode selects the connector: "http" or "mock" (in-process)
	Mode string `env:"CONNECTOR_MODE" envDefault:"http"`

	// MockDelay is the artificial delay of the in-process mock connector
	MockDelay time.Duration `env:"MOCK_CONNECT_DELAY" envDefault:"1s"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	// AllowedOrigins lists allowed origins; "*" allows any origin
	AllowedOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	// AllowCredentials sets Access-Control-Allow-Credentials.
	// Cannot be combined with "*".
	AllowCredentials bool `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`

	// MaxAge is the preflight cache duration in seconds
	MaxAge int `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	// TrustProxy enables X-Forwarded-For and X-Real-IP.
	// WARNING: Only enable behind a trusted reverse proxy.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	// TrustedProxyCount is the number of proxies in front of the relay
	TrustedProxyCount int `env:"TRUSTED_PROXY_COUNT" envDefault:"1"`

	// DebugTokenHash is a bcrypt hash of the token gating /debug/config.
	// The endpoint is not registered when empty.
	DebugTokenHash string `env:"DEBUG_TOKEN_HASH"`

	// AuditLogging enables security audit events
	AuditLogging bool `env:"AUDIT_LOGGING" envDefault:"true"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`

	// File additionally writes logs to a rotated file when set
	File string `env:"LOG_FILE"`
}

// ObservabilityConfig holds metrics and tracing settings
type ObservabilityConfig struct {
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadConfigFromEnv reads and validates the configuration from the process environment.
func LoadConfigFromEnv() (Config, error) {
	return LoadConfig(env.ToMap(os.Environ()))
}

// LoadConfig reads and validates the configuration from the given variables
// instead of the process environment.
func LoadConfig(environment map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.CORS.AllowedOrigins = trimAll(cfg.CORS.AllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that make the process unable to start.
// Missing Twitter credentials are not an error here: the relay starts and
// rejects exchange requests with a configuration error instead.
func (c Config) Validate() error {
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Listen.Port)
	}
	if (c.Listen.TLSCertFile == "") != (c.Listen.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if c.Listen.TLSEnabled() && (c.Listen.HTTPSPort <= 0 || c.Listen.HTTPSPort > 65535) {
		return fmt.Errorf("invalid HTTPS_PORT %d", c.Listen.HTTPSPort)
	}
	if c.RequestTimeoutMs <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_MS must be positive")
	}
	if c.MaxRequestSize <= 0 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be positive")
	}
	switch c.Downstream.Mode {
	case ConnectorModeHTTP, ConnectorModeMock:
	default:
		return fmt.Errorf("invalid CONNECTOR_MODE %q (must be %q or %q)", c.Downstream.Mode, ConnectorModeHTTP, ConnectorModeMock)
	}
	if c.Downstream.MockDelay < 0 {
		return fmt.Errorf("MOCK_CONNECT_DELAY must not be negative")
	}
	if c.Security.TrustedProxyCount < 0 {
		return fmt.Errorf("TRUSTED_PROXY_COUNT must not be negative")
	}
	switch c.Logging.Format {
	case LogFormatJSON, LogFormatText:
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (must be %q or %q)", c.Logging.Format, LogFormatJSON, LogFormatText)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return validateCORSConfig(c.CORS)
}

// validateCORSConfig rejects CORS settings browsers would refuse.
func validateCORSConfig(cors CORSConfig) error {
	for _, origin := range cors.AllowedOrigins {
		if origin == "*" {
			// Wildcard with credentials is invalid per CORS specification
			if cors.AllowCredentials {
				return fmt.Errorf("CORS: cannot use wildcard '*' with CORS_ALLOW_CREDENTIALS=true")
			}
			continue
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS: invalid origin format '%s' (must be scheme://host, e.g., https://app.example.com)", origin)
		}
		if strings.HasSuffix(origin, "/") {
			return fmt.Errorf("CORS: origin '%s' should not have trailing slash (use %s)", origin, strings.TrimSuffix(origin, "/"))
		}
	}
	return nil
}

// RequestTimeout returns the outbound call timeout
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// ServerConfig returns the exchange operation configuration
func (c Config) ServerConfig() server.Config {
	return server.Config{
		ClientID:           c.Twitter.ClientID,
		ClientSecret:       c.Twitter.ClientSecret,
		DefaultRedirectURI: c.Twitter.RedirectURI,
		DownstreamBaseURL:  c.Downstream.BaseURL,
		TokenEndpointURL:   c.Twitter.TokenURL,
		RequestTimeout:     c.RequestTimeout(),
	}
}

// LoggerConfig returns the logger settings
func (c Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		File:   c.Logging.File,
	}
}

// Redacted returns the configuration as served by /debug/config.
// Secrets are reduced to their presence.
func (c Config) Redacted() map[string]any {
	return map[string]any{
		"port":                  c.Listen.Port,
		"httpsPort":             c.Listen.HTTPSPort,
		"tlsEnabled":            c.Listen.TLSEnabled(),
		"twitterClientId":       c.Twitter.ClientID,
		"twitterClientSecret":   security.RedactSecret(c.Twitter.ClientSecret),
		"twitterRedirectUri":    c.Twitter.RedirectURI,
		"twitterTokenUrl":       c.Twitter.TokenURL,
		"firestarterApiBaseUrl": c.Downstream.BaseURL,
		"connectorMode":         c.Downstream.Mode,
		"requestTimeoutMs":      c.RequestTimeoutMs,
		"maxRequestSize":        c.MaxRequestSize,
		"corsOrigins":           c.CORS.AllowedOrigins,
		"corsAllowCredentials":  c.CORS.AllowCredentials,
		"trustProxy":            c.Security.TrustProxy,
		"auditLogging":          c.Security.AuditLogging,
		"metricsEnabled":        c.Observability.MetricsEnabled,
		"tracingEnabled":        c.Observability.OTLPEndpoint != "",
		"missingRequiredConfig": c.ServerConfig().MissingFields(),
		"logLevel":              c.Logging.Level,
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
