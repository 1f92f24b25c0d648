package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Mail          MailConfig
	Intake        IntakeConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	AllowedOrigins []string
}

// MailConfig configures the outbound SMTP relay. Username doubles as the
// sender address, matching a Gmail account with an app password.
type MailConfig struct {
	Username           string
	Password           string
	To                 string
	Host               string
	Port               int
	SendTimeoutSeconds int
	VerifyOnStartup    bool
	StatusTTLSeconds   int
}

// IntakeConfig bounds request bodies accepted by the submission endpoints
type IntakeConfig struct {
	MaxUploadBytes int64 // per uploaded file
	MaxFieldBytes  int64 // per multipart scalar field
	MaxJSONBytes   int64 // whole JSON / urlencoded body
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("PORT", "3000")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "*")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_SEND_TIMEOUT_SECONDS", 30)
	v.SetDefault("RELAY_VERIFY_ON_STARTUP", true)
	v.SetDefault("RELAY_STATUS_TTL_SECONDS", 300)
	v.SetDefault("MAX_UPLOAD_BYTES", 10*1024*1024)
	v.SetDefault("MAX_FIELD_BYTES", 64*1024)
	v.SetDefault("MAX_JSON_BYTES", 256*1024)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "")
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "")
	v.SetDefault("O11Y_BE_SERVICE_NAME", "codecom-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "codecom")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "codecom-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,goroutines")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	// Automatically read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
		},
		Mail: MailConfig{
			Username:           strings.TrimSpace(v.GetString("GMAIL_USER")),
			Password:           v.GetString("GMAIL_APP_PASSWORD"),
			To:                 strings.TrimSpace(v.GetString("MAIL_TO")),
			Host:               v.GetString("SMTP_HOST"),
			Port:               v.GetInt("SMTP_PORT"),
			SendTimeoutSeconds: v.GetInt("MAIL_SEND_TIMEOUT_SECONDS"),
			VerifyOnStartup:    v.GetBool("RELAY_VERIFY_ON_STARTUP"),
			StatusTTLSeconds:   v.GetInt("RELAY_STATUS_TTL_SECONDS"),
		},
		Intake: IntakeConfig{
			MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
			MaxFieldBytes:  v.GetInt64("MAX_FIELD_BYTES"),
			MaxJSONBytes:   v.GetInt64("MAX_JSON_BYTES"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Validate checks if required configuration values are set.
// Missing mail credentials are not an error: the submission endpoints
// answer with a configuration failure instead.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}
	if c.Mail.SendTimeoutSeconds <= 0 {
		return fmt.Errorf("MAIL_SEND_TIMEOUT_SECONDS must be positive")
	}

	if c.Intake.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.Intake.MaxFieldBytes <= 0 {
		return fmt.Errorf("MAX_FIELD_BYTES must be positive")
	}
	if c.Intake.MaxJSONBytes <= 0 {
		return fmt.Errorf("MAX_JSON_BYTES must be positive")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// MailConfigured reports whether both relay credentials are present
func (c *Config) MailConfigured() bool {
	return c.Mail.Username != "" && c.Mail.Password != ""
}

// Recipient returns the notification inbox, defaulting to the relay account
func (m MailConfig) Recipient() string {
	if m.To != "" {
		return m.To
	}
	return m.Username
}

// SendTimeout returns the relay deadline for one message
func (m MailConfig) SendTimeout() time.Duration {
	return time.Duration(m.SendTimeoutSeconds) * time.Second
}

// AllowsAllOrigins reports whether CORS is open to every origin
func (s ServerConfig) AllowsAllOrigins() bool {
	for _, o := range s.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}
