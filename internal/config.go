package portfolio_contact

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"github.com/nazarhussain/portfolio-contact/env"
)

/*
ENV-ONLY CONFIG (a .env file in the working directory is loaded first):
  Server:
    LISTEN_ADDR (default ":3000"), CONTACT_PATH (default "/contact")
    ALLOWED_ORIGINS (default "*"), ALLOW_JSON (default true), MAX_BODY_KB (default 64)
    TRUST_PROXY_HEADERS (default false; use CF-Connecting-IP / X-Forwarded-For)
  Mail:
    SITE_NAME, ADMIN_EMAIL (required), BACKUP_ADMIN_EMAIL, FROM_ADDR (required)
    SMTP_ENABLED (default true), SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASS,
    SMTP_SSL (default false), SMTP_TIMEOUT (default 10s)
  Rate limit:
    RATE_LIMIT_SECONDS (default 60), RATE_LIMIT_RETENTION (default 24h)
    RATE_LIMIT_BACKEND file|memory|redis|sql (default file)
    RATE_LIMIT_FILE (default $LOG_DIR/rate_limit.json)
    RATE_LIMIT_REDIS_URL, RATE_LIMIT_REDIS_PREFIX (default "contact:rl:")
    RATE_LIMIT_DSN (postgres:// URL or SQLite path)
  Validation:
    MAX_MESSAGE_LENGTH (default 5000), MAX_SUBJECT_LENGTH (default 200)
    ENABLE_SPAM_FILTER (default true), SPAM_KEYWORDS (comma-separated)
  Logs:
    ENABLE_LOGGING (default true), LOG_DIR (default "./logs"), LOG_RETENTION_DAYS (default 30)
    MAINTENANCE_INTERVAL (default 1h), TIMEZONE (default "America/Los_Angeles")
*/

const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

type SMTPConfig struct {
	Enabled bool
	Host    string
	Port    int
	User    string
	Pass    string
	SSL     bool
	Timeout time.Duration
}

// InquiryType is one selectable option of the form's inquiry drop-down.
type InquiryType struct {
	Key   string
	Label string
}

type Config struct {
	ListenAddr        string
	ContactPath       string
	AllowedOrigins    []string
	AllowJSON         bool
	MaxBodyKB         int
	TrustProxyHeaders bool

	SiteName         string
	AdminEmail       string
	BackupAdminEmail string
	FromAddr         string
	SMTP             SMTPConfig

	RateLimitWindow      time.Duration
	RateLimitRetention   time.Duration
	RateLimitBackend     string
	RateLimitFile        string
	RateLimitRedisURL    string
	RateLimitRedisPrefix string
	RateLimitDSN         string

	MaxMessageLength int
	MaxSubjectLength int
	SpamFilter       bool
	SpamKeywords     []string
	InquiryTypes     []InquiryType

	Logging             bool
	LogDir              string
	LogRetention        time.Duration
	MaintenanceInterval time.Duration
	Location            *time.Location

	SuccessMessage    string
	Messages          map[ErrorKind]string
	AdminSubject      string
	AdminTemplate     string
	AutoReplySubject  string
	AutoReplyTemplate string
}

var defaultInquiryTypes = []InquiryType{
	{Key: "film-project", Label: "Film Project"},
	{Key: "collaboration", Label: "Creative Collaboration"},
	{Key: "interview", Label: "Interview Request"},
	{Key: "endorsement", Label: "Endorsement Opportunity"},
	{Key: "event", Label: "Event Appearance"},
	{Key: "other", Label: "Other"},
}

var defaultSpamKeywords = []string{
	"viagra", "casino", "lottery", "winner", "congratulations", "million dollars",
}

const rateLimitFileName = "rate_limit.json"

const defaultSuccessMessage = "Thank you for your message! We will review your inquiry and respond within 5-7 business days."

// DefaultConfig returns a complete configuration without reading the
// environment. Mail addresses are left empty.
func DefaultConfig() *Config {
	c := &Config{
		ListenAddr:     ":3000",
		ContactPath:    "/contact",
		AllowedOrigins: []string{"*"},
		AllowJSON:      true,
		MaxBodyKB:      64,

		SiteName: "Portfolio",
		SMTP: SMTPConfig{
			Enabled: true,
			Port:    587,
			Timeout: 10 * time.Second,
		},

		RateLimitWindow:      60 * time.Second,
		RateLimitRetention:   24 * time.Hour,
		RateLimitBackend:     BackendFile,
		RateLimitFile:        filepath.Join("./logs", rateLimitFileName),
		RateLimitRedisPrefix: "contact:rl:",

		MaxMessageLength: 5000,
		MaxSubjectLength: 200,
		SpamFilter:       true,
		SpamKeywords:     slices.Clone(defaultSpamKeywords),
		InquiryTypes:     slices.Clone(defaultInquiryTypes),

		Logging:             true,
		LogDir:              "./logs",
		LogRetention:        30 * 24 * time.Hour,
		MaintenanceInterval: time.Hour,
		Location:            time.Local,

		SuccessMessage:    defaultSuccessMessage,
		AdminSubject:      "New Contact Form Submission - {{.Label}}",
		AdminTemplate:     defaultAdminTemplate,
		AutoReplySubject:  "Thank you for contacting {{.Site}}",
		AutoReplyTemplate: defaultAutoReplyTemplate,
	}
	c.Messages = defaultMessages(c.MaxMessageLength, c.MaxSubjectLength)
	return c
}

func defaultMessages(maxMessage, maxSubject int) map[ErrorKind]string {
	return map[ErrorKind]string{
		KindMethodNotAllowed:   "Invalid request method. Only POST requests are allowed.",
		KindMissingField:       "Required field is missing or empty.",
		KindInvalidEmail:       "Please provide a valid email address.",
		KindInvalidPhone:       "Please provide a valid phone number or leave it empty.",
		KindInvalidInquiryType: "Please select a valid inquiry type.",
		KindSpamDetected:       "Your message appears to contain spam content.",
		KindRateLimited:        "Please wait before submitting another message.",
		KindMessageTooLong:     fmt.Sprintf("Your message is too long. Please keep it under %d characters.", maxMessage),
		KindSubjectTooLong:     fmt.Sprintf("Your subject is too long. Please keep it under %d characters.", maxSubject),
		KindEmailSendFailure:   "There was an error processing your request. Please try again or contact us directly.",
		KindGeneralError:       "An unexpected error occurred. Please try again later.",
		KindOriginForbidden:    "This origin is not allowed to submit the form.",
		KindPayloadTooLarge:    "Your submission is too large.",
		KindBadPayload:         "The submitted form could not be read.",
	}
}

// LoadConfig reads the environment (after a .env file, if present).
func LoadConfig() (*Config, error) {
	env.Load()
	c := DefaultConfig()

	c.ListenAddr = env.Env("LISTEN_ADDR", c.ListenAddr)
	c.ContactPath = env.Env("CONTACT_PATH", c.ContactPath)
	c.AllowedOrigins = env.EnvList("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.AllowJSON = env.EnvBool("ALLOW_JSON", c.AllowJSON)
	c.MaxBodyKB = env.EnvInt("MAX_BODY_KB", c.MaxBodyKB)
	c.TrustProxyHeaders = env.EnvBool("TRUST_PROXY_HEADERS", c.TrustProxyHeaders)

	c.SiteName = env.Env("SITE_NAME", c.SiteName)
	c.AdminEmail = env.Env("ADMIN_EMAIL", "")
	c.BackupAdminEmail = env.Env("BACKUP_ADMIN_EMAIL", "")
	c.FromAddr = env.Env("FROM_ADDR", "")
	c.SMTP = SMTPConfig{
		Enabled: env.EnvBool("SMTP_ENABLED", c.SMTP.Enabled),
		Host:    env.Env("SMTP_HOST", ""),
		Port:    env.EnvInt("SMTP_PORT", c.SMTP.Port),
		User:    env.Env("SMTP_USER", ""),
		Pass:    env.Env("SMTP_PASS", ""),
		SSL:     env.EnvBool("SMTP_SSL", false),
		Timeout: env.EnvDuration("SMTP_TIMEOUT", c.SMTP.Timeout),
	}

	c.RateLimitWindow = env.EnvDuration("RATE_LIMIT_SECONDS", c.RateLimitWindow)
	c.RateLimitRetention = env.EnvDuration("RATE_LIMIT_RETENTION", c.RateLimitRetention)
	c.RateLimitBackend = strings.ToLower(env.Env("RATE_LIMIT_BACKEND", c.RateLimitBackend))
	c.RateLimitRedisURL = env.Env("RATE_LIMIT_REDIS_URL", "")
	c.RateLimitRedisPrefix = env.Env("RATE_LIMIT_REDIS_PREFIX", c.RateLimitRedisPrefix)
	c.RateLimitDSN = env.Env("RATE_LIMIT_DSN", "")

	c.MaxMessageLength = env.EnvInt("MAX_MESSAGE_LENGTH", c.MaxMessageLength)
	c.MaxSubjectLength = env.EnvInt("MAX_SUBJECT_LENGTH", c.MaxSubjectLength)
	c.SpamFilter = env.EnvBool("ENABLE_SPAM_FILTER", c.SpamFilter)
	c.SpamKeywords = env.EnvList("SPAM_KEYWORDS", c.SpamKeywords)

	c.Logging = env.EnvBool("ENABLE_LOGGING", c.Logging)
	c.LogDir = env.Env("LOG_DIR", c.LogDir)
	c.RateLimitFile = env.Env("RATE_LIMIT_FILE", filepath.Join(c.LogDir, rateLimitFileName))
	c.LogRetention = time.Duration(env.EnvInt("LOG_RETENTION_DAYS", 30)) * 24 * time.Hour
	c.MaintenanceInterval = env.EnvDuration("MAINTENANCE_INTERVAL", c.MaintenanceInterval)

	tz := env.Env("TIMEZONE", "America/Los_Angeles")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}
	c.Location = loc
	c.Messages = defaultMessages(c.MaxMessageLength, c.MaxSubjectLength)

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if !isValidEmail(c.AdminEmail) {
		return fmt.Errorf("ADMIN_EMAIL %q is not a valid address", c.AdminEmail)
	}
	if !isValidEmail(c.FromAddr) {
		return fmt.Errorf("FROM_ADDR %q is not a valid address", c.FromAddr)
	}
	if c.BackupAdminEmail != "" && !isValidEmail(c.BackupAdminEmail) {
		return fmt.Errorf("BACKUP_ADMIN_EMAIL %q is not a valid address", c.BackupAdminEmail)
	}
	if c.SMTP.Enabled && c.SMTP.Host == "" {
		return fmt.Errorf("SMTP_HOST must be set when SMTP_ENABLED is true")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_SECONDS must be greater than 0")
	}
	if c.RateLimitRetention < c.RateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_RETENTION must not be shorter than the rate limit window")
	}
	switch c.RateLimitBackend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if c.RateLimitRedisURL == "" {
			return fmt.Errorf("RATE_LIMIT_REDIS_URL must be set for the redis backend")
		}
	case BackendSQL:
		if c.RateLimitDSN == "" {
			return fmt.Errorf("RATE_LIMIT_DSN must be set for the sql backend")
		}
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}
	if c.MaxMessageLength <= 0 || c.MaxSubjectLength <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH and MAX_SUBJECT_LENGTH must be positive")
	}
	if c.MaxBodyKB <= 0 {
		return fmt.Errorf("MAX_BODY_KB must be positive")
	}
	if c.MaintenanceInterval <= 0 {
		return fmt.Errorf("MAINTENANCE_INTERVAL must be positive")
	}
	for _, src := range []string{c.AdminSubject, c.AdminTemplate, c.AutoReplySubject, c.AutoReplyTemplate} {
		if _, err := template.New("check").Parse(src); err != nil {
			return fmt.Errorf("message template: %w", err)
		}
	}
	return nil
}

// InquiryLabel maps an inquiry key to its display label.
func (c *Config) InquiryLabel(key string) (string, bool) {
	for _, it := range c.InquiryTypes {
		if it.Key == key {
			return it.Label, true
		}
	}
	return "", false
}

// message returns the configured text for kind, falling back to the generic error.
func (c *Config) message(kind ErrorKind) string {
	if m, ok := c.Messages[kind]; ok && m != "" {
		return m
	}
	if m, ok := c.Messages[KindGeneralError]; ok && m != "" {
		return m
	}
	return "An unexpected error occurred. Please try again later."
}
