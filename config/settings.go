package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Application identity used for file and env lookup.
const (
	AppName         = "reportflow"
	EnvPrefix       = "REPORTFLOW_"
	LocalConfigName = ".reportflow.yaml"
)

// Notify policies.
const (
	NotifyFatal    = "fatal"
	NotifyWarn     = "warn"
	NotifyDisabled = "disabled"
)

// Generator backends.
const (
	GeneratorOpenAI = "openai"
	GeneratorClaude = "claude"
)

// Keys lists every setting, in display order.
var Keys = []string{
	"property_id", "metrics", "dimensions", "default_days", "row_limit",
	"generator", "model", "temperature", "openai_api_key", "openai_base_url",
	"max_concurrency", "requests_per_minute", "max_retries", "stage_retries",
	"notify_policy", "delivery_stage", "notify_subject",
	"smtp_host", "smtp_port", "smtp_username", "smtp_password", "email_from", "email_to",
	"slack_webhook", "webhook_url",
	"data_dir", "database", "listen_addr", "api_key_hash",
	"ga_client_id", "ga_client_secret", "ga_refresh_token",
}

// secretKeys are masked by Redacted.
var secretKeys = map[string]bool{
	"openai_api_key":   true,
	"smtp_password":    true,
	"ga_client_secret": true,
	"ga_refresh_token": true,
	"api_key_hash":     true,
}

// Defaults returns the built-in value of every setting that has one.
func Defaults() map[string]string {
	return map[string]string{
		"metrics":             "activeUsers,sessions,screenPageViews,engagementRate,averageSessionDuration",
		"dimensions":          "date,sessionSource,sessionMedium,deviceCategory,country",
		"default_days":        "30",
		"row_limit":           "10000",
		"generator":           GeneratorOpenAI,
		"temperature":         "0.7",
		"max_concurrency":     "4",
		"requests_per_minute": "0",
		"max_retries":         "3",
		"stage_retries":       "0",
		"notify_policy":       NotifyFatal,
		"delivery_stage":      "false",
		"notify_subject":      "Analytics Performance Report",
		"smtp_port":           "587",
		"data_dir":            ".reportflow",
		"database":            "runs.db",
		"listen_addr":         ":8000",
	}
}

// NewAppResolver returns the resolver for reportflow's own config files.
func NewAppResolver() *Resolver {
	return NewResolver(ResolverConfig{
		EnvPrefix:       EnvPrefix,
		GlobalConfigDir: AppName,
		LocalConfigName: LocalConfigName,
		Defaults:        Defaults(),
		Keys:            Keys,
	})
}

// AppSaveConfig returns the SaveConfig matching NewAppResolver.
func AppSaveConfig() SaveConfig {
	return SaveConfig{
		GlobalConfigDir: AppName,
		LocalConfigName: LocalConfigName,
		Keys:            Keys,
	}
}

// Settings is the typed view of a resolved configuration.
type Settings struct {
	PropertyID  string
	Metrics     []string
	Dimensions  []string
	DefaultDays int
	RowLimit    int

	Generator     string
	Model         string
	Temperature   float64
	OpenAIAPIKey  string
	OpenAIBaseURL string

	MaxConcurrency    int
	RequestsPerMinute int
	MaxRetries        int
	StageRetries      int

	NotifyPolicy  string
	DeliveryStage bool
	NotifySubject string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	EmailTo      []string
	SlackWebhook string
	WebhookURL   string

	DataDir    string
	Database   string
	ListenAddr string
	APIKeyHash string

	GAClientID     string
	GAClientSecret string
	GARefreshToken string
}

// DefaultSettings returns the settings built from Defaults alone.
func DefaultSettings() *Settings {
	s, err := parseSettings(func(key string) string { return Defaults()[key] })
	if err != nil {
		panic(err) // defaults are constants
	}
	return s
}

// Settings parses the resolved values. The first malformed value is
// reported with its key and source.
func (c *Resolved) Settings() (*Settings, error) {
	s, err := parseSettings(c.Get)
	if err != nil {
		var pe *parseError
		if errors.As(err, &pe) {
			return nil, fmt.Errorf("config %s (from %s): %w", pe.key, c.Source(pe.key), pe.err)
		}
		return nil, err
	}
	return s, nil
}

type parseError struct {
	key string
	err error
}

func (e *parseError) Error() string { return e.key + ": " + e.err.Error() }

func parseSettings(get func(string) string) (*Settings, error) {
	p := &parser{get: get}
	s := &Settings{
		PropertyID:  get("property_id"),
		Metrics:     splitList(get("metrics")),
		Dimensions:  splitList(get("dimensions")),
		DefaultDays: p.int("default_days", 1),
		RowLimit:    p.int("row_limit", 1),

		Generator:     strings.ToLower(get("generator")),
		Model:         get("model"),
		Temperature:   p.float("temperature"),
		OpenAIAPIKey:  get("openai_api_key"),
		OpenAIBaseURL: get("openai_base_url"),

		MaxConcurrency:    p.int("max_concurrency", 1),
		RequestsPerMinute: p.int("requests_per_minute", 0),
		MaxRetries:        p.int("max_retries", 0),
		StageRetries:      p.int("stage_retries", 0),

		NotifyPolicy:  strings.ToLower(get("notify_policy")),
		DeliveryStage: p.bool("delivery_stage"),
		NotifySubject: get("notify_subject"),

		SMTPHost:     get("smtp_host"),
		SMTPPort:     p.int("smtp_port", 0),
		SMTPUsername: get("smtp_username"),
		SMTPPassword: get("smtp_password"),
		EmailFrom:    get("email_from"),
		EmailTo:      splitList(get("email_to")),
		SlackWebhook: get("slack_webhook"),
		WebhookURL:   get("webhook_url"),

		DataDir:    get("data_dir"),
		Database:   get("database"),
		ListenAddr: get("listen_addr"),
		APIKeyHash: get("api_key_hash"),

		GAClientID:     get("ga_client_id"),
		GAClientSecret: get("ga_client_secret"),
		GARefreshToken: get("ga_refresh_token"),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks enumerated values and ranges.
func (s *Settings) Validate() error {
	switch s.NotifyPolicy {
	case NotifyFatal, NotifyWarn, NotifyDisabled:
	default:
		return &parseError{key: "notify_policy", err: fmt.Errorf("must be %s, %s or %s, got %q",
			NotifyFatal, NotifyWarn, NotifyDisabled, s.NotifyPolicy)}
	}
	switch s.Generator {
	case GeneratorOpenAI, GeneratorClaude:
	default:
		return &parseError{key: "generator", err: fmt.Errorf("must be %s or %s, got %q",
			GeneratorOpenAI, GeneratorClaude, s.Generator)}
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return &parseError{key: "temperature", err: fmt.Errorf("must be between 0 and 2, got %g", s.Temperature)}
	}
	if len(s.Metrics) == 0 {
		return &parseError{key: "metrics", err: fmt.Errorf("at least one metric is required")}
	}
	return nil
}

// DatabasePath resolves Database relative to DataDir.
func (s *Settings) DatabasePath() string {
	if s.Database == "" || filepath.IsAbs(s.Database) || s.Database == ":memory:" {
		return s.Database
	}
	return filepath.Join(s.DataDir, s.Database)
}

// Window returns the report window length.
func (s *Settings) Window() time.Duration {
	return time.Duration(s.DefaultDays) * 24 * time.Hour
}

// Redacted returns v masked when key holds a secret.
func Redacted(key, v string) string {
	if !secretKeys[key] || v == "" {
		return v
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

type parser struct {
	get func(string) string
	err error
}

func (p *parser) int(key string, min int) int {
	raw := strings.TrimSpace(p.get(key))
	if raw == "" || p.err != nil {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.err = &parseError{key: key, err: fmt.Errorf("not an integer: %q", raw)}
		return 0
	}
	if n < min {
		p.err = &parseError{key: key, err: fmt.Errorf("must be at least %d, got %d", min, n)}
		return 0
	}
	return n
}

func (p *parser) float(key string) float64 {
	raw := strings.TrimSpace(p.get(key))
	if raw == "" || p.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.err = &parseError{key: key, err: fmt.Errorf("not a number: %q", raw)}
		return 0
	}
	return f
}

func (p *parser) bool(key string) bool {
	raw := strings.TrimSpace(p.get(key))
	if raw == "" || p.err != nil {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.err = &parseError{key: key, err: fmt.Errorf("not a boolean: %q", raw)}
		return false
	}
	return b
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
