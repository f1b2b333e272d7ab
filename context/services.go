package context

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph/checkpoint"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/reportflow/analytics"
	"github.com/randalmurphal/reportflow/artifact"
	"github.com/randalmurphal/reportflow/config"
	"github.com/randalmurphal/reportflow/generate"
	"github.com/randalmurphal/reportflow/notify"
	"github.com/randalmurphal/reportflow/observe"
	"github.com/randalmurphal/reportflow/prompt"
	"github.com/randalmurphal/reportflow/transcript"
)

// Services wraps all reportflow services for convenient initialization
type Services struct {
	Source      analytics.DataSource
	Generator   generate.Generator
	Notifier    notify.Notifier
	Artifacts   *artifact.Manager     // Optional; state snapshots, reports and run records
	Checkpoints checkpoint.Store      // Optional; graph checkpoints for resume
	Prompts     *prompt.Loader        // Optional; defaults to the embedded prompts
	Transcripts *transcript.FileStore // Optional
	Observer    *observe.Observer
	Settings    *config.Settings
}

// Close releases the services that hold open resources.
func (s *Services) Close() error {
	if s.Checkpoints == nil {
		return nil
	}
	return s.Checkpoints.Close()
}

// InjectAll adds all configured services to the context
func (s *Services) InjectAll(ctx context.Context) context.Context {
	if s.Source != nil {
		ctx = WithSource(ctx, s.Source)
	}
	if s.Generator != nil {
		ctx = WithGenerator(ctx, s.Generator)
	}
	if s.Notifier != nil {
		ctx = notify.WithNotifier(ctx, s.Notifier)
	}
	if s.Artifacts != nil {
		ctx = WithArtifact(ctx, s.Artifacts)
	}
	if s.Prompts != nil {
		ctx = WithPrompt(ctx, s.Prompts)
	}
	if s.Transcripts != nil {
		ctx = WithTranscript(ctx, s.Transcripts)
	}
	if s.Observer != nil {
		ctx = WithObserver(ctx, s.Observer)
	}
	if s.Settings != nil {
		ctx = WithSettings(ctx, s.Settings)
	}
	return ctx
}

// Config configures NewServices
type Config struct {
	Settings       *config.Settings // required
	Logger         *slog.Logger     // default: slog.Default()
	TracerProvider trace.TracerProvider
}

// NewServices builds every service from settings: the GA4 source, the
// configured generator with retry, rate limiting and observation, the
// notifier chain, and the file stores under DataDir.
func NewServices(ctx context.Context, cfg Config) (*Services, error) {
	s := cfg.Settings
	if s == nil {
		return nil, fmt.Errorf("services: settings are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transcripts, err := transcript.NewFileStore(transcript.StoreConfig{BaseDir: s.DataDir})
	if err != nil {
		return nil, fmt.Errorf("open transcript store: %w", err)
	}

	obsOpts := []observe.Option{observe.WithLogger(logger), observe.WithTranscripts(transcripts)}
	if cfg.TracerProvider != nil {
		obsOpts = append(obsOpts, observe.WithTracerProvider(cfg.TracerProvider))
	}
	obs := observe.New(obsOpts...)

	source, err := NewSource(ctx, s, logger)
	if err != nil {
		return nil, err
	}
	gen, err := NewGenerator(ctx, s, obs)
	if err != nil {
		return nil, err
	}
	notifier, err := NewNotifier(s, logger)
	if err != nil {
		return nil, err
	}
	checkpoints, err := NewCheckpointStore(s)
	if err != nil {
		return nil, err
	}

	return &Services{
		Source:      source,
		Generator:   gen,
		Notifier:    notifier,
		Artifacts:   artifact.NewManager(artifact.Config{BaseDir: s.DataDir}),
		Checkpoints: checkpoints,
		Prompts:     prompt.ForDataDir(s.DataDir),
		Transcripts: transcripts,
		Observer:    obs,
		Settings:    s,
	}, nil
}

// NewSource creates the GA4 data source from the settings' credentials.
func NewSource(ctx context.Context, s *config.Settings, logger *slog.Logger) (analytics.DataSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	creds := analytics.Credentials{
		ClientID:     s.GAClientID,
		ClientSecret: s.GAClientSecret,
		RefreshToken: s.GARefreshToken,
	}
	opts := []analytics.GA4Option{analytics.WithGA4Logger(logger)}
	if s.PropertyID != "" {
		opts = append(opts, analytics.WithValidationProperty(s.PropertyID))
	}
	src, err := analytics.NewGA4(ctx, creds, opts...)
	if err != nil {
		return nil, fmt.Errorf("create analytics source: %w", err)
	}
	return src, nil
}

// NewGenerator creates the configured backend wrapped as
// Observed(Retrying(RateLimited(backend))).
func NewGenerator(ctx context.Context, s *config.Settings, obs *observe.Observer) (generate.Generator, error) {
	var base generate.Generator
	switch s.Generator {
	case config.GeneratorClaude:
		var opts []generate.ClaudeOption
		if s.Model != "" {
			opts = append(opts, generate.WithDefaultModel(s.Model))
		}
		if s.DataDir != "" {
			if abs, err := filepath.Abs(s.DataDir); err == nil {
				opts = append(opts, generate.WithWorkdir(abs))
			}
		}
		base = generate.NewClaude(opts...)
	default:
		oa, err := generate.NewOpenAI(ctx, generate.OpenAIConfig{
			APIKey:  s.OpenAIAPIKey,
			BaseURL: s.OpenAIBaseURL,
			Model:   s.Model,
			Timeout: 2 * time.Minute,
		})
		if err != nil {
			return nil, err
		}
		base = oa
	}

	retry := generate.DefaultRetryConfig()
	retry.MaxAttempts = s.MaxRetries + 1
	retry.Logger = obs.Logger

	gen := generate.RateLimited(base, s.RequestsPerMinute)
	gen = generate.Retrying(gen, retry)
	return generate.Observed(gen, obs), nil
}

// NewCheckpointStore opens the SQLite graph checkpoint store under
// DataDir. Without a DataDir checkpoints stay in memory.
func NewCheckpointStore(s *config.Settings) (checkpoint.Store, error) {
	if s.DataDir == "" {
		return checkpoint.NewMemoryStore(), nil
	}
	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := checkpoint.NewSQLiteStore(filepath.Join(s.DataDir, CheckpointFile))
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	return store, nil
}

// CheckpointFile is the graph checkpoint database under DataDir.
const CheckpointFile = "checkpoints.db"

// NewNotifier builds the delivery chain. Every configured channel is
// included; with none configured reports go to the log.
func NewNotifier(s *config.Settings, logger *slog.Logger) (notify.Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var notifiers []notify.Notifier

	if s.SMTPHost != "" || s.EmailFrom != "" || len(s.EmailTo) > 0 {
		email, err := notify.NewEmailNotifier(notify.EmailConfig{
			Host:     s.SMTPHost,
			Port:     s.SMTPPort,
			Username: s.SMTPUsername,
			Password: s.SMTPPassword,
			From:     s.EmailFrom,
			To:       s.EmailTo,
		})
		if err != nil {
			return nil, fmt.Errorf("email notifier: %w", err)
		}
		notifiers = append(notifiers, email)
	}
	if s.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(s.SlackWebhook, notify.WithSlackLogger(logger)))
	}
	if s.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(s.WebhookURL, nil, notify.WithWebhookLogger(logger)))
	}

	switch len(notifiers) {
	case 0:
		return notify.NewLogNotifier(logger), nil
	case 1:
		return notifiers[0], nil
	default:
		multi := notify.NewMultiNotifier(notifiers...)
		multi.Logger = logger
		return multi, nil
	}
}
