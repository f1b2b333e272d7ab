package workflow

import (
	"context"
	"time"

	"github.com/randalmurphal/reportflow/generate"
	"github.com/randalmurphal/reportflow/notify"
)

// NotifyPolicy decides what a delivery failure does to the run.
type NotifyPolicy string

const (
	// PolicyFatal fails the run when delivery fails.
	PolicyFatal NotifyPolicy = "fatal"
	// PolicyWarn records a warning and lets the run succeed.
	PolicyWarn NotifyPolicy = "warn"
	// PolicyDisabled never sends.
	PolicyDisabled NotifyPolicy = "disabled"
)

// Valid reports whether p is a known policy.
func (p NotifyPolicy) Valid() bool {
	switch p {
	case PolicyFatal, PolicyWarn, PolicyDisabled:
		return true
	}
	return false
}

// Options configures stage behavior
type Options struct {
	MaxConcurrency int           // Writer pool size (default: 4)
	Temperature    float64       // Sampling temperature (default: 0.7)
	Model          string        // Generator model override
	NotifyPolicy   NotifyPolicy  // Delivery failure handling (default: fatal)
	DeliveryStage  bool          // Deliver from a separate stage instead of Compile
	Subject        string        // Delivered message subject
	DefaultDays    int           // Report window length (default: 30)
	StageRetries   int           // Extra attempts per stage (default: 0)
	RetryDelay     time.Duration // Base delay between stage attempts (default: 1s)
	Now            func() time.Time
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		MaxConcurrency: 4,
		Temperature:    generate.DefaultTemperature,
		NotifyPolicy:   PolicyFatal,
		Subject:        notify.DefaultSubject,
		DefaultDays:    30,
		RetryDelay:     time.Second,
		Now:            time.Now,
	}
}

// normalized fills zero fields from the defaults.
func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = d.MaxConcurrency
	}
	if o.NotifyPolicy == "" {
		o.NotifyPolicy = d.NotifyPolicy
	}
	if o.Subject == "" {
		o.Subject = d.Subject
	}
	if o.DefaultDays <= 0 {
		o.DefaultDays = d.DefaultDays
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

type optionsKey struct{}

// WithOptions adds stage options to context
func WithOptions(ctx context.Context, o Options) context.Context {
	return context.WithValue(ctx, optionsKey{}, o.normalized())
}

// OptionsFromContext returns the options in ctx, or DefaultOptions.
func OptionsFromContext(ctx context.Context) Options {
	if o, ok := ctx.Value(optionsKey{}).(Options); ok {
		return o
	}
	return DefaultOptions()
}
