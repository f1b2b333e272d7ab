package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"

	"github.com/randalmurphal/reportflow/report"
)

// GoogleTokenURL is the OAuth2 token endpoint used for refresh tokens.
const GoogleTokenURL = "https://oauth2.googleapis.com/token"

// Credentials are OAuth2 client credentials plus a refresh token.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Validate reports which required credential fields are empty.
func (c Credentials) Validate() error {
	var missing []string
	if c.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// TokenSource returns a refreshing token source for the credentials.
func (c Credentials) TokenSource(ctx context.Context) oauth2.TokenSource {
	cfg := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: GoogleTokenURL},
		Scopes:       []string{analyticsdata.AnalyticsReadonlyScope},
	}
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: c.RefreshToken})
}

// =============================================================================
// GA4
// =============================================================================

// GA4 reads reports from the Google Analytics Data API.
type GA4 struct {
	svc         *analyticsdata.Service
	logger      *slog.Logger
	validateRef string
}

// GA4Option configures a GA4 source.
type GA4Option func(*ga4Options)

type ga4Options struct {
	logger      *slog.Logger
	clientOpts  []option.ClientOption
	validateRef string
}

// WithGA4Logger sets the logger for conversion warnings.
func WithGA4Logger(l *slog.Logger) GA4Option {
	return func(o *ga4Options) { o.logger = l }
}

// WithClientOptions passes extra options to the API client. Used to point
// the client at a test server.
func WithClientOptions(opts ...option.ClientOption) GA4Option {
	return func(o *ga4Options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// WithValidationProperty makes Validate issue a one-day probe report
// against the given property.
func WithValidationProperty(ref string) GA4Option {
	return func(o *ga4Options) { o.validateRef = ref }
}

// NewGA4 creates a GA4 source authenticated with creds.
func NewGA4(ctx context.Context, creds Credentials, opts ...GA4Option) (*GA4, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	o := ga4Options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := append([]option.ClientOption{
		option.WithTokenSource(creds.TokenSource(ctx)),
	}, o.clientOpts...)
	return newGA4(ctx, o, clientOpts)
}

// NewGA4WithOptions creates a GA4 source from raw client options only.
func NewGA4WithOptions(ctx context.Context, opts ...GA4Option) (*GA4, error) {
	o := ga4Options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return newGA4(ctx, o, o.clientOpts)
}

func newGA4(ctx context.Context, o ga4Options, clientOpts []option.ClientOption) (*GA4, error) {
	svc, err := analyticsdata.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create analytics data service: %w", err)
	}
	return &GA4{svc: svc, logger: o.logger, validateRef: o.validateRef}, nil
}

// Fetch implements DataSource.
func (g *GA4) Fetch(ctx context.Context, q report.Query) (*report.Dataset, error) {
	property, err := PropertyPath(q.PropertyRef)
	if err != nil {
		return nil, err
	}

	req := &analyticsdata.RunReportRequest{
		DateRanges:         []*analyticsdata.DateRange{{StartDate: q.Window.Start, EndDate: q.Window.End}},
		Dimensions:         make([]*analyticsdata.Dimension, 0, len(q.Dimensions)),
		Metrics:            make([]*analyticsdata.Metric, 0, len(q.Metrics)),
		MetricAggregations: []string{"TOTAL"},
	}
	for _, d := range q.Dimensions {
		req.Dimensions = append(req.Dimensions, &analyticsdata.Dimension{Name: d})
	}
	for _, m := range q.Metrics {
		req.Metrics = append(req.Metrics, &analyticsdata.Metric{Name: m})
	}
	if q.RowLimit > 0 {
		req.Limit = int64(q.RowLimit)
	}

	g.logger.DebugContext(ctx, "running analytics report",
		"property", property,
		"window", q.Window.String(),
		"metrics", len(q.Metrics),
		"dimensions", len(q.Dimensions),
	)

	resp, err := g.svc.Properties.RunReport(property, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("run report for %s: %w", property, err)
	}

	ds := convertResponse(ctx, g.logger, resp)
	ds.PropertyRef = q.PropertyRef
	ds.Window = q.Window
	return ds, nil
}

// Validate issues a minimal report to confirm the credentials work. It is a
// no-op unless WithValidationProperty was given.
func (g *GA4) Validate(ctx context.Context) error {
	if g.validateRef == "" {
		return nil
	}
	property, err := PropertyPath(g.validateRef)
	if err != nil {
		return err
	}
	_, err = g.svc.Properties.RunReport(property, &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{StartDate: "yesterday", EndDate: "today"}},
		Metrics:    []*analyticsdata.Metric{{Name: "activeUsers"}},
		Limit:      1,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("validate analytics credentials: %w", err)
	}
	return nil
}
