package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/reportflow/report"
)

// Errors returned by sources.
var (
	ErrMissingCredentials = errors.New("missing analytics credentials")
	ErrInvalidProperty    = errors.New("invalid property reference")
)

// DataSource fetches a dataset for a query.
type DataSource interface {
	Fetch(ctx context.Context, q report.Query) (*report.Dataset, error)
}

// Validator is implemented by sources that can check their credentials
// before the first real query.
type Validator interface {
	Validate(ctx context.Context) error
}

// SourceFunc adapts a function to DataSource.
type SourceFunc func(ctx context.Context, q report.Query) (*report.Dataset, error)

// Fetch implements DataSource.
func (f SourceFunc) Fetch(ctx context.Context, q report.Query) (*report.Dataset, error) {
	return f(ctx, q)
}

// PropertyPath normalizes "123" and "properties/123" to "properties/123".
func PropertyPath(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	id := strings.TrimPrefix(ref, "properties/")
	if id == "" || strings.ContainsAny(id, "/ ") {
		return "", fmt.Errorf("%w: %q", ErrInvalidProperty, ref)
	}
	return "properties/" + id, nil
}
