// Package analytics reads metric datasets from an analytics backend.
//
// Core types:
//   - DataSource: The interface report runs depend on
//   - GA4: Google Analytics Data API (v1beta) implementation
//   - Static and SourceFunc: In-memory sources for tests and examples
//
// Collect issues the report query plus the comparison queries (previous
// period, current week, previous week) and attaches growth figures to the
// returned dataset.
//
// Example:
//
//	src, err := analytics.NewGA4(ctx, analytics.Credentials{
//	    ClientID:     id,
//	    ClientSecret: secret,
//	    RefreshToken: token,
//	})
//	ds, err := analytics.Collect(ctx, src, query, time.Now())
package analytics
