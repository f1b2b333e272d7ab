package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/randalmurphal/reportflow/artifact"
	rfcontext "github.com/randalmurphal/reportflow/context"
	"github.com/randalmurphal/reportflow/generate"
	"github.com/randalmurphal/reportflow/notify"
	"github.com/randalmurphal/reportflow/observe"
	"github.com/randalmurphal/reportflow/prompt"
)

// TestContext returns a context that is canceled when the test ends.
// This ensures any goroutines started during the test are properly cleaned up.
func TestContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx
}

// TestContextWithTimeout returns a context with a timeout.
// The context is also canceled when the test ends.
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)

	return ctx
}

// CancelableContext returns a context and cancel function.
// The context is automatically canceled when the test ends if not canceled earlier.
func CancelableContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx, cancel
}

// Services returns a service bundle backed by fakes: the given source and
// generator, a capture notifier, embedded prompts and an artifact store in
// a temp dir.
func Services(t *testing.T, src *rfcontext.Services) *rfcontext.Services {
	t.Helper()
	if src == nil {
		src = &rfcontext.Services{}
	}
	if src.Generator == nil {
		src.Generator = generate.NewMock("generated text")
	}
	if src.Notifier == nil {
		src.Notifier = &CaptureNotifier{}
	}
	if src.Prompts == nil {
		src.Prompts = prompt.NewLoader()
	}
	if src.Artifacts == nil {
		src.Artifacts = artifact.NewManager(artifact.Config{BaseDir: t.TempDir()})
	}
	if src.Observer == nil {
		src.Observer = observe.Discard()
	}
	return src
}

// ServiceContext returns a test context with the services injected.
func ServiceContext(t *testing.T, svc *rfcontext.Services) context.Context {
	t.Helper()
	return Services(t, svc).InjectAll(TestContext(t))
}

var _ notify.Notifier = (*CaptureNotifier)(nil)
