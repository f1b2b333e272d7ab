package integrationtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/randalmurphal/reportflow/analytics"
	"github.com/randalmurphal/reportflow/artifact"
	rfcontext "github.com/randalmurphal/reportflow/context"
	"github.com/randalmurphal/reportflow/generate"
	"github.com/randalmurphal/reportflow/observe"
	"github.com/randalmurphal/reportflow/prompt"
	"github.com/randalmurphal/reportflow/testutil"
	"github.com/randalmurphal/reportflow/transcript"
	"github.com/randalmurphal/reportflow/workflow"
)

const threeSectionPlan = `{"sections": [
	{"name": "Executive Summary", "description": "Headline results", "research": false},
	{"name": "Traffic Analysis", "description": "Sources and mediums", "research": true},
	{"name": "Recommendations", "description": "Next steps", "research": false}
]}`

// stageGenerator answers by workflow stage; sections get "<name> body".
func stageGenerator(plan, failStage string) *generate.Mock {
	return generate.NewMock().WithHandler(func(ctx context.Context, _ string, _ generate.Params) (string, error) {
		stage := observe.Stage(ctx)
		if stage == failStage {
			return "", errors.New("upstream timeout")
		}
		switch stage {
		case workflow.StageAnalyze:
			return "Active users grew 20.0% month over month.", nil
		case workflow.StageInsight:
			return "Organic search drives the growth.", nil
		case workflow.StagePlan:
			return plan, nil
		default:
			return observe.Section(ctx) + " body", nil
		}
	})
}

// setupServices wires real file stores under a temp dir around gen.
func setupServices(t *testing.T, gen generate.Generator) (*rfcontext.Services, *testutil.CaptureNotifier) {
	t.Helper()
	dir := t.TempDir()

	transcripts, err := transcript.NewFileStore(transcript.StoreConfig{BaseDir: dir})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	notifier := &testutil.CaptureNotifier{}
	return &rfcontext.Services{
		Source:      growthSource(),
		Generator:   gen,
		Notifier:    notifier,
		Artifacts:   artifact.NewManager(artifact.Config{BaseDir: dir}),
		Prompts:     prompt.NewLoader(),
		Transcripts: transcripts,
		Observer:    observe.New(observe.WithTranscripts(transcripts)),
	}, notifier
}

func growthSource() analytics.DataSource {
	return testutil.ComparisonSource(testutil.FixedNow, 30,
		testutil.SampleDataset(120), testutil.SampleDataset(100))
}

// setupContext injects services for stages run outside the engine.
func setupContext(t *testing.T, svc *rfcontext.Services) flowgraph.Context {
	t.Helper()
	ctx := svc.InjectAll(context.Background())
	opts := workflow.DefaultOptions()
	opts.Now = func() time.Time { return testutil.FixedNow }
	ctx = workflow.WithOptions(ctx, opts)
	return flowgraph.NewContext(ctx)
}

// node adapts a stage to a flowgraph node.
func node(stage workflow.StageFunc) flowgraph.NodeFunc[workflow.State] {
	return func(ctx flowgraph.Context, s workflow.State) (workflow.State, error) {
		return stage(ctx, s)
	}
}
