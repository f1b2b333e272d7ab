package engine

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
	"github.com/randalmurphal/flowgraph/pkg/flowgraph/checkpoint"

	"github.com/randalmurphal/reportflow/workflow"
)

// tracker keeps the first stage error and the latest state of a run, so
// the engine can return both unchanged whatever the graph runtime does
// with them.
type tracker struct {
	mu   sync.Mutex
	last workflow.State
	err  error
}

func (t *tracker) record(s workflow.State, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = s
	if err != nil && t.err == nil {
		t.err = err
	}
}

// compile builds the report graph:
//
//	fetch-data -> analyze -> insight -> plan
//	plan -> write-researched | gather | END
//	write-researched -> gather
//	gather -> write-derived | compile
//	write-derived -> compile
//	compile -> END, or compile -> deliver -> END
func (e *Engine) compile(t *tracker) (*flowgraph.CompiledGraph[workflow.State], error) {
	node := func(name string, stage workflow.StageFunc) flowgraph.NodeFunc[workflow.State] {
		wrapped := workflow.Wrap(name, e.retries, stage)
		return func(ctx flowgraph.Context, s workflow.State) (workflow.State, error) {
			out, err := wrapped(ctx, s)
			t.record(out, err)
			return out, err
		}
	}
	route := func(r workflow.RouterFunc) func(ctx flowgraph.Context, s workflow.State) string {
		return func(ctx flowgraph.Context, s workflow.State) string {
			return r(ctx, s)
		}
	}

	g := flowgraph.NewGraph[workflow.State]().
		AddNode(workflow.StageFetchData, node(workflow.StageFetchData, workflow.FetchData)).
		AddNode(workflow.StageAnalyze, node(workflow.StageAnalyze, workflow.Analyze)).
		AddNode(workflow.StageInsight, node(workflow.StageInsight, workflow.Insight)).
		AddNode(workflow.StagePlan, node(workflow.StagePlan, workflow.Plan)).
		AddNode(workflow.StageWriteResearched, node(workflow.StageWriteResearched, workflow.WriteResearched)).
		AddNode(workflow.StageGather, node(workflow.StageGather, workflow.Gather)).
		AddNode(workflow.StageWriteDerived, node(workflow.StageWriteDerived, workflow.WriteDerived)).
		AddNode(workflow.StageCompile, node(workflow.StageCompile, workflow.Compile)).
		AddEdge(workflow.StageFetchData, workflow.StageAnalyze).
		AddEdge(workflow.StageAnalyze, workflow.StageInsight).
		AddEdge(workflow.StageInsight, workflow.StagePlan).
		AddConditionalEdge(workflow.StagePlan, route(workflow.PlanRouter)).
		AddEdge(workflow.StageWriteResearched, workflow.StageGather).
		AddConditionalEdge(workflow.StageGather, route(workflow.GatherRouter)).
		AddEdge(workflow.StageWriteDerived, workflow.StageCompile).
		SetEntry(workflow.StageFetchData)

	if e.opts.DeliveryStage {
		g = g.AddNode(workflow.StageDeliver, node(workflow.StageDeliver, workflow.Deliver)).
			AddEdge(workflow.StageCompile, workflow.StageDeliver).
			AddEdge(workflow.StageDeliver, flowgraph.END)
	} else {
		g = g.AddEdge(workflow.StageCompile, flowgraph.END)
	}

	return g.Compile()
}

// runGraph executes g for s, checkpointing after every stage. On resume it
// continues after the last checkpointed stage, seeded with s, which is
// never older than that checkpoint. Without checkpoints a resume starts at
// the entry and the stages skip the work s already holds.
func (e *Engine) runGraph(ctx flowgraph.Context, g *flowgraph.CompiledGraph[workflow.State], s workflow.State, resume bool) (workflow.State, error) {
	if resume {
		infos, err := e.checkpoints.List(s.RunID)
		if err != nil {
			return s, fmt.Errorf("list checkpoints: %w", err)
		}
		if len(infos) > 0 {
			return g.Resume(ctx, e.checkpoints, s.RunID,
				flowgraph.WithStateOverride(func(any) any { return s }))
		}
	}
	return g.Run(ctx, s,
		flowgraph.WithCheckpointing(e.checkpoints),
		flowgraph.WithRunID(s.RunID),
		flowgraph.WithCheckpointFailureFatal(false),
		flowgraph.WithObservabilityLogger(e.obs.Log(ctx)))
}

// latestCheckpoint decodes the state of the newest checkpoint of runID.
func latestCheckpoint(store checkpoint.Store, runID string) (workflow.State, error) {
	var s workflow.State
	infos, err := store.List(runID)
	if err != nil {
		return s, fmt.Errorf("list checkpoints: %w", err)
	}
	if len(infos) == 0 {
		return s, checkpoint.ErrNotFound
	}
	data, err := store.Load(runID, infos[len(infos)-1].NodeID)
	if err != nil {
		return s, fmt.Errorf("load checkpoint: %w", err)
	}
	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return s, fmt.Errorf("decode checkpoint: %w", err)
	}
	if err := json.Unmarshal(cp.State, &s); err != nil {
		return s, fmt.Errorf("decode checkpoint state: %w", err)
	}
	return s, nil
}
