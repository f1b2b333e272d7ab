// Package workflow provides the report state and the stages that build a
// report from analytics data.
//
// Core types:
//   - State: run state, populated stage by stage and checkpointed after each
//   - StageFunc: function signature for stages
//   - StageError: stage failure with its kind (external, invariant, canceled, delivery)
//   - Options: stage behavior (pool size, temperature, notify policy)
//
// Stages, in graph order:
//   - FetchData: collects the dataset and growth comparisons, degrading on source failure
//   - Analyze, Insight: overall analysis and key insights
//   - Plan: outline, parsed by ParseOutline
//   - WriteResearched: sections written from the data, in parallel
//   - Gather: drops researched sections that were never written
//   - WriteDerived: summary and recommendation sections written from the others
//   - Compile: renders the document (CompileDocument) and delivers it inline
//   - Deliver: delivery as a separate stage
//
// PlanRouter and GatherRouter choose the branches after Plan and Gather.
// Every stage skips work whose output is already in State, so a run can be
// resumed from its last checkpoint.
//
// Stages find their collaborators in the context:
//
//	ctx = services.InjectAll(ctx)
//	ctx = workflow.WithOptions(ctx, workflow.DefaultOptions())
//	s, err := workflow.FetchData(ctx, workflow.NewState(runID, "123456789", query))
package workflow
