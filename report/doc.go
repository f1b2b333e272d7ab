// Package report defines the data that flows through a report run.
//
// Core types:
//   - Dataset: Metric rows, totals and period comparisons fetched for a property
//   - Section: One planned unit of the report, written by exactly one stage
//   - Query: What to ask the analytics source for
//
// A Dataset is created once per run and treated as read-only afterwards.
// A degraded Dataset carries a non-empty Error and empty collections;
// stages downstream render it rather than failing.
//
// Growth figures are computed with ComputeGrowth, which only emits an
// entry when the previous value is strictly positive, so no NaN or
// infinite rate can reach a prompt or the final document.
package report
