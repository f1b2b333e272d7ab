// Package task maps workflow stages to model tiers.
//
// Analysis and insight extraction reason over the whole dataset and run on
// the thinking tier. Planning and section writing use the default tier.
// Summaries use the fast tier.
//
// Example usage:
//
//	m := task.SelectModel(task.ForStage("analyze")) // model.ModelOpus
package task
