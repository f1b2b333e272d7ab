// Package artifact stores per-run files for report runs and applies
// retention to them.
//
// Layout under the data directory:
//
//	runs/<run-id>/run.json                 run record (status, last stage)
//	runs/<run-id>/artifacts/state.json     workflow checkpoint
//	runs/<run-id>/artifacts/report.md      compiled document
//	archive/<YYYY-MM>/<run-id>.tar.gz      archived runs
//
// Artifacts at or above Config.CompressAbove are stored gzipped with a
// .gz suffix; LoadArtifact decompresses transparently.
//
//	mgr := artifact.NewManager(artifact.Config{BaseDir: ".reportflow"})
//	err := mgr.SaveJSON(runID, artifact.ArtifactState, state)
//	err = mgr.LoadJSON(runID, artifact.ArtifactState, &state)
package artifact
