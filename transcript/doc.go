// Package transcript records the generator exchanges of a report run.
//
// Each run gets a directory under <base>/runs/<run-id>/ holding
// metadata.json (kept current while the run is active) and
// transcript.json, gzip-compressed when large.
//
// Core types:
//   - Manager: Interface used by the observer to record turns
//   - FileStore: File-backed Manager
//   - Viewer: Human-readable rendering for the CLI
//
// A turn is one prompt or one completion, tagged with the stage and, for
// section writers, the section name.
package transcript
