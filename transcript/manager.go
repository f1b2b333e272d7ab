package transcript

import "time"

// Manager records the generator conversation of report runs and reads it
// back. The engine opens and closes a run; the observer appends turns as
// the stages call the generator.
type Manager interface {
	StartRun(runID string, metadata RunMetadata) error
	RecordTurn(runID string, turn Turn) error
	EndRun(runID string, status RunStatus, runErr error) error

	Load(runID string) (*Transcript, error)
	LoadMetadata(runID string) (*Meta, error)
	List(filter ListFilter) ([]Meta, error)
}

// ListFilter narrows List. Zero fields match everything; results are
// newest first.
type ListFilter struct {
	PropertyRef string
	Status      RunStatus
	After       time.Time // started after
	Limit       int
}
