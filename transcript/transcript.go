package transcript

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Transcript errors
var (
	ErrRunNotFound      = errors.New("transcript run not found")
	ErrRunAlreadyExists = errors.New("transcript run already exists")
	ErrRunNotStarted    = errors.New("transcript run not started")
)

// RunStatus indicates the status of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// Roles used in turns.
const (
	RolePrompt     = "prompt"
	RoleCompletion = "completion"
	RoleError      = "error"
)

// Transcript is the full record of one run.
type Transcript struct {
	RunID    string `json:"runId"`
	Metadata Meta   `json:"metadata"`
	Turns    []Turn `json:"turns"`
}

// Meta summarizes a run.
type Meta struct {
	RunID          string    `json:"runId"`
	PropertyRef    string    `json:"propertyRef,omitempty"`
	StartedAt      time.Time `json:"startedAt"`
	EndedAt        time.Time `json:"endedAt,omitempty"`
	Status         RunStatus `json:"status"`
	TotalTokensIn  int       `json:"totalTokensIn"`
	TotalTokensOut int       `json:"totalTokensOut"`
	TurnCount      int       `json:"turnCount"`
	Error          string    `json:"error,omitempty"`
}

// Turn is one prompt, completion or failure.
type Turn struct {
	ID         int       `json:"id"`
	Role       string    `json:"role"`
	Stage      string    `json:"stage,omitempty"`
	Section    string    `json:"section,omitempty"`
	Model      string    `json:"model,omitempty"`
	Content    string    `json:"content"`
	TokensIn   int       `json:"tokensIn,omitempty"`
	TokensOut  int       `json:"tokensOut,omitempty"`
	DurationMs int64     `json:"durationMs,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// RunMetadata is input for starting a run.
type RunMetadata struct {
	PropertyRef string
}

// add appends a turn, numbering it and updating totals.
func (t *Transcript) add(turn Turn) {
	turn.ID = len(t.Turns) + 1
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	t.Metadata.TotalTokensIn += turn.TokensIn
	t.Metadata.TotalTokensOut += turn.TokensOut
	t.Turns = append(t.Turns, turn)
	t.Metadata.TurnCount = len(t.Turns)
}

// Duration returns the run duration
func (t *Transcript) Duration() time.Duration {
	if t.Metadata.EndedAt.IsZero() {
		return time.Since(t.Metadata.StartedAt)
	}
	return t.Metadata.EndedAt.Sub(t.Metadata.StartedAt)
}

// TurnsForStage returns the turns recorded by a stage.
func (t *Transcript) TurnsForStage(stage string) []Turn {
	var out []Turn
	for _, turn := range t.Turns {
		if turn.Stage == stage {
			out = append(out, turn)
		}
	}
	return out
}

// compressionThreshold is the size above which transcripts are compressed
const compressionThreshold = 100 * 1024

// Save writes the transcript under baseDir/runs/<run-id>/.
func (t *Transcript) Save(baseDir string) error {
	runDir := filepath.Join(baseDir, "runs", t.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}

	plain := filepath.Join(runDir, "transcript.json")
	if len(data) <= compressionThreshold {
		os.Remove(plain + ".gz")
		return os.WriteFile(plain, data, 0o644)
	}

	os.Remove(plain)
	f, err := os.Create(plain + ".gz")
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// Load reads a saved transcript.
func Load(baseDir, runID string) (*Transcript, error) {
	runDir := filepath.Join(baseDir, "runs", runID)

	data, err := readGzip(filepath.Join(runDir, "transcript.json.gz"))
	if err != nil {
		data, err = os.ReadFile(filepath.Join(runDir, "transcript.json"))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrRunNotFound
			}
			return nil, err
		}
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func readGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return io.ReadAll(gz)
}
