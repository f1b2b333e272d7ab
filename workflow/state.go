package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/randalmurphal/reportflow/notify"
	"github.com/randalmurphal/reportflow/report"
)

// =============================================================================
// State - Full Workflow State
// =============================================================================

// State is the shared record every stage reads and extends. Fields are
// populated in stage order and never cleared, so a checkpointed State can
// re-enter the graph at any stage.
type State struct {
	// Identification
	RunID       string       `json:"runId"`
	PropertyRef string       `json:"propertyRef"`
	Query       report.Query `json:"query"`

	// Stage outputs
	Dataset       *report.Dataset   `json:"dataset,omitempty"`
	AnalysisText  string            `json:"analysis,omitempty"`
	InsightsText  string            `json:"insights,omitempty"`
	Sections      []*report.Section `json:"sections,omitempty"`
	FinalDocument string            `json:"finalDocument,omitempty"`
	Delivery      *notify.Ack       `json:"delivery,omitempty"`

	// PartialDelivery lists the notifier channels, by position, that took
	// the report on a failed delivery attempt.
	PartialDelivery []int `json:"partialDelivery,omitempty"`

	// Warnings collects non-fatal problems, such as a failed delivery
	// under the warn policy.
	Warnings []string `json:"warnings,omitempty"`

	Metrics Metrics `json:"metrics"`
}

// Metrics tracks generator usage for a run
type Metrics struct {
	TokensIn       int           `json:"tokensIn"`
	TokensOut      int           `json:"tokensOut"`
	GeneratorCalls int           `json:"generatorCalls"`
	StartTime      time.Time     `json:"startTime"`
	TotalDuration  time.Duration `json:"totalDuration"`
}

// NewState creates the initial state of a run.
func NewState(runID, propertyRef string, q report.Query) State {
	q.PropertyRef = propertyRef
	return State{
		RunID:       runID,
		PropertyRef: propertyRef,
		Query:       q,
		Metrics:     Metrics{StartTime: time.Now()},
	}
}

// runIDAlphabet keeps run IDs safe for file names and URLs.
const runIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewRunID returns an ID of the form YYYY-MM-DD-<random>. The date prefix
// groups archived runs by month.
func NewRunID(now time.Time) string {
	suffix, err := nanoid.Generate(runIDAlphabet, 10)
	if err != nil {
		suffix = fmt.Sprintf("%x", now.UnixNano())
	}
	return now.Format("2006-01-02") + "-" + suffix
}

// AddUsage records one generator call.
func (s *State) AddUsage(in, out int) {
	s.Metrics.TokensIn += in
	s.Metrics.TokensOut += out
	s.Metrics.GeneratorCalls++
}

// Warn appends a warning.
func (s *State) Warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// FinalizeDuration sets total duration from start time
func (s *State) FinalizeDuration() {
	if !s.Metrics.StartTime.IsZero() {
		s.Metrics.TotalDuration = time.Since(s.Metrics.StartTime)
	}
}

// =============================================================================
// State Validation
// =============================================================================

// ErrPrerequisite is wrapped by Validate failures.
var ErrPrerequisite = errors.New("missing prerequisite")

// Requirement defines a state prerequisite
type Requirement string

const (
	RequireDataset  Requirement = "dataset"
	RequireAnalysis Requirement = "analysis"
	RequireInsights Requirement = "insights"
	RequireSections Requirement = "sections"
	RequireDocument Requirement = "document"
)

// Validate checks if state has required fields
func (s State) Validate(requirements ...Requirement) error {
	for _, req := range requirements {
		var ok bool
		switch req {
		case RequireDataset:
			ok = s.Dataset != nil
		case RequireAnalysis:
			ok = s.AnalysisText != ""
		case RequireInsights:
			ok = s.InsightsText != ""
		case RequireSections:
			ok = len(s.Sections) > 0
		case RequireDocument:
			ok = s.FinalDocument != ""
		default:
			return fmt.Errorf("unknown requirement: %s", req)
		}
		if !ok {
			return fmt.Errorf("%w: %s required", ErrPrerequisite, req)
		}
	}
	return nil
}

// Summary returns a one-line description of the run's progress.
func (s State) Summary() string {
	var status string
	switch {
	case s.Delivery != nil:
		status = "delivered"
	case s.FinalDocument != "":
		status = "compiled"
	case len(s.Sections) > 0:
		status = fmt.Sprintf("writing %d/%d", len(report.Completed(s.Sections)), len(s.Sections))
	case s.InsightsText != "":
		status = "analyzed"
	case s.Dataset != nil:
		status = "fetched"
	default:
		status = "pending"
	}
	if s.Dataset.IsDegraded() {
		status += ", data unavailable"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s [%s]: property %s (calls: %d, tokens: %d in, %d out)",
		s.RunID, status, s.PropertyRef, s.Metrics.GeneratorCalls, s.Metrics.TokensIn, s.Metrics.TokensOut)
	return b.String()
}
