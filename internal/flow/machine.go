// Package flow models the advisor screen flow as an explicit state machine:
// input → result → {coverLetter | fixCv}, with back and reset edges. The
// secondary screens are entered optimistically with a pending sub-status
// that a later completion event resolves. A generation counter fences off
// completions that arrive after the user has already left the screen.
package flow

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/connectorzzz/advisor-api/internal/model"
)

type Screen string

const (
	ScreenInput       Screen = "input"
	ScreenResult      Screen = "result"
	ScreenCoverLetter Screen = "coverLetter"
	ScreenFixCV       Screen = "fixCv"
)

var (
	// ErrMissingInputs means the CV or job description is absent. This is
	// the disabled-submit-button case, not a remote failure.
	ErrMissingInputs = errors.New("cv file and job description are required")
	// ErrNoResult means a secondary screen was requested before an
	// analysis result exists.
	ErrNoResult = errors.New("no analysis result to work from")
	// ErrBadTransition means the requested edge does not exist from the
	// current screen.
	ErrBadTransition = errors.New("transition not allowed from current screen")
)

// Inputs is the CV + job description pair owned by one flow.
type Inputs struct {
	CVFilename     string
	CVData         []byte
	JobDescription string
}

// Flow is one visitor's pass through the advisor screens. All methods are
// safe for concurrent use; background fetch completions and user actions
// race by design.
type Flow struct {
	mu sync.Mutex

	id         uuid.UUID
	screen     Screen
	inputs     Inputs
	loading    bool // primary analyze call in flight
	pending    bool // secondary screen fetch in flight
	lastError  string
	generation uint64

	result       *model.AnalysisResult
	coverLetter  string
	improvements *model.ImprovementSet

	lastActive time.Time
}

func New() *Flow {
	return &Flow{
		id:         uuid.New(),
		screen:     ScreenInput,
		lastActive: time.Now(),
	}
}

func (f *Flow) ID() uuid.UUID { return f.id }

// LastActive reports when the flow last saw an action, for store eviction.
func (f *Flow) LastActive() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActive
}

func (f *Flow) touch() { f.lastActive = time.Now() }

// ── input → result ───────────────────────────────────

// BeginSubmit validates and stores the inputs and marks the primary call as
// loading. The flow stays on input until CompleteSubmit, which must present
// the returned generation.
func (f *Flow) BeginSubmit(in Inputs) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touch()

	if f.screen != ScreenInput {
		return 0, ErrBadTransition
	}
	if len(in.CVData) == 0 || in.JobDescription == "" {
		return 0, ErrMissingInputs
	}

	f.generation++
	f.inputs = in
	f.loading = true
	return f.generation, nil
}

// CompleteSubmit lands the analysis result and moves to the result screen.
// A stale generation means the user reset while the call was in flight; the
// result is discarded and false is returned.
func (f *Flow) CompleteSubmit(gen uint64, result *model.AnalysisResult) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation {
		return false
	}
	f.touch()
	f.loading = false
	f.result = result
	f.screen = ScreenResult
	return true
}

// FailSubmit clears the loading flag and stays on input. Inputs are kept so
// the user can resubmit. Stale generations are discarded.
func (f *Flow) FailSubmit(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation {
		return false
	}
	f.touch()
	f.loading = false
	return true
}

// ── result → {coverLetter | fixCv} ───────────────────

// StartCoverLetter transitions optimistically to the cover-letter screen
// and returns the generation the eventual completion must present.
// Re-entry from the cover-letter screen itself is the manual retry.
func (f *Flow) StartCoverLetter() (uint64, error) {
	return f.startSecondary(ScreenCoverLetter)
}

// FinishCoverLetter resolves the pending fetch. A stale generation means
// the user already left the screen; the completion is discarded and false
// is returned.
func (f *Flow) FinishCoverLetter(gen uint64, letter string, callErr error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation {
		return false
	}
	f.touch()
	f.pending = false
	if callErr != nil {
		f.lastError = callErr.Error()
		return true
	}
	f.coverLetter = letter
	return true
}

// StartFixCV mirrors StartCoverLetter for the improvement screen.
func (f *Flow) StartFixCV() (uint64, error) {
	return f.startSecondary(ScreenFixCV)
}

// FinishFixCV resolves the pending improvement fetch, discarding stale
// completions the same way as FinishCoverLetter.
func (f *Flow) FinishFixCV(gen uint64, set *model.ImprovementSet, callErr error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation {
		return false
	}
	f.touch()
	f.pending = false
	if callErr != nil {
		f.lastError = callErr.Error()
		return true
	}
	f.improvements = set
	return true
}

func (f *Flow) startSecondary(target Screen) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touch()

	if f.screen != ScreenResult && f.screen != target {
		return 0, ErrBadTransition
	}
	if f.result == nil {
		return 0, ErrNoResult
	}
	if len(f.inputs.CVData) == 0 || f.inputs.JobDescription == "" {
		return 0, ErrMissingInputs
	}

	f.generation++
	f.screen = target
	f.pending = true
	f.lastError = ""
	return f.generation, nil
}

// ── back / reset ─────────────────────────────────────

// Back returns from a secondary screen to the result screen, preserving the
// inputs and result. Any in-flight fetch is invalidated.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touch()

	if f.screen != ScreenCoverLetter && f.screen != ScreenFixCV {
		return ErrBadTransition
	}

	f.generation++
	f.screen = ScreenResult
	f.pending = false
	f.lastError = ""
	return nil
}

// Reset returns to a pristine input screen from anywhere, clearing the
// file, description and all fetched content.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touch()

	f.generation++
	f.screen = ScreenInput
	f.inputs = Inputs{}
	f.loading = false
	f.pending = false
	f.lastError = ""
	f.result = nil
	f.coverLetter = ""
	f.improvements = nil
}

// ── observation ──────────────────────────────────────

// Inputs returns a copy of the stored CV and description for the secondary
// webhook calls.
func (f *Flow) Inputs() Inputs {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputs
}

// Snapshot is the wire representation of a flow's current state.
type Snapshot struct {
	ID             string                `json:"id"`
	Screen         Screen                `json:"screen"`
	CVFilename     string                `json:"cvFilename,omitempty"`
	HasCV          bool                  `json:"hasCv"`
	JobDescription string                `json:"jobDescription,omitempty"`
	Loading        bool                  `json:"loading"`
	Pending        bool                  `json:"pending"`
	Error          string                `json:"error,omitempty"`
	Result         *model.AnalysisResult `json:"result,omitempty"`
	Tier           model.Tier            `json:"tier,omitempty"`
	WorthApplying  bool                  `json:"worthApplying"`
	CoverLetter    string                `json:"coverLetter,omitempty"`
	Improvements   *model.ImprovementSet `json:"improvements,omitempty"`
}

// Snapshot captures the current state for the client.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := Snapshot{
		ID:             f.id.String(),
		Screen:         f.screen,
		CVFilename:     f.inputs.CVFilename,
		HasCV:          len(f.inputs.CVData) > 0,
		JobDescription: f.inputs.JobDescription,
		Loading:        f.loading,
		Pending:        f.pending,
		Error:          f.lastError,
		Result:         f.result,
		CoverLetter:    f.coverLetter,
		Improvements:   f.improvements,
	}
	if f.result != nil {
		snap.Tier = model.MatchTier(f.result.MatchPercentage)
		snap.WorthApplying = model.WorthApplying(f.result.MatchPercentage)
	}
	return snap
}
