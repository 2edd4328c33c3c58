package flow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorzzz/advisor-api/internal/model"
)

func validInputs() Inputs {
	return Inputs{
		CVFilename:     "resume.pdf",
		CVData:         []byte("%PDF-1.4"),
		JobDescription: "Backend Engineer role requiring Java",
	}
}

func borderlineResult() *model.AnalysisResult {
	return &model.AnalysisResult{MatchPercentage: 70, Recommendation: "Maybe", Explanation: "Partial fit."}
}

// submitted returns a flow sitting on the result screen.
func submitted(t *testing.T) *Flow {
	t.Helper()
	f := New()
	gen, err := f.BeginSubmit(validInputs())
	require.NoError(t, err)
	require.True(t, f.CompleteSubmit(gen, borderlineResult()))
	return f
}

func TestBeginSubmitRequiresInputs(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
	}{
		{"no cv", Inputs{JobDescription: "desc"}},
		{"no description", Inputs{CVFilename: "a.pdf", CVData: []byte("x")}},
		{"nothing", Inputs{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New()
			_, err := f.BeginSubmit(tt.in)
			assert.ErrorIs(t, err, ErrMissingInputs)
			assert.Equal(t, ScreenInput, f.Snapshot().Screen)
			assert.False(t, f.Snapshot().Loading)
		})
	}
}

func TestSubmitSuccessLandsOnResult(t *testing.T) {
	f := New()
	gen, err := f.BeginSubmit(validInputs())
	require.NoError(t, err)
	assert.True(t, f.Snapshot().Loading)

	require.True(t, f.CompleteSubmit(gen, borderlineResult()))

	snap := f.Snapshot()
	assert.Equal(t, ScreenResult, snap.Screen)
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 70, snap.Result.MatchPercentage)
	assert.Equal(t, model.TierBorderline, snap.Tier)
	assert.True(t, snap.WorthApplying, "70 is above the 65 cutoff, the result screen leads with the cover-letter offer")
}

func TestFailSubmitKeepsInputsForResubmit(t *testing.T) {
	f := New()
	gen, err := f.BeginSubmit(validInputs())
	require.NoError(t, err)
	require.True(t, f.FailSubmit(gen))

	snap := f.Snapshot()
	assert.Equal(t, ScreenInput, snap.Screen)
	assert.False(t, snap.Loading)
	assert.True(t, snap.HasCV)
	assert.Equal(t, "Backend Engineer role requiring Java", snap.JobDescription)

	// And the retry works
	_, err = f.BeginSubmit(validInputs())
	require.NoError(t, err)
}

func TestSecondaryScreensRequireAResult(t *testing.T) {
	f := New()

	_, err := f.StartCoverLetter()
	assert.ErrorIs(t, err, ErrBadTransition)

	_, err = f.StartFixCV()
	assert.ErrorIs(t, err, ErrBadTransition)
}

func TestCoverLetterOptimisticTransition(t *testing.T) {
	f := submitted(t)

	gen, err := f.StartCoverLetter()
	require.NoError(t, err)

	snap := f.Snapshot()
	assert.Equal(t, ScreenCoverLetter, snap.Screen)
	assert.True(t, snap.Pending, "screen is entered before the fetch resolves")

	require.True(t, f.FinishCoverLetter(gen, "Dear Hiring Manager,", nil))

	snap = f.Snapshot()
	assert.False(t, snap.Pending)
	assert.Equal(t, "Dear Hiring Manager,", snap.CoverLetter)
	assert.Empty(t, snap.Error)
}

func TestCoverLetterFailureShowsInlineError(t *testing.T) {
	f := submitted(t)

	gen, err := f.StartCoverLetter()
	require.NoError(t, err)
	require.True(t, f.FinishCoverLetter(gen, "", errors.New("API request failed with status 500")))

	snap := f.Snapshot()
	assert.Equal(t, ScreenCoverLetter, snap.Screen, "errors render in the screen, not as a transition")
	assert.False(t, snap.Pending)
	assert.Equal(t, "API request failed with status 500", snap.Error)

	// Manual retry from the same screen
	gen2, err := f.StartCoverLetter()
	require.NoError(t, err)
	assert.NotEqual(t, gen, gen2)
	assert.Empty(t, f.Snapshot().Error, "retry clears the error panel")
}

func TestFixCVRetryFromOwnScreen(t *testing.T) {
	f := submitted(t)

	gen, err := f.StartFixCV()
	require.NoError(t, err)
	require.True(t, f.FinishFixCV(gen, nil, errors.New("Invalid API response structure")))
	assert.Equal(t, "Invalid API response structure", f.Snapshot().Error)

	gen2, err := f.StartFixCV()
	require.NoError(t, err)
	require.True(t, f.FinishFixCV(gen2, &model.ImprovementSet{GapAnalysis: "gap"}, nil))

	snap := f.Snapshot()
	require.NotNil(t, snap.Improvements)
	assert.Equal(t, "gap", snap.Improvements.GapAnalysis)
	assert.Empty(t, snap.Error)
}

func TestStaleCompletionIsDiscardedAfterReset(t *testing.T) {
	f := submitted(t)

	gen, err := f.StartCoverLetter()
	require.NoError(t, err)

	f.Reset()

	assert.False(t, f.FinishCoverLetter(gen, "late letter", nil), "completion for an abandoned screen must be dropped")

	snap := f.Snapshot()
	assert.Equal(t, ScreenInput, snap.Screen)
	assert.Empty(t, snap.CoverLetter)
	assert.False(t, snap.Pending)
}

func TestStaleAnalysisCompletionIsDiscardedAfterReset(t *testing.T) {
	f := New()
	gen, err := f.BeginSubmit(validInputs())
	require.NoError(t, err)

	f.Reset()

	assert.False(t, f.CompleteSubmit(gen, borderlineResult()), "analysis resolving after a reset must be dropped")

	snap := f.Snapshot()
	snap.ID = ""
	pristine := New().Snapshot()
	pristine.ID = ""
	assert.Equal(t, pristine, snap, "a discarded analysis must leave the reset flow untouched")
}

func TestStaleAnalysisFailureIsDiscardedAfterReset(t *testing.T) {
	f := New()
	gen, err := f.BeginSubmit(validInputs())
	require.NoError(t, err)

	f.Reset()
	assert.False(t, f.FailSubmit(gen))
	assert.False(t, f.Snapshot().Loading)
}

func TestStaleCompletionIsDiscardedAfterBack(t *testing.T) {
	f := submitted(t)

	gen, err := f.StartFixCV()
	require.NoError(t, err)
	require.NoError(t, f.Back())

	assert.False(t, f.FinishFixCV(gen, &model.ImprovementSet{GapAnalysis: "late"}, nil))
	assert.Nil(t, f.Snapshot().Improvements)
}

func TestBackPreservesInputsAndResult(t *testing.T) {
	f := submitted(t)

	_, err := f.StartCoverLetter()
	require.NoError(t, err)
	require.NoError(t, f.Back())

	snap := f.Snapshot()
	assert.Equal(t, ScreenResult, snap.Screen)
	assert.True(t, snap.HasCV)
	assert.Equal(t, "Backend Engineer role requiring Java", snap.JobDescription)
	require.NotNil(t, snap.Result)
}

func TestBackFromInputIsRejected(t *testing.T) {
	f := New()
	assert.ErrorIs(t, f.Back(), ErrBadTransition)
}

func TestResetFromEveryScreenYieldsPristineState(t *testing.T) {
	pristine := New().Snapshot()

	build := map[string]func(t *testing.T) *Flow{
		"result": submitted,
		"coverLetter": func(t *testing.T) *Flow {
			f := submitted(t)
			gen, err := f.StartCoverLetter()
			require.NoError(t, err)
			require.True(t, f.FinishCoverLetter(gen, "letter", nil))
			return f
		},
		"fixCv": func(t *testing.T) *Flow {
			f := submitted(t)
			gen, err := f.StartFixCV()
			require.NoError(t, err)
			require.True(t, f.FinishFixCV(gen, &model.ImprovementSet{GapAnalysis: "gap"}, nil))
			return f
		},
	}

	for name, fn := range build {
		t.Run(name, func(t *testing.T) {
			f := fn(t)
			f.Reset()

			snap := f.Snapshot()
			snap.ID = pristine.ID // identity differs, state must not
			assert.Equal(t, pristine, snap)
		})
	}
}
