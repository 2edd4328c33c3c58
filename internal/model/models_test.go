package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTier(t *testing.T) {
	tests := []struct {
		pct  int
		want Tier
	}{
		{100, TierGood},
		{80, TierGood},
		{79, TierBorderline},
		{70, TierBorderline},
		{65, TierBorderline},
		{64, TierPoor},
		{0, TierPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchTier(tt.pct), "pct=%d", tt.pct)
	}
}

func TestWorthApplyingUsesSingleCutoff(t *testing.T) {
	// One definitive cutoff: the 70% "Maybe" result still leads with the
	// cover-letter offer.
	assert.True(t, WorthApplying(70))
	assert.True(t, WorthApplying(65))
	assert.False(t, WorthApplying(64))
}

func TestStarterQuestionsAreStable(t *testing.T) {
	qs := StarterQuestions()
	assert.Len(t, qs, 3)
	assert.Equal(t, "How do I improve my CV?", qs[0].Text)
}

func TestFallbackQuestionsHaveUniqueIDs(t *testing.T) {
	qs := FallbackQuestions()
	assert.Len(t, qs, 3)

	seen := map[string]bool{}
	for _, q := range qs {
		assert.NotEmpty(t, q.Text)
		assert.False(t, seen[q.ID], "duplicate id %s", q.ID)
		seen[q.ID] = true
	}
}

func TestNewMessage(t *testing.T) {
	m := NewMessage(RoleUser, "hello")
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, RoleUser, m.Role)
	assert.Equal(t, "hello", m.Content)
	assert.False(t, m.Timestamp.IsZero())
}
