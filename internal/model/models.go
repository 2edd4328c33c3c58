package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ── Analysis ───────────────────────────────────────────

// AnalysisResult is the remote scoring verdict for a CV / job description pair.
type AnalysisResult struct {
	MatchPercentage int    `json:"match_percentage"`
	Recommendation  string `json:"recommendation"`
	Explanation     string `json:"explanation"`
}

// Match tiers drive the result screen's coloring and branching.
type Tier string

const (
	TierGood       Tier = "good"       // >= 80
	TierBorderline Tier = "borderline" // >= 65
	TierPoor       Tier = "poor"
)

// RecommendThreshold is the single cutoff for the "worth applying" branch.
// Historical revisions of the result screen disagreed between 65 and 80;
// 65 is the value the shipped screen enforced, so 65 it is.
const RecommendThreshold = 65

// MatchTier classifies a match percentage for display.
func MatchTier(pct int) Tier {
	switch {
	case pct >= 80:
		return TierGood
	case pct >= RecommendThreshold:
		return TierBorderline
	default:
		return TierPoor
	}
}

// WorthApplying reports whether the result screen should lead with the
// cover-letter offer rather than the fix-CV path.
func WorthApplying(pct int) bool {
	return pct >= RecommendThreshold
}

// ── CV improvement ─────────────────────────────────────

type Improvement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ImprovementSet is the normalized improve-cv webhook payload.
type ImprovementSet struct {
	GapAnalysis  string        `json:"gap_analysis"`
	Improvements []Improvement `json:"improvements"`
}

// ── Chat ───────────────────────────────────────────────

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

type SuggestedQuestion struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ChatSession holds one user's transcript with the remote assistant.
// SessionID must stay stable for the session's lifetime so the remote
// side can keep conversational context.
type ChatSession struct {
	SessionID          string              `json:"sessionId"`
	Messages           []Message           `json:"messages"`
	SuggestedQuestions []SuggestedQuestion `json:"suggestedQuestions"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// WelcomeMessage opens every fresh chat session.
const WelcomeMessage = "Hi there! I'm your Job Application Assistant. How can I help you today?"

// StarterQuestions seed a fresh session's quick replies.
func StarterQuestions() []SuggestedQuestion {
	return []SuggestedQuestion{
		{ID: "q1", Text: "How do I improve my CV?"},
		{ID: "q2", Text: "What makes a good cover letter?"},
		{ID: "q3", Text: "How do I prepare for an interview?"},
	}
}

// FallbackQuestions replace the suggestions after an assistant turn that
// carried none, and after any failed round trip.
func FallbackQuestions() []SuggestedQuestion {
	return []SuggestedQuestion{
		{ID: newQuestionID(1), Text: "Can you elaborate on that?"},
		{ID: newQuestionID(2), Text: "How do I implement this advice?"},
		{ID: newQuestionID(3), Text: "What's the next step?"},
	}
}

func newQuestionID(n int) string {
	return fmt.Sprintf("sq-%s-%d", uuid.NewString()[:8], n)
}

// NewMessage builds a transcript entry with a fresh ID and timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Role:      role,
		Timestamp: time.Now().UTC(),
	}
}

// ── User ───────────────────────────────────────────────

// UserProfile is the read-only projection of the Google-authenticated user.
// The auth provider owns the lifecycle; this API only observes it.
type UserProfile struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// ── Analytics ──────────────────────────────────────────

// UsageStats backs the analytics dashboard. Values are strings because the
// Analytics Data API reports metric values as strings and the dashboard
// renders them verbatim.
type UsageStats struct {
	ActiveUsers             string `json:"activeUsers"`
	CoverLettersGenerated   string `json:"coverLettersGenerated"`
	CVImprovementsSuggested string `json:"cvImprovementsSuggested"`
}
