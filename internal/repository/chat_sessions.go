package repository

import (
	"sync"
	"time"

	"github.com/connectorzzz/advisor-api/internal/model"
)

// ChatSessionRepo keeps per-user assistant transcripts in memory, keyed by
// the authenticated user's UID. The session ID derived from the UID stays
// stable across requests so the remote assistant keeps its context.
type ChatSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.ChatSession
}

func NewChatSessionRepo() *ChatSessionRepo {
	return &ChatSessionRepo{
		sessions: make(map[string]*model.ChatSession),
	}
}

// GetOrCreate returns a copy of the user's session, seeding a fresh one
// with the welcome message and starter questions on first touch.
func (r *ChatSessionRepo) GetOrCreate(uid string) model.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[uid]
	if !ok {
		now := time.Now().UTC()
		s = &model.ChatSession{
			SessionID: "user-" + uid,
			Messages: []model.Message{
				model.NewMessage(model.RoleAssistant, model.WelcomeMessage),
			},
			SuggestedQuestions: model.StarterQuestions(),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		r.sessions[uid] = s
	}

	return copySession(s)
}

// Append adds transcript entries and replaces the suggested questions,
// returning the updated session.
func (r *ChatSessionRepo) Append(uid string, questions []model.SuggestedQuestion, msgs ...model.Message) model.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[uid]
	if !ok {
		// Append without GetOrCreate shouldn't happen, but don't lose the turn.
		s = &model.ChatSession{SessionID: "user-" + uid, CreatedAt: time.Now().UTC()}
		r.sessions[uid] = s
	}

	s.Messages = append(s.Messages, msgs...)
	if questions != nil {
		s.SuggestedQuestions = questions
	}
	s.UpdatedAt = time.Now().UTC()

	return copySession(s)
}

// Clear drops the user's transcript, the page-reload analog.
func (r *ChatSessionRepo) Clear(uid string) {
	r.mu.Lock()
	delete(r.sessions, uid)
	r.mu.Unlock()
}

func copySession(s *model.ChatSession) model.ChatSession {
	out := *s
	out.Messages = append([]model.Message(nil), s.Messages...)
	out.SuggestedQuestions = append([]model.SuggestedQuestion(nil), s.SuggestedQuestions...)
	return out
}
