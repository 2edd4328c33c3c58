package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/connectorzzz/advisor-api/internal/middleware"
	"github.com/connectorzzz/advisor-api/internal/model"
	"github.com/connectorzzz/advisor-api/internal/repository"
	"github.com/connectorzzz/advisor-api/internal/service"
)

// signInNotice is the local assistant-styled reply for anonymous visitors.
// No webhook call happens in that case.
const signInNotice = "Please sign in with your Google account to chat with the assistant."

// ChatHandler manages assistant conversations. Remote failures never block
// the UI: they land in the transcript as assistant-authored messages and
// the user keeps chatting.
type ChatHandler struct {
	sessions *repository.ChatSessionRepo
	chatbot  *service.ChatbotClient
}

func NewChatHandler(sessions *repository.ChatSessionRepo, chatbot *service.ChatbotClient) *ChatHandler {
	return &ChatHandler{sessions: sessions, chatbot: chatbot}
}

// GetSession handles GET /chat/session
// Lazily creates the session with the welcome message and starter questions.
func (h *ChatHandler) GetSession(c *gin.Context) {
	uid := middleware.GetUID(c)
	if uid == "" {
		c.JSON(http.StatusOK, gin.H{
			"messages":           []model.Message{model.NewMessage(model.RoleAssistant, signInNotice)},
			"suggestedQuestions": []model.SuggestedQuestion{},
		})
		return
	}

	c.JSON(http.StatusOK, h.sessions.GetOrCreate(uid))
}

// SendMessage handles POST /chat/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	text := strings.TrimSpace(req.Message)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	// Local guard: without an identity there is no stable session to
	// correlate turns on the remote side. Answer locally, send nothing.
	uid := middleware.GetUID(c)
	if uid == "" {
		c.JSON(http.StatusOK, gin.H{
			"messages":           []model.Message{model.NewMessage(model.RoleAssistant, signInNotice)},
			"suggestedQuestions": []model.SuggestedQuestion{},
		})
		return
	}

	session := h.sessions.GetOrCreate(uid)

	// Optimistic echo: the user turn is in the transcript before the
	// webhook round trip begins.
	userMsg := model.NewMessage(model.RoleUser, text)
	h.sessions.Append(uid, nil, userMsg)

	reply, err := h.chatbot.SendMessage(c.Request.Context(), text, session.SessionID)

	var assistantMsg model.Message
	var questions []model.SuggestedQuestion
	if err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("Chatbot webhook call failed")
		assistantMsg = model.NewMessage(model.RoleAssistant,
			fmt.Sprintf("An error occurred while processing your request: %v.", err))
		questions = model.FallbackQuestions()
	} else {
		assistantMsg = model.NewMessage(model.RoleAssistant, reply.Content)
		questions = toSuggestedQuestions(reply.SuggestedQuestions)
	}

	updated := h.sessions.Append(uid, questions, assistantMsg)

	c.JSON(http.StatusOK, gin.H{
		"messages":           []model.Message{userMsg, assistantMsg},
		"suggestedQuestions": updated.SuggestedQuestions,
	})
}

// ClearSession handles DELETE /chat/session
// The page-reload analog: the next GET starts a fresh transcript.
func (h *ChatHandler) ClearSession(c *gin.Context) {
	uid := middleware.GetUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	h.sessions.Clear(uid)
	c.Status(http.StatusNoContent)
}

func toSuggestedQuestions(texts []string) []model.SuggestedQuestion {
	if len(texts) == 0 {
		return model.FallbackQuestions()
	}
	out := make([]model.SuggestedQuestion, 0, len(texts))
	for i, t := range texts {
		out = append(out, model.SuggestedQuestion{
			ID:   fmt.Sprintf("sq-%s-%d", uuid.NewString()[:8], i),
			Text: t,
		})
	}
	return out
}
