package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/connectorzzz/advisor-api/internal/middleware"
	"github.com/connectorzzz/advisor-api/internal/model"
)

// AuthHandler exposes the authenticated user's profile. The auth provider
// owns the account lifecycle; this API only projects the verified token's
// claims and never stores them.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// GoogleSignIn handles POST /auth/google
// The token was already verified by the middleware; signing in is just the
// first observation of the profile.
func (h *AuthHandler) GoogleSignIn(c *gin.Context) {
	profile, ok := profileFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	log.Info().Str("uid", profile.UID).Msg("User signed in")
	c.JSON(http.StatusOK, profile)
}

// GetProfile handles GET /profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	profile, ok := profileFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

func profileFromContext(c *gin.Context) (model.UserProfile, bool) {
	uid := middleware.GetUID(c)
	if uid == "" {
		return model.UserProfile{}, false
	}

	return model.UserProfile{
		UID:      uid,
		Email:    middleware.GetClaim(c, middleware.ContextKeyEmail),
		Name:     middleware.GetClaim(c, middleware.ContextKeyName),
		PhotoURL: middleware.GetClaim(c, middleware.ContextKeyPicture),
	}, true
}
