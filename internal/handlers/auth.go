package handlers

import (
	"net/http"

	"voteticker/internal/auth"
	"voteticker/internal/models"
	"voteticker/internal/services"

	"github.com/gin-gonic/gin"
)

const contextUserKey = "current_user"

// AuthHandler resolves token subjects to local users and serves /me
type AuthHandler struct {
	userService *services.UserService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// ResolveUser is middleware that runs after auth.AuthMiddleware: it bridges
// the verified token subject to a local user row, creating one on first login.
func (h *AuthHandler) ResolveUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID, ok := auth.GetSubjectID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := h.userService.FindOrCreateBySubject(c.Request.Context(), subjectID)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// currentUser retrieves the resolved user from the context
func currentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// GetMe returns the authenticated user's profile
// GET /api/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe updates the authenticated user's pseudonym
// PATCH /api/me
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.UpdatePseudonymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.userService.UpdatePseudonym(c.Request.Context(), user.ID, req.Pseudonym)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
