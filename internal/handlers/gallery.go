package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"promptpix/api/internal/models"
	"promptpix/api/internal/service"
)

type galleryItem struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	URL       string    `json:"url"`
	MIMEType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListGallery returns the signed-in user's artifacts, newest first.
func (h HandlerSet) ListGallery(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	artifacts, err := h.artifacts.List(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("gallery list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load gallery"})
		return
	}

	items := make([]galleryItem, 0, len(artifacts))
	for _, artifact := range artifacts {
		items = append(items, galleryItem{
			ID:        artifact.ID,
			Prompt:    artifact.Prompt,
			URL:       artifact.StorageURL,
			MIMEType:  artifact.MIMEType,
			SizeBytes: artifact.SizeBytes,
			CreatedAt: artifact.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// DeleteArtifact removes an artifact. The record always goes; a failed
// storage removal is the service's problem to log, not the user's to retry.
func (h HandlerSet) DeleteArtifact(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	err := h.artifacts.Delete(c.Request.Context(), c.Param("id"), user.ID)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, service.ErrArtifactNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact_not_found"})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		h.log.Error().Err(err).Str("artifact_id", c.Param("id")).Msg("artifact delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete artifact"})
	}
}

func currentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get("current_user")
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
