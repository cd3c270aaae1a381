package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AdminListArtifacts pages through every artifact, newest first.
func (h HandlerSet) AdminListArtifacts(c *gin.Context) {
	limit := 50
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}

	artifacts, err := h.records.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]map[string]any, 0, len(artifacts))
	for _, artifact := range artifacts {
		items = append(items, map[string]any{
			"id":        artifact.ID,
			"ownerId":   artifact.OwnerID,
			"prompt":    artifact.Prompt,
			"url":       artifact.StorageURL,
			"mimeType":  artifact.MIMEType,
			"sizeBytes": artifact.SizeBytes,
			"createdAt": artifact.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
