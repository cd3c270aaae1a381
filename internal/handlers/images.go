package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"promptpix/api/internal/codec"
	"promptpix/api/internal/generation"
	"promptpix/api/internal/media/sniffer"
	"promptpix/api/internal/middleware"
	"promptpix/api/internal/models"
	"promptpix/api/internal/quota"
	"promptpix/api/internal/service"
)

type generateRequest struct {
	Prompt             string   `json:"prompt" binding:"required"`
	ResponseModalities []string `json:"responseModalities"`
}

type editRequest struct {
	Prompt    string `json:"prompt" binding:"required"`
	ImageData string `json:"imageData" binding:"required"`
	MIMEType  string `json:"mimeType"`
}

type imagePayload struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
	Text     string `json:"text,omitempty"`
}

type artifactPayload struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Prompt    string `json:"prompt"`
	CreatedAt string `json:"createdAt"`
}

type quotaPayload struct {
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Window    string `json:"window"`
}

// GenerateImage runs the pipeline in generate mode.
func (h HandlerSet) GenerateImage(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "identity_unresolved"})
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid prompt is required"})
		return
	}

	h.runPipeline(c, identity, models.GenerationRequest{
		Prompt:     req.Prompt,
		Mode:       models.ModeGenerate,
		Modalities: parseModalities(req.ResponseModalities),
	})
}

// EditImage runs the pipeline in edit mode. The source image arrives as
// base64 or a data URI; decoded bytes are sniffed, and the sniffed type wins
// over whatever the client declared.
func (h HandlerSet) EditImage(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "identity_unresolved"})
		return
	}

	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid prompt and image are required"})
		return
	}

	declared := req.MIMEType
	if declared == "" {
		declared = "image/png"
	}
	source, mimeType, err := codec.ToImageBytes(req.ImageData, declared)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image data could not be decoded"})
		return
	}
	if sniffed, err := sniffer.Detect(source); err == nil {
		mimeType = sniffed.MIME
	}

	h.runPipeline(c, identity, models.GenerationRequest{
		Prompt:      req.Prompt,
		Mode:        models.ModeEdit,
		SourceImage: source,
		SourceMIME:  mimeType,
		Modalities:  []models.Modality{models.ModalityText, models.ModalityImage},
	})
}

func (h HandlerSet) runPipeline(c *gin.Context, identity models.Identity, req models.GenerationRequest) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.Gemini.Timeout)
	defer cancel()

	outcome, err := h.pipeline.Run(ctx, identity, req, func(state service.PipelineState) {
		h.log.Debug().Str("state", string(state)).Str("identity", identity.ID).Msg("pipeline transition")
	})
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	if outcome.Result == nil {
		// The model produced no image. An empty success: distinct message,
		// no quota consumed, nothing to persist.
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "the model returned no image for this prompt",
			"quota":   quotaJSON(outcome.Quota),
		})
		return
	}

	resp := gin.H{
		"success": true,
		"image": imagePayload{
			Data:     base64.StdEncoding.EncodeToString(outcome.Result.ImageBytes),
			MIMEType: outcome.Result.MIMEType,
			Text:     outcome.Result.Caption,
		},
		"dataUri": outcome.DataURI,
		"quota":   quotaJSON(outcome.Quota),
	}

	if outcome.Artifact != nil {
		resp["artifact"] = artifactPayload{
			ID:        outcome.Artifact.ID,
			URL:       outcome.Artifact.StorageURL,
			Prompt:    outcome.Artifact.Prompt,
			CreatedAt: outcome.Artifact.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	if outcome.SaveErr != nil && !errors.Is(outcome.SaveErr, service.ErrNotAuthenticated) {
		// Persistence failed after a successful generation; the image is
		// still returned, the client is warned.
		resp["saveError"] = "the image was generated but could not be saved to your gallery"
	}

	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) respondPipelineError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var genErr *generation.GenerationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.Is(err, quota.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "generation limit reached, sign in or wait for the next window"})
	case errors.Is(err, generation.ErrMissingAPIKey):
		h.log.Error().Err(err).Msg("generation misconfigured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image generation is not configured"})
	case errors.As(err, &genErr):
		h.log.Error().Err(err).Msg("generation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "image generation failed, try again"})
	case errors.Is(err, codec.ErrDecode), errors.Is(err, codec.ErrMalformedDataURI):
		c.JSON(http.StatusBadRequest, gin.H{"error": "image data could not be decoded"})
	default:
		h.log.Error().Err(err).Msg("pipeline failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an unexpected error occurred"})
	}
}

// QuotaState reports the caller's usage in its current window.
func (h HandlerSet) QuotaState(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "identity_unresolved"})
		return
	}

	state, err := h.quota.State(c.Request.Context(), identity)
	if err != nil {
		h.log.Error().Err(err).Msg("quota state read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota state unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"quota": quotaJSON(state)})
}

func quotaJSON(state models.QuotaState) quotaPayload {
	return quotaPayload{
		Used:      state.Used,
		Limit:     state.Limit,
		Remaining: state.Remaining(),
		Window:    string(state.Window),
	}
}

func parseModalities(raw []string) []models.Modality {
	if len(raw) == 0 {
		return []models.Modality{models.ModalityText, models.ModalityImage}
	}
	out := make([]models.Modality, 0, len(raw))
	for _, m := range raw {
		switch m {
		case "Image", "IMAGE", "image":
			out = append(out, models.ModalityImage)
		default:
			out = append(out, models.ModalityText)
		}
	}
	return out
}
