// Package generation wraps the Gemini API behind two operations: generate
// an image from text, and edit an image from text plus a source image. The
// heterogeneous response shape is normalized into models.GenerationResult.
package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"promptpix/api/internal/config"
	"promptpix/api/internal/models"
)

// ErrMissingAPIKey is a configuration failure raised before any network
// attempt.
var ErrMissingAPIKey = errors.New("generation: gemini api key is not configured")

// GenerationError wraps transport, authentication, and malformed-response
// failures from the remote endpoint. A nil-result return is not one of
// these: the model declining to produce an image is an empty success.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation: %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator is the remote generation collaborator consumed by the pipeline.
// Both operations return (nil, nil) when the response carried no inline
// image data.
type Generator interface {
	Generate(ctx context.Context, prompt string, modalities []models.Modality) (*models.GenerationResult, error)
	Edit(ctx context.Context, prompt string, image []byte, mimeType string) (*models.GenerationResult, error)
}

type Client struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

func NewClient(ctx context.Context, cfg config.GeminiConfig, log zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &GenerationError{Op: "init client", Err: err}
	}

	return &Client{
		client: client,
		model:  cfg.Model,
		log:    log,
	}, nil
}

// Generate asks the model for an image from a text prompt.
func (c *Client) Generate(ctx context.Context, prompt string, modalities []models.Modality) (*models.GenerationResult, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}
	return c.call(ctx, "generate", contents, modalities)
}

// Edit sends the prompt together with the source image as an inline payload.
func (c *Client) Edit(ctx context.Context, prompt string, image []byte, mimeType string) (*models.GenerationResult, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	return c.call(ctx, "edit", contents, []models.Modality{models.ModalityText, models.ModalityImage})
}

func (c *Client) call(ctx context.Context, op string, contents []*genai.Content, modalities []models.Modality) (*models.GenerationResult, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: responseModalities(modalities),
	})
	if err != nil {
		return nil, &GenerationError{Op: op, Err: err}
	}

	parts := candidateParts(resp)
	inline := firstInlineData(parts)
	if inline == nil {
		c.log.Debug().Str("op", op).Msg("response carried no inline image data")
		return nil, nil
	}

	mimeType := inline.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	return &models.GenerationResult{
		ImageBytes: inline.Data,
		MIMEType:   mimeType,
		Caption:    firstText(parts),
	}, nil
}

// responseModalities maps the request modalities onto the wire values the
// API expects, defaulting to text plus image.
func responseModalities(modalities []models.Modality) []string {
	if len(modalities) == 0 {
		modalities = []models.Modality{models.ModalityText, models.ModalityImage}
	}
	out := make([]string, 0, len(modalities))
	for _, m := range modalities {
		switch m {
		case models.ModalityImage:
			out = append(out, string(genai.ModalityImage))
		default:
			out = append(out, string(genai.ModalityText))
		}
	}
	return out
}
