package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"promptpix/api/internal/models"
)

func TestFirstInlineData(t *testing.T) {
	t.Run("returns the first part with inline bytes", func(t *testing.T) {
		parts := []*genai.Part{
			{Text: "here is your bicycle"},
			{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
			{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte{9}}},
		}

		blob := firstInlineData(parts)
		require.NotNil(t, blob)
		assert.Equal(t, "image/png", blob.MIMEType)
		assert.Equal(t, []byte{1, 2, 3}, blob.Data)
	})

	t.Run("text-only response yields nil", func(t *testing.T) {
		parts := []*genai.Part{
			{Text: "I cannot draw that"},
			{Text: "sorry"},
		}
		assert.Nil(t, firstInlineData(parts))
	})

	t.Run("empty inline payload is skipped", func(t *testing.T) {
		parts := []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "image/png"}},
			{InlineData: &genai.Blob{MIMEType: "image/webp", Data: []byte{7}}},
		}

		blob := firstInlineData(parts)
		require.NotNil(t, blob)
		assert.Equal(t, "image/webp", blob.MIMEType)
	})

	t.Run("nil parts and nil entries", func(t *testing.T) {
		assert.Nil(t, firstInlineData(nil))
		assert.Nil(t, firstInlineData([]*genai.Part{nil}))
	})
}

func TestFirstText(t *testing.T) {
	parts := []*genai.Part{
		nil,
		{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1}}},
		{Text: "a red bicycle, as requested"},
	}
	assert.Equal(t, "a red bicycle, as requested", firstText(parts))
	assert.Equal(t, "", firstText(nil))
}

func TestCandidateParts(t *testing.T) {
	t.Run("nil response", func(t *testing.T) {
		assert.Nil(t, candidateParts(nil))
	})

	t.Run("no candidates", func(t *testing.T) {
		assert.Nil(t, candidateParts(&genai.GenerateContentResponse{}))
	})

	t.Run("first candidate only", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "first"}}}},
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "second"}}}},
			},
		}

		parts := candidateParts(resp)
		require.Len(t, parts, 1)
		assert.Equal(t, "first", parts[0].Text)
	})
}

func TestResponseModalities(t *testing.T) {
	t.Run("defaults to text and image", func(t *testing.T) {
		assert.Equal(t, []string{"TEXT", "IMAGE"}, responseModalities(nil))
	})

	t.Run("maps request modalities", func(t *testing.T) {
		got := responseModalities([]models.Modality{models.ModalityImage})
		assert.Equal(t, []string{"IMAGE"}, got)
	})
}
