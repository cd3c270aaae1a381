package generation

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptpix/api/internal/config"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	client, err := NewClient(context.Background(), config.GeminiConfig{Model: "test-model"}, zerolog.Nop())
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Nil(t, client)
}

func TestGenerationErrorUnwrap(t *testing.T) {
	inner := assert.AnError
	err := &GenerationError{Op: "generate", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "generate")
}
