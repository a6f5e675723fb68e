package embedding_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarAI2003/AI-Legal-Checker/pkg/embedding"
)

func TestNewGeminiBackendRequiresAPIKey(t *testing.T) {
	b, err := embedding.NewGeminiBackend(context.Background(), embedding.GeminiConfig{})
	assert.Error(t, err)
	assert.Nil(t, b)
}

func TestNewGeminiBackend(t *testing.T) {
	// The client dials lazily, so a placeholder key is enough to construct it.
	b, err := embedding.NewGeminiBackend(context.Background(), embedding.GeminiConfig{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", b.Name())
	assert.NoError(t, b.Close())
}

func TestGeminiEmbed(t *testing.T) {
	// Requires a real Gemini API key.
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	b, err := embedding.NewGeminiBackend(context.Background(), embedding.GeminiConfig{APIKey: apiKey})
	require.NoError(t, err)
	defer b.Close()

	g, err := embedding.NewGenerator(b, embedding.GeneratorConfig{Dimension: 768, Normalize: true}, nil)
	require.NoError(t, err)

	e := g.Embed(context.Background(), "يحق لأي من الطرفين إنهاء العقد بإشعار كتابي")
	require.False(t, e.Empty())
	assert.Len(t, e.Vector, 768)
	assert.True(t, e.Normalized)
}
