package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/poiesic/merchantdesk/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	embedder := NewMockEmbedder()
	ctx := context.Background()

	a, err := embedder.EmbedText(ctx, "clearent pricing")
	require.NoError(t, err)
	b, err := embedder.EmbedText(ctx, "clearent pricing")
	require.NoError(t, err)
	c, err := embedder.EmbedText(ctx, "toast terminal")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, Dimensions)
	assert.Equal(t, 3, embedder.CallCount())

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
}

func TestMockEmbedder_Injection(t *testing.T) {
	embedder := NewMockEmbedder()
	boom := errors.New("boom")
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	}

	_, err := embedder.EmbedTexts(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, boom)

	embedder.Reset()
	assert.Equal(t, 0, embedder.CallCount())
	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
}

func TestMockCompleter(t *testing.T) {
	completer := NewMockCompleter()
	assert.Nil(t, completer.LastRequest())

	text, err := completer.Complete(context.Background(), ai.CompletionRequest{SystemPrompt: "sys", Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, DefaultCompletion, text)
	require.NotNil(t, completer.LastRequest())
	assert.Equal(t, "sys", completer.LastRequest().SystemPrompt)

	completer.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (string, error) {
		return "custom", nil
	}
	text, err = completer.Complete(context.Background(), ai.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "custom", text)
	assert.Equal(t, 2, completer.CallCount())

	completer.Reset()
	assert.Equal(t, 0, completer.CallCount())
	assert.Nil(t, completer.LastRequest())
}

func TestMockProvider(t *testing.T) {
	provider := NewMockProvider()
	mp := provider.(*MockProvider)

	assert.Same(t, mp.GetMockEmbedder(), provider.Embedder())
	assert.Same(t, mp.GetMockCompleter(), provider.Completer())
	assert.NoError(t, provider.Close())
}
