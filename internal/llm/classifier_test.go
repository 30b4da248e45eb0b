package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spendguard/spendguard/internal/category"
)

// fakeClient returns canned responses or errors for testing.
type fakeClient struct {
	resp  ClassificationResponse
	err   error
	calls int
}

func (f *fakeClient) Classify(_ context.Context, _ string) (ClassificationResponse, error) {
	f.calls++
	if f.err != nil {
		return ClassificationResponse{}, f.err
	}
	return f.resp, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func TestClassifySuccess(t *testing.T) {
	client := &fakeClient{resp: ClassificationResponse{Category: "Food", Confidence: 0.92}}
	c := NewClassifierWithClient(client, testLogger())

	result := c.Classify(context.Background(), "STARBUCKS #1234")

	assert.Equal(t, "Food", result.Category)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
	assert.Equal(t, 1, client.calls)
}

func TestClassifyProviderFailureFallsBack(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	c := NewClassifierWithClient(client, testLogger())

	// Failure must never propagate; the gateway resolves to the default
	// category with the fixed fallback confidence.
	result := c.Classify(context.Background(), "MYSTERY MERCHANT")

	assert.Equal(t, category.Default(), result.Category)
	assert.InDelta(t, category.FallbackConfidence, result.Confidence, 1e-9)
	// One bounded retry before falling back.
	assert.Equal(t, 2, client.calls)
}

func TestClassifyInvalidCategoryFallsBack(t *testing.T) {
	client := &fakeClient{resp: ClassificationResponse{Category: "Groceries", Confidence: 0.9}}
	c := NewClassifierWithClient(client, testLogger())

	result := c.Classify(context.Background(), "WHOLE FOODS")

	assert.Equal(t, category.Default(), result.Category)
	assert.InDelta(t, category.FallbackConfidence, result.Confidence, 1e-9)
}

func TestClassifyOutOfRangeConfidenceFallsBack(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
	}{
		{"negative", -0.1},
		{"above one", 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{resp: ClassificationResponse{Category: "Food", Confidence: tt.confidence}}
			c := NewClassifierWithClient(client, testLogger())

			result := c.Classify(context.Background(), "CAFE")

			assert.Equal(t, category.Default(), result.Category)
			assert.InDelta(t, category.FallbackConfidence, result.Confidence, 1e-9)
		})
	}
}

func TestClassifyResultAlwaysInAllowedSet(t *testing.T) {
	clients := []*fakeClient{
		{resp: ClassificationResponse{Category: "Transport", Confidence: 0.7}},
		{resp: ClassificationResponse{Category: "not-a-category", Confidence: 0.7}},
		{err: errors.New("boom")},
	}

	for _, client := range clients {
		c := NewClassifierWithClient(client, testLogger())
		result := c.Classify(context.Background(), "UBER TRIP")

		assert.True(t, category.IsValid(result.Category))
		assert.GreaterOrEqual(t, result.Confidence, 0.0)
		assert.LessOrEqual(t, result.Confidence, 1.0)
	}
}

func TestNewClassifierUnsupportedProvider(t *testing.T) {
	_, err := NewClassifier(Config{Provider: "mystery"}, testLogger())
	assert.Error(t, err)
}

func TestParseClassification(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		resp, err := parseClassification(`{"category": "Food", "confidence": 0.85}`)
		assert.NoError(t, err)
		assert.Equal(t, "Food", resp.Category)
		assert.InDelta(t, 0.85, resp.Confidence, 1e-9)
	})

	t.Run("markdown wrapped", func(t *testing.T) {
		resp, err := parseClassification("```json\n{\"category\": \"Transport\", \"confidence\": 0.6}\n```")
		assert.NoError(t, err)
		assert.Equal(t, "Transport", resp.Category)
	})

	t.Run("missing category", func(t *testing.T) {
		_, err := parseClassification(`{"confidence": 0.6}`)
		assert.Error(t, err)
	})

	t.Run("not JSON", func(t *testing.T) {
		_, err := parseClassification("CATEGORY: Food")
		assert.Error(t, err)
	})
}
