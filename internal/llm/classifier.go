// Package llm implements the classification gateway over external language
// model providers.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spendguard/spendguard/internal/category"
	"github.com/spendguard/spendguard/internal/common"
	"github.com/spendguard/spendguard/internal/metrics"
	"github.com/spendguard/spendguard/internal/service"
)

// Classifier implements service.Classifier using LLM APIs. It fails closed:
// provider errors, malformed responses, out-of-range confidence values and
// categories outside the allowed set all resolve to the default category
// with a fixed fallback confidence. Callers never see an error.
type Classifier struct {
	client    Client
	logger    *slog.Logger
	retryOpts service.RetryOptions
	timeout   time.Duration
}

// Config holds configuration for the LLM classifier.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	RetryDelay  time.Duration
	Temperature float64
	MaxTokens   int
}

// NewClassifier creates a new LLM-based classifier.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}

	return &Classifier{
		client:  client,
		logger:  logger,
		timeout: timeout,
		retryOpts: service.RetryOptions{
			// One bounded retry before falling back; the fallback itself is
			// the resilience mechanism.
			MaxAttempts:  2,
			InitialDelay: retryDelay,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// NewClassifierWithClient wraps an existing provider client. Used by tests
// and by callers that construct their own transport.
func NewClassifierWithClient(client Client, logger *slog.Logger) *Classifier {
	return &Classifier{
		client:    client,
		logger:    logger,
		timeout:   10 * time.Second,
		retryOpts: service.RetryOptions{MaxAttempts: 2, InitialDelay: 10 * time.Millisecond},
	}
}

// Classify assigns a category and confidence to a transaction description.
func (c *Classifier) Classify(ctx context.Context, description string) service.Classification {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := buildPrompt(description)

	var resp ClassificationResponse
	err := common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = c.client.Classify(ctx, prompt)
		if callErr != nil {
			c.logger.Warn("classification attempt failed",
				"error", callErr,
				"description", description)
			return &common.RetryableError{Err: callErr, Retryable: true}
		}
		return nil
	}, c.retryOpts)

	if err != nil {
		return c.fallback(description, fmt.Errorf("provider call failed: %w", err))
	}

	if !category.IsValid(resp.Category) {
		return c.fallback(description, fmt.Errorf("category %q outside allowed set", resp.Category))
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return c.fallback(description, fmt.Errorf("confidence %v outside [0,1]", resp.Confidence))
	}

	c.logger.Debug("transaction classified",
		"description", description,
		"category", resp.Category,
		"confidence", resp.Confidence)

	return service.Classification{
		Category:   resp.Category,
		Confidence: resp.Confidence,
	}
}

// fallback resolves a failed classification to the default category. The
// reason is logged but never surfaced to the caller.
func (c *Classifier) fallback(description string, reason error) service.Classification {
	metrics.ClassificationFallbacks.Inc()
	c.logger.Warn("classification fell back to default category",
		"description", description,
		"category", category.Default(),
		"reason", common.E(common.KindClassification, "classification failed", reason))

	return service.Classification{
		Category:   category.Default(),
		Confidence: category.FallbackConfidence,
	}
}

// buildPrompt creates the prompt for transaction classification.
func buildPrompt(description string) string {
	categoryList := ""
	for _, cat := range category.All() {
		categoryList += fmt.Sprintf("- %s\n", cat)
	}

	return fmt.Sprintf(`Classify this financial transaction into exactly one of the allowed categories based solely on the description.

Allowed Categories:
%s
Transaction Description:
%s

Respond with a JSON object in this exact format:
{"category": "<one of the allowed categories>", "confidence": <0.0-1.0>}

The category MUST be one of the allowed categories, spelled exactly as listed. Do not invent new categories.`,
		categoryList,
		description)
}
