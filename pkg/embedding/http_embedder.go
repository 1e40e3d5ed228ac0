package embedding

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/c360/graphrag/errors"
	"github.com/c360/graphrag/pkg/retry"
)

// HTTPEmbedder calls an OpenAI-compatible embedding service (TEI, LocalAI, OpenAI).
//
// Transient failures (network errors, 429, 5xx) are retried with backoff; any other
// failure is returned immediately as an invalid error.
type HTTPEmbedder struct {
	client     *openai.Client
	model      string
	dimensions atomic.Int64
	retry      retry.Config
	limiter    *rate.Limiter // nil when unlimited
	logger     *slog.Logger
}

// HTTPConfig configures the HTTP embedder.
type HTTPConfig struct {
	// BaseURL of the service, e.g. "http://localhost:8082" or "https://api.openai.com/v1".
	BaseURL string
	// Model is the embedding model name.
	Model string
	// APIKey is optional for local services.
	APIKey string
	// Timeout per HTTP request (default 30s).
	Timeout time.Duration
	// Dimensions is reported until the first response reveals the real size (default 384).
	Dimensions int
	// Retry configures backoff for transient failures (default retry.DefaultConfig()).
	Retry *retry.Config
	// RateLimit caps requests per second, retries included; 0 means unlimited.
	RateLimit float64
	Logger    *slog.Logger
}

// NewHTTPEmbedder creates a new HTTP-based embedder.
func NewHTTPEmbedder(cfg HTTPConfig) (*HTTPEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("base_url is required: %w", errors.ErrMissingConfig),
			"HTTPEmbedder", "New", "validate config")
	}
	if cfg.Model == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("model is required: %w", errors.ErrMissingConfig),
			"HTTPEmbedder", "New", "validate config")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "unused"
	}

	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	rc := retry.DefaultConfig()
	if cfg.Retry != nil {
		rc = *cfg.Retry
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &HTTPEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		retry:  rc,
		logger: logger,
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 384
	}
	h.dimensions.Store(int64(dims))
	if cfg.RateLimit > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return h, nil
}

// Generate calls the embedding endpoint for texts.
func (h *HTTPEmbedder) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(h.model),
	}

	attempt := 0
	resp, err := retry.DoWithResult(ctx, h.retry, func() (openai.EmbeddingResponse, error) {
		attempt++
		if h.limiter != nil {
			if err := h.limiter.Wait(ctx); err != nil {
				return openai.EmbeddingResponse{}, retry.NonRetryable(
					errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrRateLimited, err),
						"HTTPEmbedder", "Generate", "wait for rate limiter"))
			}
		}
		resp, err := h.client.CreateEmbeddings(ctx, req)
		if err != nil {
			classified := classifyAPIError(err)
			h.logger.Warn("embedding request failed",
				"model", h.model, "attempt", attempt, "transient", errors.IsTransient(classified), "error", err)
			return resp, errors.RetryPolicy(classified)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("service returned %d embeddings for %d texts: %w", len(resp.Data), len(texts), errors.ErrInvalidData),
			"HTTPEmbedder", "Generate", "decode response")
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("embedding index %d out of order: %w", idx, errors.ErrInvalidData),
				"HTTPEmbedder", "Generate", "decode response")
		}
		out[idx] = d.Embedding
	}
	if n := len(out[0]); n > 0 {
		h.dimensions.Store(int64(n))
	}
	return out, nil
}

func classifyAPIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case stderrors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case stderrors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	var netErr net.Error
	switch {
	case status == http.StatusTooManyRequests:
		return errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrRateLimited, err),
			"HTTPEmbedder", "Generate", "call embedding service")
	case stderrors.As(err, &netErr) && netErr.Timeout():
		return errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrServiceTimeout, err),
			"HTTPEmbedder", "Generate", "call embedding service")
	}

	if status == 0 || status >= 500 {
		return errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrServiceUnavailable, err),
			"HTTPEmbedder", "Generate", "call embedding service")
	}
	return errors.WrapInvalid(err, "HTTPEmbedder", "Generate", "call embedding service")
}

// Dimensions returns the dimensionality of embeddings produced.
func (h *HTTPEmbedder) Dimensions() int {
	return int(h.dimensions.Load())
}

// Model returns the model identifier.
func (h *HTTPEmbedder) Model() string {
	return h.model
}

// Close is a no-op for the HTTP client.
func (h *HTTPEmbedder) Close() error {
	return nil
}
