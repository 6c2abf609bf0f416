package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.0-flash-exp"

	// Output is bounded: responses are short conversational messages.
	temperature     = 0.7
	maxOutputTokens = 200
)

// Composition purposes. Each has a fixed prompt template and a canned
// fallback used whenever the generation call fails.
const (
	PurposeInfo        = "info"
	PurposeAskLocation = "ask_location"
	PurposeAskRadius   = "ask_radius"
	PurposeResults     = "results"
	PurposeNoResults   = "no_results"
	PurposeError       = "error"
)

// generateRequest is the minimal request shape for the generateContent
// endpoint.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// generateResponse is the minimal response shape returned by the
// generateContent endpoint.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client composes short user-facing messages via the Gemini generateContent
// API. The API key is resolved lazily from the credential source on first
// use; only a successful fetch is cached, so a transient credential failure
// is retried on the next request instead of sticking for the process
// lifetime.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	getter     Getter
	keyName    string

	keyMu  sync.Mutex
	apiKey string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client whose API key is read from the given credential
// source under keyName.
func NewClient(getter Getter, keyName string, opts ...Option) (*Client, error) {
	if getter == nil {
		return nil, errors.New("gemini: credential source must not be nil")
	}
	if strings.TrimSpace(keyName) == "" {
		return nil, errors.New("gemini: key name must not be empty")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		getter:     getter,
		keyName:    keyName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compose returns a short message for the given purpose. It never fails:
// any generation problem (network, non-2xx, empty text) is logged and the
// purpose's canned fallback is returned instead, so the pipeline cannot be
// taken down by the text-generation service.
func (c *Client) Compose(ctx context.Context, purpose, userMessage, contextInfo string) string {
	text, err := c.generate(ctx, buildPrompt(purpose, userMessage, contextInfo))
	if err != nil {
		slog.Warn("text generation failed, using fallback", "purpose", purpose, "err", err)
		return fallbackMessage(purpose)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallbackMessage(purpose)
	}
	return text
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	key, err := c.getter.GetParameter(ctx, c.keyName)
	if err != nil {
		return "", fmt.Errorf("gemini: fetch api key: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return "", errors.New("gemini: api key is empty")
	}
	c.apiKey = key
	return key, nil
}

func (c *Client) generateURL(apiKey string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", base, c.model, apiKey)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := c.generateURL(apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", &HTTPStatusError{StatusCode: res.StatusCode, URL: strings.Split(url, "?")[0], Body: string(buf)}
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("gemini: read response body: %w", err)
	}

	var payload generateResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: no candidates in response")
	}
	return payload.Candidates[0].Content.Parts[0].Text, nil
}
