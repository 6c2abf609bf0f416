package denue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"proveia-agent/internal/domain"
	"proveia-agent/internal/geo"
)

const (
	defaultBaseURL = "https://www.inegi.org.mx/app/api/denue/v1/consulta"

	// The registry can be slow; every request is bounded at 15 s and a
	// timed-out term is skipped, not fatal.
	requestTimeout = 15 * time.Second

	// widenedRadiusMeters is the ceiling for the single automatic retry.
	// When every term comes back empty below this radius the whole search
	// runs once more at the ceiling, and never again after that.
	widenedRadiusMeters = 10000
)

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client queries the DENUE business registry. The access token is resolved
// lazily from the credential source on first use; only a successful fetch
// is cached, so a transient credential failure on one request does not
// poison the ones after it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	getter     Getter
	tokenName  string

	tokenMu sync.Mutex
	token   string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(getter Getter, tokenName string, opts ...Option) (*Client, error) {
	if getter == nil {
		return nil, errors.New("denue: credential source must not be nil")
	}
	if strings.TrimSpace(tokenName) == "" {
		return nil, errors.New("denue: token name must not be empty")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		getter:     getter,
		tokenName:  tokenName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search queries the registry term by term and returns the candidates of
// the first term that yields any. Per-term failures (transport, timeout,
// malformed or empty payload) are logged and skipped. When every term is
// empty and the radius is below the ceiling, the search is widened to the
// ceiling exactly once. The coordinate is validated against the serviced
// bounding box before any network call; outside it the search fails fast
// with domain.ErrOutOfRegion.
func (c *Client) Search(ctx context.Context, terms []string, lat, lon float64, radiusMeters int) ([]domain.Provider, error) {
	if !geo.InMexico(lat, lon) {
		return nil, fmt.Errorf("denue: coordinate (%g, %g): %w", lat, lon, domain.ErrOutOfRegion)
	}

	token, err := c.resolveToken(ctx)
	if err != nil {
		return nil, err
	}

	providers, err := c.searchOnce(ctx, terms, lat, lon, radiusMeters, token)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 && radiusMeters < widenedRadiusMeters {
		slog.Info("no registry results, widening radius once",
			"from_meters", radiusMeters, "to_meters", widenedRadiusMeters)
		return c.searchOnce(ctx, terms, lat, lon, widenedRadiusMeters, token)
	}
	return providers, nil
}

func (c *Client) searchOnce(ctx context.Context, terms []string, lat, lon float64, radiusMeters int, token string) ([]domain.Provider, error) {
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		providers, err := c.searchTerm(ctx, term, lat, lon, radiusMeters, token)
		if err != nil {
			slog.Warn("registry term lookup failed, trying next term", "term", term, "err", err)
			continue
		}
		if len(providers) > 0 {
			slog.Info("registry term matched", "term", term, "count", len(providers))
			return providers, nil
		}
	}
	return nil, nil
}

func (c *Client) searchTerm(ctx context.Context, term string, lat, lon float64, radiusMeters int, token string) ([]domain.Provider, error) {
	reqURL := fmt.Sprintf("%s/Buscar/%s/%g,%g/%d/%s",
		strings.TrimRight(c.baseURL, "/"), url.PathEscape(term), lat, lon, radiusMeters, token)

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("denue: create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("denue: search %q: %w", term, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("denue: search %q: unexpected status %d", term, res.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("denue: search %q: read body: %w", term, err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, fmt.Errorf("denue: search %q: empty response", term)
	}

	return parseProviders(string(raw)), nil
}

func (c *Client) resolveToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	token, err := c.getter.GetParameter(ctx, c.tokenName)
	if err != nil {
		return "", fmt.Errorf("denue: fetch token: %w", err)
	}
	if strings.TrimSpace(token) == "" {
		return "", errors.New("denue: token is empty")
	}
	c.token = token
	return token, nil
}
