package geoapify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"proveia-agent/internal/domain"
)

const (
	defaultBaseURL = "https://api.geoapify.com"

	// Geocoding is biased to the serviced country: the query gets a fixed
	// qualifier and the API-side country filter.
	countrySuffix = ", México"
	countryFilter = "countrycode:mx"

	// Enrichment looks for the point of interest closest to the candidate,
	// not a wide-area search.
	placeRadiusMeters = 250
)

// geocodeResponse is the minimal shape of /v1/geocode/search. Coordinates
// arrive GeoJSON-style as [lon, lat].
type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Formatted string `json:"formatted"`
		} `json:"properties"`
	} `json:"features"`
}

// placesResponse is the minimal shape of /v2/places. Contact fields may
// live either on the feature or inside the raw datasource record.
type placesResponse struct {
	Features []struct {
		Properties struct {
			Website    string `json:"website"`
			Datasource struct {
				Raw struct {
					Website string `json:"website"`
					Phone   string `json:"phone"`
				} `json:"raw"`
			} `json:"datasource"`
		} `json:"properties"`
	} `json:"features"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client talks to the Geoapify geocoding and places APIs. The API key is
// resolved lazily from the credential source on first use; only a
// successful fetch is cached, so a transient credential failure is retried
// on the next request.
type Client struct {
	baseURL    string
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

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(getter Getter, keyName string, opts ...Option) (*Client, error) {
	if getter == nil {
		return nil, errors.New("geoapify: credential source must not be nil")
	}
	if strings.TrimSpace(keyName) == "" {
		return nil, errors.New("geoapify: key name must not be empty")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		getter:     getter,
		keyName:    keyName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Geocode resolves a location phrase to coordinates and a formatted display
// name, constrained to Mexico. Returns domain.ErrLocationNotFound when the
// service has no features for the phrase; that is a user problem, not a
// transient one, and must not be retried.
func (c *Client) Geocode(ctx context.Context, text string) (domain.Location, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return domain.Location{}, err
	}

	params := url.Values{}
	params.Set("text", text+countrySuffix)
	params.Set("filter", countryFilter)
	params.Set("apiKey", apiKey)
	reqURL := strings.TrimRight(c.baseURL, "/") + "/v1/geocode/search?" + params.Encode()

	var payload geocodeResponse
	if err := c.getJSON(ctx, reqURL, &payload); err != nil {
		return domain.Location{}, fmt.Errorf("geoapify: geocode %q: %w", text, err)
	}

	if len(payload.Features) == 0 {
		return domain.Location{}, fmt.Errorf("geoapify: geocode %q: %w", text, domain.ErrLocationNotFound)
	}
	feature := payload.Features[0]
	if len(feature.Geometry.Coordinates) < 2 {
		return domain.Location{}, fmt.Errorf("geoapify: geocode %q: malformed coordinates", text)
	}
	return domain.Location{
		Longitude: feature.Geometry.Coordinates[0],
		Latitude:  feature.Geometry.Coordinates[1],
		Name:      feature.Properties.Formatted,
	}, nil
}

// NearbyContact looks up the closest point of interest in the given
// categories and returns whatever contact data it exposes. found is false
// when the area has no matching place; that is a normal outcome, not an
// error.
func (c *Client) NearbyContact(ctx context.Context, lat, lon float64, categories string) (domain.PlaceContact, bool, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return domain.PlaceContact{}, false, err
	}

	params := url.Values{}
	params.Set("categories", categories)
	params.Set("filter", fmt.Sprintf("circle:%g,%g,%d", lon, lat, placeRadiusMeters))
	params.Set("limit", "1")
	params.Set("apiKey", apiKey)
	reqURL := strings.TrimRight(c.baseURL, "/") + "/v2/places?" + params.Encode()

	var payload placesResponse
	if err := c.getJSON(ctx, reqURL, &payload); err != nil {
		return domain.PlaceContact{}, false, fmt.Errorf("geoapify: places near (%g, %g): %w", lat, lon, err)
	}

	if len(payload.Features) == 0 {
		return domain.PlaceContact{}, false, nil
	}
	props := payload.Features[0].Properties
	website := props.Website
	if website == "" {
		website = props.Datasource.Raw.Website
	}
	return domain.PlaceContact{
		Website: website,
		Phone:   props.Datasource.Raw.Phone,
	}, true, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	key, err := c.getter.GetParameter(ctx, c.keyName)
	if err != nil {
		return "", fmt.Errorf("geoapify: fetch api key: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return "", errors.New("geoapify: api key is empty")
	}
	c.apiKey = key
	return key, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
