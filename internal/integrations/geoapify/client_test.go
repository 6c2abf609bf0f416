package geoapify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"proveia-agent/internal/domain"
)

type fakeGetter struct {
	val string
	err error
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	return f.val, f.err
}

func newTestClient(t *testing.T, srvURL string) *Client {
	t.Helper()
	c, err := NewClient(&fakeGetter{val: "geo-key"}, "geoapify-key", WithBaseURL(srvURL))
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, "geoapify-key")
	require.Error(t, err)
	_, err = NewClient(&fakeGetter{val: "k"}, "")
	require.Error(t, err)
}

func TestGeocode_CountryBiasedQuery(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"text":   r.URL.Query().Get("text"),
			"filter": r.URL.Query().Get("filter"),
			"apiKey": r.URL.Query().Get("apiKey"),
		}
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-100.3161,25.6866]},"properties":{"formatted":"Monterrey, Nuevo León, México"}}]}`))
	}))
	defer srv.Close()

	loc, err := newTestClient(t, srv.URL).Geocode(context.Background(), "monterrey")
	require.NoError(t, err)
	require.Equal(t, "monterrey, México", gotQuery["text"])
	require.Equal(t, "countrycode:mx", gotQuery["filter"])
	require.Equal(t, "geo-key", gotQuery["apiKey"])

	// coordinates arrive [lon, lat] and must be swapped into the location
	require.Equal(t, 25.6866, loc.Latitude)
	require.Equal(t, -100.3161, loc.Longitude)
	require.Equal(t, "Monterrey, Nuevo León, México", loc.Name)
}

func TestGeocode_KeyFailureIsRetriedOnNextCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-100.3161,25.6866]},"properties":{"formatted":"Monterrey"}}]}`))
	}))
	defer srv.Close()

	getter := &fakeGetter{err: context.Canceled}
	c, err := NewClient(getter, "geoapify-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Geocode(context.Background(), "monterrey")
	require.Error(t, err)

	getter.err = nil
	getter.val = "geo-key"
	loc, err := c.Geocode(context.Background(), "monterrey")
	require.NoError(t, err, "a transient credential failure must not stick to later requests")
	require.Equal(t, 25.6866, loc.Latitude)
}

func TestGeocode_NoFeaturesIsLocationNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Geocode(context.Background(), "xyzlandia")
	require.ErrorIs(t, err, domain.ErrLocationNotFound)
}

func TestGeocode_UpstreamErrorIsNotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Geocode(context.Background(), "monterrey")
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrLocationNotFound)
}

func TestNearbyContact_ReadsDatasourceRawFields(t *testing.T) {
	var gotFilter, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`{"features":[{"properties":{"datasource":{"raw":{"website":"https://pemex.mx","phone":"8112345678"}}}}]}`))
	}))
	defer srv.Close()

	contact, found, err := newTestClient(t, srv.URL).NearbyContact(context.Background(), 25.6866, -100.3161, "service.fuel")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "https://pemex.mx", contact.Website)
	require.Equal(t, "8112345678", contact.Phone)
	require.Equal(t, "circle:-100.3161,25.6866,250", gotFilter)
	require.Equal(t, "1", gotLimit)
}

func TestNearbyContact_TopLevelWebsiteWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":[{"properties":{"website":"https://top.mx","datasource":{"raw":{"website":"https://raw.mx"}}}}]}`))
	}))
	defer srv.Close()

	contact, found, err := newTestClient(t, srv.URL).NearbyContact(context.Background(), 25.68, -100.31, "service.fuel")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "https://top.mx", contact.Website)
}

func TestNearbyContact_NoFeaturesIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	_, found, err := newTestClient(t, srv.URL).NearbyContact(context.Background(), 25.68, -100.31, "service.fuel")
	require.NoError(t, err)
	require.False(t, found)
}

func TestNearbyContact_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, _, err := newTestClient(t, srv.URL).NearbyContact(context.Background(), 25.68, -100.31, "service.fuel")
	require.Error(t, err)
}
