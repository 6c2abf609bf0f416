package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeGetter is a minimal credential source stub for use within this package.
type fakeGetter struct {
	val    string
	err    error
	onCall func()
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	if f.onCall != nil {
		f.onCall()
	}
	return f.val, f.err
}

func candidateBody(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func newTestClient(t *testing.T, srvURL string) *Client {
	t.Helper()
	c, err := NewClient(&fakeGetter{val: "test-key"}, "gemini-key", WithBaseURL(srvURL))
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, "gemini-key")
	require.Error(t, err)

	_, err = NewClient(&fakeGetter{val: "k"}, "  ")
	require.Error(t, err)
}

func TestResolveAPIKey_FetchedOnce(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: "key-1", onCall: func() { calls++ }}
	c, err := NewClient(g, "gemini-key")
	require.NoError(t, err)

	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "key-1", key)

	_, _ = c.resolveAPIKey(context.Background())
	_, _ = c.resolveAPIKey(context.Background())
	require.Equal(t, 1, calls, "credential source must only be consulted once per process lifetime")
}

func TestResolveAPIKey_FailureIsRetriedOnNextCall(t *testing.T) {
	calls := 0
	g := &fakeGetter{onCall: func() { calls++ }, err: errors.New("ssm unavailable")}
	c, err := NewClient(g, "gemini-key")
	require.NoError(t, err)

	_, err = c.resolveAPIKey(context.Background())
	require.Error(t, err)

	g.err = nil
	g.val = "key-2"
	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err, "a transient credential failure must not stick to later calls")
	require.Equal(t, "key-2", key)
	require.Equal(t, 2, calls)
}

func TestResolveAPIKey_EmptyKey(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: "  "}, "gemini-key")
	require.NoError(t, err)
	_, err = c.resolveAPIKey(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestCompose_UsesGeneratedText(t *testing.T) {
	var gotPath string
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(candidateBody("¡Encontré 3 gasolineras! ⛽")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	msg := c.Compose(context.Background(), PurposeResults, "busca gasolineras", "Encontré 3 gasolineras cerca de Monterrey.")
	require.Equal(t, "¡Encontré 3 gasolineras! ⛽", msg)
	require.Equal(t, "/v1beta/models/gemini-2.0-flash-exp:generateContent", gotPath)

	require.Len(t, gotReq.Contents, 1)
	prompt := gotReq.Contents[0].Parts[0].Text
	require.Contains(t, prompt, "Encontré 3 gasolineras cerca de Monterrey.")
	require.Equal(t, float64(0.7), gotReq.GenerationConfig.Temperature)
	require.Equal(t, 200, gotReq.GenerationConfig.MaxOutputTokens)
}

func TestCompose_FallbackPerPurpose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	purposes := []string{PurposeInfo, PurposeAskLocation, PurposeAskRadius, PurposeResults, PurposeNoResults, PurposeError}
	seen := map[string]bool{}
	for _, p := range purposes {
		msg := c.Compose(context.Background(), p, "hola", "")
		require.NotEmpty(t, msg, "purpose %s must fall back to a non-empty message", p)
		require.False(t, seen[msg], "fallbacks must be purpose-specific, got duplicate for %s", p)
		seen[msg] = true
	}
}

func TestCompose_FallbackOnEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(candidateBody("   ")))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	msg := c.Compose(context.Background(), PurposeAskRadius, "busca farmacias", "")
	require.Equal(t, fallbackMessage(PurposeAskRadius), msg)
}

func TestCompose_FallbackOnMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	msg := c.Compose(context.Background(), PurposeNoResults, "", "nada")
	require.Equal(t, fallbackMessage(PurposeNoResults), msg)
}

func TestCompose_FallbackOnKeyError(t *testing.T) {
	c, err := NewClient(&fakeGetter{err: errors.New("ssm unavailable")}, "gemini-key")
	require.NoError(t, err)

	msg := c.Compose(context.Background(), PurposeError, "", "fallo interno")
	require.Equal(t, fallbackMessage(PurposeError), msg)
}

func TestGenerate_StatusErrorOmitsAPIKeyFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.generate(context.Background(), "hola")
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	require.NotContains(t, statusErr.URL, "test-key")
}

func TestBuildPrompt_QuestionPurposesUseUserMessage(t *testing.T) {
	p := buildPrompt(PurposeAskLocation, "busca tornillos", "ignored")
	require.Contains(t, p, "busca tornillos")
	require.False(t, strings.Contains(p, "ignored"))
}

func TestBuildPrompt_ContextPurposesUseContext(t *testing.T) {
	p := buildPrompt(PurposeResults, "ignored", "Encontré 5 farmacias")
	require.Contains(t, p, "Encontré 5 farmacias")
	require.False(t, strings.Contains(p, "ignored"))
}

func TestFallbackMessage_UnknownPurpose(t *testing.T) {
	require.NotEmpty(t, fallbackMessage("unknown"))
}
