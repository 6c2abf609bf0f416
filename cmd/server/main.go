// Local development server exposing the same search operation as the
// Lambda entrypoint over plain HTTP. Credentials come straight from the
// environment instead of SSM.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"proveia-agent/handler"
	"proveia-agent/internal/integrations/denue"
	"proveia-agent/internal/integrations/gemini"
	"proveia-agent/internal/integrations/geoapify"
	"proveia-agent/internal/integrations/paramstore"
	"proveia-agent/internal/usecase"
)

func main() {
	// ---- Configuration (read only here) ----
	port := envInt("PORT", 8080)
	denueToken := mustEnv("DENUE_TOKEN")
	geoapifyKey := mustEnv("GEOAPIFY_API_KEY")
	geminiKey := mustEnv("GEMINI_API_KEY")

	// ---- Clients ----
	registryClient, err := denue.NewClient(paramstore.Static(denueToken), "denue-token")
	if err != nil {
		slog.Error("failed to create registry client", "err", err)
		os.Exit(1)
	}
	geoClient, err := geoapify.NewClient(paramstore.Static(geoapifyKey), "geoapify-key")
	if err != nil {
		slog.Error("failed to create geo client", "err", err)
		os.Exit(1)
	}
	composerClient, err := gemini.NewClient(paramstore.Static(geminiKey), "gemini-key")
	if err != nil {
		slog.Error("failed to create composer client", "err", err)
		os.Exit(1)
	}

	geocoder, err := usecase.NewCachingGeocoder(geoClient, nil)
	if err != nil {
		slog.Error("failed to create caching geocoder", "err", err)
		os.Exit(1)
	}
	searchService, err := usecase.NewSearchService(geocoder, registryClient, geoClient, composerClient)
	if err != nil {
		slog.Error("failed to create search service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewHandler(searchService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	// ---- Router ----
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type", "X-Correlation-Id"},
	}))
	r.Method(http.MethodPost, "/search", h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	slog.Info("listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
