package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"proveia-agent/handler"
	"proveia-agent/internal/integrations/denue"
	"proveia-agent/internal/integrations/gemini"
	"proveia-agent/internal/integrations/geoapify"
	"proveia-agent/internal/integrations/paramstore"
	"proveia-agent/internal/repository"
	"proveia-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	paramPrefix := mustEnv("PARAM_PREFIX")
	geocacheTable := os.Getenv("GEOCACHE_TABLE") // optional

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	registryClient, err := denue.NewClient(ssmClient, paramPrefix+"/denue-token")
	if err != nil {
		slog.Error("failed to create registry client", "err", err)
		os.Exit(1)
	}
	geoClient, err := geoapify.NewClient(ssmClient, paramPrefix+"/geoapify-key")
	if err != nil {
		slog.Error("failed to create geo client", "err", err)
		os.Exit(1)
	}
	composerClient, err := gemini.NewClient(ssmClient, paramPrefix+"/gemini-key")
	if err != nil {
		slog.Error("failed to create composer client", "err", err)
		os.Exit(1)
	}

	var store usecase.GeocodeStore
	if geocacheTable != "" {
		geocodeStore, err := repository.NewGeocodeStore(awsdynamodb.NewFromConfig(cfg), geocacheTable)
		if err != nil {
			slog.Error("failed to create geocode store", "err", err)
			os.Exit(1)
		}
		store = geocodeStore
	}
	geocoder, err := usecase.NewCachingGeocoder(geoClient, store)
	if err != nil {
		slog.Error("failed to create caching geocoder", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
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

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
