package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"proveia-agent/internal/domain"
)

const (
	ModeNormal   = "normal"
	ModeThinking = "thinking"

	defaultRadiusMeters = 2000
	minRadiusMeters     = 100
	maxRadiusMeters     = 50000

	maxMessages      = 50
	maxContentLength = 2000
	maxResults       = 50

	enrichConcurrency = 4
)

// Response-composition purposes. The composer keys its prompt template and
// canned fallback off these.
const (
	purposeInfo        = "info"
	purposeAskLocation = "ask_location"
	purposeAskRadius   = "ask_radius"
	purposeResults     = "results"
	purposeNoResults   = "no_results"
	purposeError       = "error"
)

// Pipeline stages narrated in thinking mode, in strict order.
const (
	stepAnalyzing = "analyzing"
	stepGeocoding = "geocoding"
	stepSearching = "searching"
	stepEnriching = "enriching"
	stepScoring   = "scoring"
)

// Geocoder resolves a location phrase to a coordinate and display name.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (domain.Location, error)
}

// Registry queries the business registry for candidates near a coordinate.
type Registry interface {
	Search(ctx context.Context, terms []string, lat, lon float64, radiusMeters int) ([]domain.Provider, error)
}

// PlacesClient looks up contact data for a nearby point of interest.
type PlacesClient interface {
	NearbyContact(ctx context.Context, lat, lon float64, categories string) (domain.PlaceContact, bool, error)
}

// Composer produces a short user-facing message for the given purpose. It
// never fails: on any upstream problem it returns a canned fallback.
type Composer interface {
	Compose(ctx context.Context, purpose, userMessage, contextInfo string) string
}

// SearchService orchestrates one provider-search request end to end. It is
// stateless: every invocation re-derives dialogue slots from the replayed
// transcript and the caller-supplied arguments.
type SearchService struct {
	geocoder Geocoder
	registry Registry
	places   PlacesClient
	composer Composer
}

// SearchInput is one inbound request after JSON decoding.
type SearchInput struct {
	Messages     []domain.Message
	UserLocation *domain.Location
	Mode         string
	RadiusMeters int
}

// NewSearchService wires the pipeline. places may be nil, which disables
// enrichment entirely.
func NewSearchService(g Geocoder, r Registry, p PlacesClient, c Composer) (*SearchService, error) {
	if g == nil {
		return nil, errors.New("usecase: geocoder must not be nil")
	}
	if r == nil {
		return nil, errors.New("usecase: registry must not be nil")
	}
	if c == nil {
		return nil, errors.New("usecase: composer must not be nil")
	}
	return &SearchService{geocoder: g, registry: r, places: p, composer: c}, nil
}

// Search runs the pipeline: slot extraction, dialogue resolution, geocoding,
// registry search, optional enrichment, scoring, dedupe, and response
// composition. It returns exactly one outcome variant, or a *Error for
// request-level failures.
func (s *SearchService) Search(ctx context.Context, in SearchInput) (domain.Outcome, error) {
	// Coverage questions are answered before full validation so a bare
	// "¿qué ciudades cubres?" works without location or radius arguments.
	if len(in.Messages) > 0 && isCoverageQuestion(lastUserMessage(in.Messages)) {
		msg := s.composer.Compose(ctx, purposeInfo, lastUserMessage(in.Messages), "")
		return domain.Outcome{Type: domain.OutcomeInfo, Message: msg}, nil
	}

	if err := validateInput(in); err != nil {
		return domain.Outcome{}, err
	}

	mode := in.Mode
	if mode == "" {
		mode = ModeNormal
	}

	messages := trimTranscript(in.Messages)
	utterance := lastUserMessage(messages)

	var thinking []domain.ThinkingStep
	note := func(step, message string) {
		if mode == ModeThinking {
			thinking = append(thinking, domain.ThinkingStep{Step: step, Message: message})
		}
	}

	note(stepAnalyzing, "🤔 Analizando tu solicitud...")
	intent := extractIntent(utterance)
	slog.Info("resolved search intent",
		"terms", intent.Terms, "display", intent.Display, "limit", intent.Limit)

	location := in.UserLocation
	locationPhrase := ""
	if location == nil {
		locationPhrase = extractLocationPhrase(utterance)
	}

	switch resolveDialogue(location, locationPhrase, in.RadiusMeters, utterance) {
	case dialogueNeedsLocation:
		msg := s.composer.Compose(ctx, purposeAskLocation, utterance, "")
		return domain.Outcome{Type: domain.OutcomeNeedsLocation, Message: msg}, nil
	case dialogueNeedsRadius:
		msg := s.composer.Compose(ctx, purposeAskRadius, utterance, "")
		return domain.Outcome{
			Type:          domain.OutcomeNeedsRadius,
			Message:       msg,
			RadiusOptions: radiusOptions(),
		}, nil
	}

	note(stepGeocoding, "🗺️ Obteniendo coordenadas de la ubicación...")
	if location == nil {
		resolved, err := s.geocoder.Geocode(ctx, locationPhrase)
		if err != nil {
			if errors.Is(err, domain.ErrLocationNotFound) {
				return domain.Outcome{}, &Error{
					Code:    ErrorLocationNotFound,
					Reason:  "geocode_no_features",
					Message: "No se pudo determinar la ubicación. Por favor especifica una ciudad.",
					Err:     err,
				}
			}
			return domain.Outcome{}, s.upstreamError(ctx, "geocode_error", err)
		}
		location = &resolved
	}

	radius := in.RadiusMeters
	if radius == 0 {
		radius = defaultRadiusMeters
	}

	note(stepSearching, fmt.Sprintf("🔍 Buscando %s en un radio de %g km...", intent.Display, float64(radius)/1000))
	providers, err := s.registry.Search(ctx, intent.Terms, location.Latitude, location.Longitude, radius)
	if err != nil {
		if errors.Is(err, domain.ErrOutOfRegion) {
			return domain.Outcome{}, &Error{
				Code:    ErrorOutOfRegion,
				Reason:  "coordinates_outside_mexico",
				Message: "Las coordenadas están fuera de México. Por favor verifica la ubicación.",
				Err:     err,
			}
		}
		return domain.Outcome{}, s.upstreamError(ctx, "registry_error", err)
	}
	providers = deduplicate(providers)

	enriched := false
	if mode == ModeThinking && len(providers) > 0 && intent.PlaceCategories != "" && s.places != nil {
		note(stepEnriching, "✨ Enriqueciendo datos con información adicional...")
		providers = s.enrich(ctx, providers, intent.PlaceCategories)
		enriched = true
	}

	note(stepScoring, "📊 Calculando puntuaciones de relevancia...")
	for i := range providers {
		score, distance := scoreProvider(providers[i], *location, intent.Terms, enriched)
		providers[i].Score = score
		providers[i].DistanceKm = distance
	}
	sort.SliceStable(providers, func(i, j int) bool {
		return providers[i].Score > providers[j].Score
	})

	total := len(providers)
	limit := intent.Limit
	if limit == 0 || limit > total {
		limit = total
		if limit > maxResults {
			limit = maxResults
		}
	}
	providers = providers[:limit]

	var message string
	if total > 0 {
		requested := ""
		if intent.Limit > 0 {
			requested = fmt.Sprintf("El usuario pidió los %d mejores. ", intent.Limit)
		}
		context := fmt.Sprintf("Encontré %d %s cerca de %s. %sRadio de búsqueda: %g km.",
			total, intent.Display, location.Name, requested, float64(radius)/1000)
		message = s.composer.Compose(ctx, purposeResults, utterance, context)
	} else {
		context := fmt.Sprintf("No se encontraron %s en %s con radio de %g km.",
			intent.Display, location.Name, float64(radius)/1000)
		message = s.composer.Compose(ctx, purposeNoResults, utterance, context)
	}

	return domain.Outcome{
		Type:      domain.OutcomeResults,
		Message:   message,
		Thinking:  thinking,
		Providers: providers,
		Location:  location,
		Mode:      mode,
	}, nil
}

// enrich backfills missing website/phone from the places service. Lookups
// run concurrently under a small cap; per-candidate failures are logged and
// the candidate passes through untouched. Input order is preserved.
func (s *SearchService) enrich(ctx context.Context, providers []domain.Provider, categories string) []domain.Provider {
	out := make([]domain.Provider, len(providers))
	copy(out, providers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i := range out {
		g.Go(func() error {
			p := &out[i]
			contact, found, err := s.places.NearbyContact(gctx, p.Latitude, p.Longitude, categories)
			if err != nil {
				slog.Warn("enrichment lookup failed", "provider", p.Name, "err", err)
				return nil
			}
			if !found {
				return nil
			}
			if p.Website == "" {
				p.Website = contact.Website
			}
			if p.Phone == "" {
				p.Phone = contact.Phone
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	return out
}

// upstreamError wraps a request-level upstream failure with a composed,
// safe user-facing message. The raw error is kept for logging only.
func (s *SearchService) upstreamError(ctx context.Context, reason string, err error) *Error {
	slog.Error("upstream failure", "reason", reason, "err", err)
	return &Error{
		Code:    ErrorUpstream,
		Reason:  reason,
		Message: s.composer.Compose(ctx, purposeError, "", "error técnico durante la búsqueda"),
		Err:     err,
	}
}

func validateInput(in SearchInput) error {
	if len(in.Messages) == 0 {
		return newError(ErrorInvalidInput, "empty_messages", nil)
	}
	if len(in.Messages) > maxMessages {
		return newError(ErrorInvalidInput, "too_many_messages", nil)
	}
	for _, m := range in.Messages {
		if utf8.RuneCountInString(m.Content) > maxContentLength {
			return newError(ErrorInvalidInput, "message_too_long", nil)
		}
	}
	if loc := in.UserLocation; loc != nil {
		if loc.Latitude < -90 || loc.Latitude > 90 {
			return newError(ErrorInvalidInput, "latitude_out_of_range", nil)
		}
		if loc.Longitude < -180 || loc.Longitude > 180 {
			return newError(ErrorInvalidInput, "longitude_out_of_range", nil)
		}
	}
	if r := in.RadiusMeters; r != 0 && (r < minRadiusMeters || r > maxRadiusMeters) {
		return newError(ErrorInvalidInput, "radius_out_of_range", nil)
	}
	if in.Mode != "" && in.Mode != ModeNormal && in.Mode != ModeThinking {
		return newError(ErrorInvalidInput, "unknown_mode", nil)
	}
	return nil
}
