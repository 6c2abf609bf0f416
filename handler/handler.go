package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"proveia-agent/internal/domain"
	"proveia-agent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// corsHeaders are attached to every Lambda response; browser callers hit
// the function URL directly.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
}

// SearchUseCase is the single operation the handler depends on.
type SearchUseCase interface {
	Search(ctx context.Context, in usecase.SearchInput) (domain.Outcome, error)
}

// Handler maps inbound JSON to the search use case and outcomes back to
// response bodies. It serves both the Lambda event shape and plain HTTP.
type Handler struct {
	uc SearchUseCase
}

func NewHandler(uc SearchUseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc}, nil
}

type locationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

// Radius is decoded as a pointer so an explicit "radius": 0 can be told
// apart from an absent field: absent means "ask the radius question",
// explicit zero is below the minimum and rejected.
type searchRequest struct {
	Messages     []domain.Message `json:"messages"`
	UserLocation *locationPayload `json:"userLocation,omitempty"`
	Mode         string           `json:"mode,omitempty"`
	RadiusMeters *int             `json:"radius,omitempty"`
}

type questionResponse struct {
	Type          string                `json:"type"`
	Message       string                `json:"message"`
	NeedsLocation bool                  `json:"needsLocation,omitempty"`
	NeedsRadius   bool                  `json:"needsRadius,omitempty"`
	Options       []domain.RadiusOption `json:"options,omitempty"`
}

type infoResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type resultsResponse struct {
	Type      string                `json:"type"`
	Message   string                `json:"message"`
	Thinking  []domain.ThinkingStep `json:"thinking,omitempty"`
	Providers []domain.Provider     `json:"providers"`
	Location  *domain.Location      `json:"location,omitempty"`
	Mode      string                `json:"mode,omitempty"`
}

type errorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handle is the Lambda entrypoint.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event.Headers)

	if event.HTTPMethod == http.MethodOptions {
		return lambdaResponse(http.StatusNoContent, "", corrID), nil
	}

	status, body := h.process(ctx, []byte(event.Body), corrID)
	return lambdaResponse(status, body, corrID), nil
}

// ServeHTTP serves the same operation over plain HTTP. CORS and preflight
// are left to router middleware.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corrID := r.Header.Get(correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		raw = nil
	}
	status, body := h.process(r.Context(), raw, corrID)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(correlationHeader, corrID)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// process decodes the request, runs the search, and encodes exactly one
// response body. It never propagates an error upward; failures become the
// error response shape with a safe message.
func (h *Handler) process(ctx context.Context, raw []byte, corrID string) (int, string) {
	var req searchRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		slog.Warn("rejected malformed request body", "correlation_id", corrID, "err", err)
		return http.StatusBadRequest, encode(errorResponse{
			Type:    "error",
			Error:   string(usecase.ErrorInvalidInput),
			Message: safeMessage(usecase.ErrorInvalidInput),
		})
	}
	if req.RadiusMeters != nil && *req.RadiusMeters == 0 {
		slog.Warn("rejected explicit zero radius", "correlation_id", corrID)
		return http.StatusBadRequest, encode(errorResponse{
			Type:    "error",
			Error:   string(usecase.ErrorInvalidInput),
			Message: safeMessage(usecase.ErrorInvalidInput),
		})
	}

	in := usecase.SearchInput{
		Messages: req.Messages,
		Mode:     req.Mode,
	}
	if req.RadiusMeters != nil {
		in.RadiusMeters = *req.RadiusMeters
	}
	if req.UserLocation != nil {
		in.UserLocation = &domain.Location{
			Latitude:  req.UserLocation.Latitude,
			Longitude: req.UserLocation.Longitude,
			Name:      req.UserLocation.Name,
		}
	}

	outcome, err := h.uc.Search(ctx, in)
	if err != nil {
		return h.errorBody(corrID, err)
	}
	return http.StatusOK, encodeOutcome(outcome)
}

func (h *Handler) errorBody(corrID string, err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		slog.Error("unexpected search failure", "correlation_id", corrID, "err", err)
		return http.StatusInternalServerError, encode(errorResponse{
			Type:    "error",
			Error:   string(usecase.ErrorInternal),
			Message: safeMessage(usecase.ErrorInternal),
		})
	}

	slog.Warn("search failed", "correlation_id", corrID,
		"code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)

	message := ucErr.Message
	if message == "" {
		message = safeMessage(ucErr.Code)
	}
	return statusForCode(ucErr.Code), encode(errorResponse{
		Type:    "error",
		Error:   string(ucErr.Code),
		Message: message,
	})
}

func encodeOutcome(outcome domain.Outcome) string {
	switch outcome.Type {
	case domain.OutcomeNeedsLocation:
		return encode(questionResponse{
			Type:          "question",
			Message:       outcome.Message,
			NeedsLocation: true,
		})
	case domain.OutcomeNeedsRadius:
		return encode(questionResponse{
			Type:        "question",
			Message:     outcome.Message,
			NeedsRadius: true,
			Options:     outcome.RadiusOptions,
		})
	case domain.OutcomeInfo:
		return encode(infoResponse{Type: "info", Message: outcome.Message})
	default:
		providers := outcome.Providers
		if providers == nil {
			providers = []domain.Provider{}
		}
		return encode(resultsResponse{
			Type:      "results",
			Message:   outcome.Message,
			Thinking:  outcome.Thinking,
			Providers: providers,
			Location:  outcome.Location,
			Mode:      outcome.Mode,
		})
	}
}

func statusForCode(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput, usecase.ErrorLocationNotFound, usecase.ErrorOutOfRegion:
		return http.StatusBadRequest
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// safeMessage is the last-resort user-facing text when the use case did not
// supply one. Never exposes upstream detail.
func safeMessage(code usecase.ErrorCode) string {
	switch code {
	case usecase.ErrorInvalidInput:
		return "La solicitud no es válida. Verifica los datos enviados."
	default:
		return "Ocurrió un error. Por favor intenta de nuevo."
	}
}

func encode(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		// Only reachable with an unmarshalable type, which the response
		// structs above are not.
		return `{"type":"error","error":"INTERNAL_ERROR","message":"Ocurrió un error."}`
	}
	return string(raw)
}

func lambdaResponse(status int, body, corrID string) events.APIGatewayProxyResponse {
	headers := make(map[string]string, len(corsHeaders)+2)
	for k, v := range corsHeaders {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"
	headers[correlationHeader] = corrID
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       body,
	}
}

// correlationID reuses the inbound header regardless of casing, otherwise
// mints a fresh ID.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
