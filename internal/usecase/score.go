package usecase

import (
	"fmt"
	"math"
	"strings"

	"proveia-agent/internal/domain"
	"proveia-agent/internal/geo"
)

// Scoring weights. Maximum attainable is exactly 100
// (50+10+10+5+15+10), so no clamp is needed.
const (
	proximityMaxPoints  = 50
	proximityMaxKm      = 5
	phonePoints         = 10
	websitePoints       = 10
	emailPoints         = 5
	categoryMatchPoints = 15
	enrichedBonusPoints = 10
)

// scoreProvider returns the 0-100 relevance score and the distance used to
// compute it. The distance is returned so callers set DistanceKm from the
// same haversine result instead of recomputing it.
func scoreProvider(p domain.Provider, loc domain.Location, terms []string, enriched bool) (int, float64) {
	distance := geo.DistanceKm(loc.Latitude, loc.Longitude, p.Latitude, p.Longitude)

	score := proximityMaxPoints * (1 - math.Min(distance, proximityMaxKm)/proximityMaxKm)

	if p.Phone != "" {
		score += phonePoints
	}
	if p.Website != "" {
		score += websitePoints
	}
	if p.Email != "" {
		score += emailPoints
	}

	desc := strings.ToLower(p.Description)
	for _, term := range terms {
		if strings.Contains(desc, strings.ToLower(term)) || strings.Contains(p.SCIANCode, term) {
			score += categoryMatchPoints
			break
		}
	}

	if enriched && (p.Website != "" || p.Phone != "") {
		score += enrichedBonusPoints
	}

	return int(math.Round(score)), distance
}

// deduplicate collapses providers that share name and exact coordinates.
// First occurrence wins and input order is preserved; running it on its own
// output is a no-op.
func deduplicate(providers []domain.Provider) []domain.Provider {
	seen := make(map[string]bool, len(providers))
	unique := make([]domain.Provider, 0, len(providers))
	for _, p := range providers {
		key := fmt.Sprintf("%s|%g|%g", p.Name, p.Latitude, p.Longitude)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, p)
	}
	return unique
}
