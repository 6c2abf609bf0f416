package domain

// SearchIntent is the normalized result of slot extraction for one
// utterance. Terms are ordered: the registry is queried term by term and the
// first term with results wins. PlaceCategories is the places-API category
// string used for enrichment; empty disables enrichment for the request.
// Immutable once computed for a turn.
type SearchIntent struct {
	Terms           []string
	Display         string
	PlaceCategories string
	Limit           int // requested result cap, 0 when not asked for
}
