package domain

// Provider is one candidate business sourced from the registry. Enrichment
// backfills Phone/Website only when empty; scoring sets Score and DistanceKm.
// Providers live for a single request and are never persisted by the engine.
type Provider struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Description  string  `json:"description"`
	Rating       float64 `json:"rating"`
	LocationName string  `json:"location_name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Phone        string  `json:"contact_phone,omitempty"`
	Email        string  `json:"contact_email,omitempty"`
	Website      string  `json:"website,omitempty"`
	Address      string  `json:"address"`
	Score        int     `json:"score"`
	DistanceKm   float64 `json:"distance"`
	SCIANCode    string  `json:"cve_scian,omitempty"`
	Stratum      string  `json:"estrato,omitempty"`
}

// PlaceContact holds the contact fields a places lookup can backfill.
type PlaceContact struct {
	Website string
	Phone   string
}
