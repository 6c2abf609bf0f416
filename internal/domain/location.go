package domain

// Location is a resolved coordinate with its display name. Either both
// coordinates are present or the value is absent entirely; the engine never
// works with a partially valid location.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}
