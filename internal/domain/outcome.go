package domain

// OutcomeType discriminates the variants of Outcome.
type OutcomeType string

const (
	OutcomeNeedsLocation OutcomeType = "needs_location"
	OutcomeNeedsRadius   OutcomeType = "needs_radius"
	OutcomeInfo          OutcomeType = "info"
	OutcomeResults       OutcomeType = "results"
)

// RadiusOption is one suggested search radius offered to the user.
type RadiusOption struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Outcome is the single tagged result of one search request and the sole
// contract with the calling layer. Exactly one variant is produced per
// request; fields beyond Type and Message are populated per variant.
type Outcome struct {
	Type          OutcomeType
	Message       string
	RadiusOptions []RadiusOption // needs_radius only
	Thinking      []ThinkingStep // results in thinking mode only
	Providers     []Provider     // results only
	Location      *Location      // results only
	Mode          string         // results only
}
