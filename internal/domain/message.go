package domain

// Conversation roles carried in the inbound transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn as replayed by the caller. The
// engine keeps no session state of its own; it re-derives missing slots
// from the trailing turns on every request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ThinkingStep is one progress-narration entry emitted in thinking mode,
// tied to a pipeline stage.
type ThinkingStep struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}
