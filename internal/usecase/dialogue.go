package usecase

import "proveia-agent/internal/domain"

// dialogueState is where the slot-filling conversation stands for the
// current request. There is no persisted session: the state is re-derived
// on every invocation from the replayed transcript and the caller-supplied
// slots, so callers must replay slots they already resolved (e.g. pass the
// location once known) to keep the dialogue from looping.
type dialogueState int

const (
	dialogueNeedsLocation dialogueState = iota
	dialogueNeedsRadius
	dialogueReady
)

// maxReplayedTurns bounds how much trailing transcript the engine reads.
const maxReplayedTurns = 9

// resolveDialogue decides whether to ask a clarifying question or proceed.
// Location is checked first: without one, no radius question and no network
// call happen. A radius phrase in the utterance counts as a known radius
// even though the effective value still comes from the request argument.
func resolveDialogue(known *domain.Location, locationPhrase string, radiusMeters int, utterance string) dialogueState {
	if known == nil && locationPhrase == "" {
		return dialogueNeedsLocation
	}
	if radiusMeters == 0 && !containsRadius(utterance) {
		return dialogueNeedsRadius
	}
	return dialogueReady
}

// radiusOptions are the two fixed suggestions offered with a radius
// question.
func radiusOptions() []domain.RadiusOption {
	return []domain.RadiusOption{
		{Label: "2 km", Value: 2000},
		{Label: "5 km", Value: 5000},
	}
}

// trimTranscript keeps the first turn plus the most recent turns. The rest
// of the transcript is the caller's concern, not the engine's.
func trimTranscript(messages []domain.Message) []domain.Message {
	if len(messages) <= maxReplayedTurns+1 {
		return messages
	}
	trimmed := make([]domain.Message, 0, maxReplayedTurns+1)
	trimmed = append(trimmed, messages[0])
	trimmed = append(trimmed, messages[len(messages)-maxReplayedTurns:]...)
	return trimmed
}

// lastUserMessage returns the content of the most recent user turn, or the
// last turn's content when no user turn exists.
func lastUserMessage(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}
