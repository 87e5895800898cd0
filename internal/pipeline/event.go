package pipeline

// Event is one inbound message as delivered by the platform adapter. It is
// ephemeral: only the stripped prompt derived from Content is persisted.
type Event struct {
	AuthorID      string
	AuthorMention string
	Content       string
	Mentions      []string
	ChannelID     string
}

// Addresses reports whether the event mentions the given identity.
func (e Event) Addresses(id string) bool {
	for _, m := range e.Mentions {
		if m == id {
			return true
		}
	}
	return false
}
