package study

import (
	"strings"

	"github.com/p-n-ai/ntsa-buddy/internal/ai"
)

// HistoryPart is one text part of a chat turn.
type HistoryPart struct {
	Text string `json:"text"`
}

// HistoryEntry is one prior chat turn as sent by the web client. Role is
// "user" or "model"; the text is taken from Parts, or from Text when Parts
// is empty.
type HistoryEntry struct {
	Role  string        `json:"role"`
	Parts []HistoryPart `json:"parts,omitempty"`
	Text  string        `json:"text,omitempty"`
}

func (h HistoryEntry) content() string {
	if len(h.Parts) == 0 {
		return h.Text
	}
	texts := make([]string, 0, len(h.Parts))
	for _, p := range h.Parts {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "")
}

// historyMessages converts client history to AI messages. Empty turns are
// dropped, and so is a trailing user turn repeating message, since the web
// client includes the message being sent in its history.
func historyMessages(history []HistoryEntry, message string) []ai.Message {
	msgs := make([]ai.Message, 0, len(history)+1)
	for _, h := range history {
		text := strings.TrimSpace(h.content())
		if text == "" {
			continue
		}
		role := ai.RoleUser
		if h.Role == "model" || h.Role == ai.RoleAssistant {
			role = ai.RoleAssistant
		}
		msgs = append(msgs, ai.Message{Role: role, Content: text})
	}

	if n := len(msgs); n > 0 && msgs[n-1].Role == ai.RoleUser && msgs[n-1].Content == strings.TrimSpace(message) {
		msgs = msgs[:n-1]
	}
	return append(msgs, ai.Message{Role: ai.RoleUser, Content: message})
}
