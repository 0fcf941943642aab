package core

// Message is a single conversation message as delivered by the host runtime.
// Content carries a plain-string body; Blocks carries typed content blocks.
// A message has one or the other — when both are set, Content wins.
type Message struct {
	Role    string         `json:"role"`
	Content string         `json:"content,omitempty"`
	Blocks  []ContentBlock `json:"blocks,omitempty"`
}

// ContentBlock is a typed fragment of a message body. Only "text" blocks are
// consulted by the memory system.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewTextBlock creates a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// UserTexts extracts the user-authored text segments from a turn's messages.
// Messages with a non-user role are skipped; for block-based messages only
// "text"-typed blocks contribute.
func UserTexts(msgs []Message) []string {
	var out []string
	for _, m := range msgs {
		if m.Role != "user" {
			continue
		}
		if m.Content != "" {
			out = append(out, m.Content)
			continue
		}
		for _, b := range m.Blocks {
			if b.Type == "text" && b.Text != "" {
				out = append(out, b.Text)
			}
		}
	}
	return out
}
